package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"learningfun/internal/gateway"
	"learningfun/internal/models"
)

// ErrMailerUnavailable is returned by Email when no mailer is wired.
var ErrMailerUnavailable = errors.New("email is not configured")

const (
	progressSheet = "Progress"
	summarySheet  = "Summary"
)

// ProgressReport is one student's reward state and exercise history.
type ProgressReport struct {
	Student  models.UserProfile       `json:"student"`
	Stats    models.StudentStats      `json:"stats"`
	Progress []models.StudentProgress `json:"progress"`
}

// SubjectSummary aggregates the runs of one subject.
type SubjectSummary struct {
	Subject  string
	Runs     int
	Score    int
	Total    int
	Accuracy float64
}

// Summaries groups the history by subject in first-seen order.
func (r *ProgressReport) Summaries() []SubjectSummary {
	var out []SubjectSummary
	index := make(map[string]int)
	for _, p := range r.Progress {
		i, ok := index[p.Subject]
		if !ok {
			i = len(out)
			index[p.Subject] = i
			out = append(out, SubjectSummary{Subject: p.Subject})
		}
		out[i].Runs++
		out[i].Score += p.Score
		out[i].Total += p.TotalQuestions
	}
	for i := range out {
		if out[i].Total > 0 {
			out[i].Accuracy = float64(out[i].Score) / float64(out[i].Total) * 100
		}
	}
	return out
}

// ReportService builds progress reports for students and the adults who follow them.
type ReportService struct {
	gw     *gateway.Gateway
	mailer Mailer
	log    *zap.Logger
}

// NewReportService creates a report service. mailer may be nil.
func NewReportService(gw *gateway.Gateway, mailer Mailer, log *zap.Logger) *ReportService {
	return &ReportService{gw: gw, mailer: mailer, log: log.Named("report")}
}

// Build loads the report of studentID, which must be the caller or a
// student the caller follows.
func (s *ReportService) Build(ctx context.Context, studentID int64) (*ProgressReport, error) {
	profile, err := s.gw.StudentProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	stats, err := s.gw.StudentStats(ctx, studentID)
	if err != nil {
		return nil, err
	}
	progress, err := s.gw.ProgressHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &ProgressReport{Student: *profile, Stats: *stats, Progress: progress}, nil
}

// WriteXLSX renders the report as a workbook with a progress and a summary sheet.
func (s *ReportService) WriteXLSX(report *ProgressReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to add summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	rows := [][]any{{"Completed", "Subject", "Exercise", "Score", "Questions", "Accuracy %", "Time (s)"}}
	for _, p := range report.Progress {
		rows = append(rows, []any{
			p.CompletedAt.Format("2006-01-02 15:04"),
			p.Subject,
			p.ExerciseType,
			p.Score,
			p.TotalQuestions,
			roundTenth(p.Accuracy()),
			p.TimeSpent,
		})
	}
	if err := writeRows(f, progressSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(progressSheet, "A1", "G1", header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	badges := strings.Join(report.Stats.Badges, ", ")
	summary := [][]any{
		{"Student", report.Student.FullName},
		{"Total points", report.Stats.TotalPoints},
		{"Streak days", report.Stats.StreakDays},
		{"Badges", badges},
		{},
		{"Subject", "Runs", "Score", "Questions", "Accuracy %"},
	}
	for _, sub := range report.Summaries() {
		summary = append(summary, []any{sub.Subject, sub.Runs, sub.Score, sub.Total, roundTenth(sub.Accuracy)})
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A6", "E6", header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// Email sends the report of studentID to the caller.
func (s *ReportService) Email(ctx context.Context, studentID int64) error {
	if s.mailer == nil {
		return ErrMailerUnavailable
	}
	me, err := s.gw.FetchProfile(ctx)
	if err != nil {
		return err
	}
	report, err := s.Build(ctx, studentID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendProgressEmail(ctx, me.Email, me.FullName, *report); err != nil {
		return err
	}
	s.log.Info("progress report mailed", zap.Int64("student_id", studentID), zap.Int64("to_user", me.ID))
	return nil
}
