package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"learningfun/internal/models"
)

// Mailer sends the account and progress emails. EmailService is the SES
// implementation; tests substitute a recorder.
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
	SendProgressEmail(ctx context.Context, toEmail, toName string, report ProgressReport) error
}

// sesAPI is the part of the SES client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	log        *zap.Logger
}

var _ Mailer = (*EmailService)(nil)

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and drops every message.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, log *zap.Logger) (*EmailService, error) {
	log = log.Named("email")
	if fromEmail == "" {
		log.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{log: log, appBaseURL: appBaseURL}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("email service enabled", zap.String("from", fromEmail), zap.String("region", awsRegion))
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		log:        log,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendPasswordResetEmail sends a password reset email with a reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	resetLink := fmt.Sprintf("%s/auth/reset-password?token=%s", s.appBaseURL, resetToken)

	subject := "Reset your Learning Fun password"
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Password Reset Request</h1>
	<p>Hi %s,</p>
	<p>We received a request to reset the password of your Learning Fun account.</p>
	<p><a href="%s">Reset Password</a></p>
	<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
	<p><strong>This link will expire in 1 hour.</strong></p>
	<p>If you didn't request a password reset, you can safely ignore this email.</p>
</body>
</html>
`, toName, resetLink, resetLink)

	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset the password of your Learning Fun account.

Open the link below to choose a new password:
%s

This link will expire in 1 hour.

If you didn't request a password reset, you can safely ignore this email.
`, toName, resetLink)

	return s.sendEmail(ctx, "password_reset", toEmail, subject, htmlBody, textBody)
}

// SendWelcomeEmail sends a welcome email to new users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	subject := "Welcome to Learning Fun!"
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>Welcome to Learning Fun!</h1>
	<p>Hi %s,</p>
	<p>Your account is ready. Practice math, English and the world around us, earn points and collect badges.</p>
	<p><a href="%s">Get Started</a></p>
</body>
</html>
`, toName, s.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

Your account is ready. Practice math, English and the world around us, earn points and collect badges.

Get started: %s
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, "welcome", toEmail, subject, htmlBody, textBody)
}

// SendProgressEmail sends a parent or teacher the summary of one student's recent work.
func (s *EmailService) SendProgressEmail(ctx context.Context, toEmail, toName string, report ProgressReport) error {
	subject := fmt.Sprintf("%s's learning progress", report.Student.FullName)

	var rows, lines strings.Builder
	for _, p := range report.Progress {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%d/%d</td><td>%s</td></tr>\n",
			p.Subject, p.ExerciseType, p.Score, p.TotalQuestions, p.CompletedAt.Format(models.ChallengeDateLayout))
		fmt.Fprintf(&lines, "- %s %s: %d/%d (%s)\n",
			p.Subject, p.ExerciseType, p.Score, p.TotalQuestions, p.CompletedAt.Format(models.ChallengeDateLayout))
	}

	badges := strings.Join(report.Stats.Badges, ", ")
	if badges == "" {
		badges = "none yet"
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h1>%s</h1>
	<p>Hi %s,</p>
	<p>Total points: <strong>%d</strong>. Streak: <strong>%d days</strong>. Badges: %s.</p>
	<table>
		<tr><th>Subject</th><th>Exercise</th><th>Score</th><th>Date</th></tr>
		%s
	</table>
</body>
</html>
`, subject, toName, report.Stats.TotalPoints, report.Stats.StreakDays, badges, rows.String())

	textBody := fmt.Sprintf(`Hi %s,

Total points: %d
Streak: %d days
Badges: %s

Recent exercises:
%s`, toName, report.Stats.TotalPoints, report.Stats.StreakDays, badges, lines.String())

	return s.sendEmail(ctx, "progress", toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, kind, toEmail, subject, htmlBody, textBody string) error {
	if !s.enabled {
		s.log.Info("skipping email send (service disabled)", zap.String("kind", kind), zap.String("to", toEmail))
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	fields := []zap.Field{zap.String("kind", kind), zap.String("to", toEmail)}
	if result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	s.log.Info("email sent", fields...)
	return nil
}
