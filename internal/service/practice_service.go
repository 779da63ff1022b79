package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"learningfun/internal/content"
	"learningfun/internal/gateway"
	"learningfun/internal/models"
	"learningfun/internal/rewards"
	"learningfun/internal/session"
	"learningfun/internal/validation"
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before events are dropped for it.
const subscriberBuffer = 16

// StartRequest selects the exercise to practice. A zero Grade uses the
// student's profile grade.
type StartRequest struct {
	Subject string `json:"subject"`
	Type    string `json:"type"`
	Grade   int    `json:"grade,omitempty"`
}

// Started identifies a new practice session.
type Started struct {
	ID      string           `json:"id"`
	Session session.Snapshot `json:"session"`
}

// Dashboard is everything the student home screen shows.
type Dashboard struct {
	Profile    *models.UserProfile      `json:"profile"`
	Stats      *models.StudentStats     `json:"stats"`
	Progress   []models.StudentProgress `json:"progress"`
	Challenges []models.DailyChallenge  `json:"challenges"`
}

// PracticeService runs exercise sessions for signed-in students and pays
// their rewards into one ledger per student.
type PracticeService struct {
	base     context.Context
	gw       *gateway.Gateway
	bank     *content.Bank
	registry *session.Registry
	pacing   session.Pacing
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	ledgers map[int64]*ledgerEntry
	hubs    map[string]*hub
}

type ledgerEntry struct {
	ledger *rewards.Ledger
	used   time.Time
}

// NewPracticeService creates the service. Sessions live as long as base, not
// as long as the request that started them.
func NewPracticeService(base context.Context, gw *gateway.Gateway, bank *content.Bank, registry *session.Registry, pacing session.Pacing, log *zap.Logger) *PracticeService {
	return &PracticeService{
		base:     base,
		gw:       gw,
		bank:     bank,
		registry: registry,
		pacing:   pacing,
		log:      log.Named("practice"),
		now:      time.Now,
		ledgers:  make(map[int64]*ledgerEntry),
		hubs:     make(map[string]*hub),
	}
}

func student(ctx context.Context) (gateway.AuthSession, error) {
	auth, ok := gateway.AuthSessionFrom(ctx)
	if !ok {
		return gateway.AuthSession{}, gateway.ErrNotAuthenticated
	}
	if auth.UserType != models.UserTypeStudent {
		return gateway.AuthSession{}, gateway.ErrForbidden
	}
	return auth, nil
}

// Ledger returns the student's ledger, creating it on first use.
func (s *PracticeService) Ledger(studentID int64) *rewards.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ledgers[studentID]
	if !ok {
		e = &ledgerEntry{ledger: rewards.New(s.gw)}
		s.ledgers[studentID] = e
	}
	e.used = s.now()
	return e.ledger
}

// Start builds the question set and starts a controller for the caller.
func (s *PracticeService) Start(ctx context.Context, req StartRequest) (*Started, error) {
	auth, err := student(ctx)
	if err != nil {
		return nil, err
	}
	kind, ok := content.Lookup(req.Subject, req.Type)
	if !ok {
		return nil, content.ErrUnknownExercise
	}

	grade := req.Grade
	if grade != 0 {
		if err := validation.ValidateGrade("grade", grade); err != nil {
			return nil, err
		}
	} else {
		profile, err := s.gw.FetchProfile(ctx)
		if err != nil {
			return nil, err
		}
		if profile.GradeLevel != nil {
			grade = *profile.GradeLevel
		}
	}
	if kind.MinGrade > 0 && grade < kind.MinGrade {
		grade = kind.MinGrade
	}

	items, err := s.bank.Items(kind.Subject, kind.Type, grade)
	if err != nil {
		return nil, err
	}

	h := newHub()
	startedAt := s.now()
	opts := session.Rules(kind.Subject, kind.Type, s.pacing)
	ledger := s.Ledger(auth.UserID)
	opts.Listener = ledger

	// The controller outlives this request; it carries the caller's identity
	// on the service's own context.
	sessCtx := gateway.WithAuthSession(s.base, auth)
	opts.OnEvent = func(ev session.Event) {
		switch ev.Type {
		case session.EventCompleted:
			s.recordCompletion(sessCtx, ledger, kind, ev.Snapshot, startedAt)
		case session.EventRewardFailed:
			s.log.Warn("reward not saved", zap.Int64("student_id", auth.UserID), zap.String("error", ev.Err))
		}
		h.publish(ev)
		if ev.Type == session.EventCompleted {
			h.close()
		}
	}

	ctrl := session.New(items, opts)
	if err := ctrl.Start(sessCtx); err != nil {
		return nil, err
	}
	id := s.registry.Add(auth.UserID, ctrl)

	s.mu.Lock()
	s.hubs[id] = h
	s.mu.Unlock()
	go s.watch(id, ctrl, h)

	s.log.Debug("session started",
		zap.String("session_id", id),
		zap.Int64("student_id", auth.UserID),
		zap.String("subject", kind.Subject),
		zap.String("type", kind.Type),
		zap.Int("grade", grade),
	)
	return &Started{ID: id, Session: ctrl.Snapshot()}, nil
}

// watch forgets the session's hub once the controller finishes.
func (s *PracticeService) watch(id string, ctrl *session.Controller, h *hub) {
	<-ctrl.Done()
	if ctrl.Snapshot().State != session.Completed {
		h.close()
	}
	s.mu.Lock()
	delete(s.hubs, id)
	s.mu.Unlock()
}

func (s *PracticeService) recordCompletion(ctx context.Context, ledger *rewards.Ledger, kind content.Kind, snap session.Snapshot, startedAt time.Time) {
	_, err := ledger.RecordProgress(ctx, models.StudentProgress{
		Subject:        kind.Subject,
		ExerciseType:   kind.Type,
		Score:          snap.Score,
		TotalQuestions: snap.Total,
		TimeSpent:      int(s.now().Sub(startedAt).Seconds()),
	})
	if err != nil {
		s.log.Error("failed to record progress", zap.String("type", kind.Type), zap.Error(err))
	}
}

func (s *PracticeService) controller(ctx context.Context, id string) (*session.Controller, error) {
	auth, err := student(ctx)
	if err != nil {
		return nil, err
	}
	return s.registry.Get(auth.UserID, id)
}

// Snapshot returns the session's current view.
func (s *PracticeService) Snapshot(ctx context.Context, id string) (session.Snapshot, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Select records the highlighted answer of a timed question.
func (s *PracticeService) Select(ctx context.Context, id, answer string) error {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return err
	}
	return ctrl.Select(answer)
}

// Submit answers the current question.
func (s *PracticeService) Submit(ctx context.Context, id, answer string) (session.Result, session.Snapshot, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return session.Result{}, session.Snapshot{}, err
	}
	res, err := ctrl.Submit(answer)
	if err != nil {
		return session.Result{}, session.Snapshot{}, err
	}
	return res, ctrl.Snapshot(), nil
}

// Advance skips the rest of the feedback delay.
func (s *PracticeService) Advance(ctx context.Context, id string) (session.Snapshot, error) {
	ctrl, err := s.controller(ctx, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := ctrl.Advance(); err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Quit closes a session without completing it.
func (s *PracticeService) Quit(ctx context.Context, id string) error {
	auth, err := student(ctx)
	if err != nil {
		return err
	}
	return s.registry.Remove(auth.UserID, id)
}

// Subscribe streams the session's events until it completes, is closed or
// ctx ends. The channel is closed at that point.
func (s *PracticeService) Subscribe(ctx context.Context, id string) (<-chan session.Event, error) {
	if _, err := s.controller(ctx, id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	h, ok := s.hubs[id]
	s.mu.Unlock()
	if !ok {
		return nil, session.ErrSessionNotFound
	}

	ch, cancel := h.subscribe()
	context.AfterFunc(ctx, cancel)
	return ch, nil
}

// Sweep drops finished and idle sessions, then forgets the ledgers of
// students who have no live session and have not used their ledger within
// the idle timeout.
func (s *PracticeService) Sweep() int {
	n := s.registry.Sweep()
	if n > 0 {
		s.log.Debug("swept sessions", zap.Int("removed", n))
	}

	live := s.registry.Owners()
	cutoff := s.now().Add(-s.registry.Idle())
	s.mu.Lock()
	evicted := 0
	for id, e := range s.ledgers {
		if !live[id] && e.used.Before(cutoff) {
			delete(s.ledgers, id)
			evicted++
		}
	}
	s.mu.Unlock()
	if evicted > 0 {
		s.log.Debug("evicted ledgers", zap.Int("removed", evicted))
	}
	return n
}

// Shutdown closes every live session.
func (s *PracticeService) Shutdown() {
	s.registry.CloseAll()
}

// Stats returns the caller's reward state, refreshing the ledger cache.
func (s *PracticeService) Stats(ctx context.Context) (*models.StudentStats, error) {
	auth, err := student(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ledger(auth.UserID).Refresh(ctx)
}

// AddPoints credits points earned outside a session.
func (s *PracticeService) AddPoints(ctx context.Context, n int) (*models.StudentStats, error) {
	auth, err := student(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ledger(auth.UserID).AddPoints(ctx, n)
}

// AddBadge grants a badge earned outside a session.
func (s *PracticeService) AddBadge(ctx context.Context, name string) (*models.StudentStats, error) {
	auth, err := student(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ledger(auth.UserID).AddBadge(ctx, name)
}

// RecordProgress stores a run finished outside a session.
func (s *PracticeService) RecordProgress(ctx context.Context, p models.StudentProgress) (*models.StudentProgress, error) {
	auth, err := student(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ledger(auth.UserID).RecordProgress(ctx, p)
}

// CompleteChallenge marks a daily challenge done and pays its points once.
func (s *PracticeService) CompleteChallenge(ctx context.Context, id int64) (*models.DailyChallenge, error) {
	auth, err := student(ctx)
	if err != nil {
		return nil, err
	}
	return s.Ledger(auth.UserID).CompleteChallenge(ctx, id)
}

// TodaysChallenges returns today's challenges, creating the standard set on
// the first visit of the day.
func (s *PracticeService) TodaysChallenges(ctx context.Context) ([]models.DailyChallenge, error) {
	if _, err := student(ctx); err != nil {
		return nil, err
	}
	list, err := s.gw.TodaysChallenges(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		return list, nil
	}

	for _, t := range s.bank.Challenges() {
		c, err := s.gw.CreateChallenge(ctx, models.DailyChallenge{Subject: t.Subject, ChallengeText: t.Text})
		if err != nil {
			return nil, fmt.Errorf("failed to create daily challenge: %w", err)
		}
		list = append(list, *c)
	}
	return list, nil
}

// Dashboard loads the student home screen.
func (s *PracticeService) Dashboard(ctx context.Context) (*Dashboard, error) {
	profile, err := s.gw.FetchProfile(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}
	progress, err := s.gw.FetchProgress(ctx)
	if err != nil {
		return nil, err
	}
	challenges, err := s.TodaysChallenges(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Profile: profile, Stats: stats, Progress: progress, Challenges: challenges}, nil
}

// hub fans one session's events out to its subscribers.
type hub struct {
	mu     sync.Mutex
	subs   map[chan session.Event]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[chan session.Event]struct{})}
}

func (h *hub) subscribe() (<-chan session.Event, func()) {
	ch := make(chan session.Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *hub) publish(ev session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
