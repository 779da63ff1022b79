package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"learningfun/internal/database"
	"learningfun/internal/gateway"
	"learningfun/internal/models"
	"learningfun/internal/security"
)

func newDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(context.Background(), "../../migrations")
	require.NoError(t, err)
	return db
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) record(s sentMail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, to, _, token string) error {
	m.record(sentMail{kind: "reset", to: to, token: token})
	return nil
}

func (m *recordingMailer) SendWelcomeEmail(_ context.Context, to, _ string) error {
	m.record(sentMail{kind: "welcome", to: to})
	return nil
}

func (m *recordingMailer) SendProgressEmail(_ context.Context, to, _ string, _ ProgressReport) error {
	m.record(sentMail{kind: "progress", to: to})
	return nil
}

func (m *recordingMailer) last(kind string) (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sentMail{}, false
}

func newAuth(t *testing.T, db *database.DB, mailer Mailer) *AuthService {
	t.Helper()
	return NewAuthService(db, security.NewTokenIssuer("test-secret", "learningfun"), mailer, time.Hour, zap.NewNop())
}

// signIn registers an account and returns a context carrying its session.
func signIn(t *testing.T, auth *AuthService, email string, userType models.UserType, grade *int) context.Context {
	t.Helper()
	ctx := context.Background()
	_, err := auth.Register(ctx, RegisterInput{
		Email:      email,
		Password:   "secret1",
		FullName:   "Test Person",
		UserType:   userType,
		GradeLevel: grade,
	})
	require.NoError(t, err)

	in, err := auth.Login(ctx, email, "secret1")
	require.NoError(t, err)
	s, err := auth.Authenticate(ctx, in.Token)
	require.NoError(t, err)
	return gateway.WithAuthSession(ctx, s)
}

func intPtr(v int) *int { return &v }
