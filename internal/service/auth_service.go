package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"learningfun/internal/database"
	"learningfun/internal/gateway"
	"learningfun/internal/models"
	"learningfun/internal/repository"
	"learningfun/internal/security"
	"learningfun/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

const resetTokenTTL = time.Hour

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	FullName   string          `json:"full_name"`
	UserType   models.UserType `json:"user_type"`
	GradeLevel *int            `json:"grade_level,omitempty"`
}

// SignIn is the result of a successful login.
type SignIn struct {
	Session *models.Session     `json:"session"`
	Token   string              `json:"token"`
	Profile *models.UserProfile `json:"profile"`
}

// OAuthIdentity is what an OAuth provider tells us about the user.
type OAuthIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// AuthService handles authentication business logic
type AuthService struct {
	db              *database.DB
	users           *repository.UserRepository
	profiles        *repository.ProfileRepository
	tokens          *security.TokenIssuer
	mailer          Mailer
	sessionDuration time.Duration
	log             *zap.Logger
}

// NewAuthService creates a new auth service. mailer may be nil.
func NewAuthService(db *database.DB, tokens *security.TokenIssuer, mailer Mailer, sessionDuration time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		db:              db,
		users:           repository.NewUserRepository(db),
		profiles:        repository.NewProfileRepository(db),
		tokens:          tokens,
		mailer:          mailer,
		sessionDuration: sessionDuration,
		log:             log.Named("auth"),
	}
}

func (in *RegisterInput) validate() error {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if in.UserType == "" {
		in.UserType = models.UserTypeStudent
	}

	if err := validation.ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return err
	}
	if err := validation.ValidateName(in.FullName); err != nil {
		return err
	}
	if !in.UserType.Valid() {
		return validation.ValidationError{Field: "user_type", Message: "must be one of: student, parent, teacher"}
	}
	if in.GradeLevel != nil {
		if err := validation.ValidateGrade("grade_level", *in.GradeLevel); err != nil {
			return err
		}
	}
	return nil
}

// Register creates the user, its profile and, for students, an empty stats row.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.UserProfile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile, err := s.createAccount(ctx, in, passwordHash)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("user_id", profile.ID), zap.String("user_type", string(profile.UserType)))
	s.sendWelcome(ctx, profile)
	return profile, nil
}

func (s *AuthService) createAccount(ctx context.Context, in RegisterInput, passwordHash string) (*models.UserProfile, error) {
	var profile *models.UserProfile
	err := s.db.WithinTx(ctx, func(tx *database.Tx) error {
		user, err := repository.NewUserRepository(tx).CreateUser(ctx, in.Email, passwordHash)
		if err != nil {
			return err
		}

		grade := in.GradeLevel
		if in.UserType != models.UserTypeStudent {
			grade = nil
		}
		profile, err = repository.NewProfileRepository(tx).CreateProfile(ctx, &models.UserProfile{
			ID:         user.ID,
			Email:      user.Email,
			FullName:   in.FullName,
			UserType:   in.UserType,
			GradeLevel: grade,
		})
		if err != nil {
			return err
		}

		if in.UserType == models.UserTypeStudent {
			if _, err := repository.NewStatsRepository(tx).CreateStats(ctx, user.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return profile, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, profile *models.UserProfile) {
	if s.mailer == nil {
		return
	}
	// Registration succeeded; a mail failure is only logged.
	if err := s.mailer.SendWelcomeEmail(ctx, profile.Email, profile.FullName); err != nil {
		s.log.Warn("failed to send welcome email", zap.Int64("user_id", profile.ID), zap.Error(err))
	}
}

// Login authenticates a user, creates a session and issues its access token
func (s *AuthService) Login(ctx context.Context, email, password string) (*SignIn, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user.ID)
}

func (s *AuthService) startSession(ctx context.Context, userID int64) (*SignIn, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.sessionDuration)
	session, err := s.users.CreateSession(ctx, security.NewID(), userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Issue(userID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &SignIn{Session: session, Token: token, Profile: profile}, nil
}

// Authenticate verifies an access token and the session row behind it.
func (s *AuthService) Authenticate(ctx context.Context, token string) (gateway.AuthSession, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return gateway.AuthSession{}, ErrSessionNotFound
	}
	userID, err := claims.UserID()
	if err != nil {
		return gateway.AuthSession{}, ErrSessionNotFound
	}

	session, err := s.users.GetSession(ctx, claims.SessionID)
	if err != nil {
		return gateway.AuthSession{}, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return gateway.AuthSession{}, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.users.DeleteSession(ctx, session.ID)
		return gateway.AuthSession{}, ErrSessionExpired
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return gateway.AuthSession{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return gateway.AuthSession{}, ErrSessionNotFound
	}

	return gateway.AuthSession{UserID: userID, SessionID: session.ID, UserType: profile.UserType}, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.users.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpired removes expired sessions and reset tokens.
func (s *AuthService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.users.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if err := s.users.DeleteExpiredPasswordResetTokens(ctx); err != nil {
		return n, fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}
	return n, nil
}

// OAuthLogin signs in the user linked to an OAuth identity, linking an
// existing account by email or creating a parent account on first use.
func (s *AuthService) OAuthLogin(ctx context.Context, id OAuthIdentity) (*SignIn, error) {
	if id.Provider == "" || id.Subject == "" {
		return nil, errors.New("missing oauth provider information")
	}
	id.Email = strings.TrimSpace(strings.ToLower(id.Email))
	if err := validation.ValidateEmail(id.Email); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByOAuth(ctx, id.Provider, id.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}
	if user != nil {
		return s.startSession(ctx, user.ID)
	}

	existing, err := s.users.GetUserByEmail(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		if existing.OAuthProvider != "" && existing.OAuthProvider != id.Provider {
			return nil, ErrEmailTaken
		}
		if err := s.users.LinkOAuthProvider(ctx, existing.ID, id.Provider, id.Subject); err != nil {
			return nil, fmt.Errorf("failed to link oauth provider: %w", err)
		}
		return s.startSession(ctx, existing.ID)
	}

	name := strings.TrimSpace(id.Name)
	if len(name) < 2 {
		name = strings.Split(id.Email, "@")[0]
	}
	randomPasswordHash, err := security.HashPassword(security.NewID())
	if err != nil {
		return nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
	}

	profile, err := s.createAccount(ctx, RegisterInput{
		Email:    id.Email,
		FullName: name,
		UserType: models.UserTypeParent,
	}, randomPasswordHash)
	if err != nil {
		return nil, err
	}
	if err := s.users.LinkOAuthProvider(ctx, profile.ID, id.Provider, id.Subject); err != nil {
		return nil, fmt.Errorf("failed to link oauth provider: %w", err)
	}

	s.log.Info("oauth user created", zap.Int64("user_id", profile.ID), zap.String("provider", id.Provider))
	s.sendWelcome(ctx, profile)
	return s.startSession(ctx, profile.ID)
}

// RequestPasswordReset creates a reset token and mails it. Unknown
// addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil
	}

	token, err := generateSecureToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	_ = s.users.DeleteUserPasswordResetTokens(ctx, user.ID)

	if err := s.users.CreatePasswordResetToken(ctx, token, user.ID, time.Now().Add(resetTokenTTL)); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if s.mailer == nil {
		return nil
	}
	profile, err := s.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	name := user.Email
	if profile != nil {
		name = profile.FullName
	}
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, name, token); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ValidatePasswordResetToken checks if a reset token is valid
func (s *AuthService) ValidatePasswordResetToken(ctx context.Context, token string) (bool, error) {
	resetToken, err := s.users.GetPasswordResetToken(ctx, token)
	if err != nil {
		return false, fmt.Errorf("failed to get reset token: %w", err)
	}
	return resetToken != nil && !resetToken.Used && !resetToken.IsExpired(), nil
}

// ResetPassword resets a user's password using a valid token and signs out
// every existing session of that user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	ok, err := s.ValidatePasswordResetToken(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	resetToken, err := s.users.GetPasswordResetToken(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}

	return s.db.WithinTx(ctx, func(tx *database.Tx) error {
		users := repository.NewUserRepository(tx)
		if err := users.UpdatePassword(ctx, resetToken.UserID, passwordHash); err != nil {
			return err
		}
		if err := users.MarkPasswordResetTokenAsUsed(ctx, token); err != nil {
			return err
		}
		return users.DeleteUserSessions(ctx, resetToken.UserID)
	})
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
