package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"learningfun/internal/cache"
	"learningfun/internal/config"
	"learningfun/internal/content"
	"learningfun/internal/database"
	"learningfun/internal/gateway"
	"learningfun/internal/generator"
	"learningfun/internal/handlers"
	"learningfun/internal/llm"
	"learningfun/internal/logger"
	"learningfun/internal/security"
	"learningfun/internal/service"
	"learningfun/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepWordFilter,
		handlers.StepContent,
		handlers.StepServices,
	)

	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.Open(ctx, database.Options{
		Type: cfg.DatabaseType,
		URL:  cfg.DatabaseURL,
		Path: cfg.DatabasePath,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established", zap.String("type", cfg.DatabaseType))
	startup.CompleteStep(handlers.StepDatabase)

	startup.SetCurrentStep(handlers.StepMigrations)
	applied, err := db.RunMigrations(ctx, cfg.MigrationsPath)
	if err != nil {
		return err
	}
	log.Info("migrations completed", zap.Strings("applied", applied))
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep(handlers.StepWordFilter)
	if n, err := db.SeedBadWords(ctx, cfg.BadWordsURL); err != nil {
		log.Warn("failed to seed bad words filter", zap.Error(err))
	} else {
		log.Info("bad words filter seeded", zap.Int("words", n))
	}
	startup.CompleteStep(handlers.StepWordFilter)

	startup.SetCurrentStep(handlers.StepContent)
	bank, err := content.NewBank(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	if err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepContent)

	startup.SetCurrentStep(handlers.StepServices)
	checks := map[string]handlers.Pinger{"database": db}

	var limiter security.Limiter
	if cfg.RedisURL != "" {
		c, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer c.Close()
		checks["redis"] = c
		limiter = security.NewRedisRateLimiter(c, "ratelimit:auth:", 5, time.Minute)
		log.Info("rate limiting through redis")
	} else {
		local := security.NewRateLimiter(5, time.Minute)
		defer local.Stop()
		limiter = local
	}

	mailer, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.PublicURL, log)
	if err != nil {
		return err
	}

	gw := gateway.New(db)
	tokens := security.NewTokenIssuer(cfg.JWTSecret, "learningfun")
	authService := service.NewAuthService(db, tokens, mailer, cfg.SessionDuration, log)

	pacing := session.Pacing{
		MathFeedbackDelay:    cfg.Practice.MathFeedbackDelay,
		EnglishFeedbackDelay: cfg.Practice.EnglishFeedbackDelay,
		QuizCountdown:        cfg.Practice.QuizCountdown,
	}
	practiceService := service.NewPracticeService(ctx, gw, bank, session.NewRegistry(cfg.Practice.IdleTimeout), pacing, log)
	defer practiceService.Shutdown()

	reportService := service.NewReportService(gw, mailer, log)

	gen, extractor := questionBackends(ctx, cfg, log)

	router := &handlers.Router{
		Middleware: handlers.NewMiddleware(authService, cfg.APIKey, limiter, log),
		Startup:    startup,
		Health:     handlers.NewHealthHandler(log, checks),
		Auth:       handlers.NewAuthHandler(authService, oauthProviders(cfg), cfg.PublicURL, sessions.NewCookieStore([]byte(cfg.CookieSecret)), log),
		Account:    handlers.NewAccountHandler(gw, log),
		Practice:   handlers.NewPracticeHandler(practiceService, nil, log),
		Kid:        handlers.NewKidHandler(practiceService, log),
		Parent:     handlers.NewParentHandler(gw, reportService, log),
		Exercises:  handlers.NewExerciseHandler(gw, log),
		Generator:  handlers.NewGeneratorHandler(gen, extractor, generator.NewBuilder(rand.NewPCG(uint64(time.Now().UnixNano()), 0xb1d)), log),
		Log:        log,
	}
	startup.CompleteStep(handlers.StepServices)
	startup.MarkReady()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go cleanupExpiredSessions(ctx, authService, log)
	go sweepPracticeSessions(ctx, practiceService)

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr), zap.String("public_url", cfg.PublicURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// questionBackends picks the LLM generator and vision extractor when a
// provider is configured, and the offline ones otherwise.
func questionBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (generator.Generator, generator.Extractor) {
	seed := rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e4)

	var gen generator.Generator = generator.NewTemplateGenerator(seed)
	if p, err := llm.NewProvider(ctx, cfg.LLM, log); err == nil {
		gen = generator.NewLLMGenerator(p)
		log.Info("question generation through llm", zap.String("provider", cfg.LLM.Provider))
	} else if !errors.Is(err, llm.ErrNotConfigured) {
		log.Warn("llm provider unavailable, using templates", zap.Error(err))
	}

	var extractor generator.Extractor = generator.SampleExtractor{}
	if reader, err := llm.NewImageReader(cfg.LLM, log); err == nil {
		extractor = generator.NewVisionExtractor(reader)
	} else if !errors.Is(err, llm.ErrNotConfigured) {
		log.Warn("image reader unavailable, using sample texts", zap.Error(err))
	}

	return gen, extractor
}

func oauthProviders(cfg *config.Config) map[string]handlers.OAuthProvider {
	return map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
	}
}

// cleanupExpiredSessions periodically removes expired sign-in sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, log *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authService.CleanupExpired(ctx)
			if err != nil {
				log.Error("error cleaning up expired sessions", zap.Error(err))
				continue
			}
			log.Info("expired sessions cleaned up", zap.Int64("removed", n))
		}
	}
}

func sweepPracticeSessions(ctx context.Context, practice *service.PracticeService) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			practice.Sweep()
		}
	}
}
