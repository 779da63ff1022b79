package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Router collects every handler the HTTP API serves.
type Router struct {
	Middleware *Middleware
	Startup    *StartupStatus
	Health     *HealthHandler
	Auth       *AuthHandler
	Account    *AccountHandler
	Practice   *PracticeHandler
	Kid        *KidHandler
	Parent     *ParentHandler
	Exercises  *ExerciseHandler
	Generator  *GeneratorHandler
	Log        *zap.Logger
}

// Handler builds the route table. Everything under /api requires the public
// API key; the OAuth redirects and probes do not.
func (rt *Router) Handler() http.Handler {
	m := rt.Middleware
	auth := m.RequireAuth
	limit := m.RateLimit

	api := http.NewServeMux()

	// Authentication
	api.HandleFunc("GET /api/auth/providers", rt.Auth.OAuthProviders)
	api.HandleFunc("POST /api/auth/register", limit(rt.Auth.Register))
	api.HandleFunc("POST /api/auth/login", limit(rt.Auth.Login))
	api.HandleFunc("POST /api/auth/logout", auth(rt.Auth.Logout))
	api.HandleFunc("POST /api/auth/password-reset", limit(rt.Auth.RequestPasswordReset))
	api.HandleFunc("GET /api/auth/password-reset", limit(rt.Auth.ValidateResetToken))
	api.HandleFunc("POST /api/auth/password-reset/confirm", limit(rt.Auth.ResetPassword))

	// Own account
	api.HandleFunc("GET /api/profile", auth(rt.Account.GetProfile))
	api.HandleFunc("PATCH /api/profile", auth(rt.Account.UpdateProfile))
	api.HandleFunc("GET /api/progress", auth(rt.Account.Progress))
	api.HandleFunc("GET /api/school", auth(rt.Account.GetSchool))
	api.HandleFunc("PUT /api/school", auth(rt.Account.SaveSchool))
	api.HandleFunc("DELETE /api/school", auth(rt.Account.DeleteSchool))

	// Exercise sessions
	api.HandleFunc("GET /api/catalog", rt.Practice.Catalog)
	api.HandleFunc("POST /api/practice", auth(rt.Practice.StartPractice))
	api.HandleFunc("GET /api/practice/{id}", auth(rt.Practice.ShowPractice))
	api.HandleFunc("POST /api/practice/{id}/select", auth(rt.Practice.SelectAnswer))
	api.HandleFunc("POST /api/practice/{id}/submit", auth(rt.Practice.SubmitAnswer))
	api.HandleFunc("POST /api/practice/{id}/advance", auth(rt.Practice.NextQuestion))
	api.HandleFunc("DELETE /api/practice/{id}", auth(rt.Practice.ExitPractice))
	api.HandleFunc("GET /api/practice/{id}/events", auth(rt.Practice.Events))

	// Student rewards
	api.HandleFunc("GET /api/dashboard", auth(rt.Kid.Dashboard))
	api.HandleFunc("GET /api/stats", auth(rt.Kid.Stats))
	api.HandleFunc("POST /api/stats/points", auth(rt.Kid.AddPoints))
	api.HandleFunc("POST /api/stats/badges", auth(rt.Kid.AddBadge))
	api.HandleFunc("POST /api/progress", auth(rt.Kid.RecordProgress))
	api.HandleFunc("GET /api/challenges", auth(rt.Kid.Challenges))
	api.HandleFunc("POST /api/challenges/{id}/complete", auth(rt.Kid.CompleteChallenge))

	// Saved exercises
	api.HandleFunc("GET /api/exercises", auth(rt.Exercises.ListExercises))
	api.HandleFunc("POST /api/exercises", auth(rt.Exercises.CreateExercise))
	api.HandleFunc("GET /api/exercises/{id}", auth(rt.Exercises.ViewExercise))
	api.HandleFunc("PATCH /api/exercises/{id}", auth(rt.Exercises.UpdateExercise))
	api.HandleFunc("DELETE /api/exercises/{id}", auth(rt.Exercises.DeleteExercise))

	// Parents and teachers
	api.HandleFunc("POST /api/students", auth(rt.Parent.LinkStudent))
	api.HandleFunc("GET /api/students", auth(rt.Parent.ListStudents))
	api.HandleFunc("GET /api/students/{id}", auth(rt.Parent.StudentDetails))
	api.HandleFunc("GET /api/students/{id}/report", auth(rt.Parent.DownloadReport))
	api.HandleFunc("POST /api/students/{id}/report/email", auth(rt.Parent.EmailReport))

	// Generation
	api.HandleFunc("POST /api/generate", auth(rt.Generator.Generate))
	api.HandleFunc("POST /api/ocr", auth(rt.Generator.ExtractText))
	api.HandleFunc("POST /api/worksheets", auth(rt.Generator.BuildWorksheet))
	api.HandleFunc("GET /api/activities", auth(rt.Generator.Activities))
	api.HandleFunc("POST /api/activities/{id}", auth(rt.Generator.RenderActivity))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.Health.Health)
	mux.HandleFunc("GET /readyz", rt.Startup.Ready)
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)
	mux.Handle("/api/", m.APIKey(api))

	return Recover(rt.Log)(Logging(rt.Log)(mux))
}
