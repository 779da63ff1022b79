package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"learningfun/internal/content"
	"learningfun/internal/database"
	"learningfun/internal/gateway"
	"learningfun/internal/generator"
	"learningfun/internal/security"
	"learningfun/internal/service"
	"learningfun/internal/session"
)

const testAPIKey = "test-api-key"

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) add(kind, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, kind+":"+to)
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, to, _, _ string) error {
	m.add("reset", to)
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(_ context.Context, to, _ string) error {
	m.add("welcome", to)
	return nil
}

func (m *fakeMailer) SendProgressEmail(_ context.Context, to, _ string, _ service.ProgressReport) error {
	m.add("progress", to)
	return nil
}

func (m *fakeMailer) has(entry string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sent {
		if s == entry {
			return true
		}
	}
	return false
}

type testApp struct {
	t      *testing.T
	server *httptest.Server
	mailer *fakeMailer
}

func newTestApp(t *testing.T, limiter security.Limiter) *testApp {
	t.Helper()
	log := zap.NewNop()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.RunMigrations(context.Background(), "../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bank, err := content.NewBank(rand.NewPCG(1, 2))
	if err != nil {
		t.Fatalf("content bank: %v", err)
	}

	base, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mailer := &fakeMailer{}
	gw := gateway.New(db)
	authService := service.NewAuthService(db, security.NewTokenIssuer("test-secret", "learningfun"), mailer, time.Hour, log)
	pacing := session.Pacing{MathFeedbackDelay: time.Hour, EnglishFeedbackDelay: time.Hour, QuizCountdown: time.Hour}
	practice := service.NewPracticeService(base, gw, bank, session.NewRegistry(time.Hour), pacing, log)
	t.Cleanup(practice.Shutdown)

	startup := NewStartupStatus(StepDatabase)
	startup.CompleteStep(StepDatabase)
	startup.MarkReady()

	rt := &Router{
		Middleware: NewMiddleware(authService, testAPIKey, limiter, log),
		Startup:    startup,
		Health:     NewHealthHandler(log, map[string]Pinger{"database": db}),
		Auth:       NewAuthHandler(authService, nil, "http://example.test", sessions.NewCookieStore([]byte("cookie-secret")), log),
		Account:    NewAccountHandler(gw, log),
		Practice:   NewPracticeHandler(practice, nil, log),
		Kid:        NewKidHandler(practice, log),
		Parent:     NewParentHandler(gw, service.NewReportService(gw, mailer, log), log),
		Exercises:  NewExerciseHandler(gw, log),
		Generator: NewGeneratorHandler(
			generator.NewTemplateGenerator(rand.NewPCG(3, 4)),
			generator.SampleExtractor{},
			generator.NewBuilder(rand.NewPCG(5, 6)),
			log,
		),
		Log: log,
	}

	server := httptest.NewServer(rt.Handler())
	t.Cleanup(server.Close)
	return &testApp{t: t, server: server, mailer: mailer}
}

// do sends a JSON request with the API key and, when token is set, a bearer token.
func (a *testApp) do(method, path, token string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	req.Header.Set(APIKeyHeader, testAPIKey)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (a *testApp) expect(method, path, token string, body any, status int, out any) *http.Response {
	a.t.Helper()
	resp, data := a.do(method, path, token, body)
	if resp.StatusCode != status {
		a.t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, status, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			a.t.Fatalf("%s %s: decode %T: %v", method, path, out, err)
		}
	}
	return resp
}

// signUp registers and logs in, returning the access token.
func (a *testApp) signUp(email, userType string, grade int) string {
	a.t.Helper()
	body := map[string]any{"email": email, "password": "secret1", "full_name": "Test Person", "user_type": userType}
	if grade > 0 {
		body["grade_level"] = grade
	}
	a.expect(http.MethodPost, "/api/auth/register", "", body, http.StatusCreated, nil)

	var in signInResponse
	a.expect(http.MethodPost, "/api/auth/login", "", loginRequest{Email: email, Password: "secret1"}, http.StatusOK, &in)
	return in.Token
}

func TestAPIKeyRequired(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := app.server.Client().Get(app.server.URL + "/api/catalog")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without API key, got %d", resp.StatusCode)
	}

	var kinds []content.Kind
	app.expect(http.MethodGet, "/api/catalog?subject=math", "", nil, http.StatusOK, &kinds)
	if len(kinds) != len(content.Catalog("math")) {
		t.Fatalf("expected %d math kinds, got %d", len(content.Catalog("math")), len(kinds))
	}

	for _, probe := range []string{"/healthz", "/readyz"} {
		resp, err := app.server.Client().Get(app.server.URL + probe)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", probe, resp.StatusCode)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, nil)
	register := map[string]any{"email": "mum@example.com", "password": "secret1", "full_name": "Mum", "user_type": "parent"}

	app.expect(http.MethodPost, "/api/auth/register", "", register, http.StatusCreated, nil)
	app.expect(http.MethodPost, "/api/auth/register", "", register, http.StatusConflict, nil)

	var bad errorBody
	app.expect(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "x@example.com", "password": "123", "full_name": "X"}, http.StatusBadRequest, &bad)
	if bad.Field != "password" {
		t.Fatalf("expected password field error, got %+v", bad)
	}

	app.expect(http.MethodPost, "/api/auth/login", "", loginRequest{Email: "mum@example.com", Password: "wrong1"}, http.StatusUnauthorized, nil)

	var in signInResponse
	resp := app.expect(http.MethodPost, "/api/auth/login", "", loginRequest{Email: "mum@example.com", Password: "secret1"}, http.StatusOK, &in)
	if in.Token == "" || in.Profile == nil || in.Profile.Email != "mum@example.com" {
		t.Fatalf("unexpected sign-in response %+v", in)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == security.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != in.Token || !cookie.HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie carrying the token, got %+v", cookie)
	}

	app.expect(http.MethodGet, "/api/profile", "", nil, http.StatusUnauthorized, nil)
	app.expect(http.MethodGet, "/api/profile", in.Token, nil, http.StatusOK, nil)

	// The cookie alone is enough.
	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/profile", nil)
	req.Header.Set(APIKeyHeader, testAPIKey)
	req.AddCookie(cookie)
	cresp, err := app.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	cresp.Body.Close()
	if cresp.StatusCode != http.StatusOK {
		t.Fatalf("cookie auth: expected 200, got %d", cresp.StatusCode)
	}

	app.expect(http.MethodPost, "/api/auth/logout", in.Token, nil, http.StatusNoContent, nil)
	app.expect(http.MethodGet, "/api/profile", in.Token, nil, http.StatusUnauthorized, nil)

	app.expect(http.MethodPost, "/api/auth/password-reset", "", resetRequest{Email: "mum@example.com"}, http.StatusAccepted, nil)
	app.expect(http.MethodPost, "/api/auth/password-reset", "", resetRequest{Email: "nobody@example.com"}, http.StatusAccepted, nil)
	if !app.mailer.has("reset:mum@example.com") || app.mailer.has("reset:nobody@example.com") {
		t.Fatalf("unexpected mails %v", app.mailer.sent)
	}
	app.expect(http.MethodPost, "/api/auth/password-reset/confirm", "", resetConfirmRequest{Token: "bogus", Password: "secret2"}, http.StatusBadRequest, nil)
}

func TestRateLimitOnLogin(t *testing.T) {
	limiter := security.NewRateLimiter(1, time.Minute)
	t.Cleanup(limiter.Stop)
	app := newTestApp(t, limiter)

	app.expect(http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@example.com", Password: "secret1"}, http.StatusUnauthorized, nil)

	var body errorBody
	resp := app.expect(http.MethodPost, "/api/auth/login", "", loginRequest{Email: "a@example.com", Password: "secret1"}, http.StatusTooManyRequests, &body)
	if resp.Header.Get("Retry-After") == "" || !body.Retryable {
		t.Fatalf("expected Retry-After and retryable body, got %v %+v", resp.Header, body)
	}
}

func TestPracticeOverHTTP(t *testing.T) {
	app := newTestApp(t, nil)
	kid := app.signUp("kid@example.com", "student", 1)
	parent := app.signUp("mum@example.com", "parent", 0)

	app.expect(http.MethodPost, "/api/practice", parent, startRequest{Subject: "math", Type: "addition"}, http.StatusForbidden, nil)
	app.expect(http.MethodPost, "/api/practice", kid, startRequest{Subject: "math", Type: "calculus"}, http.StatusNotFound, nil)
	app.expect(http.MethodPost, "/api/practice", kid, startRequest{Subject: "evs", Type: "environment"}, http.StatusConflict, nil)

	var started service.Started
	app.expect(http.MethodPost, "/api/practice", kid, startRequest{Subject: "math", Type: "addition"}, http.StatusCreated, &started)
	if started.Session.State != session.InProgress || started.Session.Total != content.QuestionsPerSet {
		t.Fatalf("unexpected start snapshot %+v", started.Session)
	}
	base := "/api/practice/" + started.ID

	app.expect(http.MethodPost, base+"/advance", kid, nil, http.StatusConflict, nil)

	snap := started.Session
	for snap.State != session.Completed {
		if snap.Question == nil {
			t.Fatalf("no question in %+v", snap)
		}
		var sub submitResponse
		app.expect(http.MethodPost, base+"/submit", kid, answerRequest{Answer: snap.Question.CorrectAnswer()}, http.StatusOK, &sub)
		if !sub.Result.Correct {
			t.Fatalf("expected correct result, got %+v", sub.Result)
		}
		app.expect(http.MethodPost, base+"/advance", kid, nil, http.StatusOK, &snap)
	}

	var stats struct {
		TotalPoints int      `json:"total_points"`
		Badges      []string `json:"badges"`
	}
	app.expect(http.MethodGet, "/api/stats", kid, nil, http.StatusOK, &stats)
	if stats.TotalPoints != 50 || len(stats.Badges) != 1 || stats.Badges[0] != "math-star" {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var dash service.Dashboard
	app.expect(http.MethodGet, "/api/dashboard", kid, nil, http.StatusOK, &dash)
	if len(dash.Progress) != 1 || len(dash.Challenges) != 4 {
		t.Fatalf("unexpected dashboard: %d progress, %d challenges", len(dash.Progress), len(dash.Challenges))
	}

	app.expect(http.MethodDelete, base, kid, nil, http.StatusNoContent, nil)
	app.expect(http.MethodGet, base, kid, nil, http.StatusNotFound, nil)
}

func TestRewardsOutsideSessions(t *testing.T) {
	app := newTestApp(t, nil)
	kid := app.signUp("kid@example.com", "student", 2)

	app.expect(http.MethodPost, "/api/stats/points", kid, pointsRequest{Points: 0}, http.StatusBadRequest, nil)
	app.expect(http.MethodPost, "/api/stats/points", kid, pointsRequest{Points: 15}, http.StatusOK, nil)
	app.expect(http.MethodPost, "/api/stats/badges", kid, badgeRequest{Badge: "memory-master"}, http.StatusOK, nil)

	var stats struct {
		TotalPoints int      `json:"total_points"`
		Badges      []string `json:"badges"`
		StreakDays  int      `json:"streak_days"`
	}
	app.expect(http.MethodPost, "/api/stats/badges", kid, badgeRequest{Badge: "memory-master"}, http.StatusOK, &stats)
	if stats.TotalPoints != 15 || len(stats.Badges) != 1 || stats.StreakDays != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	app.expect(http.MethodPost, "/api/progress", kid, map[string]any{"subject": "games", "exercise_type": "memory", "score": 6, "total_questions": 5}, http.StatusBadRequest, nil)
	app.expect(http.MethodPost, "/api/progress", kid, map[string]any{"subject": "games", "exercise_type": "memory", "score": 5, "total_questions": 5, "time_spent": 40}, http.StatusCreated, nil)
}

func TestSessionEventsOverWebSocket(t *testing.T) {
	app := newTestApp(t, nil)
	kid := app.signUp("kid@example.com", "student", 1)

	var started service.Started
	app.expect(http.MethodPost, "/api/practice", kid, startRequest{Subject: "english", Type: "rhyming"}, http.StatusCreated, &started)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set(APIKeyHeader, testAPIKey)
	header.Set("Authorization", "Bearer "+kid)
	wsURL := "ws" + strings.TrimPrefix(app.server.URL, "http") + "/api/practice/" + started.ID + "/events"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// The subscription is registered during the upgrade; give the server a moment.
	time.Sleep(50 * time.Millisecond)
	app.expect(http.MethodPost, "/api/practice/"+started.ID+"/submit", kid, answerRequest{Answer: "no-such-rhyme"}, http.StatusOK, nil)

	var ev session.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != session.EventFeedback || ev.Result == nil || ev.Result.Correct {
		t.Fatalf("expected a wrong-answer feedback event, got %+v", ev)
	}

	other := app.signUp("other@example.com", "student", 1)
	header.Set("Authorization", "Bearer "+other)
	_, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err == nil {
		t.Fatal("expected another student's dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for another student's session, got %v", resp)
	}
}

func TestParentFollowsStudent(t *testing.T) {
	app := newTestApp(t, nil)
	kid := app.signUp("kid@example.com", "student", 3)
	parent := app.signUp("mum@example.com", "parent", 0)
	stranger := app.signUp("x@example.com", "teacher", 0)

	app.expect(http.MethodPost, "/api/progress", kid, map[string]any{"subject": "math", "exercise_type": "addition", "score": 4, "total_questions": 5}, http.StatusCreated, nil)

	var student struct {
		ID int64 `json:"id"`
	}
	app.expect(http.MethodPost, "/api/students", parent, linkRequest{Email: "kid@example.com"}, http.StatusCreated, &student)
	app.expect(http.MethodPost, "/api/students", parent, linkRequest{Email: "nobody@example.com"}, http.StatusNotFound, nil)

	var list []struct {
		Email string `json:"email"`
	}
	app.expect(http.MethodGet, "/api/students", parent, nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].Email != "kid@example.com" {
		t.Fatalf("unexpected linked students %+v", list)
	}

	path := "/api/students/" + itoa(student.ID)
	var report service.ProgressReport
	app.expect(http.MethodGet, path, parent, nil, http.StatusOK, &report)
	if len(report.Progress) != 1 {
		t.Fatalf("expected one progress row, got %d", len(report.Progress))
	}
	app.expect(http.MethodGet, path, stranger, nil, http.StatusNotFound, nil)
	app.expect(http.MethodGet, "/api/students/abc", parent, nil, http.StatusBadRequest, nil)

	resp, data := app.do(http.MethodGet, path+"/report", parent, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected report response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("report is not a zip container")
	}

	app.expect(http.MethodPost, path+"/report/email", parent, nil, http.StatusAccepted, nil)
	if !app.mailer.has("progress:mum@example.com") {
		t.Fatalf("expected progress mail to the parent, got %v", app.mailer.sent)
	}
}

func TestExerciseEndpoints(t *testing.T) {
	app := newTestApp(t, nil)
	owner := app.signUp("teacher@example.com", "teacher", 0)
	other := app.signUp("mum@example.com", "parent", 0)

	var created struct {
		ID int64 `json:"id"`
	}
	app.expect(http.MethodPost, "/api/exercises", owner, map[string]any{
		"title": "Animal sounds", "subject": "evs", "grade_level": 2, "exercise_type": "quiz",
		"content": map[string]any{"questions": []string{"What does a cow say?"}},
	}, http.StatusCreated, &created)
	path := "/api/exercises/" + itoa(created.ID)

	app.expect(http.MethodGet, path, owner, nil, http.StatusOK, nil)
	app.expect(http.MethodGet, path, other, nil, http.StatusNotFound, nil)
	app.expect(http.MethodPatch, path, owner, map[string]any{"is_public": true}, http.StatusOK, nil)
	app.expect(http.MethodGet, path, other, nil, http.StatusOK, nil)
	app.expect(http.MethodDelete, path, other, nil, http.StatusForbidden, nil)

	var list []struct {
		ID int64 `json:"id"`
	}
	app.expect(http.MethodGet, "/api/exercises?subject=evs&grade=2", other, nil, http.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("expected the public exercise, got %d", len(list))
	}
	app.expect(http.MethodGet, "/api/exercises?grade=two", other, nil, http.StatusBadRequest, nil)

	app.expect(http.MethodDelete, path, owner, nil, http.StatusNoContent, nil)
	app.expect(http.MethodGet, path, owner, nil, http.StatusNotFound, nil)
}

func TestGeneratorEndpoints(t *testing.T) {
	app := newTestApp(t, nil)
	parent := app.signUp("mum@example.com", "parent", 0)

	var out generator.Generated
	app.expect(http.MethodPost, "/api/generate", parent, generator.Request{
		Subject: "math", Grade: 2, Topic: "addition", Complexity: "easy", QuestionType: "multiple-choice", NumQuestions: 3,
	}, http.StatusOK, &out)
	if len(out.Questions) != 3 || out.Bloom != "Understand" {
		t.Fatalf("unexpected generated set: %d questions, bloom %q", len(out.Questions), out.Bloom)
	}

	var bad errorBody
	app.expect(http.MethodPost, "/api/generate", parent, generator.Request{Subject: "math", Grade: 2}, http.StatusBadRequest, &bad)
	if bad.Field != "topic" {
		t.Fatalf("expected topic field error, got %+v", bad)
	}

	var sheet generator.Worksheet
	app.expect(http.MethodPost, "/api/worksheets", parent, generator.BuildRequest{Text: generator.SampleTexts[0], Kind: "fill-blanks"}, http.StatusOK, &sheet)
	if len(sheet.Questions) == 0 {
		t.Fatal("expected worksheet questions")
	}

	app.expect(http.MethodPost, "/api/activities/math-worksheet", parent, activityRequest{Grade: 3}, http.StatusOK, nil)
	app.expect(http.MethodPost, "/api/activities/nope", parent, activityRequest{Grade: 3}, http.StatusNotFound, nil)
	app.expect(http.MethodPost, "/api/activities/math-worksheet", parent, activityRequest{Grade: 7}, http.StatusBadRequest, nil)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
