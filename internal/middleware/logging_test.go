package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
)

// logOne runs req through Logger in front of h and returns the raw log
// output and the decoded line.
func logOne(t *testing.T, h http.Handler, req *http.Request) (string, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Logger(logger)(h).ServeHTTP(httptest.NewRecorder(), req)

	raw := buf.String()
	if raw == "" {
		return "", nil
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, raw)
	}
	return raw, line
}

func TestLogger_NeverLogsTokens(t *testing.T) {
	t.Parallel()

	secret := "eyJhbGciOiJIUzI1NiJ9.c2Vzc2lvbg.c2lnbmF0dXJl"
	req := httptest.NewRequest(http.MethodGet, "/api/cospend/balance?token="+secret, nil)
	req.Header.Set("Authorization", "Bearer "+secret)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: secret})

	raw, _ := logOne(t, http.NotFoundHandler(), req)
	for _, leak := range []string{secret, "Bearer", SessionCookie + "="} {
		if strings.Contains(raw, leak) {
			t.Errorf("log output contains %q: %s", leak, raw)
		}
	}
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.Post("/api/cospend/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cospend/payments/01J", nil)
	req.Header.Set("User-Agent", "TestBrowser/2.0")
	req = req.WithContext(auth.ContextWithSession(req.Context(), &auth.Session{
		Username:  "anna",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}

	want := map[string]any{
		"msg":         "http_request",
		"method":      "POST",
		"path":        "/api/cospend/payments/01J",
		"status_code": float64(201),
		"bytes":       float64(11),
		"user_agent":  "TestBrowser/2.0",
		"user":        "anna",
		"route":       "/api/cospend/payments/{id}",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
	if _, ok := line["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
}

func TestLogger_Levels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/rezepte/items/all_brief", http.StatusOK, "INFO"},
		{"/api/cospend/payments", http.StatusCreated, "INFO"},
		{"/api/login", http.StatusUnauthorized, "WARN"},
		{"/api/rezepte/items/nope", http.StatusNotFound, "WARN"},
		{"/api/cospend/exchange-rates", http.StatusBadGateway, "ERROR"},
		{"/api/fitness/sessions", http.StatusInternalServerError, "ERROR"},
		{"/static/rezepte/thumb/zopf.webp", http.StatusOK, "DEBUG"},
		{"/static/rezepte/thumb/nope.webp", http.StatusNotFound, "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, line := logOne(t, h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if line["level"] != tt.want {
				t.Errorf("level = %v, want %s", line["level"], tt.want)
			}
		})
	}
}

func TestLogger_ImplicitOK(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	_, line := logOne(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if line["status_code"] != float64(200) {
		t.Errorf("status_code = %v, want 200", line["status_code"])
	}
}

func TestLogger_SkipsDisabledLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	Logger(logger)(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/static/rezepte/full/zopf.webp", nil))

	// 404 on media is WARN and still logged.
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("expected warn line, got %q", buf.String())
	}

	buf.Reset()
	Logger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/static/rezepte/full/zopf.webp", nil))
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %q", buf.String())
	}
}
