package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurity(t *testing.T) {
	tests := []struct {
		name string
		dev  bool
		path string
		want map[string]string // "" means absent
	}{
		{
			name: "api in production",
			path: "/api/rezepte/items/all_brief",
			want: map[string]string{
				"X-Content-Type-Options":       "nosniff",
				"X-Frame-Options":              "DENY",
				"Referrer-Policy":              "strict-origin-when-cross-origin",
				"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
				"Strict-Transport-Security":    "max-age=31536000; includeSubDomains; preload",
				"Cache-Control":                "no-store",
				"Cross-Origin-Opener-Policy":   "same-origin",
				"Cross-Origin-Resource-Policy": "same-origin",
			},
		},
		{
			name: "api in development",
			dev:  true,
			path: "/api/cospend/balance",
			want: map[string]string{
				"Strict-Transport-Security": "",
				"X-Content-Type-Options":    "nosniff",
			},
		},
		{
			name: "recipe image",
			path: "/static/rezepte/thumb/zopf.webp",
			want: map[string]string{
				"Cache-Control":                "public, max-age=604800",
				"Content-Security-Policy":      "default-src 'none'; img-src 'self'; frame-ancestors 'none'",
				"Cross-Origin-Resource-Policy": "cross-origin",
				"X-Frame-Options":              "DENY",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSecurityConfig()
			cfg.IsDevelopment = tt.dev
			handler := Security(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", "homestead")
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			for header, want := range tt.want {
				if got := rec.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
		})
	}
}

func TestSecurity_NoStaticCaching(t *testing.T) {
	handler := Security(SecurityConfig{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/rezepte/full/zopf.webp", nil))

	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestMaxBodySize(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	long := strings.Repeat("x", 64)
	tests := []struct {
		name          string
		body          string
		contentLength int64
		want          int
	}{
		{"within limit", "short", 5, http.StatusOK},
		{"declared over limit", long, 64, http.StatusRequestEntityTooLarge},
		{"streamed over limit", long, -1, http.StatusRequestEntityTooLarge},
		{"streamed within limit", "short", -1, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cospend/payments", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()

			MaxBodySize(16)(readAll).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
