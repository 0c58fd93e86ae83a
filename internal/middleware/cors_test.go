package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name        string
		allowed     []string
		origin      string
		method      string
		wantStatus  int
		wantOrigin  string
		wantCredits string
	}{
		{"explicit origin", []string{"https://portal.umit.ac.in"}, "https://portal.umit.ac.in", http.MethodGet, http.StatusTeapot, "https://portal.umit.ac.in", "true"},
		{"wildcard has no credentials", []string{"*"}, "https://evil.example", http.MethodGet, http.StatusTeapot, "https://evil.example", ""},
		{"unknown origin", []string{"https://portal.umit.ac.in"}, "https://evil.example", http.MethodGet, http.StatusTeapot, "", ""},
		{"no origin", []string{"*"}, "", http.MethodGet, http.StatusTeapot, "", ""},
		{"preflight", []string{"https://portal.umit.ac.in"}, "https://portal.umit.ac.in", http.MethodOptions, http.StatusNoContent, "https://portal.umit.ac.in", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/view", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			CORS(tt.allowed)(ok).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredits, rr.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestOrigins(t *testing.T) {
	assert.Nil(t, Origins(""))
	assert.Equal(t,
		[]string{"http://localhost:5173", "https://portal.umit.ac.in"},
		Origins(" http://localhost:5173/ ,, https://portal.umit.ac.in"))
}
