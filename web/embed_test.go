package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSPAHandler(t *testing.T) {
	h := SPAHandler()

	tests := []struct {
		name         string
		path         string
		status       int
		body         string
		cacheControl string
	}{
		{"root", "/", http.StatusOK, "UMIT Student Portal", "no-cache"},
		{"index file", "/index.html", http.StatusOK, "UMIT Student Portal", "no-cache"},
		{"client route", "/dashboard/anything", http.StatusOK, "UMIT Student Portal", "no-cache"},
		{"unknown api route", "/api/nope", http.StatusNotFound, `"error":"not found"`, ""},
		{"unknown socket route", "/ws/other", http.StatusNotFound, `"error":"not found"`, ""},
		{"missing asset", "/assets/app.js", http.StatusNotFound, "404 page not found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.body) {
				t.Fatalf("expected body to contain %q, got %q", tt.body, rr.Body.String())
			}
			if got := rr.Header().Get("Cache-Control"); got != tt.cacheControl {
				t.Fatalf("expected Cache-Control %q, got %q", tt.cacheControl, got)
			}
		})
	}
}

func TestIsBackendPath(t *testing.T) {
	for name, want := range map[string]bool{
		"api":        true,
		"api/view":   true,
		"ws/portal":  true,
		"apidocs":    false,
		"wsdl.html":  false,
		"index.html": false,
	} {
		if got := isBackendPath(name); got != want {
			t.Fatalf("isBackendPath(%q) = %v, want %v", name, got, want)
		}
	}
}
