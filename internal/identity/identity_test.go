package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func captureSessionID(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	h := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionIDFromContext(r.Context())
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return got, rr
}

func TestMiddlewareIssuesSessionCookie(t *testing.T) {
	id, rr := captureSessionID(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !isValidSessionID(id) {
		t.Fatalf("expected a uuid session id, got %q", id)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName || cookies[0].Value != id {
		t.Fatalf("expected session cookie %q, got %+v", id, cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	existing := NewSessionID()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: existing})

	id, _ := captureSessionID(t, req)
	if id != existing {
		t.Fatalf("expected %q, got %q", existing, id)
	}
}

func TestMiddlewareReplacesInvalidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "../../etc/passwd"})

	id, _ := captureSessionID(t, req)
	if id == "../../etc/passwd" || !isValidSessionID(id) {
		t.Fatalf("expected a fresh session id, got %q", id)
	}
}

func TestSessionIDFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionIDFromContext(req.Context()); got != "" {
		t.Fatalf("expected empty session id, got %q", got)
	}
}
