package e2e

import (
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "GET", "/health", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "POST", "/api/projects", `{}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAuthVerifyRejectsGarbage(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "GET", "/auth/verify", "", map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAuthVerifyAcceptsLegacyToken(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, "GET", "/auth/verify", "", map[string]string{
		"Authorization": "Bearer " + generateToken(t),
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if got := resp.Header.Get("X-User-Id"); got != "test-user-123" {
		t.Errorf("expected X-User-Id header, got %q", got)
	}
}
