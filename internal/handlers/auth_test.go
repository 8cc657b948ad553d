package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reelnest/backend/internal/auth"
)

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

func TestSignUpIssuesTokenForNewUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "Alice@Example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("expected token in response")
	}
	if resp.User.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", resp.User.Email)
	}
	if strings.Contains(rec.Body.String(), "password123") || strings.Contains(rec.Body.String(), `"password"`) {
		t.Fatalf("response leaked password: %s", rec.Body.String())
	}

	userID, err := env.tokens.Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if userID != resp.User.ID {
		t.Fatalf("token subject %q does not match user %q", userID, resp.User.ID)
	}
}

func TestSignUpRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "alice")

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{
			name:    "email differs only in case",
			body:    map[string]string{"username": "other", "email": "ALICE@example.com", "password": "password123"},
			message: "Email is already taken",
		},
		{
			name:    "username taken",
			body:    map[string]string{"username": "alice", "email": "fresh@example.com", "password": "password123"},
			message: "Username is already taken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if got := errorMessage(t, rec); got != tt.message {
				t.Fatalf("expected %q, got %q", tt.message, got)
			}
		})
	}

	if got := env.users.count(); got != 1 {
		t.Fatalf("expected 1 stored user, got %d", got)
	}
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{
			name:    "bad email and bad username reports email first",
			body:    map[string]string{"username": "bad name", "email": "nope", "password": "password123"},
			message: "Invalid email format",
		},
		{
			name:    "bad username",
			body:    map[string]string{"username": "bad-name", "email": "a@example.com", "password": "password123"},
			message: "Username can only contain letters, numbers, and underscores",
		},
		{
			name:    "short password",
			body:    map[string]string{"username": "alice", "email": "a@example.com", "password": "12345"},
			message: "Password must be at least 6 characters long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if got := errorMessage(t, rec); got != tt.message {
				t.Fatalf("expected %q, got %q", tt.message, got)
			}
		})
	}
}

func TestSignUpMissingFieldsListsDetails(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Error != "Missing required fields" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
	if resp.Details["email"] != "Email is required" || resp.Details["password"] != "Password is required" {
		t.Fatalf("unexpected details %#v", resp.Details)
	}
	if _, ok := resp.Details["username"]; ok {
		t.Fatalf("username should not be reported missing: %#v", resp.Details)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "alice")

	wrongPassword := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "not-the-password",
	})
	unknownEmail := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "password123",
	})

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrongPassword.Code, unknownEmail.Code)
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("responses differ: %q vs %q", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
	if got := errorMessage(t, wrongPassword); got != "Invalid credentials" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestLoginSucceedsWithAnyEmailCase(t *testing.T) {
	env := newTestEnv(t)
	_, user := env.signUp(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ALICE@example.com", "password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.User.ID != user.ID || resp.Token == "" {
		t.Fatalf("unexpected login response %#v", resp)
	}
}

func TestLoginMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if got := errorMessage(t, rec); got != "Missing email or password" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMeResolvesBearerToken(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.signUp(t, "alice")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID: user.ID,
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		status  int
		message string
	}{
		{name: "valid", token: token, status: http.StatusOK},
		{name: "missing", token: "", status: http.StatusUnauthorized, message: "No token provided"},
		{name: "tampered", token: token + "x", status: http.StatusUnauthorized, message: "Invalid token"},
		{name: "expired", token: expiredToken, status: http.StatusUnauthorized, message: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/auth/me", tt.token, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				if got := errorMessage(t, rec); got != tt.message {
					t.Fatalf("expected %q, got %q", tt.message, got)
				}
				return
			}

			var resp meResponse
			decodeBody(t, rec, &resp)
			if resp.User.ID != user.ID || resp.User.Username != "alice" {
				t.Fatalf("unexpected user %#v", resp.User)
			}
		})
	}
}

func TestMeUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.tokens.Generate("4f9c1d8e-0000-4000-8000-000000000000")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if got := errorMessage(t, rec); got != "User not found" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAuthEndpointsRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) { d.AuthLimiter = denyLimiter{} })

	for _, endpoint := range []string{"/api/auth/signup", "/api/auth/login"} {
		rec := env.do(t, http.MethodPost, endpoint, "", map[string]string{"email": "a@example.com", "password": "password123"})
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("%s: expected status 429, got %d", endpoint, rec.Code)
		}
	}
}

func TestSignUpRejectsMalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doRaw(t, http.MethodPost, "/api/auth/signup", strings.NewReader(`{"username":`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestLimiterKeyUsesClientAddress(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "socket peer", want: "login:10.0.0.1"},
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, want: "login:203.0.113.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.7"}, want: "login:198.51.100.7"},
		{name: "garbage forwarded header", headers: map[string]string{"X-Forwarded-For": "not-an-ip"}, want: "login:10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = "10.0.0.1:1234"
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := limiterKey(r, "login"); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
