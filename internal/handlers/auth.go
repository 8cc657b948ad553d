package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelnest/backend/internal/auth"
	"github.com/reelnest/backend/internal/logging"
	"github.com/reelnest/backend/internal/models"
	"github.com/reelnest/backend/internal/repositories"
)

// AuthHandler implements user authentication endpoints.
type AuthHandler struct {
	Users     UserStore
	Tokens    TokenService
	Passwords PasswordHasher
	Limiter   RateLimiter
	NowFunc   func() time.Time
}

type signUpRequest struct {
	Username string `json:"username" validate:"required,reel_username"`
	Email    string `json:"email" validate:"required,reel_email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type meResponse struct {
	User models.User `json:"user"`
}

var signUpMessages = map[string]map[string]string{
	"required": {
		"username": "Username is required",
		"email":    "Email is required",
		"password": "Password is required",
	},
	"reel_email":    {"email": "Invalid email format"},
	"reel_username": {"username": "Username can only contain letters, numbers, and underscores"},
	"min":           {"password": "Password must be at least 6 characters long"},
}

// signUpCheckOrder is the order in which format failures are reported.
var signUpCheckOrder = []string{"email", "username", "password"}

// SignUp handles POST /api/auth/signup requests.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if throttled(ctx, w, r, h.Limiter, "signup") {
		return
	}

	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid signup payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if status, body, ok := validateSignUp(req); !ok {
		logger.Warn("signup validation failed", "username", req.Username, "email", req.Email)
		respondJSON(ctx, w, status, body)
		return
	}

	email := strings.ToLower(req.Email)
	existing, err := h.Users.FindByEmailOrUsername(ctx, email, req.Username)
	switch {
	case err == nil:
		message := "Username is already taken"
		if strings.EqualFold(existing.Email, email) {
			message = "Email is already taken"
		}
		respondError(ctx, w, http.StatusBadRequest, message)
		return
	case !errors.Is(err, repositories.ErrNotFound):
		respondInternal(ctx, w, "signup user lookup failed", err)
		return
	}

	hashed, err := h.Passwords.Hash(req.Password)
	if err != nil {
		respondInternal(ctx, w, "signup failed to hash password", err)
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     email,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		respondInternal(ctx, w, "signup failed to create user", err)
		return
	}

	token, err := h.Tokens.Generate(user.ID)
	if err != nil {
		respondInternal(ctx, w, "signup failed to issue token", err)
		return
	}

	logger.Info("user signed up", "userId", user.ID)
	respondJSON(ctx, w, http.StatusOK, authResponse{Token: token, User: user})
}

// validateSignUp reports missing fields together, then the first format failure.
func validateSignUp(req signUpRequest) (int, errorResponse, bool) {
	failures := fieldErrors(getValidator().Struct(req))
	if len(failures) == 0 {
		return 0, errorResponse{}, true
	}

	missing := map[string]string{}
	failed := map[string]string{}
	for _, fe := range failures {
		message := signUpMessages[fe.Tag()][fe.Field()]
		if fe.Tag() == "required" {
			missing[fe.Field()] = message
			continue
		}
		failed[fe.Field()] = message
	}

	if len(missing) > 0 {
		return http.StatusBadRequest, errorResponse{Error: "Missing required fields", Details: missing}, false
	}
	for _, field := range signUpCheckOrder {
		if message, ok := failed[field]; ok {
			return http.StatusBadRequest, errorResponse{Error: message}, false
		}
	}
	return http.StatusBadRequest, errorResponse{Error: "Invalid request body"}, false
}

// Login handles POST /api/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if throttled(ctx, w, r, h.Limiter, "login") {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "Missing email or password")
		return
	}

	user, err := h.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			respondInternal(ctx, w, "login user lookup failed", err)
			return
		}
		// Unknown email and wrong password share one response.
		logger.Warn("login unknown email")
		respondError(ctx, w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.Passwords.Compare(user.Password, req.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			respondInternal(ctx, w, "login password comparison failed", err)
			return
		}
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.Tokens.Generate(user.ID)
	if err != nil {
		respondInternal(ctx, w, "login failed to issue token", err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me for an already resolved session.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "No token provided")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "User not found")
			return
		}
		respondInternal(ctx, w, "load current user", err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, meResponse{User: user})
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}
