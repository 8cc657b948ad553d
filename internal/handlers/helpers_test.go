package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelnest/backend/internal/auth"
	"github.com/reelnest/backend/internal/models"
	"github.com/reelnest/backend/internal/repositories"
	"github.com/reelnest/backend/internal/storage"
)

type inMemoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == strings.ToLower(email) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) FindByEmailOrUsername(_ context.Context, email, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == strings.ToLower(email) || user.Username == username {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

type inMemoryReelStore struct {
	mu        sync.Mutex
	reels     map[string]models.Reel
	createErr error
}

func newInMemoryReelStore() *inMemoryReelStore {
	return &inMemoryReelStore{reels: make(map[string]models.Reel)}
}

func cloneReel(r models.Reel) models.Reel {
	r.Likes = append([]string{}, r.Likes...)
	r.Dislikes = append([]string{}, r.Dislikes...)
	r.Comments = append([]models.Comment{}, r.Comments...)
	return r
}

func (s *inMemoryReelStore) Create(_ context.Context, reel models.Reel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.reels[reel.ID] = cloneReel(reel)
	return nil
}

func (s *inMemoryReelStore) Find(_ context.Context, id string) (models.Reel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reel, ok := s.reels[id]
	if !ok {
		return models.Reel{}, repositories.ErrNotFound
	}
	return cloneReel(reel), nil
}

func (s *inMemoryReelStore) List(_ context.Context, filter models.ReelFilter) ([]models.Reel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Reel, 0)
	for _, reel := range s.reels {
		if filter.Category != "" && reel.Category != filter.Category {
			continue
		}
		if filter.UserID != "" && reel.UserID != filter.UserID {
			continue
		}
		out = append(out, cloneReel(reel))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *inMemoryReelStore) Mutate(_ context.Context, id string, fn func(*models.Reel) error) (models.Reel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reel, ok := s.reels[id]
	if !ok {
		return models.Reel{}, repositories.ErrNotFound
	}
	working := cloneReel(reel)
	if err := fn(&working); err != nil {
		return models.Reel{}, err
	}
	s.reels[id] = working
	return cloneReel(working), nil
}

func (s *inMemoryReelStore) Delete(_ context.Context, id, ownerID string) (models.Reel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reel, ok := s.reels[id]
	if !ok || reel.UserID != ownerID {
		return models.Reel{}, repositories.ErrNotFound
	}
	delete(s.reels, id)
	return reel, nil
}

type reaperStub struct {
	mu     sync.Mutex
	queued []string
}

func (r *reaperStub) Enqueue(_ context.Context, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, videoID)
	return nil
}

type pingerStub struct {
	err error
}

func (p pingerStub) Ping(context.Context) error { return p.err }

type testEnv struct {
	users  *inMemoryUserStore
	reels  *inMemoryReelStore
	blobs  *storage.MemoryStorage
	tokens *auth.TokenService
	reaper *reaperStub
	router http.Handler
}

func newTestEnv(t *testing.T, mutate ...func(*Dependencies)) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	env := &testEnv{
		users:  newInMemoryUserStore(),
		reels:  newInMemoryReelStore(),
		blobs:  storage.NewMemoryStorage(),
		tokens: tokens,
		reaper: &reaperStub{},
	}

	deps := Dependencies{
		Users:     env.users,
		Reels:     env.reels,
		Blobs:     env.blobs,
		Tokens:    tokens,
		Passwords: auth.NewPasswordHasher(bcrypt.MinCost),
		Reaper:    env.reaper,
		DB:        pingerStub{},
		Upload:    UploadLimits{MaxBytes: 1 << 20, Requests: 1000, Window: time.Minute},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	env.router = NewRouter(deps)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doRaw(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signUp(t *testing.T, username string) (string, models.User) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signup %s: status %d body %s", username, rec.Code, rec.Body.String())
	}

	var resp authResponse
	decodeBody(t, rec, &resp)
	return resp.Token, resp.User
}

func (e *testEnv) upload(t *testing.T, token string, fields map[string]string, video []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if video != nil {
		part, err := mw.CreateFormFile("video", "clip.mp4")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(video); err != nil {
			t.Fatalf("write video: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/reels/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) uploadReel(t *testing.T, token, category string) models.Reel {
	t.Helper()
	rec := e.upload(t, token, map[string]string{"title": "My reel", "description": "desc", "category": category}, []byte("video-bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d body %s", rec.Code, rec.Body.String())
	}
	var reel models.Reel
	decodeBody(t, rec, &reel)
	return reel
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	decodeBody(t, rec, &resp)
	return resp.Error
}

var errBoom = errors.New("boom")
