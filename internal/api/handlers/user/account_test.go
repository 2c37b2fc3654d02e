package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/users"
)

// mockUserService implements users.UserService for testing
type mockUserService struct {
	registerFunc func(ctx context.Context, req users.RegisterRequest) (*users.AuthResponse, error)
	loginFunc    func(ctx context.Context, req users.LoginRequest) (*users.AuthResponse, error)
	getMeFunc    func(ctx context.Context, userID string) (*users.User, error)
}

func (m *mockUserService) Register(ctx context.Context, req users.RegisterRequest) (*users.AuthResponse, error) {
	return m.registerFunc(ctx, req)
}

func (m *mockUserService) Login(ctx context.Context, req users.LoginRequest) (*users.AuthResponse, error) {
	return m.loginFunc(ctx, req)
}

func (m *mockUserService) GetMe(ctx context.Context, userID string) (*users.User, error) {
	return m.getMeFunc(ctx, userID)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestHandleRegister(t *testing.T) {
	svc := &mockUserService{
		registerFunc: func(ctx context.Context, req users.RegisterRequest) (*users.AuthResponse, error) {
			switch req.Email {
			case "taken@example.com":
				return nil, users.ErrEmailTaken
			case "bad":
				return nil, &users.InvalidFieldError{Field: "email", Reason: "must be a valid email address"}
			}
			return &users.AuthResponse{
				User:  &users.User{ID: "u1", Email: req.Email, PasswordHash: "secret-hash"},
				Token: "tok",
			}, nil
		},
	}
	h := NewAccountHandler(svc)

	w := post(h.HandleRegister, `{"email":"a@example.com","password":"12345","fullName":"Ann"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp["id"])
	assert.Equal(t, "tok", resp["token"])
	assert.NotContains(t, w.Body.String(), "secret-hash")

	w = post(h.HandleRegister, `{"email":"taken@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = post(h.HandleRegister, `{"email":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(h.HandleRegister, `nope`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLogin(t *testing.T) {
	svc := &mockUserService{
		loginFunc: func(ctx context.Context, req users.LoginRequest) (*users.AuthResponse, error) {
			switch req.Password {
			case "right":
				return &users.AuthResponse{User: &users.User{ID: "u1"}, Token: "tok"}, nil
			case "boom":
				return nil, errors.New("db down")
			}
			return nil, users.ErrInvalidCredentials
		},
	}
	h := NewAccountHandler(svc)

	w := post(h.HandleLogin, `{"email":"a@example.com","password":"right"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"tok"`)

	w = post(h.HandleLogin, `{"email":"a@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "InvalidCredentials")

	w = post(h.HandleLogin, `{"email":"a@example.com","password":"boom"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestHandleMe(t *testing.T) {
	svc := &mockUserService{
		getMeFunc: func(ctx context.Context, userID string) (*users.User, error) {
			if userID == "u1" {
				return &users.User{ID: "u1", FullName: "Ann"}, nil
			}
			return nil, users.ErrUserNotFound
		},
	}
	h := NewAccountHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	h.HandleMe(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = req.WithContext(middleware.SetTestUserID(req.Context(), "u1"))
	w = httptest.NewRecorder()
	h.HandleMe(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fullName":"Ann"`)

	req = req.WithContext(middleware.SetTestUserID(req.Context(), "deleted"))
	w = httptest.NewRecorder()
	h.HandleMe(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
