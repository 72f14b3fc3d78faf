package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/pkg/middleware"
)

const secret = "test-secret"

func signToken(t *testing.T, subject, signingSecret string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(signingSecret))
	require.NoError(t, err)
	return signed
}

func TestVerifyToken(t *testing.T) {
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		tokenStr := signToken(t, userID.String(), secret, time.Now().Add(time.Hour))
		got, err := middleware.VerifyToken(tokenStr, secret)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tokenStr := signToken(t, userID.String(), "other-secret", time.Now().Add(time.Hour))
		_, err := middleware.VerifyToken(tokenStr, secret)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tokenStr := signToken(t, userID.String(), secret, time.Now().Add(-time.Minute))
		_, err := middleware.VerifyToken(tokenStr, secret)
		assert.Error(t, err)
	})

	t.Run("subject is not a user id", func(t *testing.T) {
		tokenStr := signToken(t, "alice", secret, time.Now().Add(time.Hour))
		_, err := middleware.VerifyToken(tokenStr, secret)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := middleware.VerifyToken("not.a.token", secret)
		assert.Error(t, err)
	})
}

type fakeSessions struct {
	sessions map[string]uuid.UUID
	err      error
}

func (f *fakeSessions) GetSession(_ context.Context, token string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	id, ok := f.sessions[token]
	if !ok {
		return uuid.Nil, errors.New("session not found")
	}
	return id, nil
}

func runAuth(t *testing.T, sessions middleware.SessionChecker, authorization string) (*httptest.ResponseRecorder, uuid.UUID, bool) {
	t.Helper()
	var gotID uuid.UUID
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, called = middleware.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	middleware.Auth(secret, sessions)(next).ServeHTTP(recorder, req)
	return recorder, gotID, called
}

func TestAuth_InjectsUserID(t *testing.T) {
	userID := uuid.New()
	tokenStr := signToken(t, userID.String(), secret, time.Now().Add(time.Hour))
	sessions := &fakeSessions{sessions: map[string]uuid.UUID{tokenStr: userID}}

	recorder, gotID, called := runAuth(t, sessions, "Bearer "+tokenStr)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, called)
	assert.Equal(t, userID, gotID)
}

func TestAuth_MissingHeader(t *testing.T) {
	recorder, _, called := runAuth(t, nil, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, called)
}

func TestAuth_MalformedHeader(t *testing.T) {
	recorder, _, called := runAuth(t, nil, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, called)
}

func TestAuth_BadSignature(t *testing.T) {
	tokenStr := signToken(t, uuid.NewString(), "other-secret", time.Now().Add(time.Hour))
	recorder, _, called := runAuth(t, nil, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, called)
}

func TestAuth_NoActiveSession(t *testing.T) {
	tokenStr := signToken(t, uuid.NewString(), secret, time.Now().Add(time.Hour))
	sessions := &fakeSessions{sessions: map[string]uuid.UUID{}}

	recorder, _, called := runAuth(t, sessions, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, called)
}

func TestAuth_SessionUserMismatch(t *testing.T) {
	tokenStr := signToken(t, uuid.NewString(), secret, time.Now().Add(time.Hour))
	sessions := &fakeSessions{sessions: map[string]uuid.UUID{tokenStr: uuid.New()}}

	recorder, _, called := runAuth(t, sessions, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, called)
}

func TestAuth_NilSessionCheckerSkipsSessionLookup(t *testing.T) {
	userID := uuid.New()
	tokenStr := signToken(t, userID.String(), secret, time.Now().Add(time.Hour))

	recorder, gotID, called := runAuth(t, nil, "Bearer "+tokenStr)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, called)
	assert.Equal(t, userID, gotID)
}
