package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/taskflow-be/internal/models"
	"github.com/isdelr/taskflow-be/internal/store"
)

type stubUsers map[string]models.User

func (s stubUsers) GetUserByID(_ context.Context, id string) (models.User, error) {
	u, ok := s[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

var alice = models.User{ID: "u1", Username: "alice"}

func TestGenerateAndValidate(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	tok, err := m.GenerateJWT(alice)
	require.NoError(t, err)

	claims, err := m.ValidateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidate_Expired(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := m.GenerateJWT(alice)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	tok, err := NewTokenManager("right", time.Hour).GenerateJWT(alice)
	require.NoError(t, err)

	_, err = NewTokenManager("wrong", time.Hour).ValidateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenManager("right", time.Hour).ValidateJWT("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))
}

func TestMiddleware(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	users := stubUsers{"u1": alice}

	good, err := m.GenerateJWT(alice)
	require.NoError(t, err)
	ghost, err := m.GenerateJWT(models.User{ID: "gone", Username: "ghost"})
	require.NoError(t, err)

	protected := m.Middleware(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(claims.Username))
	}))

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantBody   string
		wantError  string
	}{
		{name: "no token", prepare: func(*http.Request) {}, wantStatus: http.StatusUnauthorized, wantError: "No token"},
		{name: "garbage token", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer junk") }, wantStatus: http.StatusUnauthorized, wantError: "Invalid token"},
		{name: "unknown user", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+ghost) }, wantStatus: http.StatusUnauthorized, wantError: "User not found"},
		{name: "bearer", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+good) }, wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "cookie", prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: good}) }, wantStatus: http.StatusOK, wantBody: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(r)
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.wantError, body["error"])
			} else {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestOptional(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	users := stubUsers{"u1": alice}
	good, err := m.GenerateJWT(alice)
	require.NoError(t, err)

	var seen *Claims
	h := m.Optional(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Nil(t, seen)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer junk")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Nil(t, seen)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+good)
	h.ServeHTTP(httptest.NewRecorder(), r)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestCookies(t *testing.T) {
	m := NewTokenManager("secret", 2*time.Hour)

	w := httptest.NewRecorder()
	m.SetCookie(w, "abc", true)
	c := w.Result().Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 7200, c.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	w = httptest.NewRecorder()
	ClearCookie(w, false)
	c = w.Result().Cookies()[0]
	assert.Equal(t, "", c.Value)
	assert.True(t, c.MaxAge < 0)
}
