package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)},
		Email:            email,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestSignInReadsSessionFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, "user-1", "tiger@example.com", exp)

	var gotPath, gotQuery, gotKey string
	var gotBody credentials
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotKey = r.URL.Path, r.URL.RawQuery, r.Header.Get("apikey")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": tok, "refresh_token": "r1", "expires_in": 3600})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "anon")
	s, err := c.SignIn(context.Background(), " tiger@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/token", gotPath)
	assert.Equal(t, "grant_type=password", gotQuery)
	assert.Equal(t, "anon", gotKey)
	assert.Equal(t, "tiger@example.com", gotBody.Email)

	assert.Equal(t, tok, s.AccessToken)
	assert.Equal(t, "r1", s.RefreshToken)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "tiger@example.com", s.Email)
	assert.True(t, exp.Equal(s.ExpiresAt))
}

func TestAuthErrorsDifferByFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/signup" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "")

	_, err := c.SignIn(context.Background(), "a@b.c", "bad")
	var in *AuthError
	require.True(t, errors.As(err, &in))
	assert.Equal(t, FlowSignIn, in.Flow)
	assert.Equal(t, "Invalid email or password.", in.Message)

	_, err = c.SignUp(context.Background(), "a@b.c", "pw")
	var up *AuthError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, FlowSignUp, up.Flow)
	assert.Contains(t, up.Message, "already exists")
	assert.NotEqual(t, in.Message, up.Message)

	_, err = c.SignIn(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, "Email and password are required.", err.Error())
}

func TestSignUpWithoutTokenNeedsConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"id": "u2", "email": "n@b.c"}})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").SignUp(context.Background(), "n@b.c", "secret1")
	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, ae.Message, "confirm")
}

func TestUnreachableServiceIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "").SignIn(context.Background(), "a@b.c", "pw")
	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, ae.Message, "sign-in service")
}

func TestSessionFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s, err := SessionFromToken(signedToken(t, "u9", "x@y.z", exp))
	require.NoError(t, err)
	assert.Equal(t, "u9", s.UserID)
	assert.Equal(t, "x@y.z", s.Email)

	_, err = SessionFromToken("")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = SessionFromToken("not-a-jwt")
	assert.Error(t, err)
}

type changeLog struct {
	mu     sync.Mutex
	states []bool
}

func (c *changeLog) record(_ Session, ok bool) {
	c.mu.Lock()
	c.states = append(c.states, ok)
	c.mu.Unlock()
}

func (c *changeLog) get() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.states...)
}

func TestManagerNotifiesOnSignInAndOut(t *testing.T) {
	m := NewManager()
	defer m.Close()
	var log changeLog
	cancel := m.OnChange(log.record)

	assert.Empty(t, m.Token())
	m.Set(Session{AccessToken: "tok", Email: "a@b.c", ExpiresAt: time.Now().Add(time.Hour)})
	assert.Equal(t, "tok", m.Token())
	cur, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "a@b.c", cur.Email)

	m.SignOut()
	m.SignOut()
	assert.Empty(t, m.Token())
	assert.Equal(t, []bool{true, false}, log.get())

	cancel()
	m.Set(Session{AccessToken: "tok2"})
	assert.Len(t, log.get(), 2)
}

func TestManagerExpiresSession(t *testing.T) {
	m := NewManager()
	defer m.Close()
	signedOut := make(chan struct{}, 1)
	m.OnChange(func(_ Session, ok bool) {
		if !ok {
			signedOut <- struct{}{}
		}
	})

	m.Set(Session{AccessToken: "short", ExpiresAt: time.Now().Add(20 * time.Millisecond)})
	select {
	case <-signedOut:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire")
	}
	_, ok := m.Current()
	assert.False(t, ok)
}

func TestManagerRejectsExpiredSession(t *testing.T) {
	m := NewManager()
	m.Set(Session{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute)})
	_, ok := m.Current()
	assert.False(t, ok)
}
