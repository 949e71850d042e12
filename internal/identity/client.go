// Package identity signs the operator in and out against the identity service
// and tracks the resulting session.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Flow string

const (
	FlowSignIn Flow = "sign_in"
	FlowSignUp Flow = "sign_up"
)

// AuthError is shown inline on the login form. Message is user-facing and
// differs between the sign-in and sign-up flows.
type AuthError struct {
	Flow       Flow
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ErrNoSession is returned when a token is required but none is held.
var ErrNoSession = errors.New("not signed in")

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry. Sessions without
// an expiry never expire.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Client struct {
	BaseURL    string
	AnonKey    string
	HTTPClient *http.Client
	Now        func() time.Time
}

func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		AnonKey:    anonKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Now:        time.Now,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	return c.exchange(ctx, FlowSignIn, "auth/v1/token?grant_type=password", email, password)
}

// SignUp registers a new account. Accounts that need email confirmation
// return an AuthError asking the operator to confirm first.
func (c *Client) SignUp(ctx context.Context, email, password string) (Session, error) {
	return c.exchange(ctx, FlowSignUp, "auth/v1/signup", email, password)
}

// SignOut revokes the access token. Errors are returned but the caller should
// drop the local session regardless.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	req, err := c.request(ctx, "auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sign out: status=%d body=%s", resp.StatusCode, b)
	}
	return nil
}

func (c *Client) exchange(ctx context.Context, flow Flow, endpoint, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, &AuthError{Flow: flow, Message: "Email and password are required."}
	}
	req, err := c.request(ctx, endpoint, credentials{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Session{}, &AuthError{Flow: flow, Message: unreachableMessage(flow)}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return Session{}, &AuthError{Flow: flow, StatusCode: resp.StatusCode, Message: failureMessage(flow, resp.StatusCode, string(body))}
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Session{}, fmt.Errorf("decode %s response: %w", flow, err)
	}
	if tr.AccessToken == "" {
		if flow == FlowSignUp {
			return Session{}, &AuthError{Flow: flow, StatusCode: resp.StatusCode, Message: "Check your email to confirm your account, then sign in."}
		}
		return Session{}, &AuthError{Flow: flow, StatusCode: resp.StatusCode, Message: failureMessage(flow, resp.StatusCode, "")}
	}
	s := sessionFromClaims(tr.AccessToken)
	s.RefreshToken = tr.RefreshToken
	if tr.User.ID != "" {
		s.UserID = tr.User.ID
	}
	if tr.User.Email != "" {
		s.Email = tr.User.Email
	}
	if s.Email == "" {
		s.Email = email
	}
	if s.ExpiresAt.IsZero() && tr.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return s, nil
}

func (c *Client) request(ctx context.Context, endpoint string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	target := strings.TrimRight(c.BaseURL, "/") + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AnonKey != "" {
		req.Header.Set("apikey", c.AnonKey)
	}
	return req, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func failureMessage(flow Flow, status int, body string) string {
	lower := strings.ToLower(body)
	switch flow {
	case FlowSignUp:
		if strings.Contains(lower, "already") {
			return "An account with this email already exists. Try signing in instead."
		}
		if strings.Contains(lower, "password") {
			return "That password is too weak. Use at least 6 characters."
		}
		return "Could not create your account. Please check your details and try again."
	default:
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return "Invalid email or password."
		}
		return "Sign in failed. Please try again."
	}
}

func unreachableMessage(flow Flow) string {
	if flow == FlowSignUp {
		return "Could not reach the sign-up service. Check your connection."
	}
	return "Could not reach the sign-in service. Check your connection."
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// SessionFromToken rebuilds a session from a stored access token. The token
// is not verified; it only needs to be readable.
func SessionFromToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNoSession
	}
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("parse access token: %w", err)
	}
	s := Session{AccessToken: token, UserID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func sessionFromClaims(token string) Session {
	s, err := SessionFromToken(token)
	if err != nil {
		return Session{AccessToken: token}
	}
	return s
}
