package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"opsdeck/internal/app"
	"opsdeck/internal/identity"
)

// newSessionGate answers 401 for every API route except health and the
// auth routes while no session is held. The check runs per request, so a
// sign-in or an expiry takes effect on the next call. Sessions are only
// required when an identity service is configured.
func newSessionGate(basePath string, a *app.App) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	authPrefix := path.Join(basePath, "auth") + "/"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if a.Identity == nil {
				next.ServeHTTP(w, req)
				return
			}
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if req.URL.Path == healthPath || strings.HasPrefix(req.URL.Path, authPrefix) {
				next.ServeHTTP(w, req)
				return
			}
			if _, ok := a.Session.Current(); !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

func sessionResponse(s identity.Session, ok, required bool) SessionResponse {
	resp := SessionResponse{SignedIn: ok, Required: required}
	if ok {
		resp.UserID = s.UserID
		resp.Email = s.Email
		if !s.ExpiresAt.IsZero() {
			exp := s.ExpiresAt.UTC()
			resp.ExpiresAt = &exp
		}
	}
	return resp
}

func registerAuth(api huma.API, h *handlers) {
	signIn := func(flow identity.Flow) func(context.Context, *struct {
		Body CredentialsRequest `json:"body"`
	}) (*authOutput, error) {
		return func(ctx context.Context, input *struct {
			Body CredentialsRequest `json:"body"`
		}) (*authOutput, error) {
			client := h.app.Identity
			if client == nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "identity service not configured", nil)
			}
			var (
				s   identity.Session
				err error
			)
			if flow == identity.FlowSignUp {
				s, err = client.SignUp(ctx, input.Body.Email, input.Body.Password)
			} else {
				s, err = client.SignIn(ctx, input.Body.Email, input.Body.Password)
			}
			if err != nil {
				return nil, handleError(err)
			}
			h.app.Session.Set(s)
			if err := h.app.Reload(ctx); err != nil {
				return nil, handleError(err)
			}
			resp := sessionResponse(s, true, true)
			resp.AccessToken = s.AccessToken
			return &authOutput{Body: resp}, nil
		}
	}

	huma.Register(api, huma.Operation{
		OperationID: "sign-in",
		Method:      http.MethodPost,
		Path:        "/auth/signin",
		Summary:     "Sign in with email and password",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, signIn(identity.FlowSignIn))

	huma.Register(api, huma.Operation{
		OperationID: "sign-up",
		Method:      http.MethodPost,
		Path:        "/auth/signup",
		Summary:     "Create an account",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, signIn(identity.FlowSignUp))

	huma.Register(api, huma.Operation{
		OperationID:   "sign-out",
		Method:        http.MethodPost,
		Path:          "/auth/signout",
		Summary:       "Sign out",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		if client := h.app.Identity; client != nil {
			if err := client.SignOut(ctx, h.app.Session.Token()); err != nil {
				h.log.Warn("remote sign out failed", zap.Error(err))
			}
		}
		h.app.Session.SignOut()
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/auth/session",
		Summary:     "Current session",
	}, func(ctx context.Context, _ *struct{}) (*authOutput, error) {
		s, ok := h.app.Session.Current()
		return &authOutput{Body: sessionResponse(s, ok, h.app.Identity != nil)}, nil
	})
}
