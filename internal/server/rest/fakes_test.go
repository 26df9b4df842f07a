package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/auth"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/services"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var validRefresh = strings.Repeat("ab", 32)

type fakeSessions struct {
	loginReq services.LoginRequest
	loginRes *services.LoginResult
	loginErr error

	rotateRes *services.RotateResult
	rotateErr error

	logoutErr error
	loggedOut []string

	revokeAllN   int64
	revokeAllErr error
	revokedAll   []string

	revokedSession [2]string
	sessions       []services.SessionInfo
	stats          *services.TokenStats

	identities map[string]*services.Identity
	authErr    error
}

func (f *fakeSessions) Login(_ context.Context, req services.LoginRequest) (*services.LoginResult, error) {
	f.loginReq = req
	return f.loginRes, f.loginErr
}

func (f *fakeSessions) Rotate(context.Context, string) (*services.RotateResult, error) {
	return f.rotateRes, f.rotateErr
}

func (f *fakeSessions) Logout(_ context.Context, tok string) error {
	f.loggedOut = append(f.loggedOut, tok)
	return f.logoutErr
}

func (f *fakeSessions) LogoutAll(_ context.Context, principalID string) (int64, error) {
	f.revokedAll = append(f.revokedAll, principalID)
	return f.revokeAllN, f.revokeAllErr
}

func (f *fakeSessions) RevokeSession(_ context.Context, principalID, sessionID string) error {
	f.revokedSession = [2]string{principalID, sessionID}
	return nil
}

func (f *fakeSessions) ActiveSessions(context.Context, string) ([]services.SessionInfo, error) {
	return f.sessions, nil
}

func (f *fakeSessions) Stats(context.Context, string) (*services.TokenStats, error) {
	return f.stats, nil
}

func (f *fakeSessions) Authenticate(_ context.Context, tok string) (*services.Identity, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	if id, ok := f.identities[tok]; ok {
		return id, nil
	}
	return nil, common.ErrBadSignature
}

func (f *fakeSessions) Inspect(ctx context.Context, tok string) (*services.Identity, error) {
	return f.Authenticate(ctx, tok)
}

type fakePrincipals struct {
	got models.Principal
	err error
}

func (f *fakePrincipals) Register(_ context.Context, email, _ string, role models.Role) (*models.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	if role == "" {
		role = models.RoleStudent
	}
	f.got = models.Principal{ID: "p-new", Email: email, Role: role, Active: true}
	return &f.got, nil
}

func identity(id, email string, role models.Role) *services.Identity {
	return &services.Identity{
		Principal: &models.Principal{ID: id, Email: email, Role: role, Active: true},
		Token: &auth.TokenInfo{
			Subject:   email,
			Role:      string(role),
			IssuedAt:  t0,
			ExpiresAt: t0.Add(time.Hour),
		},
	}
}

type testEnv struct {
	sessions   *fakeSessions
	principals *fakePrincipals
	healthErr  error
	router     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions: &fakeSessions{identities: map[string]*services.Identity{
			"student-token": identity("p-1", "alice@example.com", models.RoleStudent),
			"admin-token":   identity("p-admin", "root@example.com", models.RoleAdmin),
		}},
		principals: &fakePrincipals{},
	}
	health := func(context.Context) error { return env.healthErr }
	h := NewHandler(env.sessions, env.principals, health, func() time.Time { return t0 }, logging.NewNopLogger())
	env.router = NewRouter(h, []string{"*"})
	return env
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
