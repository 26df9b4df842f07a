package admincli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/server/models"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePrincipals struct {
	byEmail     map[string]*models.Principal
	registered  []models.Principal
	gotPassword string
	registerErr error
}

func (f *fakePrincipals) Register(_ context.Context, email, password string, role models.Role) (*models.Principal, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.gotPassword = password
	p := models.Principal{ID: "p-1", Email: email, Role: role, Active: true}
	f.registered = append(f.registered, p)
	return &p, nil
}

func (f *fakePrincipals) FindByIdentifier(_ context.Context, email string) (*models.Principal, error) {
	if p, ok := f.byEmail[email]; ok {
		return p, nil
	}
	return nil, common.ErrorNotFound
}

type fakeRevoker struct {
	revoked []string
}

func (f *fakeRevoker) RevokeAll(_ context.Context, principalID string) (int64, error) {
	f.revoked = append(f.revoked, principalID)
	return 4, nil
}

type fakePurger struct {
	now time.Time
	err error
}

func (f *fakePurger) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.now = now
	return 7, f.err
}

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		a := answers[i]
		i++
		return []byte(a), nil
	}
	t.Cleanup(func() { readPassword = orig })
}

type env struct {
	app        *App
	out        *bytes.Buffer
	principals *fakePrincipals
	revoker    *fakeRevoker
	purger     *fakePurger
}

func newEnv() *env {
	e := &env{
		out: &bytes.Buffer{},
		principals: &fakePrincipals{byEmail: map[string]*models.Principal{
			"alice@example.com": {ID: "p-alice", Email: "alice@example.com", Role: models.RoleStudent},
		}},
		revoker:  &fakeRevoker{},
		purger:   &fakePurger{},
	}
	e.app = NewApp(e.principals, e.revoker, e.purger, func() time.Time { return t0 }, e.out)
	return e
}

func TestRun_Usage(t *testing.T) {
	e := newEnv()
	assert.Equal(t, 2, e.app.Run(context.Background(), nil))
	assert.Contains(t, e.out.String(), "usage:")

	e = newEnv()
	assert.Equal(t, 2, e.app.Run(context.Background(), []string{"frobnicate"}))
	assert.Contains(t, e.out.String(), `unknown command "frobnicate"`)
}

func TestCreatePrincipal(t *testing.T) {
	stubPasswords(t, "s3cret!", "s3cret!")
	e := newEnv()

	code := e.app.Run(context.Background(), []string{"create-principal", "-d", "postgres://x", "-email", "root@example.com", "-role", "ADMIN"})

	require.Equal(t, 0, code, e.out.String())
	require.Len(t, e.principals.registered, 1)
	assert.Equal(t, models.RoleAdmin, e.principals.registered[0].Role)
	assert.Equal(t, "root@example.com", e.principals.registered[0].Email)
	assert.Equal(t, "s3cret!", e.principals.gotPassword)
	assert.Contains(t, e.out.String(), "created principal p-1")
}

func TestCreatePrincipal_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "one", "two")
	e := newEnv()

	code := e.app.Run(context.Background(), []string{"create-principal", "-email", "x@example.com"})

	assert.Equal(t, 1, code)
	assert.Empty(t, e.principals.registered)
	assert.Contains(t, e.out.String(), "do not match")
}

func TestCreatePrincipal_RequiresEmail(t *testing.T) {
	stubPasswords(t)
	e := newEnv()

	assert.Equal(t, 1, e.app.Run(context.Background(), []string{"create-principal"}))
	assert.Contains(t, e.out.String(), "-email is required")
}

func TestCreatePrincipal_Duplicate(t *testing.T) {
	stubPasswords(t, "pw", "pw")
	e := newEnv()
	e.principals.registerErr = common.ErrorAlreadyExists

	assert.Equal(t, 1, e.app.Run(context.Background(), []string{"create-principal", "-email=alice@example.com"}))
	assert.Contains(t, e.out.String(), "already exists")
}

func TestRevokeAll(t *testing.T) {
	e := newEnv()

	code := e.app.Run(context.Background(), []string{"revoke-all", "-email", "alice@example.com"})

	require.Equal(t, 0, code, e.out.String())
	assert.Equal(t, []string{"p-alice"}, e.revoker.revoked)
	assert.Contains(t, e.out.String(), "revoked 4 refresh token(s)")
}

func TestRevokeAll_UnknownPrincipal(t *testing.T) {
	e := newEnv()

	assert.Equal(t, 1, e.app.Run(context.Background(), []string{"revoke-all", "-email", "ghost@example.com"}))
	assert.Empty(t, e.revoker.revoked)
	assert.Contains(t, e.out.String(), "not found")
}

func TestPurgeExpired(t *testing.T) {
	e := newEnv()

	require.Equal(t, 0, e.app.Run(context.Background(), []string{"purge-expired"}))
	assert.True(t, e.purger.now.Equal(t0))
	assert.Contains(t, e.out.String(), "purged 7")

	e = newEnv()
	e.purger.err = errors.New("db gone")
	assert.Equal(t, 1, e.app.Run(context.Background(), []string{"purge-expired"}))
}
