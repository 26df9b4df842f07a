package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/devlearning/devauth/internal/common"
	"github.com/devlearning/devauth/internal/dbx"
	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/auth"
	"github.com/devlearning/devauth/internal/server/models"
	"github.com/devlearning/devauth/internal/server/repositories/principals"
	"github.com/devlearning/devauth/internal/server/repositories/refreshtokens"
	"golang.org/x/crypto/bcrypt"
)

// --- clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// --- principals ---

type memPrincipals struct {
	mu      sync.Mutex
	byID    map[string]*models.Principal
	findErr error
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{byID: map[string]*models.Principal{}}
}

func (m *memPrincipals) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == p.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *p
	m.byID[p.ID] = &cp
	return p, nil
}

func (m *memPrincipals) FindByID(ctx context.Context, id string) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPrincipals) FindByIdentifier(ctx context.Context, email string) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, p := range m.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memPrincipals) delete(id string) {
	m.mu.Lock()
	delete(m.byID, id)
	m.mu.Unlock()
}

// --- refresh tokens ---

type memTokens struct {
	mu        sync.Mutex
	rows      []*models.RefreshToken
	createErr error
	revokeErr error
	deleteErr error
}

func (m *memTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.rows {
		if r.Token == t.Token {
			return common.ErrorAlreadyExists
		}
	}
	cp := *t
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memTokens) find(pred func(*models.RefreshToken) bool) []*models.RefreshToken {
	var out []*models.RefreshToken
	for _, r := range m.rows {
		if pred(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memTokens) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	got := m.find(func(r *models.RefreshToken) bool { return r.Token == token })
	if len(got) == 0 {
		return nil, common.ErrorNotFound
	}
	return got[0], nil
}

func (m *memTokens) FindByID(ctx context.Context, id string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	got := m.find(func(r *models.RefreshToken) bool { return r.ID == id })
	if len(got) == 0 {
		return nil, common.ErrorNotFound
	}
	return got[0], nil
}

func (m *memTokens) FindValid(ctx context.Context, principalID string, now time.Time) ([]*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(r *models.RefreshToken) bool { return r.PrincipalID == principalID && r.IsValid(now) }), nil
}

func (m *memTokens) FindByPrincipal(ctx context.Context, principalID string) ([]*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(r *models.RefreshToken) bool { return r.PrincipalID == principalID }), nil
}

func (m *memTokens) CountValid(ctx context.Context, principalID string, now time.Time) (int, error) {
	v, _ := m.FindValid(ctx, principalID, now)
	return len(v), nil
}

func (m *memTokens) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return m.revokeErr
	}
	for _, r := range m.rows {
		if r.Token == token {
			r.Revoked = true
		}
	}
	return nil
}

func (m *memTokens) RevokeByID(ctx context.Context, principalID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return m.revokeErr
	}
	for _, r := range m.rows {
		if r.ID == id && r.PrincipalID == principalID {
			r.Revoked = true
		}
	}
	return nil
}

func (m *memTokens) RevokeAll(ctx context.Context, principalID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return 0, m.revokeErr
	}
	var n int64
	for _, r := range m.rows {
		if r.PrincipalID == principalID && !r.Revoked {
			r.Revoked = true
			n++
		}
	}
	return n, nil
}

func (m *memTokens) deleteWhere(pred func(*models.RefreshToken) bool) int64 {
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if pred(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n
}

func (m *memTokens) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleteWhere(func(r *models.RefreshToken) bool { return r.Token == token })
	return nil
}

func (m *memTokens) DeleteExpiredByPrincipal(ctx context.Context, principalID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleteWhere(func(r *models.RefreshToken) bool {
		return r.PrincipalID == principalID && r.ExpiresAt.Before(now)
	}), nil
}

func (m *memTokens) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleteWhere(func(r *models.RefreshToken) bool { return r.ExpiresAt.Before(now) }), nil
}

func (m *memTokens) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// --- repo manager ---

type fakeRepoManager struct {
	p *memPrincipals
	r *memTokens
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error         { return nil }
func (m *fakeRepoManager) Principals(db dbx.DBTX) principals.Repository       { return m.p }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }

// --- fixture ---

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	clock    *fakeClock
	rm       *fakeRepoManager
	hasher   auth.Hasher
	codec    *auth.Codec
	store    *TokenStore
	capacity *CapacityManager
	sessions *SessionService
	people   *PrincipalService
}

func newFixture(t *testing.T, maxPerPrincipal int) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:     db,
		mock:   mock,
		clock:  newFakeClock(),
		rm:     &fakeRepoManager{p: newMemPrincipals(), r: &memTokens{}},
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	}
	log := logging.NewNopLogger()

	f.codec, err = auth.NewCodec([]byte(testSecret), time.Hour, auth.WithClock(f.clock.Now))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	verifier, err := NewCredentialVerifier(db, f.rm, f.hasher)
	if err != nil {
		t.Fatalf("NewCredentialVerifier: %v", err)
	}
	f.store = NewTokenStore(db, f.rm, 7*24*time.Hour, f.clock.Now)
	f.capacity = NewCapacityManager(db, f.rm, maxPerPrincipal, f.clock.Now)
	f.sessions = NewSessionService(db, f.rm, f.codec, verifier, f.store, f.capacity, f.clock.Now, log)
	f.people = NewPrincipalService(db, f.rm, f.hasher, log)
	return f
}

// expectTx queues n begin/commit pairs, one per capacity check.
func (f *fixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func (f *fixture) register(t *testing.T, email, password string, role models.Role) *models.Principal {
	t.Helper()
	p, err := f.people.Register(context.Background(), email, password, role)
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return p
}

func (f *fixture) login(t *testing.T, email, password string) *LoginResult {
	t.Helper()
	res, err := f.sessions.Login(context.Background(), LoginRequest{
		Identifier: email, Secret: password, ClientIP: "10.0.0.1", UserAgent: "go-test",
	})
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return res
}
