// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bizaek/internal/platform/dberr"
	"github.com/taibuivan/bizaek/internal/platform/mailer"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/users/auth"
	"github.com/taibuivan/bizaek/pkg/uuid"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "bizaek.test"
	testPassword = "correct-horse-1"
)

var testSettings = auth.Settings{
	UserTokenTTL:   168 * time.Hour,
	AdminTokenTTL:  12 * time.Hour,
	OTPTTL:         15 * time.Minute,
	OTPMaxAttempts: 3,
}

// # Clock

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// # Credential store

// memoryUsers enforces the same unique constraints as users.account.
type memoryUsers struct {
	mu   sync.Mutex
	byID map[string]*auth.User

	// beforeCreate runs without the lock held, ahead of the insert.
	beforeCreate func(user *auth.User)
	creates      int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*auth.User{}}
}

func (m *memoryUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.byID[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, dberr.ErrNotFound
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (m *memoryUsers) FindByExternalID(_ context.Context, provider auth.Provider, externalID string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if externalID != "" && user.ExternalID(provider) == externalID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (m *memoryUsers) Create(_ context.Context, user *auth.User) error {
	if m.beforeCreate != nil {
		hook := m.beforeCreate
		m.beforeCreate = nil
		hook(user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == user.Email {
			return &dberr.UniqueViolation{Constraint: "account_email_key"}
		}
		for _, provider := range []auth.Provider{auth.ProviderGoogle, auth.ProviderFacebook, auth.ProviderGithub} {
			id := user.ExternalID(provider)
			if id != "" && existing.ExternalID(provider) == id {
				return &dberr.UniqueViolation{Constraint: "account_" + string(provider) + "id_key"}
			}
		}
	}
	clone := *user
	m.byID[user.ID] = &clone
	m.creates++
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return dberr.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *memoryUsers) LinkExternalID(_ context.Context, userID string, provider auth.Provider, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return dberr.ErrNotFound
	}
	for id, existing := range m.byID {
		if id != userID && existing.ExternalID(provider) == externalID {
			return &dberr.UniqueViolation{Constraint: "account_" + string(provider) + "id_key"}
		}
	}
	user.SetExternalID(provider, externalID)
	return nil
}

// seed stores a user directly. An empty password leaves no hash on file.
func (m *memoryUsers) seed(t *testing.T, email, password string, role sec.UserRole, status auth.Status) *auth.User {
	t.Helper()

	user := &auth.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Seeded",
		Role:        role,
		Status:      status,
	}
	if password != "" {
		hash, err := sec.HashPassword(password)
		require.NoError(t, err)
		user.PasswordHash = hash
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[user.ID] = user
	clone := *user
	return &clone
}

func (m *memoryUsers) setStatus(id string, status auth.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].Status = status
}

func (m *memoryUsers) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memoryUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// # Mail

var codePattern = regexp.MustCompile(`<strong>(\d{6})</strong>`)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// lastCode returns the passcode of the most recent mail to the address.
func (m *recordingMailer) lastCode(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To != to {
			continue
		}
		match := codePattern.FindStringSubmatch(m.sent[i].HTMLBody)
		require.Len(t, match, 2, "mail body carries no code")
		return match[1]
	}
	t.Fatalf("no mail sent to %s", to)
	return ""
}

// # Harness

type harness struct {
	clock   *fakeClock
	redis   *miniredis.Miniredis
	client  *redis.Client
	users   *memoryUsers
	ledger  *auth.RedisOTPLedger
	states  *auth.RedisStateStore
	mail    *recordingMailer
	tokens  *sec.TokenService
	service *auth.Service
	bridge  *auth.Bridge
	gate    *auth.Gate
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := newFakeClock()

	// Key TTLs are computed against the server clock; expiry decisions are
	// made by the ledger against the injected clock.
	mr := miniredis.RunT(t)
	mr.SetTime(clock.Now())

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := sec.NewTokenService([]byte(testSecret), testIssuer, clock.Now)
	require.NoError(t, err)

	users := newMemoryUsers()
	ledger := auth.NewOTPLedger(client)
	mail := &recordingMailer{}

	return &harness{
		clock:   clock,
		redis:   mr,
		client:  client,
		users:   users,
		ledger:  ledger,
		states:  auth.NewStateStore(client),
		mail:    mail,
		tokens:  tokens,
		service: auth.NewService(users, ledger, tokens, mail, testSettings, clock.Now),
		bridge:  auth.NewBridge(users, clock.Now),
		gate:    auth.NewGate(users, tokens),
	}
}
