package auth_test

import (
	"context"
	"time"

	auth "github.com/flotilla-hq/fleet-auth"
	"github.com/stretchr/testify/mock"
)

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) RenewalCredential() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockDirectory implements auth.Directory for testing
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindIdentityByID(ctx context.Context, id string) (auth.Identity, error) {
	args := m.Called(ctx, id)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

func (m *MockDirectory) FindIdentityByEmail(ctx context.Context, email string) (auth.Identity, error) {
	args := m.Called(ctx, email)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

func (m *MockDirectory) VerifyIdentity(ctx context.Context, email, password string) (auth.Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

func (m *MockDirectory) StoreRenewalCredential(ctx context.Context, id string, credential *string) error {
	args := m.Called(ctx, id, credential)
	return args.Error(0)
}

// testIdentity is a plain value identity for fixtures that do not need
// expectation tracking
type testIdentity struct {
	id         string
	email      string
	role       string
	credential string
}

func (t testIdentity) ID() string                { return t.id }
func (t testIdentity) Email() string             { return t.email }
func (t testIdentity) Role() string              { return t.role }
func (t testIdentity) RenewalCredential() string { return t.credential }

// testConfig implements auth.Config with adjustable TTLs so tests can mint
// already-expired tokens
type testConfig struct {
	accessKey    string
	renewalKey   string
	accessTTL    time.Duration
	renewalTTL   time.Duration
	issuer       string
	cookieSecure bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessKey:  "access-signing-key",
		renewalKey: "renewal-signing-key",
		accessTTL:  15 * time.Minute,
		renewalTTL: 168 * time.Hour,
		issuer:     "test-issuer",
	}
}

func (c *testConfig) GetAccessSigningKey() string       { return c.accessKey }
func (c *testConfig) GetRenewalSigningKey() string      { return c.renewalKey }
func (c *testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c *testConfig) GetRenewalTokenTTL() time.Duration { return c.renewalTTL }
func (c *testConfig) GetIssuer() string                 { return c.issuer }
func (c *testConfig) GetAccessCookieName() string       { return "jwt" }
func (c *testConfig) GetRenewalCookieName() string      { return "refreshToken" }
func (c *testConfig) GetCookieSecure() bool             { return c.cookieSecure }
