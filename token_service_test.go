package auth_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/jobboard/go-auth"
)

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

const testSigningKey = "test-signing-key"

func testConfig() auth.Options {
	return auth.Options{SigningKey: testSigningKey, Issuer: "jobboard"}
}

func newTestTokenService(t *testing.T, opts ...auth.TokenOption) auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(testConfig(), auth.NopLogger{}, opts...)
	require.NoError(t, err)
	return ts
}

func TestNewTokenService(t *testing.T) {
	ts, err := auth.NewTokenService(testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, ts.TTL())
}

func TestNewTokenServiceMissingKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		ts, err := auth.NewTokenService(auth.Options{SigningKey: key}, auth.NopLogger{})
		require.Error(t, err)
		assert.Nil(t, ts)
		assert.True(t, auth.IsConfigurationError(err))
	}

	_, err := auth.NewTokenService(nil, auth.NopLogger{})
	assert.True(t, auth.IsConfigurationError(err))
}

func TestTokenServiceRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ts := newTestTokenService(t, auth.WithClock(func() time.Time { return now }))

	for _, role := range auth.GetAllRoles() {
		t.Run(string(role), func(t *testing.T) {
			token, err := ts.Issue(auth.Identity{ID: "user-1", Email: "user@example.com", Role: role})
			require.NoError(t, err)

			p, err := ts.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, "user-1", p.ID)
			assert.Equal(t, "user@example.com", p.Email)
			assert.Equal(t, role, p.Role)
			assert.True(t, p.IssuedAt.Equal(now))
			assert.True(t, p.ExpiresAt.Equal(now.Add(7*24*time.Hour)))
		})
	}
}

func TestTokenServiceIssueRejectsBadIdentity(t *testing.T) {
	ts := newTestTokenService(t)

	_, err := ts.Issue(auth.Identity{ID: "", Email: "a@example.com", Role: auth.RoleAdmin})
	assert.Error(t, err)

	_, err = ts.Issue(auth.Identity{ID: "u1", Role: auth.Role("owner")})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}

func TestTokenServiceTamperedSignature(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.Issue(auth.Identity{ID: "u1", Email: "a@example.com", Role: auth.RoleRecruiter})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	// every position, every other base64url symbol, including the last
	// character whose low bits are padding
	for i := range parts[2] {
		for _, r := range alphabet {
			if byte(r) == parts[2][i] {
				continue
			}
			sig := []byte(parts[2])
			sig[i] = byte(r)
			tampered := parts[0] + "." + parts[1] + "." + string(sig)

			p, err := ts.Verify(tampered)
			if !assert.Error(t, err, "position %d %q->%q verified", i, parts[2][i], r) {
				continue
			}
			assert.Nil(t, p)
			assert.True(t, auth.IsInvalidCredential(err))
		}
	}
}

func TestTokenServiceTamperedPayload(t *testing.T) {
	ts := newTestTokenService(t)
	seeker, err := ts.Issue(auth.Identity{ID: "u1", Email: "a@example.com", Role: auth.RoleJobSeeker})
	require.NoError(t, err)
	admin, err := ts.Issue(auth.Identity{ID: "u1", Email: "a@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)

	s := strings.Split(seeker, ".")
	a := strings.Split(admin, ".")

	_, err = ts.Verify(s[0] + "." + a[1] + "." + s[2])
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestTokenServiceFailuresAreIndistinguishable(t *testing.T) {
	issuedAt := time.Now().Add(-8 * 24 * time.Hour)
	past := newTestTokenService(t, auth.WithClock(func() time.Time { return issuedAt }))
	ts := newTestTokenService(t)

	expired, err := past.Issue(auth.Identity{ID: "u1", Email: "a@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)

	other, err := auth.NewTokenService(auth.Options{SigningKey: "another-key", Issuer: "jobboard"}, auth.NopLogger{})
	require.NoError(t, err)
	forged, err := other.Issue(auth.Identity{ID: "u1", Email: "a@example.com", Role: auth.RoleAdmin})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "uid": "u1", "role": "admin", "iss": "jobboard",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	var messages []string
	for name, credential := range map[string]string{
		"expired":   expired,
		"forged":    forged,
		"alg none":  none,
		"malformed": "definitely-not-a-token",
		"empty":     "",
	} {
		p, err := ts.Verify(credential)
		assert.Nil(t, p, name)
		require.Error(t, err, name)
		assert.True(t, auth.IsInvalidCredential(err), name)
		messages = append(messages, err.Error())
	}

	for _, m := range messages[1:] {
		assert.Equal(t, messages[0], m)
	}
}

func TestTokenServiceExpiryBoundary(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := issued
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	ts := newTestTokenService(t, auth.WithClock(clock))

	token, err := ts.Issue(auth.Identity{ID: "u1", Role: auth.RoleRecruiter})
	require.NoError(t, err)

	mu.Lock()
	now = issued.Add(7*24*time.Hour - time.Second)
	mu.Unlock()
	_, err = ts.Verify(token)
	assert.NoError(t, err)

	mu.Lock()
	now = issued.Add(7*24*time.Hour + time.Second)
	mu.Unlock()
	_, err = ts.Verify(token)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestTokenServiceRejectsUnknownRole(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"uid":  "u1",
		"role": "superuser",
		"iss":  "jobboard",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	_, err = ts.Verify(token)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestTokenServiceRejectsMissingExpiry(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "uid": "u1", "role": "admin", "iss": "jobboard",
	}).SignedString([]byte(testSigningKey))
	require.NoError(t, err)

	_, err = ts.Verify(token)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestTokenServiceRejectsWrongIssuerAndAudience(t *testing.T) {
	cfg := testConfig()
	cfg.Audience = []string{"jobboard-web"}
	ts, err := auth.NewTokenService(cfg, auth.NopLogger{})
	require.NoError(t, err)

	good, err := ts.Issue(auth.Identity{ID: "u1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	_, err = ts.Verify(good)
	require.NoError(t, err)

	other := cfg
	other.Issuer = "someone-else"
	otherTS, err := auth.NewTokenService(other, auth.NopLogger{})
	require.NoError(t, err)
	wrongIssuer, err := otherTS.Issue(auth.Identity{ID: "u1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	_, err = ts.Verify(wrongIssuer)
	assert.True(t, auth.IsInvalidCredential(err))

	other = cfg
	other.Audience = []string{"mobile"}
	otherTS, err = auth.NewTokenService(other, auth.NopLogger{})
	require.NoError(t, err)
	wrongAudience, err := otherTS.Issue(auth.Identity{ID: "u1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	_, err = ts.Verify(wrongAudience)
	assert.True(t, auth.IsInvalidCredential(err))
}

func TestTokenServiceLogsRejectionCause(t *testing.T) {
	logger := new(MockLogger)
	logger.On("Debug", mock.Anything, mock.Anything).Return()

	ts, err := auth.NewTokenService(testConfig(), logger)
	require.NoError(t, err)

	_, err = ts.Verify("garbage")
	require.Error(t, err)
	logger.AssertCalled(t, "Debug", "TokenService verify rejected credential: %v", mock.Anything)
}

func TestTokenServiceConcurrentVerify(t *testing.T) {
	ts := newTestTokenService(t)
	token, err := ts.Issue(auth.Identity{ID: "u1", Role: auth.RoleAdmin})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ts.Verify(token); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	assert.Empty(t, errs)
}
