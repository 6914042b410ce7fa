package security

import (
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botToken = "123456:TEST-token"

func signedInitData(v *InitDataVerifier, authDate time.Time, user string) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAH")
	values.Set("user", user)
	values.Set("hash", v.Sign(values))
	return values.Encode()
}

func TestInitDataVerify(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	v := NewInitDataVerifier(botToken, 24*time.Hour)
	v.now = func() time.Time { return now }

	data := signedInitData(v, now.Add(-time.Hour), `{"id": 42, "first_name": "Anna", "username": "anna"}`)
	user, err := v.Verify(data)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "anna", user.Username)

	t.Run("wrong bot token", func(t *testing.T) {
		other := NewInitDataVerifier("654321:other", 0)
		_, err := other.Verify(data)
		assert.ErrorIs(t, err, ErrInitDataInvalid)
	})

	t.Run("tampered", func(t *testing.T) {
		values, _ := url.ParseQuery(data)
		values.Set("user", `{"id": 1}`)
		_, err := v.Verify(values.Encode())
		assert.ErrorIs(t, err, ErrInitDataInvalid)
	})

	t.Run("missing hash", func(t *testing.T) {
		_, err := v.Verify("auth_date=1&user=%7B%7D")
		assert.ErrorIs(t, err, ErrInitDataInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		old := signedInitData(v, now.Add(-48*time.Hour), `{"id": 42}`)
		_, err := v.Verify(old)
		assert.ErrorIs(t, err, ErrInitDataExpired)
	})

	t.Run("empty bot token rejects everything", func(t *testing.T) {
		unconfigured := NewInitDataVerifier("", 0)
		forged := signedInitData(unconfigured, now, `{"id": 424242, "first_name": "admin"}`)
		user, err := unconfigured.Verify(forged)
		assert.ErrorIs(t, err, ErrInitDataInvalid)
		assert.Nil(t, user)
	})

	t.Run("no user id", func(t *testing.T) {
		_, err := v.Verify(signedInitData(v, now, `{"first_name": "x"}`))
		assert.Error(t, err)
	})
}

func TestDataCheckString(t *testing.T) {
	values := url.Values{"user": {"u"}, "auth_date": {"1"}, "hash": {"h"}, "query_id": {"q"}}
	assert.Equal(t, "auth_date=1\nquery_id=q\nuser=u", dataCheckString(values))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)

	token, expires, err := issuer.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	userID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	other := NewTokenIssuer([]byte("another-key-another-key-another!!"), time.Hour)
	_, err = other.Parse(token)
	assert.Error(t, err)

	_, err = issuer.Parse("not.a.token")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	token, _, err := issuer.Issue(42)
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allowAt("1.2.3.4", now), "request %d", i)
	}
	assert.False(t, rl.allowAt("1.2.3.4", now))
	assert.True(t, rl.allowAt("5.6.7.8", now), "keys are limited independently")

	// one token is refilled every 20s
	assert.True(t, rl.allowAt("1.2.3.4", now.Add(21*time.Second)))
	assert.False(t, rl.allowAt("1.2.3.4", now.Add(22*time.Second)))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	rl.allowAt("old", time.Now().Add(-time.Hour))
	rl.Allow("new")

	assert.Equal(t, 1, rl.Cleanup())
	assert.Len(t, rl.visitors, 1)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "10.0.0.1:5555", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "10.0.0.1:5555", "198.51.100.3"},
		{"no port", nil, "10.0.0.1", "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	_, ok := BearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer abc.def")
	token, ok := BearerToken(r)
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	r.Header.Set("Authorization", "Basic abc")
	_, ok = BearerToken(r)
	assert.False(t, ok)
}

func TestGenerateSessionID(t *testing.T) {
	a, b := GenerateSessionID(), GenerateSessionID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
