package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInitDataInvalid is returned when the init data signature does not match.
	ErrInitDataInvalid = errors.New("invalid init data signature")
	// ErrInitDataExpired is returned when auth_date is older than the allowed age.
	ErrInitDataExpired = errors.New("init data expired")
)

// TelegramUser is the user object embedded in Web App init data.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// InitDataVerifier checks the signature of Telegram Web App init data.
// The key is HMAC-SHA256 of the bot token keyed with "WebAppData"; the hash
// covers the sorted key=value pairs joined by newlines.
type InitDataVerifier struct {
	secret   []byte
	disabled bool
	maxAge time.Duration
	now    func() time.Time
}

// NewInitDataVerifier creates a verifier for botToken. A zero maxAge
// accepts init data of any age. Without a bot token the key would be public,
// so such a verifier rejects all init data.
func NewInitDataVerifier(botToken string, maxAge time.Duration) *InitDataVerifier {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return &InitDataVerifier{secret: mac.Sum(nil), disabled: botToken == "", maxAge: maxAge, now: time.Now}
}

// Sign returns the hash Telegram would attach to values.
func (v *InitDataVerifier) Sign(values url.Values) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify validates raw init data and returns the user it describes.
func (v *InitDataVerifier) Verify(initData string) (*TelegramUser, error) {
	if v.disabled {
		return nil, fmt.Errorf("%w: no bot token configured", ErrInitDataInvalid)
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("parse init data: %w", err)
	}

	hash := values.Get("hash")
	if hash == "" || !hmac.Equal([]byte(v.Sign(values)), []byte(hash)) {
		return nil, ErrInitDataInvalid
	}

	if v.maxAge > 0 {
		ts, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse auth_date: %w", err)
		}
		if v.now().Sub(time.Unix(ts, 0)) > v.maxAge {
			return nil, ErrInitDataExpired
		}
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("parse user: %w", err)
	}
	if user.ID == 0 {
		return nil, errors.New("init data has no user id")
	}
	return &user, nil
}

func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + values.Get(k)
	}
	return strings.Join(pairs, "\n")
}
