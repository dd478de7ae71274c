package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/user"
)

// Verifier checks the signed WebApp init data the messaging platform
// attaches to every request from the mini app. The signature scheme is the
// platform's documented one: secret = HMAC-SHA256("WebAppData", botToken),
// hash = HMAC-SHA256(secret, sorted "key=value" lines joined by '\n').
type Verifier struct {
	botToken string
	maxAge   time.Duration
}

func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Verifier{botToken: botToken, maxAge: maxAge}
}

var errInvalidInitData = internal.NewUnauthorizedError("invalid init data", internal.ErrCodeInvalidInitData)

// Verify parses raw init data (url-encoded key/value pairs), checks the
// signature and freshness, and returns the asserted identity claims.
func (v *Verifier) Verify(raw string, now time.Time) (user.IdentityClaims, error) {
	var claims user.IdentityClaims

	values, err := url.ParseQuery(raw)
	if err != nil {
		return claims, errInvalidInitData.WithCause(err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return claims, errInvalidInitData
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(v.botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return claims, errInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return claims, errInvalidInitData
	}
	if now.Sub(time.Unix(authDate, 0)) > v.maxAge {
		return claims, internal.NewUnauthorizedError("init data is too old", internal.ErrCodeInvalidInitData)
	}

	if err := json.Unmarshal([]byte(values.Get("user")), &claims); err != nil {
		return claims, errInvalidInitData.WithCause(err)
	}
	if claims.ID <= 0 {
		return claims, errInvalidInitData
	}

	return claims, nil
}
