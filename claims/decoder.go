package claims

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrMalformed is returned for tokens that cannot be decoded into Claims.
var ErrMalformed = errors.New("malformed token")

const tokenSegments = 3

// segmentParser only decodes segments; it never validates or verifies.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

type subscriptionClaim struct {
	Source string `json:"source"`
	Type   string `json:"type"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	EmailVerified bool               `json:"email_verified"`
	Subscription  *subscriptionClaim `json:"subscription,omitempty"`
}

// Decode parses the payload segment of a three segment bearer token.
func Decode(accessToken string) (Claims, error) {
	segments := strings.Split(accessToken, ".")
	if len(segments) != tokenSegments {
		return Claims{}, errors.Wrapf(ErrMalformed, "[claims.Decode] expected %d segments, got %d", tokenSegments, len(segments))
	}

	payload, err := segmentParser.DecodeSegment(urlSafe(segments[1]))
	if err != nil {
		return Claims{}, errors.Wrapf(ErrMalformed, "[claims.Decode] payload is not base64url: %v", err)
	}

	if !utf8.Valid(payload) {
		return Claims{}, errors.Wrap(ErrMalformed, "[claims.Decode] payload is not UTF-8")
	}

	var tc tokenClaims
	if err := json.Unmarshal(payload, &tc); err != nil {
		return Claims{}, errors.Wrapf(ErrMalformed, "[claims.Decode] payload is not a claim set: %v", err)
	}
	if tc.ExpiresAt == nil {
		return Claims{}, errors.Wrap(ErrMalformed, "[claims.Decode] exp claim missing")
	}

	c := Claims{
		ExpiresAt:     tc.ExpiresAt.Time,
		EmailVerified: tc.EmailVerified,
	}
	if tc.Subscription != nil {
		c.Subscription = &Subscription{
			Source: parseSource(tc.Subscription.Source),
			Type:   parseType(tc.Subscription.Type),
		}
	}
	return c, nil
}

// urlSafe maps the standard base64 alphabet onto the URL-safe one and drops
// any padding so DecodeSegment can restore it.
func urlSafe(segment string) string {
	segment = strings.NewReplacer("+", "-", "/", "_").Replace(segment)
	return strings.TrimRight(segment, "=")
}
