package claims_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/claims"
	"github.com/stretchr/testify/require"
)

const testHeader = `{"alg":"RS256","typ":"JWT"}`

func makeToken(t *testing.T, payload map[string]any) string {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString([]byte(testHeader)) + "." +
		base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func TestDecode(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("no subscription", func(t *testing.T) {
		c, err := claims.Decode(makeToken(t, map[string]any{"exp": exp.Unix(), "email_verified": true}))
		require.NoError(t, err)
		require.True(t, c.ExpiresAt.Equal(exp))
		require.True(t, c.EmailVerified)
		require.Nil(t, c.Subscription)
	})

	t.Run("subscription", func(t *testing.T) {
		c, err := claims.Decode(makeToken(t, map[string]any{
			"exp": exp.Unix(),
			"subscription": map[string]any{
				"source": "platform_native",
				"type":   "premium_original_platform",
			},
		}))
		require.NoError(t, err)
		require.NotNil(t, c.Subscription)
		require.Equal(t, claims.SubscriptionSourcePlatformNative, c.Subscription.Source)
		require.Equal(t, claims.SubscriptionTypePremiumOriginalPlatform, c.Subscription.Type)
	})

	t.Run("unknown subscription values", func(t *testing.T) {
		c, err := claims.Decode(makeToken(t, map[string]any{
			"exp":          exp.Unix(),
			"subscription": map[string]any{"source": "web", "type": "lifetime"},
		}))
		require.NoError(t, err)
		require.Equal(t, claims.SubscriptionSourceOther, c.Subscription.Source)
		require.Equal(t, claims.SubscriptionTypeUnknown, c.Subscription.Type)
	})

	t.Run("padded standard alphabet payload", func(t *testing.T) {
		// The note value forces a "/" and "=" padding in the standard encoding.
		body := []byte(`{"exp":` + "1893456000" + `,"note":"??>??/"}`)
		token := "h." + base64.StdEncoding.EncodeToString(body) + ".s"
		c, err := claims.Decode(token)
		require.NoError(t, err)
		require.Equal(t, int64(1893456000), c.ExpiresAt.Unix())
	})
}

func TestDecode_Malformed(t *testing.T) {
	tests := map[string]string{
		"two segments":   "a.b",
		"four segments":  "a.b.c.d",
		"empty":          "",
		"invalid base64": "h.!!!notbase64!!!.s",
		"not json":       "h." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".s",
		"missing exp":    "h." + base64.RawURLEncoding.EncodeToString([]byte(`{"email_verified":true}`)) + ".s",
		"invalid utf-8": "h." + base64.RawURLEncoding.EncodeToString(
			[]byte("{\"exp\":4102444800,\"subscription\":{\"type\":\"premium_not_platform\",\"source\":\"\xff\xfe\"}}"),
		) + ".s",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := claims.Decode(token)
			require.ErrorIs(t, err, claims.ErrMalformed)
		})
	}
}

func TestClaims_Expired(t *testing.T) {
	now := time.Now()
	require.True(t, claims.Claims{ExpiresAt: now.Add(-time.Second)}.Expired(now))
	require.True(t, claims.Claims{ExpiresAt: now}.Expired(now))
	require.False(t, claims.Claims{ExpiresAt: now.Add(time.Hour)}.Expired(now))
}
