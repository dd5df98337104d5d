package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinTokenService_IssueVerify(t *testing.T) {
	s := NewSpinTokenService(testSecret)
	intent := SpinIntent{UserID: 42, Outcome: "10", Coins: 10, Method: "free", ConfigVersion: 3}

	token, err := s.Issue(intent, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, token.Token[strings.LastIndex(token.Token, ".")+1:], token.Signature)

	claims, sig, err := s.Verify(token.Token)
	require.NoError(t, err)
	assert.Equal(t, token.Signature, sig)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "10", claims.Outcome)
	assert.Equal(t, int64(10), claims.Coins)
	assert.Equal(t, "free", claims.Method)
	assert.Equal(t, int64(3), claims.ConfigVersion)
	assert.NotEmpty(t, claims.Id)
}

func TestSpinTokenService_UniqueSignatures(t *testing.T) {
	s := NewSpinTokenService(testSecret)
	intent := SpinIntent{UserID: 1, Outcome: "2", Coins: 2, Method: "free"}

	a, err := s.Issue(intent, time.Minute)
	require.NoError(t, err)
	b, err := s.Issue(intent, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a.Signature, b.Signature)
}

// respell returns the token with the last signature character swapped for
// the ones that decode to the same bytes.
func respell(token string) []string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := strings.IndexByte(alphabet, token[len(token)-1])
	var out []string
	for i := last &^ 3; i < last&^3+4; i++ {
		if i != last {
			out = append(out, token[:len(token)-1]+string(alphabet[i]))
		}
	}
	return out
}

func TestSpinTokenService_SignatureSpellings(t *testing.T) {
	s := NewSpinTokenService(testSecret)
	token, err := s.Issue(SpinIntent{UserID: 7, Outcome: "10", Coins: 10, Method: "free"}, time.Minute)
	require.NoError(t, err)

	variants := respell(token.Token)
	require.Len(t, variants, 3)
	for _, variant := range variants {
		_, sig, err := s.Verify(variant)
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalidSpinToken)
			continue
		}
		assert.Equal(t, token.Signature, sig, variant)
	}
}

func TestSpinTokenService_Rejects(t *testing.T) {
	s := NewSpinTokenService(testSecret)
	intent := SpinIntent{UserID: 42, Outcome: "10", Coins: 10, Method: "free"}

	tests := []struct {
		name  string
		token func() string
	}{
		{
			name: "expired",
			token: func() string {
				old := NewSpinTokenService(testSecret)
				old.now = func() time.Time { return time.Now().Add(-time.Hour) }
				tok, _ := old.Issue(intent, 30*time.Second)
				return tok.Token
			},
		},
		{
			name: "foreign secret",
			token: func() string {
				tok, _ := NewSpinTokenService("other").Issue(intent, time.Minute)
				return tok.Token
			},
		},
		{
			name: "tampered payload",
			token: func() string {
				tok, _ := s.Issue(intent, time.Minute)
				parts := strings.Split(tok.Token, ".")
				other, _ := s.Issue(SpinIntent{UserID: 42, Outcome: "jackpot", Coins: 100, Method: "free"}, time.Minute)
				return parts[0] + "." + strings.Split(other.Token, ".")[1] + "." + parts[2]
			},
		},
		{
			name: "access token is not a spin token",
			token: func() string {
				tok, _ := NewJWTService(testSecret).GenerateJWT(42, "user", time.Now().Add(time.Hour))
				return tok
			},
		},
		{
			name:  "garbage",
			token: func() string { return "not-a-token" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, sig, err := s.Verify(tt.token())
			assert.ErrorIs(t, err, ErrInvalidSpinToken)
			assert.Nil(t, claims)
			assert.Empty(t, sig)
		})
	}
}
