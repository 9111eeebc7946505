package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MonMotDePasseTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("MauvaisMDP", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_RejectsMalformedHash(t *testing.T) {
	req := require.New(t)
	_, err := ComparePassword("whatever", "not-an-argon2-hash")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice", "secret"}, false},
		{"Username too short", RegisterRequest{"al", "secret"}, true},
		{"Username too long", RegisterRequest{"alexandrina", "secret"}, true},
		{"Username with symbols", RegisterRequest{"al!ce", "secret"}, true},
		{"Password too short", RegisterRequest{"alice", "ab"}, true},
		{"Password too long (edge case)", RegisterRequest{"alice", strings.Repeat("a", 73)}, true},
		{"Minimal password", RegisterRequest{"alice", "abc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("unit-test-secret", time.Hour)

	token, err := issuer.Generate("u1", "alice")
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("u1", claims.UserID)
	req.Equal("alice", claims.Username)
	req.Equal("parley", claims.Issuer)
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, err := other.Generate("u1", "alice")
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.Error(err)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("unit-test-secret", -time.Minute)

	token, err := issuer.Generate("u1", "alice")
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.Error(err)
}

// BenchmarkHashPassword measures CPU/RAM impact of the Argon2id parameters.
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
