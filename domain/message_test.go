package domain

import (
	"strings"
	"testing"

	"parley/errors"

	"github.com/stretchr/testify/require"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "regular content", content: "hello there", wantErr: false},
		{name: "empty content", content: "", wantErr: true},
		{name: "exactly at the limit", content: strings.Repeat("a", MaxContentLen), wantErr: false},
		{name: "one rune over the limit", content: strings.Repeat("a", MaxContentLen+1), wantErr: true},
		// 200 runes but 400 bytes: the limit counts characters
		{name: "multibyte content at the limit", content: strings.Repeat("é", MaxContentLen), wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.content)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrValidation)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
