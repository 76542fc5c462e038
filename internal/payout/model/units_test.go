package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "one ether", in: "1.0", want: "1000000000000000000"},
		{name: "fraction", in: "0.03", want: "30000000000000000"},
		{name: "one wei", in: "0.000000000000000001", want: "1"},
		{name: "sub wei", in: "0.0000000000000000001", wantErr: true},
		{name: "garbage", in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEther(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0.97", FormatEther(big.NewInt(970_000_000_000_000_000)))
	assert.Equal(t, "0", FormatEther(nil))
}
