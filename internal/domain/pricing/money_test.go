package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"$12.50", 1250},
		{"$1,234.56", 123456},
		{"£12", 1200},
		{" 3.5 ", 350},
		{".99", 99},
		{"$0.005", 1},
		{"$0.004", 0},
		{"-$4.00", -400},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMoney_Invalid(t *testing.T) {
	for _, in := range []string{"", "$", "free", ".", "1.2.3", "4-5"} {
		_, err := ParseMoney(in)
		assert.ErrorIs(t, err, ErrInvalidMoney, in)
	}
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$0.00", Money(0).String())
	assert.Equal(t, "$12.05", Money(1205).String())
	assert.Equal(t, "$1,234.56", Money(123456).String())
	assert.Equal(t, "-$3.10", Money(-310).String())
	assert.Equal(t, "1234.56", Money(123456).Plain())
}
