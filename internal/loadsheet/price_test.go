package loadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"19.5", "$19.50"},
		{"abc", NotAvailable},
		{"", NotAvailable},
		{"  7 ", "$7.00"},
		{"1234.5", "$1,234.50"},
		{"1234567.891", "$1,234,567.89"},
		{"0", "$0.00"},
		{"0.005", "$0.01"},
		{"-5", "$-5.00"},
		{"1e3", "$1,000.00"},
		{"1e19", "$10,000,000,000,000,000,000.00"},
		{"-12345678901234567890", "$-12,345,678,901,234,567,168.00"},
		{"-0.001", "$0.00"},
		{"NaN", NotAvailable},
		{"inf", NotAvailable},
		{"$19.50", NotAvailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(ParsePrice(tt.in)), tt.in)
	}
}

func TestParsePrice(t *testing.T) {
	p := ParsePrice("12.25")
	assert.True(t, p.Valid)
	assert.Equal(t, 12.25, p.Amount)

	assert.False(t, ParsePrice("12,25").Valid)
}
