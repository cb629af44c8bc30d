package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIBAN(t *testing.T) {
	assert.Equal(t, "DE89370400440532013000", NormalizeIBAN("de89 3704 0044 0532 0130 00"))
	assert.Equal(t, "NL91ABNA0417164300", NormalizeIBAN(" NL91 ABNA 0417 1643 00 "))
}

func TestValidChecksum(t *testing.T) {
	tests := []struct {
		name string
		iban string
		want bool
	}{
		{"valid german iban", "DE89370400440532013000", true},
		{"valid dutch iban", "NL91ABNA0417164300", true},
		{"valid austrian iban", "AT611904300234573201", true},
		{"valid french iban", "FR1420041010050500013M02606", true},
		{"single digit flipped", "DE89370400440532013001", false},
		{"two digits swapped", "DE89370400440532031000", false},
		{"wrong check digits", "DE00370400440532013000", false},
		{"too short", "DE8937040044", false},
		{"lowercase not normalized", "de89370400440532013000", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidChecksum(tt.iban))
		})
	}
}

func TestValidFormat(t *testing.T) {
	tests := []struct {
		name string
		iban string
		want bool
	}{
		{"plausible shape", "DE89370400440532013000", true},
		{"digits where letters expected", "8989370400440532013000", false},
		{"letters where digits expected", "DEXX370400440532013000", false},
		{"contains separator", "DE89-3704-0044", false},
		{"too long", "DE893704004405320130001234567890123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidFormat(tt.iban))
		})
	}
}

func TestBankCodeFromIBAN(t *testing.T) {
	tests := []struct {
		iban string
		want string
	}{
		{"DE89370400440532013000", "37040044"},
		{"AT611904300234573201", "19043"},
		{"NL91ABNA0417164300", "ABNA"},
		{"FR1420041010050500013M02606", "20041"},
		{"GB29NWBK60161331926819", ""},
		{"DE", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BankCodeFromIBAN(tt.iban), "iban %s", tt.iban)
	}
}
