package verification

import (
	"math/big"
	"strings"
)

// NormalizeIBAN uppercases and strips spaces from an account number.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}

// ValidFormat reports whether the normalized IBAN has a plausible shape:
// two letters, two digits, then 11 to 30 alphanumerics.
func ValidFormat(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	for i := 0; i < 2; i++ {
		if iban[i] < 'A' || iban[i] > 'Z' {
			return false
		}
	}
	for i := 2; i < 4; i++ {
		if iban[i] < '0' || iban[i] > '9' {
			return false
		}
	}
	for i := 4; i < len(iban); i++ {
		c := iban[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// ValidChecksum runs the ISO 13616 mod-97 check on a normalized IBAN.
func ValidChecksum(iban string) bool {
	if !ValidFormat(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]

	var sb strings.Builder
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if c >= 'A' && c <= 'Z' {
			sb.WriteString(big.NewInt(int64(c-'A') + 10).String())
		} else {
			sb.WriteByte(c)
		}
	}

	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// BankCodeFromIBAN extracts the domestic routing code from a normalized
// IBAN. Only the country layouts the pipeline collects in are mapped.
func BankCodeFromIBAN(iban string) string {
	if len(iban) < 4 {
		return ""
	}
	switch iban[:2] {
	case "DE": // 8-digit Bankleitzahl
		if len(iban) >= 12 {
			return iban[4:12]
		}
	case "AT": // 5-digit bank code
		if len(iban) >= 9 {
			return iban[4:9]
		}
	case "NL": // 4-letter bank code
		if len(iban) >= 8 {
			return iban[4:8]
		}
	case "ES", "FR": // 4- and 5-digit bank codes
		if len(iban) >= 9 {
			return iban[4:9]
		}
	}
	return ""
}
