package chain

import (
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// AddressValidation is the detailed validation report for a candidate
// address, per spec.md §4.3.
type AddressValidation struct {
	FormatValid      bool
	LengthValid      bool
	CharacterValid   bool
	PatternValid     bool
	ChecksumValid    bool
	Reason           string
	ValidationTimeMs float64
}

// ValidateAddress is the pure boolean form: true iff the address's base58
// decode is exactly 32 bytes and it matches the alphabet/length bounds.
func ValidateAddress(s string) bool {
	return ValidateAddressDetailed(s).FormatValid
}

// ValidateAddressDetailed runs every validation stage and reports which
// ones passed, along with a human reason for the first failure.
func ValidateAddressDetailed(s string) AddressValidation {
	start := time.Now()
	v := AddressValidation{}

	v.LengthValid = len(s) >= 32 && len(s) <= 44
	if !v.LengthValid {
		v.Reason = "length out of bounds [32,44]"
		v.ValidationTimeMs = elapsedMs(start)
		return v
	}

	v.CharacterValid = allInAlphabet(s)
	if !v.CharacterValid {
		v.Reason = "contains characters outside the base58 alphabet"
		v.ValidationTimeMs = elapsedMs(start)
		return v
	}

	v.PatternValid = !isAllOneChar(s, '1') && !isAllOneChar(s, '0')
	if !v.PatternValid {
		v.Reason = "degenerate all-repeated-character pattern"
		v.ValidationTimeMs = elapsedMs(start)
		return v
	}

	pk, err := solana.PublicKeyFromBase58(s)
	v.ChecksumValid = err == nil && len(pk[:]) == 32
	if !v.ChecksumValid {
		v.Reason = "base58 decode did not yield 32 bytes"
		v.ValidationTimeMs = elapsedMs(start)
		return v
	}

	v.FormatValid = true
	v.ValidationTimeMs = elapsedMs(start)
	return v
}

func allInAlphabet(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return len(s) > 0
}

func isAllOneChar(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return len(s) > 0
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
