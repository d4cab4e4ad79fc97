package chain

import "testing"

func TestValidateAddress_CleanWallet(t *testing.T) {
	// Wrapped SOL mint — canonical 43-char valid Solana address.
	addr := "So11111111111111111111111111111111111111112"
	if !ValidateAddress(addr) {
		t.Fatalf("expected %q to validate", addr)
	}
}

func TestValidateAddress_TooLong(t *testing.T) {
	addr := "111111111111111111111111111111111111111111111" // 45 chars
	v := ValidateAddressDetailed(addr)
	if v.FormatValid {
		t.Fatal("expected 45-char all-1s address to be invalid")
	}
	if v.LengthValid {
		t.Fatal("expected length check to fail for 45 chars")
	}
}

func TestValidateAddress_BadAlphabet(t *testing.T) {
	// Contains '0', 'O', 'I', 'l' which are excluded from base58.
	addr := "0OIl11111111111111111111111111111111111111"
	v := ValidateAddressDetailed(addr)
	if v.CharacterValid {
		t.Fatal("expected character validation to fail")
	}
}

func TestValidateAddress_Empty(t *testing.T) {
	if ValidateAddress("") {
		t.Fatal("empty string must not validate")
	}
}
