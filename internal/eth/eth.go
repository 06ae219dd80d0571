package eth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

var ErrInvalidAddress = errors.New("not a hex-encoded ethereum address")

// hexDigitsLen is the number of hex characters in an address without the 0x
// prefix.
const hexDigitsLen = 40

// IsHexAddress reports whether s is a 0x-prefixed 20-byte hex address. Letter
// case is not checked; use IsChecksumAddress for the EIP-55 casing test.
func IsHexAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && isHexDigits(s[2:])
}

// IsBareHexAddress reports whether s is a 20-byte hex address missing only the
// 0x prefix. Such values are recoverable by prepending the prefix.
func IsBareHexAddress(s string) bool {
	return isHexDigits(s)
}

// ChecksumAddress returns the EIP-55 mixed-case form of s. The input may carry
// or omit the 0x prefix and may use any letter casing; the output always
// carries the prefix. ErrInvalidAddress is returned when s is not 40 hex
// digits after prefix stripping.
func ChecksumAddress(s string) (string, error) {
	hex := strings.TrimPrefix(s, "0x")
	if !isHexDigits(hex) {
		return "", ErrInvalidAddress
	}
	lower := strings.ToLower(hex)

	// EIP-55 hashes the ASCII of the lowercase hex digits, then uppercases
	// every letter whose corresponding hash nibble is 8 or higher.
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)

	out := make([]byte, hexDigitsLen)
	for i := 0; i < hexDigitsLen; i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && nibble(sum, i) >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// IsChecksumAddress reports whether s is a 0x-prefixed address whose letter
// casing already matches its EIP-55 checksum form. All-lowercase and
// all-uppercase addresses fail this test unless the checksum happens to
// produce that casing.
func IsChecksumAddress(s string) bool {
	if !IsHexAddress(s) {
		return false
	}
	want, err := ChecksumAddress(s)
	if err != nil {
		return false
	}
	return s == want
}

func nibble(sum []byte, i int) byte {
	b := sum[i/2]
	if i%2 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

func isHexDigits(s string) bool {
	if len(s) != hexDigitsLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
