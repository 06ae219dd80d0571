package report

import (
	"fmt"
	"os"
	"regexp"

	qrcode "github.com/skip2/go-qrcode"
)

var digestPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// DigestQR renders the report's content address as a QR code PNG. The digest
// travels verbatim so a scanner can compare it against a recomputed hash.
func DigestQR(rep Report, size int) ([]byte, error) {
	digest, err := Digest(rep)
	if err != nil {
		return nil, err
	}
	if !digestPattern.MatchString(digest) {
		return nil, fmt.Errorf("malformed report digest %q", digest)
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(digest, qrcode.Medium, size)
}

// SaveDigestQR writes the digest QR code next to the report artifacts.
func SaveDigestQR(rep Report, out string, size int) error {
	png, err := DigestQR(rep, size)
	if err != nil {
		return err
	}
	return os.WriteFile(out, png, 0644)
}
