package settlement

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const licenseKeyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var licenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// GenerateLicenseKey returns a fresh key of the form XXXX-XXXX-XXXX-XXXX
// drawn from [A-Z0-9]. The format exists for human readability and external
// verification lookups; uniqueness is enforced by the purchases table, not
// by the key length.
func GenerateLicenseKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(19)
	for i, c := range raw {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(licenseKeyCharset[int(c)%len(licenseKeyCharset)])
	}
	return b.String(), nil
}

// IsLicenseKey reports whether s has the generated license key format.
func IsLicenseKey(s string) bool {
	return licenseKeyPattern.MatchString(s)
}
