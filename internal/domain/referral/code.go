package referral

import (
	"errors"
	"strings"
)

var ErrMalformedCode = errors.New("referral: malformed referral code")

const (
	codePrefix       = "ref_"
	codeSuffixLength = 8
)

// ValidateCode enforces the opaque code format: "ref_" plus a fixed-length
// alphanumeric suffix. Codes arrive from request parameters or persisted
// client-side markers and are validated before any lookup.
func ValidateCode(code string) error {
	if !strings.HasPrefix(code, codePrefix) {
		return ErrMalformedCode
	}
	suffix := code[len(codePrefix):]
	if len(suffix) != codeSuffixLength {
		return ErrMalformedCode
	}
	for _, r := range suffix {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return ErrMalformedCode
		}
	}
	return nil
}
