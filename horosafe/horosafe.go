// Package horosafe holds the small input-safety checks shared by the store,
// the fetcher and the configuration loader: identifier validation, base URL
// validation and bounded reads.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxIdentifierLen bounds identifiers and product handles.
const MaxIdentifierLen = 256

// ErrTooLarge is returned by LimitedReadAll when the limit is exceeded.
var ErrTooLarge = errors.New("horosafe: body too large")

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")

// ValidateIdentifier accepts strict ASCII tokens such as request ids:
// alphanumeric, underscore, hyphen and dot.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("horosafe: identifier must not be empty")
	}
	if len(s) > MaxIdentifierLen {
		return fmt.Errorf("horosafe: identifier too long (max %d)", MaxIdentifierLen)
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("horosafe: invalid character %q in identifier", r)
		}
	}
	return nil
}

// ValidateHandle rejects product handles unusable as store keys or as one
// URL path segment: empty, longer than MaxIdentifierLen bytes, invalid
// UTF-8, containing '/' or control characters. Handles are otherwise
// opaque; non-ASCII storefront handles are accepted.
func ValidateHandle(s string) error {
	if s == "" {
		return fmt.Errorf("horosafe: handle must not be empty")
	}
	if len(s) > MaxIdentifierLen {
		return fmt.Errorf("horosafe: handle too long (max %d bytes)", MaxIdentifierLen)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("horosafe: handle is not valid UTF-8")
	}
	for _, r := range s {
		if r == '/' || unicode.IsControl(r) {
			return fmt.Errorf("horosafe: invalid character %q in handle", r)
		}
	}
	return nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL with a host
// and no query or fragment, suitable as a prefix for API paths.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	if u.Host == "" {
		return fmt.Errorf("horosafe: URL has no host")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("horosafe: base URL must not carry a query or fragment")
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
