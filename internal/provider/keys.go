package provider

import "fmt"

const (
	keyLength = 39
	keyPrefix = "AIza"
)

// CheckKeyFormat verifies a Gemini API key looks plausible. Callers treat
// a failure as a warning; a malformed key is still attempted.
func CheckKeyFormat(key string) error {
	if len(key) != keyLength {
		return fmt.Errorf("API key has length %d, expected %d", len(key), keyLength)
	}
	if key[:len(keyPrefix)] != keyPrefix {
		return fmt.Errorf("API key does not start with %q", keyPrefix)
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("API key contains invalid character %q", c)
		}
	}
	return nil
}
