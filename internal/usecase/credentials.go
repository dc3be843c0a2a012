package usecase

import (
	"fmt"
	"strings"
)

// Credentials carries the manager identity and provider API key for one
// assistant instance. It is injected at construction time and is never
// written to storage or logs.
type Credentials struct {
	ManagerID int64
	APIKey    string
}

func (c Credentials) Validate() error {
	if c.ManagerID <= 0 {
		return fmt.Errorf("%w: manager id must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidInput)
	}
	return nil
}

// MaskAPIKey returns a display form of the key that keeps only the first
// six and last four characters. Short keys are fully redacted.
func MaskAPIKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 10 {
		return strings.Repeat("*", len(key))
	}
	return key[:6] + "..." + key[len(key)-4:]
}
