package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidateAddress checks that an EventBus/stream address is well formed.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("core: address cannot be empty")
	}
	if strings.ContainsAny(address, " \t\n") {
		return fmt.Errorf("core: address %q contains whitespace", address)
	}
	return nil
}

// ValidateBody rejects nil bodies; everything else is encodable.
func ValidateBody(body interface{}) error {
	if body == nil {
		return fmt.Errorf("core: body cannot be nil")
	}
	return nil
}

// ValidateTimeout rejects negative timeouts.
func ValidateTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("core: timeout cannot be negative")
	}
	return nil
}
