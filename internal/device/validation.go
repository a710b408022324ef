package device

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength       = 100
	maxIdentifierLength = 64
	identifierPattern   = `^[A-Za-z0-9][A-Za-z0-9._-]*$`

	// maxMetadataKeys bounds the free-form metadata map to prevent
	// memory exhaustion via oversized payloads.
	maxMetadataKeys = 50
)

var identifierRegex = regexp.MustCompile(identifierPattern)

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if err := ValidateIdentifier(d.Identifier); err != nil {
		return err
	}

	if d.ConnectionStatus != "" && !d.ConnectionStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.ConnectionStatus)
	}

	if len(d.Metadata) > maxMetadataKeys {
		return fmt.Errorf("%w: metadata exceeds max keys (%d)", ErrInvalidDevice, maxMetadataKeys)
	}

	return nil
}

// ValidateName checks a device name is non-empty and within length limits.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateIdentifier checks an MQTT device identifier.
//
// The identifier becomes a topic segment, so it must not contain
// separator or wildcard characters ("/", "+", "#").
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidIdentifier)
	}
	if len(identifier) > maxIdentifierLength {
		return fmt.Errorf("%w: identifier exceeds %d characters", ErrInvalidIdentifier, maxIdentifierLength)
	}
	if !identifierRegex.MatchString(identifier) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidIdentifier, identifier, identifierPattern)
	}
	return nil
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}
