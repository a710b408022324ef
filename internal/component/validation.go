package component

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	maxNameLength       = 100
	maxIdentifierLength = 64
)

// ValidateType checks a component type before persistence.
func ValidateType(ct *ComponentType) error {
	if ct == nil {
		return ErrInvalidType
	}

	if strings.TrimSpace(ct.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidType)
	}
	if len(ct.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidType, maxNameLength)
	}

	identifier := strings.TrimSpace(ct.Identifier)
	if identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidType)
	}
	if len(identifier) > maxIdentifierLength {
		return fmt.Errorf("%w: identifier exceeds %d characters", ErrInvalidType, maxIdentifierLength)
	}
	if strings.ContainsAny(identifier, "/+#") {
		return fmt.Errorf("%w: identifier %q contains topic characters", ErrInvalidType, identifier)
	}

	if !ct.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, ct.Category)
	}

	return nil
}

// GenerateID creates a new UUID for a component type or deployment.
func GenerateID() string {
	return uuid.New().String()
}
