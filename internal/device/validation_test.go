package device

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		device  *Device
		wantErr error
	}{
		{
			name:   "valid device",
			device: testDevice("esp32-A1"),
		},
		{
			name:    "nil device",
			device:  nil,
			wantErr: ErrInvalidDevice,
		},
		{
			name: "empty name",
			device: func() *Device {
				d := testDevice("esp32-A1")
				d.Name = "   "
				return d
			}(),
			wantErr: ErrInvalidName,
		},
		{
			name: "name too long",
			device: func() *Device {
				d := testDevice("esp32-A1")
				d.Name = strings.Repeat("x", maxNameLength+1)
				return d
			}(),
			wantErr: ErrInvalidName,
		},
		{
			name: "empty identifier",
			device: func() *Device {
				d := testDevice("esp32-A1")
				d.Identifier = ""
				return d
			}(),
			wantErr: ErrInvalidIdentifier,
		},
		{
			name: "identifier with slash",
			device: func() *Device {
				d := testDevice("esp32-A1")
				d.Identifier = "esp32/A1"
				return d
			}(),
			wantErr: ErrInvalidIdentifier,
		},
		{
			name: "identifier with wildcard",
			device: func() *Device {
				d := testDevice("esp32-A1")
				d.Identifier = "esp32+"
				return d
			}(),
			wantErr: ErrInvalidIdentifier,
		},
		{
			name: "invalid status",
			device: func() *Device {
				d := testDevice("esp32-A1")
				d.ConnectionStatus = "sleeping"
				return d
			}(),
			wantErr: ErrInvalidStatus,
		},
		{
			name: "oversized metadata",
			device: func() *Device {
				d := testDevice("esp32-A1")
				d.Metadata = make(Metadata)
				for i := 0; i <= maxMetadataKeys; i++ {
					d.Metadata[strings.Repeat("k", i+1)] = i
				}
				return d
			}(),
			wantErr: ErrInvalidDevice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDevice(tt.device)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDevice() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"esp32-A1", "node.42", "a", "ESP32_greenhouse-01"}
	for _, id := range valid {
		if err := ValidateIdentifier(id); err != nil {
			t.Errorf("ValidateIdentifier(%q) error = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "-leading-dash", "has space", "has/slash", "has#hash", strings.Repeat("a", maxIdentifierLength+1)}
	for _, id := range invalid {
		if err := ValidateIdentifier(id); !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("ValidateIdentifier(%q) error = %v, want ErrInvalidIdentifier", id, err)
		}
	}
}

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" {
		t.Error("GenerateID returned empty string")
	}
	if id1 == id2 {
		t.Error("GenerateID returned duplicate IDs")
	}
	if len(id1) != 36 {
		t.Errorf("GenerateID length = %d, want 36", len(id1))
	}
}
