package device

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Kitchen", false},
		{"max length", strings.Repeat("a", maxNameLength), false},
		{"multibyte within limit", strings.Repeat("ü", maxNameLength), false},
		{"empty", "", true},
		{"whitespace only", "  \t", true},
		{"too long", strings.Repeat("a", maxNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidName) {
				t.Errorf("error should wrap ErrInvalidName, got %v", err)
			}
		})
	}
}

func TestValidatePrefix(t *testing.T) {
	for _, p := range []string{resource.PrefixLights, resource.PrefixSensors, resource.PrefixGroups, resource.PrefixConfig} {
		if err := ValidatePrefix(p); err != nil {
			t.Errorf("ValidatePrefix(%q) error: %v", p, err)
		}
	}
	for _, p := range []string{"", "/lights", "rules", "Lights"} {
		if err := ValidatePrefix(p); !errors.Is(err, ErrUnknownPrefix) {
			t.Errorf("ValidatePrefix(%q) error = %v, want ErrUnknownPrefix", p, err)
		}
	}
}

func TestValidUniqueID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"00:21:2e:ff:ff:00:aa:01", true},
		{"00:21:2E:FF:FF:00:AA:01-01", true},
		{"00:21:2e:ff:ff:00:aa:01-01-0402", true},
		{"00:21:2e:ff:ff:00:aa", false},
		{"00:21:2e:ff:ff:00:aa:01-1", false},
		{"zz:21:2e:ff:ff:00:aa:01", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidUniqueID(tt.id); got != tt.want {
			t.Errorf("ValidUniqueID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestDeviceIDFromUniqueID(t *testing.T) {
	tests := []struct {
		uid  string
		want string
	}{
		{"00:21:2e:ff:ff:00:aa:01-01-0402", "00:21:2e:ff:ff:00:aa:01"},
		{"00:21:2e:ff:ff:00:aa:01", "00:21:2e:ff:ff:00:aa:01"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DeviceIDFromUniqueID(tt.uid); got != tt.want {
			t.Errorf("DeviceIDFromUniqueID(%q) = %q, want %q", tt.uid, got, tt.want)
		}
	}
}
