package device

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// Validation constants.
const (
	maxNameLength = 32

	// uniqueIDPattern matches a 64-bit IEEE address optionally followed by an
	// endpoint and a cluster id, e.g. "00:21:2e:ff:ff:00:aa:01-01-0402".
	uniqueIDPattern = `^([0-9a-f]{2}:){7}[0-9a-f]{2}(-[0-9a-f]{2}(-[0-9a-f]{4})?)?$`
)

var uniqueIDRegex = regexp.MustCompile(uniqueIDPattern)

var validPrefixes = map[string]struct{}{
	resource.PrefixLights:  {},
	resource.PrefixSensors: {},
	resource.PrefixGroups:  {},
	resource.PrefixConfig:  {},
}

// ValidateName checks that a node name is non-blank and at most 32 characters.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len([]rune(name)) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidatePrefix checks that prefix is one of the resource categories.
func ValidatePrefix(prefix string) error {
	if _, ok := validPrefixes[prefix]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}
	return nil
}

// ValidUniqueID reports whether id looks like a Zigbee unique id.
// Matching is case-insensitive.
func ValidUniqueID(id string) bool {
	return uniqueIDRegex.MatchString(strings.ToLower(id))
}

// DeviceIDFromUniqueID returns the device part of a unique id, i.e. the
// IEEE address without endpoint and cluster.
func DeviceIDFromUniqueID(uid string) string {
	if i := strings.IndexByte(uid, '-'); i >= 0 {
		return uid[:i]
	}
	return uid
}
