package resource

import (
	"strings"
	"sync"
)

// Descriptor is the static schema entry for one attribute suffix.
type Descriptor struct {
	Type     DataType
	Suffix   string
	ValidMin int64
	ValidMax int64

	ranged bool
}

// Range returns the inclusive valid range and whether one is enforced.
func (d Descriptor) Range() (min, max int64, ok bool) {
	return d.ValidMin, d.ValidMax, d.ranged
}

// InRange reports whether v is acceptable for this descriptor.
func (d Descriptor) InRange(v int64) bool {
	if !d.ranged {
		return true
	}
	return v >= d.ValidMin && v <= d.ValidMax
}

func plain(t DataType, suffix string) Descriptor {
	return Descriptor{Type: t, Suffix: suffix}
}

func ranged(t DataType, suffix string, min, max int64) Descriptor {
	return Descriptor{Type: t, Suffix: suffix, ValidMin: min, ValidMax: max, ranged: true}
}

var (
	descriptorsMu sync.RWMutex
	descriptors   []Descriptor
)

func init() {
	InitDescriptors()
}

// InitDescriptors (re)builds the process-wide descriptor table.
//
// The table is built automatically at package initialisation. Calling it again
// rebuilds an identical table. Order matters: LookupDescriptor returns the
// first entry whose suffix matches.
func InitDescriptors() {
	table := []Descriptor{
		plain(DataTypeString, AttrName),
		plain(DataTypeString, AttrManufacturerName),
		plain(DataTypeString, AttrModelID),
		plain(DataTypeString, AttrType),
		plain(DataTypeString, AttrClass),
		plain(DataTypeString, AttrUniqueID),
		plain(DataTypeString, AttrSwVersion),

		plain(DataTypeBool, StateAlarm),
		plain(DataTypeString, StateAlert),
		plain(DataTypeBool, StateAllOn),
		plain(DataTypeBool, StateAnyOn),
		plain(DataTypeUInt8, StateBri),
		plain(DataTypeInt32, StateButtonEvent),
		plain(DataTypeBool, StateCarbonMonoxide),
		plain(DataTypeString, StateColorMode),
		plain(DataTypeUInt64, StateConsumption),
		plain(DataTypeUInt16, StateCurrent),
		plain(DataTypeUInt16, StateCt),
		plain(DataTypeBool, StateDark),
		plain(DataTypeBool, StateDaylight),
		plain(DataTypeString, StateEffect),
		plain(DataTypeBool, StateFire),
		plain(DataTypeBool, StateFlag),
		plain(DataTypeUInt16, StateHue),
		ranged(DataTypeUInt16, StateHumidity, 0, 10000),
		plain(DataTypeTime, StateLastUpdated),
		ranged(DataTypeUInt16, StateLightLevel, 0, 0xfffe),
		plain(DataTypeBool, StateLowBattery),
		plain(DataTypeUInt32, StateLux),
		plain(DataTypeBool, StateOn),
		plain(DataTypeBool, StateOpen),
		plain(DataTypeInt16, StateOrientationX),
		plain(DataTypeInt16, StateOrientationY),
		plain(DataTypeInt16, StateOrientationZ),
		plain(DataTypeBool, StatePresence),
		ranged(DataTypeInt16, StatePressure, 0, 32767),
		plain(DataTypeInt16, StatePower),
		plain(DataTypeBool, StateReachable),
		plain(DataTypeUInt8, StateSat),
		plain(DataTypeString, ActionScene),
		ranged(DataTypeUInt8, StateSpeed, 0, 6),
		plain(DataTypeInt32, StateStatus),
		plain(DataTypeBool, StateTampered),
		ranged(DataTypeInt16, StateTemperature, -27315, 32767),
		plain(DataTypeUInt16, StateTiltAngle),
		plain(DataTypeUInt8, StateValve),
		plain(DataTypeBool, StateVibration),
		plain(DataTypeUInt16, StateVibrationStrength),
		plain(DataTypeUInt16, StateVoltage),
		plain(DataTypeBool, StateWater),
		plain(DataTypeUInt16, StateX),
		plain(DataTypeUInt16, StateY),

		plain(DataTypeString, ConfigAlert),
		ranged(DataTypeUInt8, ConfigBattery, 0, 100),
		plain(DataTypeUInt16, ConfigColorCapabilities),
		plain(DataTypeUInt16, ConfigCtMin),
		plain(DataTypeUInt16, ConfigCtMax),
		plain(DataTypeBool, ConfigConfigured),
		plain(DataTypeUInt16, ConfigDelay),
		plain(DataTypeBool, ConfigDisplayFlipped),
		plain(DataTypeUInt16, ConfigDuration),
		plain(DataTypeString, ConfigGroup),
		ranged(DataTypeInt16, ConfigHeatSetpoint, 500, 3000),
		plain(DataTypeUInt32, ConfigHostFlags),
		plain(DataTypeUInt32, ConfigID),
		plain(DataTypeString, ConfigLat),
		plain(DataTypeBool, ConfigLedIndication),
		plain(DataTypeTime, ConfigLocalTime),
		plain(DataTypeBool, ConfigLocked),
		plain(DataTypeString, ConfigLong),
		plain(DataTypeUInt8, ConfigLevelMin),
		plain(DataTypeString, ConfigMode),
		ranged(DataTypeInt16, ConfigOffset, -500, 500),
		plain(DataTypeBool, ConfigOn),
		plain(DataTypeUInt8, ConfigPending),
		plain(DataTypeUInt32, ConfigPowerup),
		plain(DataTypeUInt8, ConfigPowerOnLevel),
		plain(DataTypeUInt16, ConfigPowerOnCt),
		plain(DataTypeBool, ConfigReachable),
		plain(DataTypeString, ConfigScheduler),
		plain(DataTypeBool, ConfigSchedulerOn),
		plain(DataTypeUInt8, ConfigSensitivity),
		plain(DataTypeUInt8, ConfigSensitivityMax),
		ranged(DataTypeInt8, ConfigSunriseOffset, -120, 120),
		ranged(DataTypeInt8, ConfigSunsetOffset, -120, 120),
		ranged(DataTypeInt16, ConfigTemperature, -27315, 32767),
		ranged(DataTypeUInt16, ConfigTholdDark, 0, 0xfffe),
		ranged(DataTypeUInt16, ConfigTholdOffset, 1, 0xfffe),
		plain(DataTypeString, ConfigURL),
		plain(DataTypeBool, ConfigUsertest),
		plain(DataTypeUInt8, ConfigWindowCoveringType),
		plain(DataTypeUInt8, ConfigUbisysJ1Mode),
		plain(DataTypeUInt8, ConfigUbisysJ1WindowCoveringType),
		plain(DataTypeUInt8, ConfigUbisysJ1ConfigurationAndStatus),
		plain(DataTypeUInt16, ConfigUbisysJ1InstalledOpenLimitLift),
		plain(DataTypeUInt16, ConfigUbisysJ1InstalledClosedLimitLift),
		plain(DataTypeUInt16, ConfigUbisysJ1InstalledOpenLimitTilt),
		plain(DataTypeUInt16, ConfigUbisysJ1InstalledClosedLimitTilt),
		plain(DataTypeUInt8, ConfigUbisysJ1TurnaroundGuardTime),
		plain(DataTypeUInt16, ConfigUbisysJ1LiftToTiltTransitionSteps),
		plain(DataTypeUInt16, ConfigUbisysJ1TotalSteps),
		plain(DataTypeUInt16, ConfigUbisysJ1LiftToTiltTransitionSteps2),
		plain(DataTypeUInt16, ConfigUbisysJ1TotalSteps2),
		plain(DataTypeUInt8, ConfigUbisysJ1AdditionalSteps),
		plain(DataTypeUInt16, ConfigUbisysJ1InactivePowerThreshold),
		plain(DataTypeUInt16, ConfigUbisysJ1StartupSteps),
	}

	descriptorsMu.Lock()
	descriptors = table
	descriptorsMu.Unlock()
}

// LookupDescriptor resolves a key such as "/lights/3/state/bri" to the first
// descriptor whose suffix is a string suffix of key.
func LookupDescriptor(key string) (Descriptor, bool) {
	descriptorsMu.RLock()
	defer descriptorsMu.RUnlock()

	for _, d := range descriptors {
		if strings.HasSuffix(key, d.Suffix) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// DescriptorFor returns the descriptor matching both suffix and type exactly.
func DescriptorFor(suffix string, t DataType) (Descriptor, bool) {
	descriptorsMu.RLock()
	defer descriptorsMu.RUnlock()

	for _, d := range descriptors {
		if d.Suffix == suffix && d.Type == t {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Descriptors returns a copy of the descriptor table in lookup order.
func Descriptors() []Descriptor {
	descriptorsMu.RLock()
	defer descriptorsMu.RUnlock()

	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// LookupPrefix maps the head of a path to its resource prefix.
//
// "/lights/3/state/on", "lights" and "/lights" all yield PrefixLights. The
// second return value is false when the head names no known category.
func LookupPrefix(path string) (string, bool) {
	head := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(head, '/'); i >= 0 {
		head = head[:i]
	}

	switch "/" + head {
	case PrefixSensors:
		return PrefixSensors, true
	case PrefixLights:
		return PrefixLights, true
	case PrefixGroups:
		return PrefixGroups, true
	case PrefixConfig:
		return PrefixConfig, true
	}
	return "", false
}
