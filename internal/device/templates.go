package device

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// ItemSpec names one item a template creates.
type ItemSpec struct {
	Type   resource.DataType
	Suffix string
}

// Template is the set of items carried by a node type.
type Template struct {
	Prefix string
	Type   string
	Items  []ItemSpec
}

func entry(t resource.DataType, suffix string) ItemSpec {
	return ItemSpec{Type: t, Suffix: suffix}
}

func join(parts ...[]ItemSpec) []ItemSpec {
	var out []ItemSpec
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var (
	attrItems = []ItemSpec{
		entry(resource.DataTypeString, resource.AttrName),
		entry(resource.DataTypeString, resource.AttrManufacturerName),
		entry(resource.DataTypeString, resource.AttrModelID),
		entry(resource.DataTypeString, resource.AttrType),
		entry(resource.DataTypeString, resource.AttrUniqueID),
		entry(resource.DataTypeString, resource.AttrSwVersion),
	}

	onOffItems = []ItemSpec{
		entry(resource.DataTypeBool, resource.StateOn),
		entry(resource.DataTypeBool, resource.StateReachable),
		entry(resource.DataTypeString, resource.StateAlert),
		entry(resource.DataTypeUInt32, resource.ConfigPowerup),
	}

	dimItems = []ItemSpec{
		entry(resource.DataTypeUInt8, resource.StateBri),
		entry(resource.DataTypeUInt8, resource.ConfigPowerOnLevel),
		entry(resource.DataTypeUInt8, resource.ConfigLevelMin),
	}

	ctItems = []ItemSpec{
		entry(resource.DataTypeUInt16, resource.StateCt),
		entry(resource.DataTypeString, resource.StateColorMode),
		entry(resource.DataTypeUInt16, resource.ConfigCtMin),
		entry(resource.DataTypeUInt16, resource.ConfigCtMax),
		entry(resource.DataTypeUInt16, resource.ConfigPowerOnCt),
		entry(resource.DataTypeUInt16, resource.ConfigColorCapabilities),
	}

	colorItems = []ItemSpec{
		entry(resource.DataTypeUInt16, resource.StateHue),
		entry(resource.DataTypeUInt8, resource.StateSat),
		entry(resource.DataTypeUInt16, resource.StateX),
		entry(resource.DataTypeUInt16, resource.StateY),
		entry(resource.DataTypeString, resource.StateEffect),
	}

	sensorItems = []ItemSpec{
		entry(resource.DataTypeTime, resource.StateLastUpdated),
		entry(resource.DataTypeBool, resource.ConfigOn),
		entry(resource.DataTypeBool, resource.ConfigReachable),
	}

	batteryItems = []ItemSpec{
		entry(resource.DataTypeUInt8, resource.ConfigBattery),
		entry(resource.DataTypeBool, resource.StateLowBattery),
		entry(resource.DataTypeBool, resource.StateTampered),
	}

	offsetItems = []ItemSpec{
		entry(resource.DataTypeInt16, resource.ConfigOffset),
	}
)

func lightTemplate(typ string, items ...[]ItemSpec) Template {
	return Template{Prefix: resource.PrefixLights, Type: typ, Items: join(append([][]ItemSpec{attrItems}, items...)...)}
}

func sensorTemplate(typ string, items ...[]ItemSpec) Template {
	return Template{Prefix: resource.PrefixSensors, Type: typ, Items: join(append([][]ItemSpec{attrItems, sensorItems}, items...)...)}
}

var templates = []Template{
	lightTemplate("On/Off light", onOffItems),
	lightTemplate("On/Off plug-in unit", onOffItems),
	lightTemplate("Dimmable light", onOffItems, dimItems),
	lightTemplate("Color temperature light", onOffItems, dimItems, ctItems),
	lightTemplate("Extended color light", onOffItems, dimItems, ctItems, colorItems),
	lightTemplate("Fan", onOffItems, []ItemSpec{
		entry(resource.DataTypeUInt8, resource.StateSpeed),
	}),
	lightTemplate("Window covering device", []ItemSpec{
		entry(resource.DataTypeBool, resource.StateOn),
		entry(resource.DataTypeBool, resource.StateOpen),
		entry(resource.DataTypeUInt8, resource.StateBri),
		entry(resource.DataTypeBool, resource.StateReachable),
		entry(resource.DataTypeUInt8, resource.ConfigWindowCoveringType),
	}),
	lightTemplate("Window covering controller", []ItemSpec{
		entry(resource.DataTypeBool, resource.StateOn),
		entry(resource.DataTypeBool, resource.StateOpen),
		entry(resource.DataTypeUInt8, resource.StateBri),
		entry(resource.DataTypeBool, resource.StateReachable),
		entry(resource.DataTypeUInt8, resource.ConfigWindowCoveringType),
		entry(resource.DataTypeUInt8, resource.ConfigUbisysJ1Mode),
		entry(resource.DataTypeUInt8, resource.ConfigUbisysJ1WindowCoveringType),
		entry(resource.DataTypeUInt8, resource.ConfigUbisysJ1ConfigurationAndStatus),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1InstalledOpenLimitLift),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1InstalledClosedLimitLift),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1InstalledOpenLimitTilt),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1InstalledClosedLimitTilt),
		entry(resource.DataTypeUInt8, resource.ConfigUbisysJ1TurnaroundGuardTime),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1LiftToTiltTransitionSteps),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1TotalSteps),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1LiftToTiltTransitionSteps2),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1TotalSteps2),
		entry(resource.DataTypeUInt8, resource.ConfigUbisysJ1AdditionalSteps),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1InactivePowerThreshold),
		entry(resource.DataTypeUInt16, resource.ConfigUbisysJ1StartupSteps),
	}),

	sensorTemplate("ZHATemperature", batteryItems, offsetItems, []ItemSpec{
		entry(resource.DataTypeInt16, resource.StateTemperature),
	}),
	sensorTemplate("ZHAHumidity", batteryItems, offsetItems, []ItemSpec{
		entry(resource.DataTypeUInt16, resource.StateHumidity),
	}),
	sensorTemplate("ZHAPressure", batteryItems, offsetItems, []ItemSpec{
		entry(resource.DataTypeInt16, resource.StatePressure),
	}),
	sensorTemplate("ZHALightLevel", batteryItems, []ItemSpec{
		entry(resource.DataTypeUInt16, resource.StateLightLevel),
		entry(resource.DataTypeUInt32, resource.StateLux),
		entry(resource.DataTypeBool, resource.StateDark),
		entry(resource.DataTypeBool, resource.StateDaylight),
		entry(resource.DataTypeUInt16, resource.ConfigTholdDark),
		entry(resource.DataTypeUInt16, resource.ConfigTholdOffset),
	}),
	sensorTemplate("ZHAPresence", batteryItems, []ItemSpec{
		entry(resource.DataTypeBool, resource.StatePresence),
		entry(resource.DataTypeUInt16, resource.ConfigDelay),
		entry(resource.DataTypeUInt16, resource.ConfigDuration),
		entry(resource.DataTypeUInt8, resource.ConfigSensitivity),
		entry(resource.DataTypeUInt8, resource.ConfigSensitivityMax),
		entry(resource.DataTypeBool, resource.ConfigLedIndication),
		entry(resource.DataTypeBool, resource.ConfigUsertest),
		entry(resource.DataTypeUInt8, resource.ConfigPending),
		entry(resource.DataTypeInt16, resource.ConfigTemperature),
	}),
	sensorTemplate("ZHASwitch", batteryItems, []ItemSpec{
		entry(resource.DataTypeInt32, resource.StateButtonEvent),
		entry(resource.DataTypeString, resource.ConfigGroup),
		entry(resource.DataTypeString, resource.ConfigMode),
		entry(resource.DataTypeInt16, resource.ConfigTemperature),
	}),
	sensorTemplate("ZHAOpenClose", batteryItems, []ItemSpec{
		entry(resource.DataTypeBool, resource.StateOpen),
	}),
	sensorTemplate("ZHAWater", batteryItems, []ItemSpec{
		entry(resource.DataTypeBool, resource.StateWater),
	}),
	sensorTemplate("ZHAFire", batteryItems, []ItemSpec{
		entry(resource.DataTypeBool, resource.StateFire),
	}),
	sensorTemplate("ZHACarbonMonoxide", batteryItems, []ItemSpec{
		entry(resource.DataTypeBool, resource.StateCarbonMonoxide),
	}),
	sensorTemplate("ZHAAlarm", batteryItems, []ItemSpec{
		entry(resource.DataTypeBool, resource.StateAlarm),
		entry(resource.DataTypeString, resource.ConfigAlert),
	}),
	sensorTemplate("ZHAVibration", batteryItems, []ItemSpec{
		entry(resource.DataTypeBool, resource.StateVibration),
		entry(resource.DataTypeUInt16, resource.StateVibrationStrength),
		entry(resource.DataTypeUInt16, resource.StateTiltAngle),
		entry(resource.DataTypeInt16, resource.StateOrientationX),
		entry(resource.DataTypeInt16, resource.StateOrientationY),
		entry(resource.DataTypeInt16, resource.StateOrientationZ),
		entry(resource.DataTypeUInt8, resource.ConfigSensitivity),
		entry(resource.DataTypeUInt8, resource.ConfigSensitivityMax),
	}),
	sensorTemplate("ZHAConsumption", []ItemSpec{
		entry(resource.DataTypeUInt64, resource.StateConsumption),
		entry(resource.DataTypeInt16, resource.StatePower),
	}),
	sensorTemplate("ZHAPower", []ItemSpec{
		entry(resource.DataTypeInt16, resource.StatePower),
		entry(resource.DataTypeUInt16, resource.StateVoltage),
		entry(resource.DataTypeUInt16, resource.StateCurrent),
	}),
	sensorTemplate("ZHAThermostat", batteryItems, offsetItems, []ItemSpec{
		entry(resource.DataTypeInt16, resource.StateTemperature),
		entry(resource.DataTypeBool, resource.StateOn),
		entry(resource.DataTypeUInt8, resource.StateValve),
		entry(resource.DataTypeInt16, resource.ConfigHeatSetpoint),
		entry(resource.DataTypeString, resource.ConfigScheduler),
		entry(resource.DataTypeBool, resource.ConfigSchedulerOn),
		entry(resource.DataTypeString, resource.ConfigMode),
		entry(resource.DataTypeBool, resource.ConfigDisplayFlipped),
		entry(resource.DataTypeBool, resource.ConfigLocked),
	}),
	sensorTemplate("Daylight", []ItemSpec{
		entry(resource.DataTypeBool, resource.StateDaylight),
		entry(resource.DataTypeBool, resource.StateDark),
		entry(resource.DataTypeInt32, resource.StateStatus),
		entry(resource.DataTypeBool, resource.ConfigConfigured),
		entry(resource.DataTypeString, resource.ConfigLat),
		entry(resource.DataTypeString, resource.ConfigLong),
		entry(resource.DataTypeInt8, resource.ConfigSunriseOffset),
		entry(resource.DataTypeInt8, resource.ConfigSunsetOffset),
	}),
	sensorTemplate("CLIPGenericFlag", []ItemSpec{
		entry(resource.DataTypeBool, resource.StateFlag),
		entry(resource.DataTypeString, resource.ConfigURL),
	}),
	sensorTemplate("CLIPGenericStatus", []ItemSpec{
		entry(resource.DataTypeInt32, resource.StateStatus),
		entry(resource.DataTypeString, resource.ConfigURL),
	}),

	{
		Prefix: resource.PrefixGroups,
		Type:   "LightGroup",
		Items: []ItemSpec{
			entry(resource.DataTypeString, resource.AttrName),
			entry(resource.DataTypeString, resource.AttrType),
			entry(resource.DataTypeString, resource.AttrClass),
			entry(resource.DataTypeBool, resource.StateAllOn),
			entry(resource.DataTypeBool, resource.StateAnyOn),
			entry(resource.DataTypeString, resource.ActionScene),
		},
	},

	{
		Prefix: resource.PrefixConfig,
		Type:   "Gateway",
		Items: []ItemSpec{
			entry(resource.DataTypeString, resource.AttrName),
			entry(resource.DataTypeString, resource.AttrModelID),
			entry(resource.DataTypeString, resource.AttrUniqueID),
			entry(resource.DataTypeString, resource.AttrSwVersion),
			entry(resource.DataTypeTime, resource.ConfigLocalTime),
			entry(resource.DataTypeUInt32, resource.ConfigHostFlags),
			entry(resource.DataTypeUInt32, resource.ConfigID),
		},
	},
}

// hiddenSuffixes are kept out of the public API.
var hiddenSuffixes = []string{
	resource.ConfigHostFlags,
	resource.ConfigUsertest,
}

// readOnlySuffixes may not be written by API clients.
var readOnlySuffixes = []string{
	resource.AttrManufacturerName,
	resource.AttrModelID,
	resource.AttrType,
	resource.AttrUniqueID,
	resource.AttrSwVersion,
	resource.StateLastUpdated,
	resource.StateAllOn,
	resource.StateAnyOn,
	resource.StateReachable,
	resource.ConfigReachable,
	resource.ConfigID,
}

// IsHidden reports whether suffix is kept out of the public API.
func IsHidden(suffix string) bool {
	return slices.Contains(hiddenSuffixes, suffix)
}

// IsReadOnly reports whether API clients are barred from writing suffix.
func IsReadOnly(suffix string) bool {
	return slices.Contains(readOnlySuffixes, suffix)
}

// Templates returns all templates, optionally filtered by prefix.
func Templates(prefix string) []Template {
	var out []Template
	for _, t := range templates {
		if prefix == "" || t.Prefix == prefix {
			out = append(out, t)
		}
	}
	return out
}

// LookupTemplate finds the template for a prefix and type. The type is
// matched case-insensitively.
func LookupTemplate(prefix, typ string) (Template, bool) {
	for _, t := range templates {
		if t.Prefix == prefix && strings.EqualFold(t.Type, typ) {
			return t, true
		}
	}
	return Template{}, false
}

// Build creates a resource with every item of the template.
// attr/type is set to the template type.
func (t Template) Build(opts ...resource.Option) (*resource.Resource, error) {
	r := resource.New(t.Prefix, opts...)
	for _, spec := range t.Items {
		it, err := r.AddItem(spec.Type, spec.Suffix)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Type, err)
		}
		if slices.Contains(hiddenSuffixes, spec.Suffix) {
			it.SetIsPublic(false)
		}
	}
	if it := r.Item(resource.AttrType); it != nil {
		it.SetString(t.Type)
	}
	return r, nil
}
