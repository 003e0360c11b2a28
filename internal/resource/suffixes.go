package resource

// Resource prefixes identify the category of a resource.
const (
	PrefixSensors = "/sensors"
	PrefixLights  = "/lights"
	PrefixGroups  = "/groups"
	PrefixConfig  = "/config"
)

// Event names used to notify observers about resource lifecycle changes.
const (
	EventAdded           = "event/added"
	EventDeleted         = "event/deleted"
	EventValidGroup      = "event/validgroup"
	EventCheckGroupAnyOn = "event/checkgroupanyon"
)

// InvalidSuffix marks an unresolvable attribute. InvalidString is the value
// returned by string conversions that have nothing to render.
const (
	InvalidSuffix = "invalid/suffix"
	InvalidString = ""
)

// Attribute suffixes.
const (
	AttrName             = "attr/name"
	AttrManufacturerName = "attr/manufacturername"
	AttrModelID          = "attr/modelid"
	AttrType             = "attr/type"
	AttrClass            = "attr/class"
	AttrUniqueID         = "attr/uniqueid"
	AttrSwVersion        = "attr/swversion"
)

// Action suffixes.
const (
	ActionScene = "action/scene"
)

// State suffixes.
const (
	StateAlarm             = "state/alarm"
	StateAlert             = "state/alert"
	StateAllOn             = "state/all_on"
	StateAnyOn             = "state/any_on"
	StateBri               = "state/bri"
	StateButtonEvent       = "state/buttonevent"
	StateCarbonMonoxide    = "state/carbonmonoxide"
	StateColorMode         = "state/colormode"
	StateConsumption       = "state/consumption"
	StateCurrent           = "state/current"
	StateCt                = "state/ct"
	StateDark              = "state/dark"
	StateDaylight          = "state/daylight"
	StateEffect            = "state/effect"
	StateFire              = "state/fire"
	StateFlag              = "state/flag"
	StateHue               = "state/hue"
	StateHumidity          = "state/humidity"
	StateLastUpdated       = "state/lastupdated"
	StateLightLevel        = "state/lightlevel"
	StateLowBattery        = "state/lowbattery"
	StateLux               = "state/lux"
	StateOn                = "state/on"
	StateOpen              = "state/open"
	StateOrientationX      = "state/orientation_x"
	StateOrientationY      = "state/orientation_y"
	StateOrientationZ      = "state/orientation_z"
	StatePresence          = "state/presence"
	StatePressure          = "state/pressure"
	StatePower             = "state/power"
	StateReachable         = "state/reachable"
	StateSat               = "state/sat"
	StateSpeed             = "state/speed"
	StateStatus            = "state/status"
	StateTampered          = "state/tampered"
	StateTemperature       = "state/temperature"
	StateTiltAngle         = "state/tiltangle"
	StateValve             = "state/valve"
	StateVibration         = "state/vibration"
	StateVibrationStrength = "state/vibrationstrength"
	StateVoltage           = "state/voltage"
	StateWater             = "state/water"
	StateX                 = "state/x"
	StateY                 = "state/y"
)

// Config suffixes.
const (
	ConfigAlert              = "config/alert"
	ConfigBattery            = "config/battery"
	ConfigColorCapabilities  = "config/colorcapabilities"
	ConfigCtMin              = "config/ctmin"
	ConfigCtMax              = "config/ctmax"
	ConfigConfigured         = "config/configured"
	ConfigDelay              = "config/delay"
	ConfigDisplayFlipped     = "config/displayflipped"
	ConfigDuration           = "config/duration"
	ConfigGroup              = "config/group"
	ConfigHeatSetpoint       = "config/heatsetpoint"
	ConfigHostFlags          = "config/hostflags"
	ConfigID                 = "config/id"
	ConfigLat                = "config/lat"
	ConfigLedIndication      = "config/ledindication"
	ConfigLocalTime          = "config/localtime"
	ConfigLocked             = "config/locked"
	ConfigLong               = "config/long"
	ConfigLevelMin           = "config/levelmin"
	ConfigMode               = "config/mode"
	ConfigOffset             = "config/offset"
	ConfigOn                 = "config/on"
	ConfigPending            = "config/pending"
	ConfigPowerup            = "config/powerup"
	ConfigPowerOnCt          = "config/poweronct"
	ConfigPowerOnLevel       = "config/poweronlevel"
	ConfigReachable          = "config/reachable"
	ConfigScheduler          = "config/scheduler"
	ConfigSchedulerOn        = "config/scheduleron"
	ConfigSensitivity        = "config/sensitivity"
	ConfigSensitivityMax     = "config/sensitivitymax"
	ConfigSunriseOffset      = "config/sunriseoffset"
	ConfigSunsetOffset       = "config/sunsetoffset"
	ConfigTemperature        = "config/temperature"
	ConfigTholdDark          = "config/tholddark"
	ConfigTholdOffset        = "config/tholdoffset"
	ConfigURL                = "config/url"
	ConfigUsertest           = "config/usertest"
	ConfigWindowCoveringType = "config/windowcoveringtype"

	ConfigUbisysJ1Mode                       = "config/ubisys_j1_mode"
	ConfigUbisysJ1WindowCoveringType         = "config/ubisys_j1_windowcoveringtype"
	ConfigUbisysJ1ConfigurationAndStatus     = "config/ubisys_j1_configurationandstatus"
	ConfigUbisysJ1InstalledOpenLimitLift     = "config/ubisys_j1_installedopenlimitlift"
	ConfigUbisysJ1InstalledClosedLimitLift   = "config/ubisys_j1_installedclosedlimitlift"
	ConfigUbisysJ1InstalledOpenLimitTilt     = "config/ubisys_j1_installedopenlimittilt"
	ConfigUbisysJ1InstalledClosedLimitTilt   = "config/ubisys_j1_installedclosedlimittilt"
	ConfigUbisysJ1TurnaroundGuardTime        = "config/ubisys_j1_turnaroundguardtime"
	ConfigUbisysJ1LiftToTiltTransitionSteps  = "config/ubisys_j1_lifttotilttransitionsteps"
	ConfigUbisysJ1TotalSteps                 = "config/ubisys_j1_totalsteps"
	ConfigUbisysJ1LiftToTiltTransitionSteps2 = "config/ubisys_j1_lifttotilttransitionsteps2"
	ConfigUbisysJ1TotalSteps2                = "config/ubisys_j1_totalsteps2"
	ConfigUbisysJ1AdditionalSteps            = "config/ubisys_j1_additionalsteps"
	ConfigUbisysJ1InactivePowerThreshold     = "config/ubisys_j1_inactivepowerthreshold"
	ConfigUbisysJ1StartupSteps               = "config/ubisys_j1_startupsteps"
)
