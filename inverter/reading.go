package inverter

// Sensor keys used in telemetry payloads and discovery topics
const (
	KeyPowerCurrent = "power_current"
	KeyPowerToday   = "power_today"
	KeyPowerTotal   = "power_total"
	KeyTemperature  = "inverter_temperature"
)

// Reading is one decoded snapshot of inverter telemetry and identity
// fields. It is never mutated after the decoder returns it.
type Reading struct {
	SerialNumber    string
	ModelNumber     string
	FirmwareVersion string

	// Inverter temperature (°C)
	Temperature float64
	// Current power (W)
	PowerNow int
	// Yield today (kWh), rounded to 3 decimals
	EnergyToday float64
	// Total yield (kWh). nil when the firmware reports its "d"
	// placeholder instead of a number
	EnergyTotal *float64
	// Alert flag. nil when the device reports an unrecognised token
	Alerts *bool
}

// Metadata returns the identity fields of the reading
func (r Reading) Metadata() DeviceMetadata {
	return DeviceMetadata{
		SerialNumber:    r.SerialNumber,
		ModelNumber:     r.ModelNumber,
		FirmwareVersion: r.FirmwareVersion,
	}
}

// Value returns the telemetry value for a sensor key, or ok=false when
// the value is absent from this reading
func (r Reading) Value(key string) (interface{}, bool) {
	switch key {
	case KeyPowerCurrent:
		return r.PowerNow, true
	case KeyPowerToday:
		return r.EnergyToday, true
	case KeyPowerTotal:
		if r.EnergyTotal == nil {
			return nil, false
		}
		return *r.EnergyTotal, true
	case KeyTemperature:
		return r.Temperature, true
	}
	return nil, false
}

// DeviceMetadata identifies the physical unit. It is captured once from
// the first successful reading and referenced for the life of the process.
type DeviceMetadata struct {
	SerialNumber    string
	ModelNumber     string
	FirmwareVersion string
}
