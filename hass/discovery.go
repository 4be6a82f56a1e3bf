// Package hass builds Home Assistant MQTT discovery messages for the
// inverter's sensors.
package hass

import (
	"encoding/json"
	"fmt"

	"github.com/CataIana/solismqtt/inverter"
)

// SensorSpec declares one telemetry channel of the inverter
type SensorSpec struct {
	Key  string
	Name string
	Unit string
}

// Sensors is the fixed table of channels the bridge publishes, in the
// order their discovery messages are emitted
var Sensors = []SensorSpec{
	{Key: inverter.KeyPowerCurrent, Name: "Current Power", Unit: "W"},
	{Key: inverter.KeyPowerToday, Name: "Today's Production", Unit: "kWh"},
	{Key: inverter.KeyPowerTotal, Name: "Total Production", Unit: "kWh"},
	{Key: inverter.KeyTemperature, Name: "Inverter Temperature", Unit: "°C"},
}

// ModelLookup maps firmware model codes to marketing names. Unknown codes
// fall back to the raw code.
var ModelLookup = map[string]string{
	"518": "S5-GR3P10K-LV",
}

// Descriptor is one retained discovery message
type Descriptor struct {
	Topic   string
	Payload []byte
}

// deviceBlock groups all sensors under one device in Home Assistant
type deviceBlock struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version"`
}

// discoveryPayload is the Home Assistant MQTT discovery schema for a sensor
type discoveryPayload struct {
	Device            deviceBlock `json:"device"`
	DeviceClass       string      `json:"device_class"`
	Name              string      `json:"name"`
	StateClass        string      `json:"state_class"`
	StateTopic        string      `json:"state_topic"`
	UniqueID          string      `json:"unique_id"`
	UnitOfMeasurement string      `json:"unit_of_measurement"`
	ValueTemplate     string      `json:"value_template"`
	ExpireAfter       string      `json:"expire_after"`
	AvailabilityMode  string      `json:"availability_mode"`
}

// StateTopic returns the shared telemetry topic every sensor descriptor
// points at
func StateTopic(prefix, serial string) string {
	return prefix + "/" + serial
}

// BuildDescriptors builds the discovery messages for every sensor key in
// present. Keys absent from the first reading are never announced for the
// rest of the run. The result is deterministic for a given input.
func BuildDescriptors(meta inverter.DeviceMetadata, present map[string]bool, prefix string) []Descriptor {
	model := ModelLookup[meta.ModelNumber]
	if model == "" {
		model = meta.ModelNumber
	}

	device := deviceBlock{
		Identifiers:  []string{fmt.Sprintf("solismqtt_%s_%s", model, meta.SerialNumber)},
		Manufacturer: "Solis",
		Model:        model,
		Name:         "Solar Inverter",
		SWVersion:    meta.FirmwareVersion,
	}
	stateTopic := StateTopic(prefix, meta.SerialNumber)

	var descriptors []Descriptor
	for _, spec := range Sensors {
		if !present[spec.Key] {
			continue
		}

		deviceClass, stateClass := classesForUnit(spec.Unit)

		payload := discoveryPayload{
			Device:            device,
			DeviceClass:       deviceClass,
			Name:              spec.Name,
			StateClass:        stateClass,
			StateTopic:        stateTopic,
			UniqueID:          fmt.Sprintf("%s_%s_solismqtt", meta.SerialNumber, spec.Key),
			UnitOfMeasurement: spec.Unit,
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", spec.Key),
		}

		// Cumulative counters must not go unavailable during the nightly
		// gap; instantaneous metrics should
		if stateClass == "total_increasing" {
			payload.ExpireAfter = "0"
			payload.AvailabilityMode = "latest"
		} else {
			payload.ExpireAfter = "120"
			payload.AvailabilityMode = "any"
		}

		msg, err := json.Marshal(payload)
		if err != nil {
			panic(fmt.Sprintf("marshal discovery payload for %s: %v", spec.Key, err))
		}

		descriptors = append(descriptors, Descriptor{
			Topic:   fmt.Sprintf("homeassistant/sensor/%s/%s/config", meta.SerialNumber, spec.Key),
			Payload: msg,
		})
	}
	return descriptors
}

// classesForUnit derives the Home Assistant device and state class from a
// sensor's unit. The sensor table is fixed, so an unknown unit is a
// programming error and panics rather than defaulting.
func classesForUnit(unit string) (deviceClass, stateClass string) {
	switch unit {
	case "kWh":
		return "energy", "total_increasing"
	case "W":
		return "power", "measurement"
	case "°C":
		return "temperature", "measurement"
	}
	panic(fmt.Sprintf("no device class mapping for unit %q", unit))
}
