package inverter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// totalPlaceholder is what some firmware revisions report instead of the
// lifetime yield. Units affected never report a total at all.
const totalPlaceholder = "d"

// Decoder turns the raw semicolon-separated record from the inverter's
// status endpoint into a Reading. The field order and count are a
// firmware-family contract, so each observed family gets its own decoder.
type Decoder interface {
	// Family returns the firmware family this decoder handles
	Family() string
	// Decode validates the field count and decodes the record
	Decode(fields []string) (Reading, error)
}

// NewDecoder returns the decoder for the configured firmware family
func NewDecoder(family string) (Decoder, error) {
	switch family {
	case "solis-4g":
		return solis4gDecoder{}, nil
	case "solis-s5":
		return solisS5Decoder{}, nil
	default:
		return nil, fmt.Errorf("unknown firmware family: %s", family)
	}
}

// solis4gDecoder handles the 8-field layout of the 4G WiFi stick:
// serial;firmware;model;temperature;power;today;total;alarm
type solis4gDecoder struct{}

func (solis4gDecoder) Family() string { return "solis-4g" }

func (solis4gDecoder) Decode(fields []string) (Reading, error) {
	if len(fields) != 8 {
		return Reading{}, fmt.Errorf("solis-4g record has %d fields, want 8", len(fields))
	}
	return decodeCommon(fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6], fields[7])
}

// solisS5Decoder handles the 10-field layout of newer S5 sticks. Model and
// firmware swap places and two grid diagnostics are appended, which the
// bridge does not publish.
type solisS5Decoder struct{}

func (solisS5Decoder) Family() string { return "solis-s5" }

func (solisS5Decoder) Decode(fields []string) (Reading, error) {
	if len(fields) != 10 {
		return Reading{}, fmt.Errorf("solis-s5 record has %d fields, want 10", len(fields))
	}
	return decodeCommon(fields[0], fields[2], fields[1], fields[3], fields[4], fields[5], fields[6], fields[7])
}

// decodeCommon decodes the shared Solis field semantics once the layout
// has been resolved to named positions.
func decodeCommon(serial, firmware, model, temp, power, today, total, alarm string) (Reading, error) {
	r := Reading{
		SerialNumber:    serial,
		FirmwareVersion: firmware,
		ModelNumber:     model,
	}

	var err error
	if r.Temperature, err = strconv.ParseFloat(temp, 64); err != nil {
		return Reading{}, fmt.Errorf("bad temperature %q: %v", temp, err)
	}
	if r.PowerNow, err = strconv.Atoi(power); err != nil {
		return Reading{}, fmt.Errorf("bad current power %q: %v", power, err)
	}
	todayF, err := strconv.ParseFloat(today, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("bad today yield %q: %v", today, err)
	}
	r.EnergyToday = round3(todayF)

	if total != totalPlaceholder {
		totalF, err := strconv.ParseFloat(total, 64)
		if err != nil {
			return Reading{}, fmt.Errorf("bad total yield %q: %v", total, err)
		}
		r.EnergyTotal = &totalF
	}

	r.Alerts = parseTriState(alarm, "yes", "no")
	return r, nil
}

// parseTriState maps a token to true/false on a case-insensitive match of
// the given words, or nil for anything else
func parseTriState(token, trueWord, falseWord string) *bool {
	v := strings.ToLower(token)
	switch v {
	case trueWord:
		b := true
		return &b
	case falseWord:
		b := false
		return &b
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
