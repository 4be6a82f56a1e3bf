package inverter

import (
	"strings"
	"testing"
)

const sampleRecord = "SN1;1.2.3;518;23.4;1500;4.321;98765.0;No"

func TestSolis4GDecode(t *testing.T) {
	d, err := NewDecoder("solis-4g")
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	r, err := d.Decode(strings.Split(sampleRecord, ";"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if r.SerialNumber != "SN1" {
		t.Errorf("serial = %q, want SN1", r.SerialNumber)
	}
	if r.FirmwareVersion != "1.2.3" {
		t.Errorf("firmware = %q, want 1.2.3", r.FirmwareVersion)
	}
	if r.ModelNumber != "518" {
		t.Errorf("model = %q, want 518", r.ModelNumber)
	}
	if r.Temperature != 23.4 {
		t.Errorf("temperature = %v, want 23.4", r.Temperature)
	}
	if r.PowerNow != 1500 {
		t.Errorf("power = %v, want 1500", r.PowerNow)
	}
	if r.EnergyToday != 4.321 {
		t.Errorf("today = %v, want 4.321", r.EnergyToday)
	}
	if r.EnergyTotal == nil || *r.EnergyTotal != 98765.0 {
		t.Errorf("total = %v, want 98765.0", r.EnergyTotal)
	}
	if r.Alerts == nil || *r.Alerts != false {
		t.Errorf("alerts = %v, want false", r.Alerts)
	}
}

func TestSolis4GDecodeTotalPlaceholder(t *testing.T) {
	d, _ := NewDecoder("solis-4g")

	fields := strings.Split(sampleRecord, ";")
	fields[6] = "d"

	r, err := d.Decode(fields)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.EnergyTotal != nil {
		t.Errorf("total = %v, want absent", *r.EnergyTotal)
	}
	if _, ok := r.Value(KeyPowerTotal); ok {
		t.Error("Value(power_total) reported present for a placeholder total")
	}
}

func TestSolis4GDecodeFieldCount(t *testing.T) {
	d, _ := NewDecoder("solis-4g")

	for _, record := range []string{
		"SN1;1.2.3;518;23.4;1500;4.321;98765.0",
		sampleRecord + ";extra",
		"",
	} {
		if _, err := d.Decode(strings.Split(record, ";")); err == nil {
			t.Errorf("Decode(%q) succeeded, want field count error", record)
		}
	}
}

func TestSolis4GDecodeBadValues(t *testing.T) {
	d, _ := NewDecoder("solis-4g")

	cases := map[int]string{
		3: "warm", // temperature
		4: "1.5",  // power must be an integer
		5: "none", // today
		6: "x",    // total (non-placeholder garbage)
	}
	for index, bad := range cases {
		fields := strings.Split(sampleRecord, ";")
		fields[index] = bad
		if _, err := d.Decode(fields); err == nil {
			t.Errorf("Decode with field %d = %q succeeded, want error", index, bad)
		}
	}
}

func TestDecodeAlertTriState(t *testing.T) {
	d, _ := NewDecoder("solis-4g")

	cases := []struct {
		token string
		want  *bool
	}{
		{"No", boolPtr(false)},
		{"no", boolPtr(false)},
		{"Yes", boolPtr(true)},
		{"YES", boolPtr(true)},
		{"maybe", nil},
		{"", nil},
	}
	for _, tc := range cases {
		fields := strings.Split(sampleRecord, ";")
		fields[7] = tc.token
		r, err := d.Decode(fields)
		if err != nil {
			t.Fatalf("Decode with alarm %q: %v", tc.token, err)
		}
		switch {
		case tc.want == nil && r.Alerts != nil:
			t.Errorf("alarm %q: alerts = %v, want unknown", tc.token, *r.Alerts)
		case tc.want != nil && (r.Alerts == nil || *r.Alerts != *tc.want):
			t.Errorf("alarm %q: alerts = %v, want %v", tc.token, r.Alerts, *tc.want)
		}
	}
}

func TestDecodeRoundsToday(t *testing.T) {
	d, _ := NewDecoder("solis-4g")

	fields := strings.Split(sampleRecord, ";")
	fields[5] = "4.32149"

	r, err := d.Decode(fields)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.EnergyToday != 4.321 {
		t.Errorf("today = %v, want 4.321", r.EnergyToday)
	}
}

func TestSolisS5Decode(t *testing.T) {
	d, err := NewDecoder("solis-s5")
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	// Model and firmware swap places; grid diagnostics are appended
	r, err := d.Decode(strings.Split("SN2;603;2.0.1;31.0;2200;7.5;12345.6;Yes;229.8;50.02", ";"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.ModelNumber != "603" || r.FirmwareVersion != "2.0.1" {
		t.Errorf("model/firmware = %q/%q, want 603/2.0.1", r.ModelNumber, r.FirmwareVersion)
	}
	if r.PowerNow != 2200 {
		t.Errorf("power = %d, want 2200", r.PowerNow)
	}
	if r.Alerts == nil || *r.Alerts != true {
		t.Errorf("alerts = %v, want true", r.Alerts)
	}

	if _, err := d.Decode(strings.Split(sampleRecord, ";")); err == nil {
		t.Error("solis-s5 accepted an 8-field record")
	}
}

func TestNewDecoderUnknownFamily(t *testing.T) {
	if _, err := NewDecoder("solis-9x"); err == nil {
		t.Error("NewDecoder accepted an unknown family")
	}
}

func boolPtr(b bool) *bool { return &b }
