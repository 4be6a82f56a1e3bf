package inverter

import "fmt"

// nullField is how the stick marks unset fields in the monitor record
const nullField = "null"

// DeviceInfo describes the WiFi stick itself, from the monitor endpoint.
// It is diagnostic only and never published.
type DeviceInfo struct {
	SerialNumber    string
	FirmwareVersion string

	// AP and STA mode flags. The stick reports "Enable"/"Disable" with a
	// capital letter, which the lower-cased comparison never matches, so
	// in practice these resolve to unknown. Kept as observed.
	WirelessAP      *bool
	WirelessAPSSID  string
	WirelessAPIP    string
	WirelessSTA     *bool
	WirelessSTASSID string
	WirelessSTARSSI string
	WirelessSTAIP   string
	WirelessSTAMAC  string

	RemoteServerA *bool
	RemoteServerB *bool
}

// ReadDeviceInfo fetches the WiFi stick's own status from the monitor
// endpoint. Field 5 is unused filler.
func (r *Reader) ReadDeviceInfo() (DeviceInfo, error) {
	fields, err := r.fetchRecord(r.monitorURL)
	if err != nil {
		return DeviceInfo{}, &TransientError{Op: "device info", Err: err}
	}
	if len(fields) != 13 {
		return DeviceInfo{}, &TransientError{
			Op:  "device info",
			Err: fmt.Errorf("monitor record has %d fields, want 13", len(fields)),
		}
	}

	return DeviceInfo{
		SerialNumber:    fields[0],
		FirmwareVersion: fields[1],
		WirelessAP:      parseTriState(fields[2], "Enable", "Disable"),
		WirelessAPSSID:  emptyIfNull(fields[3]),
		WirelessAPIP:    emptyIfNull(fields[4]),
		WirelessSTA:     parseTriState(fields[6], "Enable", "Disable"),
		WirelessSTASSID: emptyIfNull(fields[7]),
		WirelessSTARSSI: emptyIfNull(fields[8]),
		WirelessSTAIP:   emptyIfNull(fields[9]),
		WirelessSTAMAC:  emptyIfNull(fields[10]),
		RemoteServerA:   parseTriState(fields[11], "connected", "unconnected"),
		RemoteServerB:   parseTriState(fields[12], "connected", "unconnected"),
	}, nil
}

func emptyIfNull(s string) string {
	if s == nullField {
		return ""
	}
	return s
}
