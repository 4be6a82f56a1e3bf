package inverter

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dop251/goja"

	"github.com/CataIana/solismqtt/logger"
)

// ScriptDecoder decodes records with a user-supplied JavaScript function,
// for stick firmware whose layout has no built-in decoder yet. The script
// must define decode(fields) returning an object with the keys
// serial_number, firmware_version, model_number, inverter_temperature,
// power_current, power_today, power_total and alerts. It may also define a
// fieldCount number to enable field-count validation.
type ScriptDecoder struct {
	vm         *goja.Runtime
	decode     goja.Callable
	fieldCount int // 0 disables the count check
}

// NewScriptDecoder loads a decoder script from inline code or a file path.
// Inline code wins when both are set.
func NewScriptDecoder(scriptCode, scriptPath string) (*ScriptDecoder, error) {
	if scriptCode == "" {
		if scriptPath == "" {
			return nil, fmt.Errorf("no decoder script code or path provided")
		}
		scriptBytes, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, fmt.Errorf("load decoder script %s failed: %v", scriptPath, err)
		}
		scriptCode = string(scriptBytes)
	}

	vm := goja.New()

	_ = vm.Set("log", func(msg string) {
		logger.Info("[decoder script] %s", msg)
	})
	_ = vm.Set("parseNumber", func(s string) interface{} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return v
	})

	if _, err := vm.RunString(scriptCode); err != nil {
		return nil, fmt.Errorf("run decoder script failed: %v", err)
	}

	decodeValue := vm.Get("decode")
	if decodeValue == nil {
		return nil, fmt.Errorf("decoder script does not define a 'decode' function")
	}
	decode, ok := goja.AssertFunction(decodeValue)
	if !ok {
		return nil, fmt.Errorf("'decode' is not a function")
	}

	d := &ScriptDecoder{vm: vm, decode: decode}
	if countValue := vm.Get("fieldCount"); countValue != nil && !goja.IsUndefined(countValue) {
		d.fieldCount = int(countValue.ToInteger())
	}
	return d, nil
}

// Family implements Decoder
func (d *ScriptDecoder) Family() string { return "script" }

// Decode implements Decoder by calling the script's decode function and
// coercing the returned object into a Reading
func (d *ScriptDecoder) Decode(fields []string) (Reading, error) {
	if d.fieldCount > 0 && len(fields) != d.fieldCount {
		return Reading{}, fmt.Errorf("scripted record has %d fields, want %d", len(fields), d.fieldCount)
	}

	result, err := d.decode(goja.Undefined(), d.vm.ToValue(fields))
	if err != nil {
		return Reading{}, fmt.Errorf("decoder script failed: %v", err)
	}

	obj, ok := result.Export().(map[string]interface{})
	if !ok {
		return Reading{}, fmt.Errorf("decoder script did not return an object")
	}

	r := Reading{
		SerialNumber:    asString(obj["serial_number"]),
		FirmwareVersion: asString(obj["firmware_version"]),
		ModelNumber:     asString(obj["model_number"]),
	}
	if r.SerialNumber == "" {
		return Reading{}, fmt.Errorf("decoder script returned no serial_number")
	}

	if r.Temperature, err = asFloat(obj["inverter_temperature"]); err != nil {
		return Reading{}, fmt.Errorf("inverter_temperature: %v", err)
	}
	power, err := asFloat(obj["power_current"])
	if err != nil {
		return Reading{}, fmt.Errorf("power_current: %v", err)
	}
	r.PowerNow = int(power)
	today, err := asFloat(obj["power_today"])
	if err != nil {
		return Reading{}, fmt.Errorf("power_today: %v", err)
	}
	r.EnergyToday = round3(today)

	if obj["power_total"] != nil {
		total, err := asFloat(obj["power_total"])
		if err != nil {
			return Reading{}, fmt.Errorf("power_total: %v", err)
		}
		r.EnergyTotal = &total
	}

	switch alerts := obj["alerts"].(type) {
	case bool:
		r.Alerts = &alerts
	case string:
		r.Alerts = parseTriState(alerts, "yes", "no")
	}
	return r, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
