package action

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedAction indicates a caller supplied an action name that is
// neither in the canonical table nor carries an explicit value. It is the
// only caller error surfaced out of a control attempt.
var ErrUnsupportedAction = errors.New("unsupported action")

// Target temperature bounds in degrees Celsius.
const (
	MinTargetTemp     = 16
	MaxTargetTemp     = 30
	DefaultTargetTemp = 22
)

// Wire-level property names understood by the remote gateway.
const (
	PropDoorState   = "door_state"
	PropEngineState = "engine_state"
	PropAcState     = "ac_state"
	PropTargetTemp  = "target_temp"
	PropHorn        = "horn"
	PropFlash       = "flash"
)

type propertyValue struct {
	property string
	value    any
}

// legacyTable maps legacy action names to their canonical property/value
// encoding. setTemp is handled separately because its value comes from the
// request parameters.
var legacyTable = map[string]propertyValue{
	"lock":      {PropDoorState, "locked"},
	"unlock":    {PropDoorState, "unlocked"},
	"engineOn":  {PropEngineState, "on"},
	"engineOff": {PropEngineState, "off"},
	"acOn":      {PropAcState, "on"},
	"acOff":     {PropAcState, "off"},
	"acLow":     {PropAcState, "low"},
	"horn":      {PropHorn, true},
	"flash":     {PropFlash, true},
}

// Normalize translates an action name plus free-form parameters into the
// canonical property/value pair the gateway expects. Known legacy names go
// through the fixed table; any other name carrying an explicit "value"
// parameter is passed through verbatim as a direct property/value pair.
func Normalize(name string, params map[string]any) (string, any, error) {
	if name == "setTemp" {
		target := numberParam(params, "target", numberParam(params, "value", DefaultTargetTemp))
		return PropTargetTemp, ClampTemp(int(math.Round(target))), nil
	}
	if pv, ok := legacyTable[name]; ok {
		return pv.property, pv.value, nil
	}
	if params != nil {
		if v, ok := params["value"]; ok {
			return name, v, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedAction, name)
}

// Denormalize is the exact inverse of Normalize. It recovers the legacy
// action name the simulator understands from a canonical property/value
// pair; when no inverse mapping exists the fallback name is preserved
// verbatim.
func Denormalize(property string, value any, fallback string) (string, map[string]any) {
	switch property {
	case PropDoorState:
		if value == "locked" {
			return "lock", nil
		}
		return "unlock", nil
	case PropEngineState:
		if value == "on" {
			return "engineOn", nil
		}
		return "engineOff", nil
	case PropAcState:
		switch value {
		case "on":
			return "acOn", nil
		case "low":
			return "acLow", nil
		}
		return "acOff", nil
	case PropTargetTemp:
		return "setTemp", map[string]any{"target": value}
	case PropHorn:
		return "horn", nil
	case PropFlash:
		return "flash", nil
	}
	return fallback, nil
}

// ClampTemp bounds a target cabin temperature to the supported range.
func ClampTemp(v int) int {
	if v < MinTargetTemp {
		return MinTargetTemp
	}
	if v > MaxTargetTemp {
		return MaxTargetTemp
	}
	return v
}

// numberParam extracts a numeric parameter regardless of how the JSON layer
// decoded it. Non-numeric values fall back to the default.
func numberParam(params map[string]any, key string, def float64) float64 {
	if params == nil {
		return def
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}
