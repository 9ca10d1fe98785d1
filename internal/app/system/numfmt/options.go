// internal/app/system/numfmt/options.go
package numfmt

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseOptions decodes a descriptor option map such as
// {"format":"currency","decimals":0,"perAxis":{"yAmount":{...}}}.
// Unknown keys are ignored; wrongly typed values are treated as unset.
func ParseOptions(m map[string]any) Options {
	var o Options
	if m == nil {
		return o
	}
	if s, ok := m["format"].(string); ok {
		o.Format = Kind(strings.ToLower(strings.TrimSpace(s)))
	}
	if n, ok := ToFloat(m["decimals"]); ok {
		o.Decimals = Places(int(n))
	}
	o.Prefix = stringOpt(m["prefix"])
	o.Suffix = stringOpt(m["suffix"])
	o.Currency = strings.ToUpper(stringOpt(m["currency"]))
	if b, ok := m["showLabel"].(bool); ok {
		o.ShowLabel = &b
	}
	o.PerAxis = parseOverrides(m["perAxis"])
	o.PerDataset = parseOverrides(m["perDataset"])
	return o
}

func parseOverrides(v any) map[string]Options {
	raw, ok := v.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]Options, len(raw))
	for k, sub := range raw {
		if sm, ok := sub.(map[string]any); ok {
			out[k] = ParseOptions(sm)
		}
	}
	return out
}

func stringOpt(v any) string {
	s, _ := v.(string)
	return s
}

// Resolve applies overrides for the active axis and dataset. The dataset
// override is applied last so it wins when both match. Fields left empty in
// an override keep the base value.
func Resolve(base Options, axisID string, datasetIndex int) Options {
	out := base
	out.PerAxis = nil
	out.PerDataset = nil
	if axisID != "" {
		if ov, ok := base.PerAxis[axisID]; ok {
			out = merge(out, ov)
		}
	}
	if datasetIndex >= 0 {
		if ov, ok := base.PerDataset[strconv.Itoa(datasetIndex)]; ok {
			out = merge(out, ov)
		}
	}
	return out
}

func merge(base, ov Options) Options {
	if ov.Format != "" {
		base.Format = ov.Format
	}
	if ov.Decimals != nil {
		base.Decimals = ov.Decimals
	}
	if ov.Prefix != "" {
		base.Prefix = ov.Prefix
	}
	if ov.Suffix != "" {
		base.Suffix = ov.Suffix
	}
	if ov.Currency != "" {
		base.Currency = ov.Currency
	}
	if ov.ShowLabel != nil {
		base.ShowLabel = ov.ShowLabel
	}
	return base
}

// ToFloat extracts a finite number from v. It accepts Go numeric types,
// json.Number and numeric strings.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
