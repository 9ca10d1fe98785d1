// internal/app/system/callbacks/behaviors.go
package callbacks

import (
	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
)

type builtins struct {
	fmt *numfmt.Formatter
	t   func(string) string
}

// seriesValue formats the hovered point, applying per-axis and per-dataset
// overrides and prefixing the dataset label unless showLabel is false.
func (b builtins) seriesValue(options map[string]any) Behavior {
	base := numfmt.ParseOptions(options)
	return func(inv Invocation) Lines {
		v, ok := PointValue(inv)
		if !ok {
			return nil
		}
		opts := numfmt.Resolve(base, axisOf(inv), inv.DatasetIndex)
		out := b.fmt.ValueString(v, opts)
		if out == "" {
			return nil
		}
		if label := labelOf(inv); label != "" && opts.LabelShown() {
			out = label + ": " + out
		}
		return Text(out)
	}
}

// valueFormat formats a bare value such as an axis tick.
func (b builtins) valueFormat(options map[string]any) Behavior {
	opts := numfmt.ParseOptions(options)
	return func(inv Invocation) Lines {
		return Text(b.fmt.ValueStringAny(inv.Value, opts))
	}
}

// datasetSharePercent renders the point's share of its dataset total.
func (b builtins) datasetSharePercent(options map[string]any) Behavior {
	decimals := 0
	if n, ok := numfmt.ToFloat(options["decimals"]); ok {
		decimals = int(n)
	}
	suffix := "%"
	if s, ok := options["suffix"].(string); ok {
		suffix = s
	}
	opts := numfmt.Options{Format: numfmt.Decimal, Decimals: numfmt.Places(decimals)}

	return func(inv Invocation) Lines {
		values := datasetValues(inv.Dataset)
		var total float64
		for _, v := range values {
			total += v
		}
		if total == 0 {
			return Text("0" + suffix)
		}
		v, ok := PointValue(inv)
		if !ok {
			if inv.DataIndex < 0 || inv.DataIndex >= len(values) {
				return nil
			}
			v = values[inv.DataIndex]
		}
		return Text(b.fmt.Format(v/total*100, opts) + suffix)
	}
}

// cohortAfterBody adds total, active and inactive lines for a stacked
// two-series cohort bar.
func (b builtins) cohortAfterBody(options map[string]any) Behavior {
	opts := numfmt.Options{Format: numfmt.Integer}
	return func(inv Invocation) Lines {
		idx := inv.DataIndex
		if len(inv.Items) > 0 {
			idx = inv.Items[0].DataIndex
		}
		if len(inv.Datasets) < 2 || idx < 0 {
			return nil
		}
		active := valueAt(inv.Datasets[0], idx)
		inactive := valueAt(inv.Datasets[1], idx)
		return Lines{
			b.t("Total") + ": " + b.fmt.Format(active+inactive, opts),
			b.t("Active") + ": " + b.fmt.Format(active, opts),
			b.t("Inactive") + ": " + b.fmt.Format(inactive, opts),
		}
	}
}

// datasetMembersCount reads the raw member count a builder attached to the
// dataset under "memberCounts" for the hovered index.
func (b builtins) datasetMembersCount(options map[string]any) Behavior {
	base := numfmt.ParseOptions(options)
	if base.Format == "" {
		base.Format = numfmt.Integer
	}
	if base.Suffix == "" {
		base.Suffix = b.t("members")
	}
	return func(inv Invocation) Lines {
		counts, _ := inv.Dataset["memberCounts"].([]any)
		if counts == nil {
			if typed, ok := inv.Dataset["memberCounts"].([]float64); ok {
				for _, c := range typed {
					counts = append(counts, c)
				}
			}
		}
		if inv.DataIndex < 0 || inv.DataIndex >= len(counts) {
			return nil
		}
		out := b.fmt.ValueStringAny(counts[inv.DataIndex], base)
		if out == "" {
			return nil
		}
		if label := labelOf(inv); label != "" && base.LabelShown() {
			out = label + ": " + out
		}
		return Text(out)
	}
}

// PointValue extracts the numeric value of a hovered point. It accepts a
// numeric raw value, a raw object with a value field, a numeric parsed
// value, or a parsed {x, y} object (y preferred).
func PointValue(inv Invocation) (float64, bool) {
	if v, ok := numfmt.ToFloat(inv.Value); ok {
		return v, true
	}
	if m, ok := inv.Value.(map[string]any); ok {
		if v, ok := numfmt.ToFloat(m["value"]); ok {
			return v, true
		}
	}
	if v, ok := numfmt.ToFloat(inv.Parsed); ok {
		return v, true
	}
	if m, ok := inv.Parsed.(map[string]any); ok {
		if v, ok := numfmt.ToFloat(m["y"]); ok {
			return v, true
		}
		if v, ok := numfmt.ToFloat(m["x"]); ok {
			return v, true
		}
	}
	return 0, false
}

func axisOf(inv Invocation) string {
	if inv.AxisID != "" {
		return inv.AxisID
	}
	if id, ok := inv.Dataset["yAxisID"].(string); ok {
		return id
	}
	return ""
}

func labelOf(inv Invocation) string {
	if inv.Label != "" {
		return inv.Label
	}
	s, _ := inv.Dataset["label"].(string)
	return s
}

// datasetValues returns the numeric values of a dataset's data, using 0
// for entries that are not numeric.
func datasetValues(ds map[string]any) []float64 {
	switch data := ds["data"].(type) {
	case []float64:
		return data
	case []int:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out
	case []any:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i], _ = numfmt.ToFloat(v)
		}
		return out
	}
	return nil
}

func valueAt(ds map[string]any, idx int) float64 {
	values := datasetValues(ds)
	if idx >= len(values) {
		return 0
	}
	return values[idx]
}
