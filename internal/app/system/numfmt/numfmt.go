// internal/app/system/numfmt/numfmt.go
//
// Package numfmt formats dashboard numbers for axis ticks, tooltips and
// static labels. Grouping and currency symbols come from golang.org/x/text
// so output follows the configured locale.
package numfmt

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Kind selects how a value is rendered.
type Kind string

const (
	Integer  Kind = "integer"
	Decimal  Kind = "decimal"
	Currency Kind = "currency"
	Percent  Kind = "percent"
)

// maxDecimals caps requested precision so a bad option cannot produce
// unbounded output.
const maxDecimals = 10

// Options controls formatting of a single value. PerAxis and PerDataset
// carry overrides that apply when a tooltip or tick is rendered for a
// specific axis id or dataset index.
type Options struct {
	Format     Kind               `json:"format,omitempty"`
	Decimals   *int               `json:"decimals,omitempty"`
	Prefix     string             `json:"prefix,omitempty"`
	Suffix     string             `json:"suffix,omitempty"`
	Currency   string             `json:"currency,omitempty"`
	ShowLabel  *bool              `json:"showLabel,omitempty"`
	PerAxis    map[string]Options `json:"perAxis,omitempty"`
	PerDataset map[string]Options `json:"perDataset,omitempty"`
}

// Places returns a pointer for Options.Decimals.
func Places(n int) *int { return &n }

// LabelShown reports whether the dataset label should prefix the value.
// Unset means shown.
func (o Options) LabelShown() bool {
	return o.ShowLabel == nil || *o.ShowLabel
}

// Formatter renders numbers for one locale. It is safe for concurrent use.
type Formatter struct {
	tag             language.Tag
	printer         *message.Printer
	defaultCurrency currency.Unit
}

// New returns a Formatter for tag. defaultCurrency is an ISO 4217 code used
// when Options.Currency is empty; an invalid code falls back to USD.
func New(tag language.Tag, defaultCurrency string) *Formatter {
	unit, err := currency.ParseISO(defaultCurrency)
	if err != nil {
		unit = currency.USD
	}
	return &Formatter{
		tag:             tag,
		printer:         message.NewPrinter(tag),
		defaultCurrency: unit,
	}
}

// NewFromLocale parses a BCP 47 locale string such as "en-US". Unparseable
// locales fall back to American English.
func NewFromLocale(locale, defaultCurrency string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return New(tag, defaultCurrency)
}

// Default formats with en-US conventions and USD.
var Default = New(language.AmericanEnglish, "USD")

// Tag returns the formatter's locale.
func (f *Formatter) Tag() language.Tag { return f.tag }

// Format renders value according to opts. NaN and infinities produce "".
func (f *Formatter) Format(value float64, opts Options) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ""
	}

	switch opts.Format {
	case Decimal:
		d := places(opts.Decimals, 1)
		return f.grouped(round(value, d), d)
	case Currency:
		d := places(opts.Decimals, 0)
		return f.money(round(value, d), d, opts.Currency)
	case Percent:
		d := places(opts.Decimals, 0)
		return strconv.FormatFloat(round(value, d), 'f', d, 64) + "%"
	default:
		d := places(opts.Decimals, 0)
		return f.grouped(round(value, d), d)
	}
}

// ValueString wraps Format with the prefix and suffix:
// trim(prefix + formatted + " " + suffix). An unformattable value yields "".
func (f *Formatter) ValueString(value float64, opts Options) string {
	formatted := f.Format(value, opts)
	if formatted == "" {
		return ""
	}
	out := opts.Prefix + formatted
	if opts.Suffix != "" {
		out += " " + opts.Suffix
	}
	return strings.TrimSpace(out)
}

// FormatAny coerces v to a number and formats it. Values that are not
// numeric produce "".
func (f *Formatter) FormatAny(v any, opts Options) string {
	n, ok := ToFloat(v)
	if !ok {
		return ""
	}
	return f.Format(n, opts)
}

// ValueStringAny is ValueString for untyped input.
func (f *Formatter) ValueStringAny(v any, opts Options) string {
	n, ok := ToFloat(v)
	if !ok {
		return ""
	}
	return f.ValueString(n, opts)
}

func (f *Formatter) grouped(v float64, decimals int) string {
	return f.printer.Sprint(number.Decimal(v,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals),
	))
}

func (f *Formatter) money(v float64, decimals int, code string) string {
	unit := f.defaultCurrency
	if code != "" {
		if u, err := currency.ParseISO(code); err == nil {
			unit = u
		}
	}
	symbol := f.printer.Sprint(currency.Symbol(unit))
	if symbol == "" {
		symbol = unit.String() + " "
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + symbol + f.grouped(v, decimals)
}

// Format renders value with the Default formatter.
func Format(value float64, opts Options) string { return Default.Format(value, opts) }

// ValueString renders value with the Default formatter.
func ValueString(value float64, opts Options) string { return Default.ValueString(value, opts) }

func places(p *int, def int) int {
	if p == nil {
		return def
	}
	switch {
	case *p < 0:
		return 0
	case *p > maxDecimals:
		return maxDecimals
	}
	return *p
}

// round rounds half away from zero and normalizes negative zero.
func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}
