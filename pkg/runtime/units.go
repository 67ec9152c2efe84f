package runtime

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// UnitFactor is one symbol raised to an integer exponent.
type UnitFactor struct {
	Symbol string
	Exp    int
}

// Unit is a product of factors in order of first appearance. The empty unit is
// dimensionless.
type Unit []UnitFactor

type unitInfo struct {
	dimension string
	scale     float64
}

// unitTable maps each known symbol to its dimension and its scale relative to the
// dimension's base symbol. Symbols outside the table form their own dimension.
var unitTable = map[string]unitInfo{
	"m":   {"length", 1},
	"km":  {"length", 1000},
	"cm":  {"length", 0.01},
	"mm":  {"length", 0.001},
	"um":  {"length", 1e-6},
	"in":  {"length", 0.0254},
	"ft":  {"length", 0.3048},
	"mi":  {"length", 1609.344},
	"s":   {"time", 1},
	"ms":  {"time", 0.001},
	"min": {"time", 60},
	"h":   {"time", 3600},
	"kg":  {"mass", 1},
	"g":   {"mass", 0.001},
	"mg":  {"mass", 1e-6},
	"t":   {"mass", 1000},
	"lb":  {"mass", 0.45359237},
	"N":   {"force", 1},
	"kN":  {"force", 1000},
	"Pa":  {"pressure", 1},
	"kPa": {"pressure", 1e3},
	"MPa": {"pressure", 1e6},
	"GPa": {"pressure", 1e9},
	"J":   {"energy", 1},
	"kJ":  {"energy", 1e3},
	"W":   {"power", 1},
	"kW":  {"power", 1e3},
	"A":   {"current", 1},
	"mA":  {"current", 1e-3},
	"V":   {"voltage", 1},
	"K":   {"temperature", 1},
	"mol": {"amount", 1},
	"rad": {"angle", 1},
	"deg": {"angle", math.Pi / 180},
}

func lookupUnit(symbol string) unitInfo {
	if info, ok := unitTable[symbol]; ok {
		return info
	}
	return unitInfo{dimension: "unit:" + symbol, scale: 1}
}

// ParseUnit parses unit text such as `m`, `m^2`, `m/s`, or `kg*m/s^2`.
func ParseUnit(text string) (Unit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty unit")
	}
	parts := strings.Split(text, "/")
	var unit Unit
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "1" && i == 0 && len(parts) > 1 {
			continue
		}
		for _, raw := range strings.Split(part, "*") {
			factor, err := parseUnitFactor(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("unit %q: %w", text, err)
			}
			if i > 0 {
				factor.Exp = -factor.Exp
			}
			unit = unit.Mul(Unit{factor})
		}
	}
	return unit, nil
}

func parseUnitFactor(raw string) (UnitFactor, error) {
	symbol, expText, hasExp := strings.Cut(raw, "^")
	if symbol == "" {
		return UnitFactor{}, fmt.Errorf("missing unit symbol")
	}
	for _, r := range symbol {
		if !(r == '_' || r == '%' || r == '°' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return UnitFactor{}, fmt.Errorf("invalid unit symbol %q", symbol)
		}
	}
	exp := 1
	if hasExp {
		n, err := strconv.Atoi(strings.Trim(expText, "()"))
		if err != nil {
			return UnitFactor{}, fmt.Errorf("invalid exponent %q", expText)
		}
		exp = n
	}
	return UnitFactor{Symbol: symbol, Exp: exp}, nil
}

// MustParseUnit is ParseUnit for known-good literals.
func MustParseUnit(text string) Unit {
	u, err := ParseUnit(text)
	if err != nil {
		panic(err)
	}
	return u
}

// Mul combines exponents symbol by symbol, dropping factors that cancel.
func (u Unit) Mul(other Unit) Unit {
	out := make(Unit, len(u), len(u)+len(other))
	copy(out, u)
	for _, f := range other {
		merged := false
		for i := range out {
			if out[i].Symbol == f.Symbol {
				out[i].Exp += f.Exp
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, f)
		}
	}
	return out.compact()
}

func (u Unit) Div(other Unit) Unit {
	return u.Mul(other.Pow(-1))
}

// Pow scales every exponent by n.
func (u Unit) Pow(n int) Unit {
	out := make(Unit, len(u))
	for i, f := range u {
		out[i] = UnitFactor{Symbol: f.Symbol, Exp: f.Exp * n}
	}
	return out.compact()
}

func (u Unit) compact() Unit {
	out := u[:0]
	for _, f := range u {
		if f.Exp != 0 {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Dimensionless reports whether all dimensions cancel. `km/m` is dimensionless
// with scale 1000.
func (u Unit) Dimensionless() bool {
	return len(u.dimensions()) == 0
}

// Scale is the factor converting a value in u to the base units of its dimensions.
func (u Unit) Scale() float64 {
	scale := 1.0
	for _, f := range u {
		scale *= math.Pow(lookupUnit(f.Symbol).scale, float64(f.Exp))
	}
	return scale
}

func (u Unit) dimensions() map[string]int {
	dims := make(map[string]int)
	for _, f := range u {
		dims[lookupUnit(f.Symbol).dimension] += f.Exp
	}
	for k, v := range dims {
		if v == 0 {
			delete(dims, k)
		}
	}
	return dims
}

// Compatible reports whether values in u can be converted to other.
func (u Unit) Compatible(other Unit) bool {
	a, b := u.dimensions(), other.dimensions()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// ConversionFactor returns the multiplier taking a value in u to other.
func (u Unit) ConversionFactor(other Unit) (float64, bool) {
	if !u.Compatible(other) {
		return 0, false
	}
	return u.Scale() / other.Scale(), true
}

// Equal compares factors irrespective of order.
func (u Unit) Equal(other Unit) bool {
	if len(u) != len(other) {
		return false
	}
	a, b := u.sorted(), other.sorted()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (u Unit) sorted() Unit {
	out := make(Unit, len(u))
	copy(out, u)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// String renders positive factors joined by `*`, then `/` and the negative ones:
// `m^2`, `m/s`, `kg*m/s^2`, `1/s`.
func (u Unit) String() string {
	var num, den []string
	for _, f := range u {
		switch {
		case f.Exp > 0:
			num = append(num, formatUnitFactor(f.Symbol, f.Exp))
		case f.Exp < 0:
			den = append(den, formatUnitFactor(f.Symbol, -f.Exp))
		}
	}
	if len(num) == 0 && len(den) == 0 {
		return ""
	}
	out := strings.Join(num, "*")
	if out == "" {
		out = "1"
	}
	if len(den) > 0 {
		out += "/" + strings.Join(den, "*")
	}
	return out
}

func formatUnitFactor(symbol string, exp int) string {
	if exp == 1 {
		return symbol
	}
	return symbol + "^" + strconv.Itoa(exp)
}
