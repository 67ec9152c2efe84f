package runtime

import (
	"math"
	"testing"
)

func TestParseUnitForms(t *testing.T) {
	cases := map[string]string{
		"m":        "m",
		"m^2":      "m^2",
		"m/s":      "m/s",
		"kg*m/s^2": "kg*m/s^2",
		"1/s":      "1/s",
		"m*m":      "m^2",
	}
	for text, want := range cases {
		u, err := ParseUnit(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		if got := u.String(); got != want {
			t.Fatalf("parse %q: expected %q, got %q", text, want, got)
		}
	}
	for _, bad := range []string{"", "m^x", "3m", "*"} {
		if _, err := ParseUnit(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestUnitAlgebra(t *testing.T) {
	m := MustParseUnit("m")
	s := MustParseUnit("s")
	if got := m.Mul(m).String(); got != "m^2" {
		t.Fatalf("m*m: got %q", got)
	}
	if got := m.Div(s).String(); got != "m/s" {
		t.Fatalf("m/s: got %q", got)
	}
	if !m.Div(m).Dimensionless() {
		t.Fatalf("m/m should be dimensionless")
	}
	if got := m.Div(s).Pow(2).String(); got != "m^2/s^2" {
		t.Fatalf("(m/s)^2: got %q", got)
	}
}

func TestUnitConversion(t *testing.T) {
	factor, ok := MustParseUnit("km").ConversionFactor(MustParseUnit("m"))
	if !ok || factor != 1000 {
		t.Fatalf("expected km->m factor 1000, got %v %v", factor, ok)
	}
	factor, ok = MustParseUnit("km/h").ConversionFactor(MustParseUnit("m/s"))
	if !ok || math.Abs(factor-1/3.6) > 1e-12 {
		t.Fatalf("expected km/h->m/s factor 1/3.6, got %v", factor)
	}
	if _, ok := MustParseUnit("m").ConversionFactor(MustParseUnit("s")); ok {
		t.Fatalf("length and time must not convert")
	}
	if _, ok := MustParseUnit("foo").ConversionFactor(MustParseUnit("bar")); ok {
		t.Fatalf("unknown symbols must only convert to themselves")
	}
	km := MustParseUnit("km")
	if ratio := km.Div(MustParseUnit("m")); !ratio.Dimensionless() || ratio.Scale() != 1000 {
		t.Fatalf("expected km/m dimensionless with scale 1000")
	}
}
