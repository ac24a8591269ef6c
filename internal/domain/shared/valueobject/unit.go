package valueobject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension groups units that can be converted into each other.
type Dimension string

const (
	DimensionCount   Dimension = "COUNT"
	DimensionPackage Dimension = "PACKAGE"
	DimensionMass    Dimension = "MASS"
	DimensionVolume  Dimension = "VOLUME"
	DimensionLength  Dimension = "LENGTH"
)

// Common unit codes
const (
	UnitCodePCS = "PCS"
	UnitCodeBOX = "BOX"
	UnitCodeKG  = "KG"
	UnitCodeG   = "G"
	UnitCodeL   = "L"
	UnitCodeML  = "ML"
	UnitCodeM   = "M"
	UnitCodeCM  = "CM"
	UnitCodeMM  = "MM"
)

// Unit is an immutable unit of measurement.
// toBase is how many base units of the dimension one of this unit equals.
// Discrete units cannot be consumed in fractions.
type Unit struct {
	code      string
	name      string
	dimension Dimension
	toBase    decimal.Decimal
	discrete  bool
}

var (
	errEmptyUnitCode     = errors.New("unit code cannot be empty")
	errUnitCodeTooLong   = errors.New("unit code cannot exceed 20 characters")
	errInvalidUnitFactor = errors.New("unit conversion factor must be positive")
)

// NewUnit creates a unit. Codes are trimmed and uppercased.
func NewUnit(code, name string, dimension Dimension, toBase decimal.Decimal, discrete bool) (Unit, error) {
	code = NormalizeUnitCode(code)
	if code == "" {
		return Unit{}, errEmptyUnitCode
	}
	if len(code) > 20 {
		return Unit{}, errUnitCodeTooLong
	}
	if !toBase.IsPositive() {
		return Unit{}, errInvalidUnitFactor
	}
	if strings.TrimSpace(name) == "" {
		name = code
	}
	return Unit{
		code:      code,
		name:      strings.TrimSpace(name),
		dimension: dimension,
		toBase:    toBase,
		discrete:  discrete,
	}, nil
}

func mustUnit(code, name string, dimension Dimension, toBase string, discrete bool) Unit {
	u, err := NewUnit(code, name, dimension, decimal.RequireFromString(toBase), discrete)
	if err != nil {
		panic(err)
	}
	return u
}

var registry = func() map[string]Unit {
	units := []Unit{
		mustUnit(UnitCodePCS, "Pieces", DimensionCount, "1", true),
		mustUnit(UnitCodeBOX, "Box", DimensionPackage, "1", true),
		mustUnit(UnitCodeKG, "Kilogram", DimensionMass, "1", false),
		mustUnit(UnitCodeG, "Gram", DimensionMass, "0.001", false),
		mustUnit(UnitCodeL, "Liter", DimensionVolume, "1", false),
		mustUnit(UnitCodeML, "Milliliter", DimensionVolume, "0.001", false),
		mustUnit(UnitCodeM, "Meter", DimensionLength, "1", false),
		mustUnit(UnitCodeCM, "Centimeter", DimensionLength, "0.01", false),
		mustUnit(UnitCodeMM, "Millimeter", DimensionLength, "0.001", false),
	}
	m := make(map[string]Unit, len(units))
	for _, u := range units {
		m[u.code] = u
	}
	return m
}()

// NormalizeUnitCode trims and uppercases a unit code.
func NormalizeUnitCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LookupUnit resolves a unit code against the registry.
func LookupUnit(code string) (Unit, bool) {
	u, ok := registry[NormalizeUnitCode(code)]
	return u, ok
}

// Code returns the unit code
func (u Unit) Code() string { return u.code }

// Name returns the display name
func (u Unit) Name() string { return u.name }

// Dimension returns the unit's dimension
func (u Unit) Dimension() Dimension { return u.dimension }

// IsDiscrete reports whether the unit is counted in whole numbers
func (u Unit) IsDiscrete() bool { return u.discrete }

// IsZero returns true for the zero value
func (u Unit) IsZero() bool { return u.code == "" }

// String returns the unit code
func (u Unit) String() string { return u.code }

// CanConvertTo reports whether quantities in u can be expressed in target.
func (u Unit) CanConvertTo(target Unit) bool {
	return !u.IsZero() && !target.IsZero() && u.dimension == target.dimension
}

// ConvertTo expresses quantity (in u) in target units.
func (u Unit) ConvertTo(quantity decimal.Decimal, target Unit) (decimal.Decimal, error) {
	if u.code == target.code {
		return quantity, nil
	}
	if !u.CanConvertTo(target) {
		return decimal.Zero, fmt.Errorf("cannot convert %s (%s) to %s (%s)", u.code, u.dimension, target.code, target.dimension)
	}
	return quantity.Mul(u.toBase).Div(target.toBase), nil
}
