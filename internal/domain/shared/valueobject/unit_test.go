package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnit(t *testing.T) {
	t.Run("normalizes code", func(t *testing.T) {
		u, err := NewUnit("  kg ", "Kilogram", DimensionMass, decimal.NewFromInt(1), false)
		require.NoError(t, err)
		assert.Equal(t, "KG", u.Code())
		assert.Equal(t, "Kilogram", u.Name())
	})

	t.Run("defaults name to code", func(t *testing.T) {
		u, err := NewUnit("roll", "", DimensionCount, decimal.NewFromInt(1), true)
		require.NoError(t, err)
		assert.Equal(t, "ROLL", u.Name())
		assert.True(t, u.IsDiscrete())
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewUnit("   ", "x", DimensionCount, decimal.NewFromInt(1), true)
		assert.ErrorIs(t, err, errEmptyUnitCode)
	})

	t.Run("rejects long code", func(t *testing.T) {
		_, err := NewUnit("ABCDEFGHIJKLMNOPQRSTUV", "x", DimensionCount, decimal.NewFromInt(1), true)
		assert.ErrorIs(t, err, errUnitCodeTooLong)
	})

	t.Run("rejects non-positive factor", func(t *testing.T) {
		_, err := NewUnit("X", "x", DimensionCount, decimal.Zero, true)
		assert.ErrorIs(t, err, errInvalidUnitFactor)
		_, err = NewUnit("X", "x", DimensionCount, decimal.NewFromInt(-1), true)
		assert.ErrorIs(t, err, errInvalidUnitFactor)
	})
}

func TestLookupUnit(t *testing.T) {
	u, ok := LookupUnit(" pcs")
	require.True(t, ok)
	assert.Equal(t, UnitCodePCS, u.Code())
	assert.True(t, u.IsDiscrete())

	kg, ok := LookupUnit("KG")
	require.True(t, ok)
	assert.False(t, kg.IsDiscrete())

	_, ok = LookupUnit("")
	assert.False(t, ok)
	_, ok = LookupUnit("furlong")
	assert.False(t, ok)
}

func TestUnit_ConvertTo(t *testing.T) {
	kg, _ := LookupUnit(UnitCodeKG)
	g, _ := LookupUnit(UnitCodeG)
	pcs, _ := LookupUnit(UnitCodePCS)
	cm, _ := LookupUnit(UnitCodeCM)
	mm, _ := LookupUnit(UnitCodeMM)

	tests := []struct {
		name    string
		from    Unit
		to      Unit
		qty     string
		want    string
		wantErr bool
	}{
		{name: "grams to kilograms", from: g, to: kg, qty: "1500", want: "1.5"},
		{name: "kilograms to grams", from: kg, to: g, qty: "0.25", want: "250"},
		{name: "centimeters to millimeters", from: cm, to: mm, qty: "3", want: "30"},
		{name: "same unit is identity", from: pcs, to: pcs, qty: "7", want: "7"},
		{name: "different dimensions", from: kg, to: pcs, qty: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.ConvertTo(decimal.RequireFromString(tt.qty), tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestUnit_CanConvertTo(t *testing.T) {
	box, _ := LookupUnit(UnitCodeBOX)
	pcs, _ := LookupUnit(UnitCodePCS)
	l, _ := LookupUnit(UnitCodeL)
	ml, _ := LookupUnit(UnitCodeML)

	assert.False(t, box.CanConvertTo(pcs))
	assert.True(t, l.CanConvertTo(ml))
	assert.False(t, Unit{}.CanConvertTo(l))
}
