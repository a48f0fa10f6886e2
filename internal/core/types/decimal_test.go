package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineSubtotal_ExactArithmetic(t *testing.T) {
	// 0.1 * 3 must be exactly 0.3, not 0.30000000000000004.
	subtotal := LineSubtotal(MustFromString("3"), MustFromString("0.1"))
	assert.True(t, subtotal.Equal(MustFromString("0.3")))

	subtotal = LineSubtotal(MustFromString("2.5"), MustFromString("119.99"))
	assert.True(t, subtotal.Equal(MustFromString("299.975")))
}

func TestSum_NoIntermediateRounding(t *testing.T) {
	total := Sum(
		MustFromString("0.1"),
		MustFromString("0.2"),
		MustFromString("0.3"),
	)
	assert.True(t, total.Equal(MustFromString("0.6")))
	assert.True(t, Sum().IsZero())
}

func TestPercent(t *testing.T) {
	// 2.5% commission on 640.00.
	commission := Percent(MustFromString("640.00"), MustFromString("2.5"))
	assert.True(t, commission.Equal(MustFromString("16")))

	assert.True(t, Percent(MustFromString("100"), Zero()).IsZero())
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(MustFromString("6"), MustFromString("6")))
	assert.True(t, WithinTolerance(MustFromString("5.9995"), MustFromString("6")))
	assert.True(t, WithinTolerance(MustFromString("6.001"), MustFromString("6")))
	assert.False(t, WithinTolerance(MustFromString("6.0011"), MustFromString("6")))
	assert.False(t, WithinTolerance(MustFromString("5.99"), MustFromString("6")))
}

func TestFromString(t *testing.T) {
	d, err := FromString("123.456")
	require.NoError(t, err)
	assert.Equal(t, "123.456", d.String())

	_, err = FromString("not-a-number")
	assert.Error(t, err)
}
