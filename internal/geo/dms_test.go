package geo

import (
	"errors"
	"testing"

	"github.com/dronemap/footprints/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDMS(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`68 deg 34' 49.69" S`, -(68 + 34.0/60 + 49.69/3600)},
		{`149 deg 7' 30.00" E`, 149.125},
		{`35 deg 0' 0.00" S`, -35},
		{`0 deg 30' 0" W`, -0.5},
		{`12 DEG 0' 36" N`, 12.01},
		{`12 DEG 0' 36" S`, -12.01},
	}
	for _, tt := range tests {
		got, err := ParseDMS(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-12, tt.in)
	}
}

func TestParseDMS_Malformed(t *testing.T) {
	for _, in := range []string{"", "68.5", `68 deg 34' S`, `68 deg 34' 49.69"`, "NA"} {
		_, err := ParseDMS(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, core.ErrValidation), in)
	}
}

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal("-35.25", "")
	require.NoError(t, err)
	assert.Equal(t, -35.25, v)

	v, err = ParseDecimal("35.25", "S")
	require.NoError(t, err)
	assert.Equal(t, -35.25, v)

	v, err = ParseDecimal(" 149.5 ", "East")
	require.NoError(t, err)
	assert.Equal(t, 149.5, v)

	v, err = ParseDecimal("-10", "West")
	require.NoError(t, err)
	assert.Equal(t, -10.0, v)

	_, err = ParseDecimal("abc", "")
	assert.True(t, errors.Is(err, core.ErrValidation))
}
