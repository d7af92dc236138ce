package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/some/internal/envvar"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Device
	}{
		{"cpu", CPU},
		{"CPU", CPU},
		{"cuda", Device{Kind: KindCUDA}},
		{"cuda:1", Device{Kind: KindCUDA, Index: 1}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"tpu", "cuda:x", "cuda:-1", "cpu:0", ""} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "cpu", CPU.String())
	assert.Equal(t, "cuda", Device{Kind: KindCUDA}.String())
	assert.Equal(t, "cuda:2", Device{Kind: KindCUDA, Index: 2}.String())
}

func TestResolve_ExplicitWins(t *testing.T) {
	t.Setenv(envvar.SomeForceAccelerator, "true")

	d, err := Resolve("cpu")
	require.NoError(t, err)
	assert.Equal(t, CPU, d)
}

func TestResolve_Probe(t *testing.T) {
	t.Setenv(envvar.SomeForceAccelerator, "true")
	d, err := Resolve("")
	require.NoError(t, err)
	assert.True(t, d.IsAccelerator())

	t.Setenv(envvar.SomeForceAccelerator, "false")
	d, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, CPU, d)
}
