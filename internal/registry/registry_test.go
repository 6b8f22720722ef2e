package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitt-rnel/rtma/internal/rtmaerr"
	"github.com/pitt-rnel/rtma/internal/wire"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{TypeID: 1234, Name: "POSITION_FEEDBACK", FixedSize: 80}))

	d, ok := r.Lookup(1234)
	require.True(t, ok)
	assert.Equal(t, "POSITION_FEEDBACK", d.Name)
	assert.Equal(t, 80, d.FixedSize)

	byName, ok := r.LookupByName("POSITION_FEEDBACK")
	require.True(t, ok)
	assert.Equal(t, int32(1234), byName.TypeID)

	_, ok = r.Lookup(9999)
	assert.False(t, ok)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{TypeID: 1234, Name: "A", FixedSize: 8}))

	err := r.Register(Descriptor{TypeID: 1234, Name: "B", FixedSize: 16})
	assert.ErrorIs(t, err, rtmaerr.ErrDuplicateType)

	// The original registration survives the rejected insert.
	d, _ := r.Lookup(1234)
	assert.Equal(t, "A", d.Name)
}

func TestCoreRegistry(t *testing.T) {
	r := NewCoreRegistry()
	assert.Equal(t, len(wire.CoreTypeNames), r.Count())

	d, ok := r.Lookup(int32(wire.CONNECT))
	require.True(t, ok)
	assert.Equal(t, "CONNECT", d.Name)
	assert.Equal(t, 4, d.FixedSize)

	exit, ok := r.Lookup(int32(wire.EXIT))
	require.True(t, ok)
	assert.Zero(t, exit.FixedSize)
}

func TestCoreRegistryVariantSizes(t *testing.T) {
	std, _ := NewCoreRegistryFor(wire.StandardHeader).Lookup(int32(wire.FAILED_MESSAGE))
	tc, _ := NewCoreRegistryFor(wire.TimecodedHeader).Lookup(int32(wire.FAILED_MESSAGE))

	assert.Equal(t, 64, std.FixedSize)
	assert.Equal(t, 72, tc.FixedSize)
}

func TestThreshold(t *testing.T) {
	r := New()
	assert.True(t, r.IsCore(99))
	assert.False(t, r.IsCore(100))

	r.SetThreshold(500)
	assert.Equal(t, int32(500), r.Threshold())
	assert.True(t, r.IsCore(499))
	assert.False(t, r.IsCore(500))
}
