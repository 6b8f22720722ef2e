package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub string

func (f fakeSub) ClientID() string { return string(f) }

func subscriberIDs(t *Table, typeID int32) map[string]bool {
	ids := make(map[string]bool)
	for _, s := range t.Subscribers(typeID) {
		ids[s.ClientID()] = true
	}
	return ids
}

func TestAddAndSubscribers(t *testing.T) {
	tbl := New()
	tbl.Add(1234, fakeSub("a"))
	tbl.Add(1234, fakeSub("b"))
	tbl.Add(5678, fakeSub("a"))

	assert.Equal(t, map[string]bool{"a": true, "b": true}, subscriberIDs(tbl, 1234))
	assert.Equal(t, map[string]bool{"a": true}, subscriberIDs(tbl, 5678))
	assert.Empty(t, tbl.Subscribers(42))
	assert.Equal(t, 3, tbl.Count())
}

func TestAddIsIdempotent(t *testing.T) {
	tbl := New()
	tbl.Add(1234, fakeSub("a"))
	tbl.Add(1234, fakeSub("a"))

	assert.Len(t, tbl.Subscribers(1234), 1)
	assert.Equal(t, 1, tbl.Count())
}

func TestRemove(t *testing.T) {
	tbl := New()
	tbl.Add(1234, fakeSub("a"))
	tbl.Add(1234, fakeSub("b"))

	tbl.Remove(1234, fakeSub("a"))
	assert.Equal(t, map[string]bool{"b": true}, subscriberIDs(tbl, 1234))
	assert.False(t, tbl.IsSubscribed(1234, "a"))
	assert.True(t, tbl.IsSubscribed(1234, "b"))
}

func TestRemoveWhenNotSubscribedIsNoOp(t *testing.T) {
	tbl := New()
	tbl.Add(1234, fakeSub("a"))

	tbl.Remove(1234, fakeSub("ghost"))
	tbl.Remove(42, fakeSub("a"))

	assert.True(t, tbl.IsSubscribed(1234, "a"))
	assert.Equal(t, 1, tbl.Count())
}

func TestRemoveAll(t *testing.T) {
	tbl := New()
	tbl.Add(1234, fakeSub("a"))
	tbl.Add(5678, fakeSub("a"))
	tbl.Add(1234, fakeSub("b"))

	tbl.RemoveAll("a")

	// Every set referencing "a" is purged; "b" is untouched.
	require.False(t, tbl.IsSubscribed(1234, "a"))
	require.False(t, tbl.IsSubscribed(5678, "a"))
	assert.True(t, tbl.IsSubscribed(1234, "b"))
	assert.Equal(t, 1, tbl.Count())

	// A second purge is a no-op.
	tbl.RemoveAll("a")
	assert.Equal(t, 1, tbl.Count())
}
