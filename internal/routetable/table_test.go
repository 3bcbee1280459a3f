package routetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAddsDirectEntry(t *testing.T) {
	tbl := New("self", 16)
	_, changed := tbl.Merge("peer-a", Snapshot{})
	assert.True(t, changed, "expected merge to add direct entry to peer-a")

	nextHop, distance, ok := tbl.NextHop("peer-a")
	require.True(t, ok)
	assert.Equal(t, "self", nextHop)
	assert.Equal(t, 1, distance)
}

func TestMergeAppliesAdvertisedDistance(t *testing.T) {
	tbl := New("self", 16)
	tbl.Merge("peer-a", Snapshot{Entries: []SnapshotEntry{{Dst: "peer-b", Distance: 1}}})

	nextHop, distance, ok := tbl.NextHop("peer-b")
	require.True(t, ok)
	assert.Equal(t, "peer-a", nextHop)
	assert.Equal(t, 2, distance)
}

func TestMergePrefersShorterDistance(t *testing.T) {
	tbl := New("self", 16)
	tbl.Merge("peer-a", Snapshot{Entries: []SnapshotEntry{{Dst: "peer-c", Distance: 5}}})
	tbl.Merge("peer-b", Snapshot{Entries: []SnapshotEntry{{Dst: "peer-c", Distance: 1}}})

	nextHop, distance, _ := tbl.NextHop("peer-c")
	assert.Equal(t, "peer-b", nextHop)
	assert.Equal(t, 2, distance)
}

func TestMergeMarksUnreachable(t *testing.T) {
	tbl := New("self", 4)
	unreachable, _ := tbl.Merge("peer-a", Snapshot{Entries: []SnapshotEntry{{Dst: "peer-z", Distance: 4}}})
	assert.Equal(t, []string{"peer-z"}, unreachable)
}

func TestNoDistanceZeroExceptSelf(t *testing.T) {
	tbl := New("self", 16)
	tbl.Merge("peer-a", Snapshot{Entries: []SnapshotEntry{{Dst: "peer-b", Distance: 3}}})
	for dst := range tbl.entries {
		_, distance, _ := tbl.NextHop(dst)
		assert.NotZero(t, distance, "entry for %s has distance 0, only self should", dst)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := Snapshot{Entries: []SnapshotEntry{
		{Dst: "peer-a", Distance: 1},
		{Dst: "peer-b", Distance: 3},
	}}
	buf := encodeSnapshot(snap)
	got, err := decodeSnapshot(buf)
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "peer-a", got.Entries[0].Dst)
	assert.EqualValues(t, 3, got.Entries[1].Distance)
}

func TestRemovePeerDropsRoutesThroughIt(t *testing.T) {
	tbl := New("self", 16)
	tbl.Merge("peer-a", Snapshot{Entries: []SnapshotEntry{{Dst: "peer-b", Distance: 1}}})
	assert.True(t, tbl.RemovePeer("peer-a"), "expected RemovePeer to report a change")

	_, _, ok := tbl.NextHop("peer-b")
	assert.False(t, ok, "peer-b route should have been removed with peer-a")
}
