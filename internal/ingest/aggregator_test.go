package ingest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathRow(driver string, slot Slot, path string, rowNo int64) NormalizedRow {
	return NormalizedRow{
		DriverID: driver,
		Entries:  []Entry{{DriverID: driver, Slot: slot, Path: path, RowNo: rowNo}},
	}
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	rows := []NormalizedRow{
		pathRow("B", SlotFace, "/b1", 1),
		pathRow("A", SlotFace, "/a1", 2),
		pathRow("B", SlotSignature, "/b2", 3),
		pathRow("C", SlotFingerprint1, "/c1", 4),
		pathRow("A", SlotFingerprint2, "/a2", 5),
	}

	groups := Aggregate(rows)
	require.Len(t, groups, 3)

	ids := []string{groups[0].DriverID, groups[1].DriverID, groups[2].DriverID}
	assert.Equal(t, []string{"B", "A", "C"}, ids)
	assert.Equal(t, 2, groups[0].Rows)
	assert.Equal(t, []Slot{SlotFace, SlotSignature}, groups[0].Slots())
	assert.Equal(t, []Slot{SlotFace, SlotFingerprint2}, groups[1].Slots())
}

func TestAggregateLastWriteWins(t *testing.T) {
	groups := Aggregate([]NormalizedRow{
		pathRow("A", SlotFace, "/old.jpg", 1),
		pathRow("A", SlotFace, "/new.jpg", 2),
	})

	require.Len(t, groups, 1)
	assert.Equal(t, "/new.jpg", groups[0].Entries[SlotFace].Path)
	assert.Equal(t, 2, groups[0].Rows, "both rows contributed to the driver")
}

func TestAggregateIsDeterministic(t *testing.T) {
	rows := []NormalizedRow{
		pathRow("1", SlotFace, "/1f", 1),
		pathRow("2", SlotSignature, "/2s", 2),
		{DriverID: "3"},
		pathRow("1", SlotFingerprint1, "/1p", 4),
	}

	first := Aggregate(rows)
	second := Aggregate(rows)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Aggregate() not deterministic (-first +second):\n%s", diff)
	}
	assert.Empty(t, first[2].Entries)
	assert.Equal(t, 1, first[2].Rows)
}

func TestAggregatorGroupsAreCopies(t *testing.T) {
	a := NewAggregator()
	a.Add(pathRow("A", SlotFace, "/a", 1))

	groups := a.Groups()
	delete(groups[0].Entries, SlotFace)

	assert.Len(t, a.Groups()[0].Entries, 1)
	assert.Equal(t, 1, a.Len())

	a.Add(NormalizedRow{})
	assert.Equal(t, 1, a.Len(), "rows without a driver are ignored")
}
