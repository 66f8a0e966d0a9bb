package estimate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoomTotals tests price range aggregation for rooms and estimates
func TestRoomTotals(t *testing.T) {
	kitchen := Room{
		ID: "r1",
		Products: []ProductLineItem{
			{ID: "p1", MinPrice: 100, MaxPrice: 150},
			{ID: "p2", MinPrice: 20, MaxPrice: 25},
		},
	}
	bath := Room{ID: "r2", Products: []ProductLineItem{{ID: "p3", MinPrice: 5, MaxPrice: 10}}}

	assert.Equal(t, Totals{Min: 120, Max: 175}, kitchen.Totals())

	est := Estimate{ID: "e1", Rooms: map[string]Room{"r1": kitchen, "r2": bath}}
	assert.Equal(t, Totals{Min: 125, Max: 185}, est.Totals())
}

// TestRoomListOrdering tests rooms are listed oldest first
func TestRoomListOrdering(t *testing.T) {
	now := time.Now()
	est := Estimate{Rooms: map[string]Room{
		"b": {ID: "b", Name: "Bath", CreatedAt: now.Add(time.Minute)},
		"a": {ID: "a", Name: "Kitchen", CreatedAt: now},
		"c": {ID: "c", Name: "Attic", CreatedAt: now.Add(time.Minute)},
	}}

	rooms := est.RoomList()
	require.Len(t, rooms, 3)
	assert.Equal(t, "a", rooms[0].ID)
	assert.Equal(t, "c", rooms[1].ID)
	assert.Equal(t, "b", rooms[2].ID)
}

// TestCloneIsolation tests clones do not share product slices
func TestCloneIsolation(t *testing.T) {
	est := Estimate{ID: "e1", Rooms: map[string]Room{
		"r1": {ID: "r1", Products: []ProductLineItem{{ID: "p1", CategoryIDs: []string{"flooring"}}}},
	}}

	cp := est.Clone()
	room := cp.Rooms["r1"]
	room.Products[0].Name = "changed"
	room.Products[0].CategoryIDs[0] = "tiles"

	assert.Empty(t, est.Rooms["r1"].Products[0].Name)
	assert.Equal(t, "flooring", est.Rooms["r1"].Products[0].CategoryIDs[0])
}

// TestCategorySet tests primary category detection
func TestCategorySet(t *testing.T) {
	set := NewCategorySet("Flooring", " kitchen-cabinets ", "")

	testCases := []struct {
		name       string
		categories []string
		want       bool
	}{
		{"exact", []string{"flooring"}, true},
		{"case insensitive", []string{"FLOORING"}, true},
		{"one of many", []string{"paint", "kitchen-cabinets"}, true},
		{"none", []string{"paint", "trim"}, false},
		{"empty", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, set.IsPrimary(tc.categories))
		})
	}
	assert.Equal(t, 2, set.Len())
}

// TestLineItemDerivesPrimaryFlag tests catalog products become line items
func TestLineItemDerivesPrimaryFlag(t *testing.T) {
	set := NewCategorySet("flooring")
	item := set.LineItem(Product{ID: "oak", Name: "Oak", CategoryIDs: []string{"flooring"}, MinPrice: 10, MaxPrice: 12})

	assert.True(t, item.IsPrimaryCategory)
	assert.Equal(t, "oak", item.ID)
	assert.Equal(t, 10.0, item.MinPrice)
}
