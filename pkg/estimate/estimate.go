// Package estimate holds the data model shared by the data service, the
// orchestrators and the terminal modal.
package estimate

import (
	"sort"
	"strings"
	"time"
)

// Estimate is a named quote for a customer, made of rooms.
type Estimate struct {
	ID               string          `json:"id" yaml:"id"`
	Name             string          `json:"name" yaml:"name"`
	CustomerPostcode string          `json:"customer_postcode,omitempty" yaml:"customer_postcode,omitempty"`
	Rooms            map[string]Room `json:"rooms" yaml:"rooms"`
	CreatedAt        time.Time       `json:"created_at" yaml:"created_at"`
}

// Room is a measured space inside an estimate. Products are unique by ID and
// their order gives the product index used for removal.
type Room struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Width     float64           `json:"width" yaml:"width"`
	Length    float64           `json:"length" yaml:"length"`
	Products  []ProductLineItem `json:"products" yaml:"products"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
}

// ProductLineItem is a concrete product placed in a room.
type ProductLineItem struct {
	ID                  string   `json:"id" yaml:"id"`
	Name                string   `json:"name" yaml:"name"`
	CategoryIDs         []string `json:"category_ids" yaml:"category_ids"`
	IsPrimaryCategory   bool     `json:"is_primary_category" yaml:"is_primary_category"`
	MinPrice            float64  `json:"min_price" yaml:"min_price"`
	MaxPrice            float64  `json:"max_price" yaml:"max_price"`
	SelectedVariationID string   `json:"selected_variation_id,omitempty" yaml:"selected_variation_id,omitempty"`
}

// Totals is an aggregate price range.
type Totals struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Add returns the sum of two ranges.
func (t Totals) Add(o Totals) Totals {
	return Totals{Min: t.Min + o.Min, Max: t.Max + o.Max}
}

// Area returns the floor area of the room.
func (r Room) Area() float64 {
	return r.Width * r.Length
}

// Totals sums the price range of every product in the room.
func (r Room) Totals() Totals {
	var t Totals
	for _, p := range r.Products {
		t = t.Add(Totals{Min: p.MinPrice, Max: p.MaxPrice})
	}
	return t
}

// Product returns the line item with the given id.
func (r Room) Product(id string) (ProductLineItem, bool) {
	for _, p := range r.Products {
		if p.ID == id {
			return p, true
		}
	}
	return ProductLineItem{}, false
}

// HasProduct reports whether a product with the id is in the room.
func (r Room) HasProduct(id string) bool {
	_, ok := r.Product(id)
	return ok
}

// PrimaryProduct returns the room's primary-category product, if any.
func (r Room) PrimaryProduct() (ProductLineItem, bool) {
	for _, p := range r.Products {
		if p.IsPrimaryCategory {
			return p, true
		}
	}
	return ProductLineItem{}, false
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	cp := r
	cp.Products = make([]ProductLineItem, len(r.Products))
	for i, p := range r.Products {
		p.CategoryIDs = append([]string(nil), p.CategoryIDs...)
		cp.Products[i] = p
	}
	return cp
}

// Totals sums every room of the estimate.
func (e Estimate) Totals() Totals {
	var t Totals
	for _, r := range e.Rooms {
		t = t.Add(r.Totals())
	}
	return t
}

// RoomList returns the rooms ordered by creation time, then name.
func (e Estimate) RoomList() []Room {
	rooms := make([]Room, 0, len(e.Rooms))
	for _, r := range e.Rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})
	return rooms
}

// Clone returns a deep copy of the estimate.
func (e Estimate) Clone() Estimate {
	cp := e
	cp.Rooms = make(map[string]Room, len(e.Rooms))
	for id, r := range e.Rooms {
		cp.Rooms[id] = r.Clone()
	}
	return cp
}

// SortEstimates orders estimates by creation time, newest last.
func SortEstimates(list []Estimate) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
