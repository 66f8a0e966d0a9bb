package local

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []estimate.Product `yaml:"products"`
}

// Catalog is the read-only product list the backend places into rooms.
type Catalog struct {
	products map[string]estimate.Product
	parents  map[string]string // variation id -> parent id
	order    []string
}

// DefaultCatalog returns the catalog bundled with the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a YAML catalog file. An empty path loads the bundled one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		products: make(map[string]estimate.Product, len(file.Products)),
		parents:  make(map[string]string),
	}
	for _, p := range file.Products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("catalog product %q has no id", p.Name)
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("catalog product %q listed twice", p.ID)
		}
		c.products[p.ID] = p
		c.order = append(c.order, p.ID)
		for _, v := range p.Variations {
			if _, dup := c.parents[v.ID]; dup {
				return nil, fmt.Errorf("variation %q listed twice", v.ID)
			}
			c.parents[v.ID] = p.ID
		}
	}
	for vid := range c.parents {
		if _, clash := c.products[vid]; clash {
			return nil, fmt.Errorf("variation %q reuses a product id", vid)
		}
	}
	return c, nil
}

// Products returns every catalog entry in file order.
func (c *Catalog) Products() []estimate.Product {
	out := make([]estimate.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

// Product returns a top-level catalog entry.
func (c *Catalog) Product(id string) (estimate.Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Concrete resolves id to a product that can be placed in a room. Variations
// inherit the parent's categories and includes. Variable parents are rejected
// with ok=true and variable=true.
func (c *Catalog) Concrete(id string) (p estimate.Product, variable bool, ok bool) {
	if parent, isVariation := c.parents[id]; isVariation {
		base := c.products[parent]
		for _, v := range base.Variations {
			if v.ID != id {
				continue
			}
			return estimate.Product{
				ID:          v.ID,
				Name:        fmt.Sprintf("%s - %s", base.Name, v.Name),
				CategoryIDs: append([]string(nil), base.CategoryIDs...),
				MinPrice:    v.MinPrice,
				MaxPrice:    v.MaxPrice,
				Attributes:  v.Attributes,
				Includes:    base.Includes,
			}, false, true
		}
	}
	base, found := c.products[id]
	if !found {
		return estimate.Product{}, false, false
	}
	return base, base.IsVariable(), true
}

// VariationData describes the choices for id.
func (c *Catalog) VariationData(id string) (estimate.VariationData, bool) {
	p, ok := c.products[id]
	if !ok {
		if _, isVariation := c.parents[id]; isVariation {
			concrete, _, _ := c.Concrete(id)
			return estimate.VariationData{ProductID: id, ProductName: concrete.Name}, true
		}
		return estimate.VariationData{}, false
	}
	return estimate.VariationData{
		ProductID:   p.ID,
		ProductName: p.Name,
		IsVariable:  p.IsVariable(),
		Variations:  append([]estimate.Variation(nil), p.Variations...),
	}, true
}

// Related suggests products for a room: the included extras of its products
// and other products sharing a category, neither already in the room.
func (c *Catalog) Related(room estimate.Room, limit int) estimate.RelatedItems {
	inRoom := make(map[string]bool, len(room.Products))
	categories := make(map[string]bool)
	for _, item := range room.Products {
		inRoom[item.ID] = true
		if parent, ok := c.parents[item.ID]; ok {
			inRoom[parent] = true
		}
		for _, cat := range item.CategoryIDs {
			categories[strings.ToLower(cat)] = true
		}
	}

	related := estimate.RelatedItems{Includes: []estimate.ProductSummary{}, Similar: []estimate.ProductSummary{}}
	seen := make(map[string]bool)
	for _, item := range room.Products {
		concrete, _, ok := c.Concrete(item.ID)
		if !ok {
			continue
		}
		for _, inc := range concrete.Includes {
			p, ok := c.products[inc]
			if !ok || inRoom[inc] || seen[inc] {
				continue
			}
			seen[inc] = true
			related.Includes = append(related.Includes, p.Summary())
		}
	}

	for _, id := range c.order {
		if limit > 0 && len(related.Similar) >= limit {
			break
		}
		p := c.products[id]
		if inRoom[id] || seen[id] {
			continue
		}
		for _, cat := range p.CategoryIDs {
			if categories[strings.ToLower(cat)] {
				related.Similar = append(related.Similar, p.Summary())
				break
			}
		}
	}
	sort.SliceStable(related.Includes, func(i, j int) bool { return related.Includes[i].Name < related.Includes[j].Name })
	return related
}
