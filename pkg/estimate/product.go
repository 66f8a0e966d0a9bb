package estimate

// Product is a catalog entry. A product with variations is variable and
// cannot be placed in a room until one variation is chosen.
type Product struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	CategoryIDs []string          `json:"category_ids" yaml:"categories"`
	MinPrice    float64           `json:"min_price" yaml:"min_price"`
	MaxPrice    float64           `json:"max_price" yaml:"max_price"`
	Attributes  map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Variations  []Variation       `json:"variations,omitempty" yaml:"variations,omitempty"`
	Includes    []string          `json:"includes,omitempty" yaml:"includes,omitempty"`
}

// Variation is a concrete purchasable option of a variable product.
type Variation struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	MinPrice   float64           `json:"min_price" yaml:"min_price"`
	MaxPrice   float64           `json:"max_price" yaml:"max_price"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// IsVariable reports whether a variation must be chosen before adding.
func (p Product) IsVariable() bool {
	return len(p.Variations) > 0
}

// VariationData describes the choices for a product.
type VariationData struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	IsVariable  bool        `json:"is_variable"`
	Variations  []Variation `json:"variations,omitempty"`
}

// RelatedItems are suggestions shown next to a room after it changes.
type RelatedItems struct {
	Includes []ProductSummary `json:"includes"`
	Similar  []ProductSummary `json:"similar"`
}

// ProductSummary is the short form of a catalog entry.
type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
}

// Summary returns the short form of the product.
func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Name: p.Name, MinPrice: p.MinPrice, MaxPrice: p.MaxPrice}
}
