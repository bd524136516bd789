package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SizeStock is the stock count held for one size of a product.
type SizeStock struct {
	Size  string `bson:"size" json:"size"`
	Stock int    `bson:"stock" json:"stock"`
}

type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Category  string             `bson:"category" json:"category"`
	Type      *string            `bson:"type,omitempty" json:"type,omitempty"`
	Color     string             `bson:"color" json:"color"`
	Sizes     []SizeStock        `bson:"sizes" json:"sizes"`
	Images    []string           `bson:"images" json:"images"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// StockFor returns the stock of size and whether the product carries it.
func (p *Product) StockFor(size string) (int, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock, true
		}
	}
	return 0, false
}

// ProductPatch carries the fields of a partial product update. Nil fields are
// left untouched.
type ProductPatch struct {
	Name     *string      `json:"name"`
	Category *string      `json:"category"`
	Type     *string      `json:"type"`
	Color    *string      `json:"color"`
	Sizes    *[]SizeStock `json:"sizes"`
	Images   *[]string    `json:"images"`
}

func (p *ProductPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Type == nil &&
		p.Color == nil && p.Sizes == nil && p.Images == nil
}

// Fields returns the supplied fields keyed by their document name.
func (p *ProductPatch) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Category != nil {
		fields["category"] = *p.Category
	}
	if p.Type != nil {
		fields["type"] = *p.Type
	}
	if p.Color != nil {
		fields["color"] = *p.Color
	}
	if p.Sizes != nil {
		fields["sizes"] = *p.Sizes
	}
	if p.Images != nil {
		fields["images"] = *p.Images
	}
	return fields
}

// Apply merges the patch into product.
func (p *ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Type != nil {
		t := *p.Type
		product.Type = &t
	}
	if p.Color != nil {
		product.Color = *p.Color
	}
	if p.Sizes != nil {
		product.Sizes = append([]SizeStock(nil), (*p.Sizes)...)
	}
	if p.Images != nil {
		product.Images = append([]string(nil), (*p.Images)...)
	}
}
