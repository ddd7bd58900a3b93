// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
)

// Availability values shown on product cards
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
	AvailabilityPreOrder   = "pre_order"
)

// AccessoryType classifies accessories
type AccessoryType string

const (
	AccessoryGlass AccessoryType = "glass"
	AccessoryCase  AccessoryType = "case"
	AccessoryCable AccessoryType = "cable"
)

// Valid reports whether t is a known accessory type
func (t AccessoryType) Valid() bool {
	switch t {
	case AccessoryGlass, AccessoryCase, AccessoryCable:
		return true
	}
	return false
}

// Category represents product categories
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Icon      string    `gorm:"size:500" json:"icon"`
	IsActive  bool      `gorm:"index;not null" json:"is_active"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductCount int64 `gorm:"->;-:migration" json:"product_count"`
	SubCount     int64 `gorm:"->;-:migration" json:"sub_count"`

	Parent   *Category  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE;" json:"-"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// Product is a catalog product. Its price is the price of the base model;
// concrete memory/color combinations are priced by ProductVariant.
type Product struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	CategoryID       uint         `gorm:"not null;index" json:"category_id"`
	Title            string       `gorm:"not null;size:255" json:"title"`
	Slug             string       `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description      string       `gorm:"type:text" json:"description"`
	ShortDescription string       `gorm:"size:500" json:"short_description"`
	Price            money.Money  `gorm:"type:numeric(10,2);not null;index" json:"price"`
	DiscountPercent  int          `gorm:"not null;default:0" json:"discount_percent"`
	OldPrice         *money.Money `gorm:"type:numeric(10,2)" json:"old_price"`
	Stock            int          `gorm:"not null;default:0" json:"stock"`
	Availability     string       `gorm:"size:50;not null" json:"availability"`
	Warranty         string       `gorm:"size:50" json:"warranty"`
	Manufacturer     string       `gorm:"size:50" json:"manufacturer"`
	IsAvailable      bool         `gorm:"index;not null" json:"is_available"`
	IsFeatured       bool         `gorm:"not null" json:"is_featured"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	LikesCount int64 `gorm:"->;-:migration" json:"likes_count"`

	Category *Category       `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category,omitempty"`
	Images   []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE;" json:"images,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE;" json:"variants,omitempty"`
	Bundles  []Bundle         `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE;" json:"bundles,omitempty"`
}

// ProductImage represents product images
type ProductImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	URL       string `gorm:"not null;size:500" json:"url"`
	IsMain    bool   `gorm:"not null" json:"is_main"`
}

// Color is a product color option
type Color struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"uniqueIndex;not null;size:100" json:"name"`
	HexCode string `gorm:"size:7" json:"hex_code"`
}

// MemoryOption is a storage size option such as "128GB"
type MemoryOption struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Size string `gorm:"uniqueIndex;not null;size:50" json:"size"`
}

// ProductVariant is one color x memory combination of a product
type ProductVariant struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ProductID uint        `gorm:"not null;uniqueIndex:idx_variant_combo" json:"product_id"`
	ColorID   uint        `gorm:"not null;uniqueIndex:idx_variant_combo" json:"color_id"`
	MemoryID  uint        `gorm:"not null;uniqueIndex:idx_variant_combo" json:"memory_id"`
	Price     money.Money `gorm:"type:numeric(10,2);not null" json:"price"`
	Stock     int         `gorm:"not null;default:0" json:"stock"`

	Product *Product      `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Color   *Color        `gorm:"foreignKey:ColorID;constraint:OnDelete:CASCADE;" json:"color,omitempty"`
	Memory  *MemoryOption `gorm:"foreignKey:MemoryID;constraint:OnDelete:CASCADE;" json:"memory,omitempty"`
}

// Accessory is a stand-alone purchasable add-on
type Accessory struct {
	ID    uint          `gorm:"primaryKey" json:"id"`
	Name  string        `gorm:"not null;size:200" json:"name"`
	Price money.Money   `gorm:"type:numeric(10,2);not null" json:"price"`
	Type  AccessoryType `gorm:"size:20;not null;index" json:"type"`
	Image string        `gorm:"size:500" json:"image"`
}

// Bundle is a product sold together with a set of accessories at a discount
type Bundle struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Name      string      `gorm:"not null;size:100" json:"name"`
	ProductID uint        `gorm:"not null;index" json:"product_id"`
	Discount  money.Money `gorm:"type:numeric(10,2);not null" json:"discount"`

	// Total is filled when the bundle is served without its Product loaded
	Total money.Money `gorm:"-" json:"total_price"`

	Product     *Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Accessories []Accessory `gorm:"many2many:bundle_accessories;" json:"accessories,omitempty"`
}

// TableName overrides
func (Category) TableName() string       { return "categories" }
func (Product) TableName() string        { return "products" }
func (ProductImage) TableName() string   { return "product_images" }
func (Color) TableName() string          { return "colors" }
func (MemoryOption) TableName() string   { return "memory_options" }
func (ProductVariant) TableName() string { return "product_variants" }
func (Accessory) TableName() string      { return "accessories" }
func (Bundle) TableName() string         { return "bundles" }

// BeforeSave fills the slug and applies the percentage discount to the price,
// keeping the pre-discount price in OldPrice.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Availability == "" {
		p.Availability = AvailabilityInStock
	}
	if p.DiscountPercent > 0 {
		if p.OldPrice == nil {
			old := p.Price
			p.OldPrice = &old
		}
		pct := decimal.NewFromInt(int64(p.DiscountPercent)).Div(decimal.NewFromInt(100))
		p.Price = p.OldPrice.Sub(p.OldPrice.Mul(pct)).RoundCents()
	}
	return nil
}

// BeforeSave fills the category slug
func (c *Category) BeforeSave(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}

// MainImage returns the URL of the main image, if any
func (p *Product) MainImage() string {
	for _, img := range p.Images {
		if img.IsMain {
			return img.URL
		}
	}
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	return ""
}

// Title describes the variant for carts and order snapshots
func (v *ProductVariant) Title() string {
	title := ""
	if v.Product != nil {
		title = v.Product.Title
	}
	if v.Memory != nil {
		title += " " + v.Memory.Size
	}
	if v.Color != nil {
		title += " " + v.Color.Name
	}
	return title
}

// TotalPrice is the base product price plus accessories minus the bundle
// discount, never below zero. Requires Product and Accessories to be loaded.
func (b *Bundle) TotalPrice() money.Money {
	base := money.Zero()
	if b.Product != nil {
		base = b.Product.Price
	}
	return b.PriceWith(base)
}

// PriceWith prices the bundle on top of the given base product price
func (b *Bundle) PriceWith(base money.Money) money.Money {
	total := base
	for _, a := range b.Accessories {
		total = total.Add(a.Price)
	}
	return total.Sub(b.Discount).Max(money.Zero())
}

// Title describes the bundle for carts and order snapshots
func (b *Bundle) Title() string {
	if b.Product != nil {
		return b.Name + " bundle for " + b.Product.Title
	}
	return b.Name + " bundle"
}
