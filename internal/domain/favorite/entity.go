package favorite

import (
	"time"

	"github.com/your-org/storefront-api/internal/domain/catalog"
)

// Favorite is a product or accessory liked by a user
type Favorite struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_favorite_user_product;uniqueIndex:idx_favorite_user_accessory" json:"user_id"`
	ProductID   *uint     `gorm:"uniqueIndex:idx_favorite_user_product" json:"product_id,omitempty"`
	AccessoryID *uint     `gorm:"uniqueIndex:idx_favorite_user_accessory" json:"accessory_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Product   *catalog.Product   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE;" json:"product,omitempty"`
	Accessory *catalog.Accessory `gorm:"foreignKey:AccessoryID;constraint:OnDelete:CASCADE;" json:"accessory,omitempty"`
}

// TableName overrides the table name
func (Favorite) TableName() string {
	return "favorites"
}
