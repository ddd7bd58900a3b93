package favorite

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"gorm.io/gorm"
)

// ErrTargetRequired is returned when a request names neither or both targets
var ErrTargetRequired = apperrors.New(apperrors.CodeValidation, "exactly one of product_id or accessory_id is required")

// Service handles favorites business logic
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new favorites service
func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, logger: logger.OrDiscard(log)}
}

// TargetRequest names a product or an accessory
type TargetRequest struct {
	ProductID   *uint `json:"product_id" form:"product_id"`
	AccessoryID *uint `json:"accessory_id" form:"accessory_id"`
}

func (r TargetRequest) validate() error {
	if (r.ProductID == nil) == (r.AccessoryID == nil) {
		return ErrTargetRequired
	}
	return nil
}

// LikeResult is the state of a product like after a toggle
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// List returns the favorites of a user, newest first
func (s *Service) List(ctx context.Context, userID uint) ([]Favorite, error) {
	var favorites []Favorite
	err := s.db.WithContext(ctx).
		Preload("Product.Images").
		Preload("Accessory").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favorites, nil
}

// Add marks a product or accessory as a favorite of the user
func (s *Service) Add(ctx context.Context, userID uint, req TargetRequest) (*Favorite, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureTarget(db, req); err != nil {
		return nil, err
	}

	fav := &Favorite{UserID: userID, ProductID: req.ProductID, AccessoryID: req.AccessoryID}
	if err := db.Create(fav).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.CodeConflict, "already in favorites")
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"product_id":   req.ProductID,
		"accessory_id": req.AccessoryID,
	}).Debug("favorite added")

	return fav, nil
}

// Remove drops a favorite. Removing something that is not a favorite is a no-op.
func (s *Service) Remove(ctx context.Context, userID uint, req TargetRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if req.ProductID != nil {
		query = query.Where("product_id = ?", *req.ProductID)
	} else {
		query = query.Where("accessory_id = ?", *req.AccessoryID)
	}
	if err := query.Delete(&Favorite{}).Error; err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ToggleProductLike likes the product if the user has not liked it yet and
// unlikes it otherwise
func (s *Service) ToggleProductLike(ctx context.Context, userID uint, slug string) (*LikeResult, error) {
	result := &LikeResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product catalog.Product
		if err := tx.Select("id").Where("slug = ?", slug).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrProductNotFound
			}
			return fmt.Errorf("failed to get product: %w", err)
		}

		deleted := tx.Where("user_id = ? AND product_id = ?", userID, product.ID).Delete(&Favorite{})
		if deleted.Error != nil {
			return fmt.Errorf("failed to unlike product: %w", deleted.Error)
		}
		if deleted.RowsAffected == 0 {
			productID := product.ID
			if err := tx.Create(&Favorite{UserID: userID, ProductID: &productID}).Error; err != nil {
				return fmt.Errorf("failed to like product: %w", err)
			}
			result.Liked = true
		}

		return tx.Model(&Favorite{}).Where("product_id = ?", product.ID).Count(&result.LikesCount).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) ensureTarget(db *gorm.DB, req TargetRequest) error {
	var count int64
	if req.ProductID != nil {
		if err := db.Model(&catalog.Product{}).Where("id = ?", *req.ProductID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if count == 0 {
			return catalog.ErrProductNotFound
		}
		return nil
	}
	if err := db.Model(&catalog.Accessory{}).Where("id = ?", *req.AccessoryID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check accessory: %w", err)
	}
	if count == 0 {
		return apperrors.New(apperrors.CodeNotFound, "accessory not found")
	}
	return nil
}
