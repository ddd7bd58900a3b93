// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound = apperrors.New(apperrors.CodeNotFound, "category not found")
	ErrProductNotFound  = apperrors.New(apperrors.CodeNotFound, "product not found")
)

const productWithLikes = "products.*, (SELECT COUNT(*) FROM favorites f WHERE f.product_id = products.id) AS likes_count"

// Cache is the read-through cache used for product detail pages
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service serves read-only catalog queries
type Service struct {
	db     *gorm.DB
	cache  Cache
	config *config.Config
	logger *logrus.Logger
	group  singleflight.Group
}

// NewService creates a new catalog service. cache may be nil.
func NewService(db *gorm.DB, cache Cache, cfg *config.Config, log *logrus.Logger) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		config: cfg,
		logger: logger.OrDiscard(log),
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size"`
	Category string `form:"category"`
	Search   string `form:"search"`
	Ordering string `form:"ordering"`
}

// ProductListResponse represents a page of products
type ProductListResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CategoryDetail is a category with its available products
type CategoryDetail struct {
	Category Category  `json:"category"`
	Products []Product `json:"products"`
}

var productOrderings = map[string]string{
	"price":       "products.price ASC",
	"-price":      "products.price DESC",
	"created_at":  "products.created_at ASC",
	"-created_at": "products.created_at DESC",
	"title":       "products.title ASC",
	"-title":      "products.title DESC",
	"likes":       "likes_count DESC",
}

// ListCategories returns active categories with product and sub-category counts
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := s.db.WithContext(ctx).
		Model(&Category{}).
		Select("categories.*, "+
			"(SELECT COUNT(*) FROM products p WHERE p.category_id = categories.id) AS product_count, "+
			"(SELECT COUNT(*) FROM categories c2 WHERE c2.parent_id = categories.id AND c2.is_active = ?) AS sub_count", true).
		Where("categories.is_active = ?", true).
		Order("categories.sort_order ASC, categories.name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug returns an active category and its available products
func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (*CategoryDetail, error) {
	var category Category
	err := s.db.WithContext(ctx).
		Preload("Children", "is_active = ?", true).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	var products []Product
	err = s.db.WithContext(ctx).
		Select(productWithLikes).
		Preload("Images").
		Where("products.category_id = ? AND products.is_available = ?", category.ID, true).
		Order("products.created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list category products: %w", err)
	}

	return &CategoryDetail{Category: category, Products: products}, nil
}

// ListProducts lists available products with filtering, search, ordering and pagination
func (s *Service) ListProducts(ctx context.Context, req ProductListRequest) (*ProductListResponse, error) {
	page, pageSize := s.normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&Product{}).Where("products.is_available = ?", true)

	if req.Category != "" {
		query = query.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", req.Category)
	}

	if search := strings.TrimSpace(req.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(products.title) LIKE ? OR LOWER(products.short_description) LIKE ?", pattern, pattern)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	orderBy, ok := productOrderings[req.Ordering]
	if !ok {
		orderBy = "products.created_at DESC"
	}

	var products []Product
	err := query.
		Select(productWithLikes).
		Preload("Images").
		Preload("Category").
		Order(orderBy).
		Order("products.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))
	return &ProductListResponse{
		Products: products,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// GetProductBySlug returns an available product with images, variants and
// bundles. Results are cached when a cache is configured.
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	key := productCacheKey(slug)

	var cached Product
	if hit, err := s.cacheGet(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		product, err := s.loadProduct(ctx, slug)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, key, product)
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

// InvalidateProduct drops the cached detail page of a product
func (s *Service) InvalidateProduct(ctx context.Context, slug string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, productCacheKey(slug)); err != nil {
		s.logger.WithError(err).WithField("slug", slug).Warn("failed to invalidate product cache")
	}
}

// SimilarProducts returns available products from the same category
func (s *Service) SimilarProducts(ctx context.Context, productID uint, limit int) ([]Product, error) {
	if limit <= 0 || limit > s.config.Catalog.MaxPageSize {
		limit = s.config.Catalog.DefaultPageSize
	}

	var product Product
	if err := s.db.WithContext(ctx).Select("id", "category_id").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	var products []Product
	err := s.db.WithContext(ctx).
		Select(productWithLikes).
		Preload("Images").
		Where("products.category_id = ? AND products.id <> ? AND products.is_available = ?", product.CategoryID, product.ID, true).
		Order("products.created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list similar products: %w", err)
	}
	return products, nil
}

// ListAccessories lists accessories, optionally filtered by type
func (s *Service) ListAccessories(ctx context.Context, accessoryType string) ([]Accessory, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if accessoryType != "" {
		if !AccessoryType(accessoryType).Valid() {
			return nil, apperrors.New(apperrors.CodeValidation, "unknown accessory type").
				WithDetails(map[string]string{"type": accessoryType})
		}
		query = query.Where("type = ?", accessoryType)
	}

	var accessories []Accessory
	if err := query.Find(&accessories).Error; err != nil {
		return nil, fmt.Errorf("failed to list accessories: %w", err)
	}
	return accessories, nil
}

func (s *Service) loadProduct(ctx context.Context, slug string) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).
		Select(productWithLikes).
		Preload("Category").
		Preload("Images").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("price ASC") }).
		Preload("Variants.Color").
		Preload("Variants.Memory").
		Preload("Bundles.Accessories").
		Where("products.slug = ? AND products.is_available = ?", slug, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	for i := range product.Bundles {
		product.Bundles[i].Total = product.Bundles[i].PriceWith(product.Price)
	}
	return &product, nil
}

func (s *Service) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.config.Catalog.DefaultPageSize
	}
	if pageSize > s.config.Catalog.MaxPageSize {
		pageSize = s.config.Catalog.MaxPageSize
	}
	return page, pageSize
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	hit, err := s.cache.GetJSON(ctx, key, dest)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("catalog cache read failed")
	}
	return hit, err
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, value, s.config.Catalog.CacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("catalog cache write failed")
	}
}

func productCacheKey(slug string) string {
	return "catalog:product:" + slug
}
