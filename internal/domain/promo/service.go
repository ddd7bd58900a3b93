// internal/domain/promo/service.go
package promo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/pkg/apperrors"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"github.com/your-org/storefront-api/internal/pkg/metrics"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
)

// ErrInvalidPromoCode is the base of every promo rejection
var ErrInvalidPromoCode = apperrors.New(apperrors.CodeInvalidPromoCode, "promo code is not applicable")

// RejectionDetails is attached to promo rejections
type RejectionDetails struct {
	Code   string `json:"code"`
	Reason Reason `json:"reason"`
}

// Cache stores the last successful preview per identity
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service handles promo code business logic
type Service struct {
	db      *gorm.DB
	cache   Cache
	config  *config.Config
	logger  *logrus.Logger
	metrics *metrics.Store
	policy  DiscountPolicy
	now     func() time.Time
}

// NewService creates a new promo service. cache and m may be nil.
func NewService(db *gorm.DB, cache Cache, cfg *config.Config, log *logrus.Logger, m *metrics.Store) *Service {
	policy, err := ParsePolicy(cfg.Pricing.DiscountPolicy)
	if err != nil {
		policy = PolicyUnclamped
	}
	return &Service{
		db:      db,
		cache:   cache,
		config:  cfg,
		logger:  logger.OrDiscard(log),
		metrics: m,
		policy:  policy,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Policy returns the configured discount policy
func (s *Service) Policy() DiscountPolicy {
	return s.policy
}

// CreatePromoCodeRequest represents promo code creation data
type CreatePromoCodeRequest struct {
	Code           string       `json:"code" binding:"required,promocode"`
	DiscountType   DiscountType `json:"discount_type" binding:"required,oneof=percent fixed"`
	Amount         money.Money  `json:"amount"`
	MinOrderAmount money.Money  `json:"min_order_amount"`
	UsageLimit     *int         `json:"usage_limit" binding:"omitempty,min=1"`
	ValidFrom      *time.Time   `json:"valid_from"`
	ValidTo        time.Time    `json:"valid_to" binding:"required"`
	IsActive       *bool        `json:"is_active"`
}

// PreviewRequest represents a promo preview request
type PreviewRequest struct {
	Code string `json:"code" binding:"required,max=50"`
}

// Preview is the structured outcome of evaluating a code against a total
type Preview struct {
	Code           string       `json:"code"`
	Applied        bool         `json:"applied"`
	Reason         Reason       `json:"reason,omitempty"`
	Message        string       `json:"message"`
	DiscountType   DiscountType `json:"discount_type,omitempty"`
	Total          money.Money  `json:"total"`
	DiscountAmount money.Money  `json:"discount_amount"`
	TotalAfter     money.Money  `json:"total_after"`
	EvaluatedAt    time.Time    `json:"evaluated_at"`
}

// Redemption is the result of a stand-alone redemption
type Redemption struct {
	Promo          *PromoCode  `json:"promo_code"`
	Total          money.Money `json:"total"`
	DiscountAmount money.Money `json:"discount_amount"`
	TotalAfter     money.Money `json:"total_after"`
}

// Reject builds an InvalidPromoCode error for code with the given reason
func Reject(code string, reason Reason) error {
	return ErrInvalidPromoCode.
		WithMessage(reason.Message()).
		WithDetails(RejectionDetails{Code: code, Reason: reason})
}

// RejectionReason extracts the reason from a promo rejection
func RejectionReason(err error) (Reason, bool) {
	if !errors.Is(err, ErrInvalidPromoCode) {
		return "", false
	}
	if typed := apperrors.As(err); typed != nil {
		if details, ok := typed.Details().(RejectionDetails); ok {
			return details.Reason, true
		}
	}
	return "", true
}

// Validate looks code up case-insensitively inside tx and checks that it can
// be applied to total right now. Nothing is written.
func (s *Service) Validate(tx *gorm.DB, code string, total money.Money) (*PromoCode, error) {
	var promo PromoCode
	err := tx.Where("normalized_code = ?", Normalize(code)).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Reject(code, ReasonNotFound)
		}
		return nil, fmt.Errorf("failed to look up promo code: %w", err)
	}

	if reason := promo.Check(s.now()); reason != "" {
		return nil, Reject(code, reason)
	}

	if total.LessThan(promo.MinOrderAmount) {
		return nil, Reject(code, ReasonBelowMinimum)
	}

	return &promo, nil
}

// RecordUsage increments used_count by one with a single guarded UPDATE, so
// concurrent redemptions never lose an increment or exceed the usage limit.
func RecordUsage(tx *gorm.DB, promo *PromoCode) error {
	result := tx.Model(&PromoCode{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", promo.ID).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("failed to record promo usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return Reject(promo.Code, ReasonExhausted)
	}
	promo.UsedCount++
	return nil
}

// Preview evaluates code against total for the caller without side effects on
// the promo code. Successful previews are remembered per identity.
func (s *Service) Preview(ctx context.Context, id identity.Identity, code string, total money.Money) (*Preview, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	preview := &Preview{
		Code:        code,
		Total:       total,
		TotalAfter:  total,
		EvaluatedAt: s.now(),
	}

	promo, err := s.Validate(s.db.WithContext(ctx), code, total)
	if err != nil {
		reason, rejected := RejectionReason(err)
		if !rejected {
			return nil, err
		}
		preview.Reason = reason
		preview.Message = reason.Message()
		s.metrics.PromoEvaluated(string(reason))
		return preview, nil
	}

	after := promo.ApplyDiscount(total, s.policy)
	preview.Code = promo.Code
	preview.Applied = true
	preview.Message = "promo code applied"
	preview.DiscountType = promo.DiscountType
	preview.DiscountAmount = total.Sub(after)
	preview.TotalAfter = after
	s.metrics.PromoEvaluated("previewed")

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, previewKey(id), preview, s.config.Pricing.PreviewTTL); err != nil {
			s.logger.WithError(err).WithField("identity", id.Key()).Warn("failed to cache promo preview")
		}
	}

	return preview, nil
}

// AppliedPreview returns the last successful preview of the caller, if any
func (s *Service) AppliedPreview(ctx context.Context, id identity.Identity) (*Preview, bool, error) {
	if err := id.Validate(); err != nil {
		return nil, false, err
	}
	if s.cache == nil {
		return nil, false, nil
	}
	var preview Preview
	hit, err := s.cache.GetJSON(ctx, previewKey(id), &preview)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read promo preview: %w", err)
	}
	if !hit {
		return nil, false, nil
	}
	return &preview, true, nil
}

// ForgetPreview drops the remembered preview of the caller
func (s *Service) ForgetPreview(ctx context.Context, id identity.Identity) error {
	if s.cache == nil || id.Validate() != nil {
		return nil
	}
	if err := s.cache.Del(ctx, previewKey(id)); err != nil {
		return fmt.Errorf("failed to forget promo preview: %w", err)
	}
	return nil
}

// Redeem validates code against total and records one usage in its own
// transaction, outside of any order. Orders redeem inside their own
// transaction instead.
func (s *Service) Redeem(ctx context.Context, code string, total money.Money) (*Redemption, error) {
	var redemption *Redemption

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		promo, err := s.Validate(tx, code, total)
		if err != nil {
			return err
		}
		if err := RecordUsage(tx, promo); err != nil {
			return err
		}
		after := promo.ApplyDiscount(total, s.policy)
		redemption = &Redemption{
			Promo:          promo,
			Total:          total,
			DiscountAmount: total.Sub(after),
			TotalAfter:     after,
		}
		return nil
	})
	if err != nil {
		if reason, rejected := RejectionReason(err); rejected {
			s.metrics.PromoEvaluated(string(reason))
		}
		return nil, err
	}

	s.metrics.PromoEvaluated("redeemed")
	s.logger.WithFields(logrus.Fields{
		"promo_code": redemption.Promo.Code,
		"used_count": redemption.Promo.UsedCount,
	}).Info("promo redeemed")

	return redemption, nil
}

// Create creates a new promo code
func (s *Service) Create(ctx context.Context, req *CreatePromoCodeRequest) (*PromoCode, error) {
	if !ValidCodeFormat(req.Code) {
		return nil, apperrors.New(apperrors.CodeValidation, "code must be 3-50 letters, digits, dashes or underscores")
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "amount must be positive")
	}
	if req.DiscountType == DiscountPercent && req.Amount.GreaterThan(money.FromInt(100)) {
		return nil, apperrors.New(apperrors.CodeValidation, "percent discount cannot exceed 100")
	}
	if req.MinOrderAmount.IsNegative() {
		return nil, apperrors.New(apperrors.CodeValidation, "min_order_amount cannot be negative")
	}
	if req.ValidFrom != nil && req.ValidFrom.After(req.ValidTo) {
		return nil, apperrors.New(apperrors.CodeValidation, "valid_from must be before valid_to")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	promo := &PromoCode{
		Code:           req.Code,
		DiscountType:   req.DiscountType,
		Amount:         req.Amount,
		MinOrderAmount: req.MinOrderAmount,
		UsageLimit:     req.UsageLimit,
		ValidFrom:      req.ValidFrom,
		ValidTo:        req.ValidTo,
		IsActive:       isActive,
	}

	if err := s.db.WithContext(ctx).Create(promo).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.New(apperrors.CodeConflict, "promo code already exists").
				WithDetails(map[string]string{"code": Normalize(req.Code)})
		}
		return nil, fmt.Errorf("failed to create promo code: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"promo_code":    promo.Code,
		"discount_type": promo.DiscountType,
	}).Info("promo code created")

	return promo, nil
}

func previewKey(id identity.Identity) string {
	return "promo:preview:" + id.Key()
}
