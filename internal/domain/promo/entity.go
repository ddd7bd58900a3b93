// internal/domain/promo/entity.go
package promo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/pkg/money"
	"gorm.io/gorm"
)

// DiscountType is how a promo amount is interpreted
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Reason explains why a promo code cannot be applied
type Reason string

const (
	ReasonNotFound     Reason = "not_found"
	ReasonInactive     Reason = "inactive"
	ReasonNotStarted   Reason = "not_started"
	ReasonExpired      Reason = "expired"
	ReasonExhausted    Reason = "exhausted"
	ReasonBelowMinimum Reason = "below_minimum"
)

var reasonMessages = map[Reason]string{
	ReasonNotFound:     "promo code not found",
	ReasonInactive:     "promo code is not active",
	ReasonNotStarted:   "promo code is not valid yet",
	ReasonExpired:      "promo code has expired",
	ReasonExhausted:    "promo code usage limit reached",
	ReasonBelowMinimum: "order total is below the promo code minimum",
}

// Message returns a human readable description of the reason
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "promo code is not applicable"
}

// DiscountPolicy decides what happens when a discount exceeds the total
type DiscountPolicy string

const (
	// PolicyUnclamped lets a fixed discount push the total below zero
	PolicyUnclamped DiscountPolicy = "unclamped"
	// PolicyFloorZero never lets the discounted total go below zero
	PolicyFloorZero DiscountPolicy = "floor_zero"
)

// ParsePolicy parses a configured policy name
func ParsePolicy(name string) (DiscountPolicy, error) {
	switch DiscountPolicy(name) {
	case PolicyUnclamped, PolicyFloorZero:
		return DiscountPolicy(name), nil
	case "":
		return PolicyUnclamped, nil
	}
	return "", fmt.Errorf("unknown discount policy %q", name)
}

// PromoCode is a discount token with a validity window and optional usage limit
type PromoCode struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Code           string       `gorm:"not null;size:50" json:"code"`
	NormalizedCode string       `gorm:"uniqueIndex;not null;size:50" json:"-"`
	DiscountType   DiscountType `gorm:"size:10;not null" json:"discount_type"`
	Amount         money.Money  `gorm:"type:numeric(10,2);not null" json:"amount"`
	MinOrderAmount money.Money  `gorm:"type:numeric(10,2);not null" json:"min_order_amount"`
	UsageLimit     *int         `json:"usage_limit"`
	UsedCount      int          `gorm:"not null;default:0" json:"used_count"`
	ValidFrom      *time.Time   `json:"valid_from"`
	ValidTo        time.Time    `gorm:"not null" json:"valid_to"`
	IsActive       bool         `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName overrides the table name
func (PromoCode) TableName() string {
	return "promo_codes"
}

// BeforeSave keeps the case-insensitive lookup column in sync
func (p *PromoCode) BeforeSave(tx *gorm.DB) error {
	p.NormalizedCode = Normalize(p.Code)
	return nil
}

var codeFormat = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// ValidCodeFormat reports whether code is acceptable as a new promo code
func ValidCodeFormat(code string) bool {
	return codeFormat.MatchString(strings.TrimSpace(code))
}

// Normalize is the canonical form codes are matched by
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Check evaluates the code at now and returns why it is unusable, or "" if valid
func (p *PromoCode) Check(now time.Time) Reason {
	switch {
	case !p.IsActive:
		return ReasonInactive
	case p.ValidFrom != nil && now.Before(*p.ValidFrom):
		return ReasonNotStarted
	case now.After(p.ValidTo):
		return ReasonExpired
	case p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit:
		return ReasonExhausted
	}
	return ""
}

// IsValid reports whether the code can be applied at now
func (p *PromoCode) IsValid(now time.Time) bool {
	return p.Check(now) == ""
}

// ApplyDiscount returns total after the discount, rounded to cents
func (p *PromoCode) ApplyDiscount(total money.Money, policy DiscountPolicy) money.Money {
	var discounted money.Money
	switch p.DiscountType {
	case DiscountPercent:
		factor := decimal.NewFromInt(1).Sub(p.Amount.Amount().Div(decimal.NewFromInt(100)))
		discounted = total.Mul(factor)
	case DiscountFixed:
		discounted = total.Sub(p.Amount)
	default:
		discounted = total
	}
	discounted = discounted.RoundCents()
	if policy == PolicyFloorZero && discounted.IsNegative() {
		return money.Zero()
	}
	return discounted
}

// DiscountAmount is how much ApplyDiscount takes off total
func (p *PromoCode) DiscountAmount(total money.Money, policy DiscountPolicy) money.Money {
	return total.Sub(p.ApplyDiscount(total, policy))
}
