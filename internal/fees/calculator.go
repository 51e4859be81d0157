// Package fees contains the pure fee and pricing arithmetic of the
// marketplace. All amounts are integer minor currency units; percentage and
// per-unit rates are computed with decimals and rounded back to minor units.
// Nothing in this package performs I/O.
package fees

import (
	"github.com/shopspring/decimal"

	"bazaar-backend/internal/model"
)

// Config holds every tunable rate the calculator applies.
type Config struct {
	// PlatformFeePercent is charged on the discounted subtotal.
	PlatformFeePercent decimal.Decimal
	// DeliveryBaseFee is the flat component of every delivery fee.
	DeliveryBaseFee int64
	// PerKmFee is charged per kilometre beyond FreeRadiusKm.
	PerKmFee int64
	// FreeRadiusKm is the distance covered by the base fee alone.
	FreeRadiusKm float64
	// MultiBusinessSurcharge is added per distinct business beyond the first.
	MultiBusinessSurcharge int64
	// DriverCutPercent is the platform's share of the delivery fee.
	DriverCutPercent decimal.Decimal
	// CommissionPercent is the platform's share of business item revenue.
	CommissionPercent decimal.Decimal
	// TaxPercent applies to taxable amounts.
	TaxPercent decimal.Decimal
	// PartnerDiscountPercent applies to the subtotal of non-subscriber orders.
	PartnerDiscountPercent decimal.Decimal
	// PartnerDiscountCap bounds the partner discount, 0 meaning no cap.
	PartnerDiscountCap int64
	// PointsPerMajorUnit is the points accrual rate per major currency unit.
	PointsPerMajorUnit decimal.Decimal
	// PointValue is the redemption value of one point in minor units.
	PointValue int64
	// CancellationPercent applies once an order has been accepted; it is
	// doubled once a driver is waiting or delivering.
	CancellationPercent decimal.Decimal
	// WalletTopUpFeePercent is retained on wallet top-ups.
	WalletTopUpFeePercent decimal.Decimal
	// MinorUnitsPerMajor converts between minor and major currency units.
	MinorUnitsPerMajor int64
}

// DefaultConfig returns the production rates.
func DefaultConfig() Config {
	return Config{
		PlatformFeePercent:     decimal.NewFromInt(5),
		DeliveryBaseFee:        1500,
		PerKmFee:               1500,
		FreeRadiusKm:           3,
		MultiBusinessSurcharge: 2000,
		DriverCutPercent:       decimal.NewFromInt(20),
		CommissionPercent:      decimal.NewFromInt(10),
		TaxPercent:             decimal.NewFromInt(12),
		PartnerDiscountPercent: decimal.NewFromInt(10),
		PartnerDiscountCap:     5000,
		PointsPerMajorUnit:     decimal.NewFromFloat(0.1),
		PointValue:             100,
		CancellationPercent:    decimal.NewFromInt(10),
		WalletTopUpFeePercent:  decimal.NewFromInt(1),
		MinorUnitsPerMajor:     100,
	}
}

// Calculator computes fees from plain values. It is safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// FreeRadiusKm exposes the distance threshold used by the subscription
// delivery-fee override.
func (c *Calculator) FreeRadiusKm() float64 {
	return c.cfg.FreeRadiusKm
}

var hundred = decimal.NewFromInt(100)

// percentOf returns pct% of amount, rounded to the nearest minor unit.
func percentOf(amount int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(pct).Div(hundred).Round(0).IntPart()
}

// ItemTotal computes the snapshot total of one line item:
// unit price times quantity plus each selected add-on times quantity.
func (c *Calculator) ItemTotal(unitPrice int64, quantity int, addOnPrices []int64) int64 {
	total := unitPrice * int64(quantity)
	for _, p := range addOnPrices {
		total += p * int64(quantity)
	}
	return total
}

// PlatformFee is the marketplace surcharge on the discounted subtotal.
func (c *Calculator) PlatformFee(subtotal, discount int64) int64 {
	base := subtotal - discount
	if base < 0 {
		base = 0
	}
	return percentOf(base, c.cfg.PlatformFeePercent)
}

// DeliveryFee is the base fee, plus the per-km rate for every kilometre
// beyond the free radius, plus the multi-establishment surcharge for every
// distinct business beyond the first. Fractional kilometres beyond the
// radius are billed pro rata and rounded to the nearest minor unit.
func (c *Calculator) DeliveryFee(distanceKm float64, businessCount int) int64 {
	fee := c.cfg.DeliveryBaseFee
	if distanceKm > c.cfg.FreeRadiusKm {
		extra := decimal.NewFromFloat(distanceKm - c.cfg.FreeRadiusKm)
		fee += extra.Mul(decimal.NewFromInt(c.cfg.PerKmFee)).Round(0).IntPart()
	}
	if businessCount > 1 {
		fee += int64(businessCount-1) * c.cfg.MultiBusinessSurcharge
	}
	return fee
}

// DriverSplit divides a delivery fee between driver earnings and the
// platform cut. The two parts always reconstruct the original fee exactly;
// rounding loss lands on the platform side.
func (c *Calculator) DriverSplit(deliveryFee int64) (earnings, platformCut int64) {
	earnings = decimal.NewFromInt(deliveryFee).
		Mul(hundred.Sub(c.cfg.DriverCutPercent)).
		Div(hundred).
		Round(0).
		IntPart()
	return earnings, deliveryFee - earnings
}

// CommissionSplit divides business item revenue between the platform
// commission and the business payout. Payout plus commission always equal
// the original amount.
func (c *Calculator) CommissionSplit(itemRevenue int64) (commission, payout int64) {
	commission = percentOf(itemRevenue, c.cfg.CommissionPercent)
	return commission, itemRevenue - commission
}

// PartnerDiscount computes the standard discount on a subtotal, bounded by
// the configured cap. It is skipped entirely when the subscription override
// applies.
func (c *Calculator) PartnerDiscount(subtotal int64) int64 {
	d := percentOf(subtotal, c.cfg.PartnerDiscountPercent)
	if c.cfg.PartnerDiscountCap > 0 && d > c.cfg.PartnerDiscountCap {
		d = c.cfg.PartnerDiscountCap
	}
	return d
}

// Tax computes tax on an amount.
func (c *Calculator) Tax(amount int64) int64 {
	return percentOf(amount, c.cfg.TaxPercent)
}

// PointsEarned is the loyalty accrual for a settled amount: the floor of
// the amount in major units times the accrual rate.
func (c *Calculator) PointsEarned(amount int64) int {
	major := decimal.NewFromInt(amount).Div(decimal.NewFromInt(c.cfg.MinorUnitsPerMajor))
	return int(major.Mul(c.cfg.PointsPerMajorUnit).Floor().IntPart())
}

// PointsValue is the monetary value of redeemed points in minor units.
func (c *Calculator) PointsValue(points int) int64 {
	return int64(points) * c.cfg.PointValue
}

// CancellationFee is tiered by how far the order had progressed: free while
// pending, the standard rate once accepted or preparing, and double once a
// driver is waiting or already delivering.
func (c *Calculator) CancellationFee(finalAmount int64, status model.OrderStatus) int64 {
	switch status {
	case model.StatusPending:
		return 0
	case model.StatusAccepted, model.StatusPreparing:
		return percentOf(finalAmount, c.cfg.CancellationPercent)
	case model.StatusWaitingDriver, model.StatusInDelivery:
		return percentOf(finalAmount, c.cfg.CancellationPercent.Mul(decimal.NewFromInt(2)))
	default:
		return 0
	}
}

// WalletTopUpFee is retained by the platform on wallet top-ups.
func (c *Calculator) WalletTopUpFee(amount int64) int64 {
	return percentOf(amount, c.cfg.WalletTopUpFeePercent)
}
