package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bazaar-backend/internal/model"
)

func newTestCalculator() *Calculator {
	return NewCalculator(DefaultConfig())
}

func TestCalculator_PricingExample(t *testing.T) {
	// 2 units at 5000 delivered 5km away: base 1500 plus 2km beyond the
	// free radius at 1500/km, 5% platform fee, no discount.
	calc := newTestCalculator()

	totalAmount := calc.ItemTotal(5000, 2, nil)
	assert.Equal(t, int64(10000), totalAmount)

	deliveryFee := calc.DeliveryFee(5.0, 1)
	assert.Equal(t, int64(4500), deliveryFee)

	platformFee := calc.PlatformFee(totalAmount, 0)
	assert.Equal(t, int64(500), platformFee)

	finalAmount := totalAmount - 0 + deliveryFee + platformFee
	assert.Equal(t, int64(15000), finalAmount)
}

func TestCalculator_ItemTotal_WithAddOns(t *testing.T) {
	calc := newTestCalculator()

	// (5000 + 500 + 1000) * 2
	total := calc.ItemTotal(5000, 2, []int64{500, 1000})
	assert.Equal(t, int64(13000), total)
}

func TestCalculator_DeliveryFee(t *testing.T) {
	calc := newTestCalculator()

	tests := []struct {
		name          string
		distanceKm    float64
		businessCount int
		want          int64
	}{
		{"inside free radius", 2.0, 1, 1500},
		{"exactly at free radius", 3.0, 1, 1500},
		{"beyond free radius", 5.0, 1, 4500},
		{"fractional distance rounds", 4.5, 1, 3750},
		{"two businesses add surcharge", 2.0, 2, 3500},
		{"three businesses add two surcharges", 5.0, 3, 8500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.DeliveryFee(tt.distanceKm, tt.businessCount))
		})
	}
}

func TestCalculator_PlatformFee_ClampsNegativeBase(t *testing.T) {
	calc := newTestCalculator()

	// Discount exceeding the subtotal must not produce a negative fee.
	assert.Equal(t, int64(0), calc.PlatformFee(1000, 2000))
}

func TestCalculator_DriverSplit_Reconstruction(t *testing.T) {
	calc := newTestCalculator()

	// Earnings plus platform cut must reconstruct the fee exactly for any
	// delivery fee, including amounts that round.
	for _, fee := range []int64{0, 1, 99, 1500, 4500, 4501, 7333, 100000} {
		earnings, platformCut := calc.DriverSplit(fee)
		assert.Equal(t, fee, earnings+platformCut, "fee %d", fee)
		assert.GreaterOrEqual(t, earnings, int64(0))
		assert.GreaterOrEqual(t, platformCut, int64(0))
	}

	// 20% cut on 4500: driver keeps 3600.
	earnings, platformCut := calc.DriverSplit(4500)
	assert.Equal(t, int64(3600), earnings)
	assert.Equal(t, int64(900), platformCut)
}

func TestCalculator_CommissionSplit_Reconstruction(t *testing.T) {
	calc := newTestCalculator()

	for _, revenue := range []int64{0, 1, 9999, 10000, 12345} {
		commission, payout := calc.CommissionSplit(revenue)
		assert.Equal(t, revenue, commission+payout, "revenue %d", revenue)
	}
}

func TestCalculator_PartnerDiscount(t *testing.T) {
	calc := newTestCalculator()

	// 10% of the subtotal, bounded by the cap.
	assert.Equal(t, int64(1000), calc.PartnerDiscount(10000))
	assert.Equal(t, int64(5000), calc.PartnerDiscount(100000))
	assert.Equal(t, int64(0), calc.PartnerDiscount(0))
}

func TestCalculator_PointsEarned(t *testing.T) {
	calc := newTestCalculator()

	tests := []struct {
		amount int64
		want   int
	}{
		{0, 0},
		{999, 0},     // under 10 major units accrues nothing
		{1000, 1},    // 10 major units
		{15000, 15},  // worked delivery example
		{15099, 15},  // fraction floors
		{100000, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, calc.PointsEarned(tt.amount), "amount %d", tt.amount)
	}
}

func TestCalculator_PointsValue(t *testing.T) {
	calc := newTestCalculator()

	assert.Equal(t, int64(0), calc.PointsValue(0))
	assert.Equal(t, int64(10000), calc.PointsValue(100))
}

func TestCalculator_CancellationFee_Tiers(t *testing.T) {
	calc := newTestCalculator()

	tests := []struct {
		status model.OrderStatus
		want   int64
	}{
		{model.StatusPending, 0},
		{model.StatusAccepted, 1500},
		{model.StatusPreparing, 1500},
		{model.StatusWaitingDriver, 3000},
		{model.StatusInDelivery, 3000},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, calc.CancellationFee(15000, tt.status))
		})
	}
}

func TestCalculator_WalletTopUpFee(t *testing.T) {
	calc := newTestCalculator()

	assert.Equal(t, int64(100), calc.WalletTopUpFee(10000))
	assert.Equal(t, int64(0), calc.WalletTopUpFee(0))
}

func TestCalculator_Tax(t *testing.T) {
	calc := newTestCalculator()

	assert.Equal(t, int64(1200), calc.Tax(10000))
}
