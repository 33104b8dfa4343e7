package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNightsBetween(t *testing.T) {
	checkIn := time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, nightsBetween(checkIn, checkIn.Add(72*time.Hour)))
	assert.Equal(t, 1, nightsBetween(checkIn, checkIn.Add(24*time.Hour)))
	// A stay shorter than a full day still bills one night.
	assert.Equal(t, 1, nightsBetween(checkIn, checkIn.Add(6*time.Hour)))
}

func TestHotelAmount(t *testing.T) {
	// 50 per night x 2 rooms x 3 nights
	assert.Equal(t, "300.00", hotelAmount(50, 2, 3).StringFixed(2))
	assert.Equal(t, "149.97", hotelAmount(49.99, 1, 3).StringFixed(2))
}

func TestPurchaseLine(t *testing.T) {
	assert.Equal(t, "59.98", purchaseLine(29.99, 2).StringFixed(2))
}

func TestRentalLine_AppliesSurcharge(t *testing.T) {
	// 10 per day x 1 unit x 5 days = 50, plus the 12% rental surcharge.
	assert.Equal(t, "56.00", rentalLine(10, 1, 5).StringFixed(2))
	// Full precision is kept until the final rounding: 19.98 x 1.12 =
	// 22.3776, rounded once at the end.
	assert.Equal(t, "22.38", rentalLine(9.99, 2, 1).StringFixed(2))
}
