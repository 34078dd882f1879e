package ledger

import (
	"math"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

const (
	defaultMinReading = 20
	defaultMaxReading = 40
	defaultRate       = 30
)

// DefaultRates returns the table used when no rates have been stored yet.
func DefaultRates() models.RateTable {
	rates := make(models.RateTable, defaultMaxReading-defaultMinReading+1)
	for reading := defaultMinReading; reading <= defaultMaxReading; reading++ {
		rates[reading] = defaultRate
	}
	return rates
}

// RoundReading rounds a lactometer reading to the nearest whole number, halves up.
func RoundReading(reading float64) int {
	return int(math.Floor(reading + 0.5))
}

// RateFor looks up the price per liter for reading. Readings missing from the
// table are priced at zero.
func RateFor(rates models.RateTable, reading float64) float64 {
	return rates[RoundReading(reading)]
}

// ComputeDeliveryAmounts prices a day's milk. Absent liters or readings count as zero.
func ComputeDeliveryAmounts(morningLiters, morningReading, eveningLiters, eveningReading *float64, rates models.RateTable) (morning, evening, total float64) {
	morning = models.Value(morningLiters) * RateFor(rates, models.Value(morningReading))
	evening = models.Value(eveningLiters) * RateFor(rates, models.Value(eveningReading))
	return morning, evening, morning + evening
}
