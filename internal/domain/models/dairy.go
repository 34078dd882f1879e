package models

import "time"

// DateLayout is the calendar-day format used on the wire and in reports.
const DateLayout = "2006-01-02"

// Farmer is a milk supplier.
type Farmer struct {
	ID      string `json:"id" bson:"id"`
	Name    string `json:"name" bson:"name"`
	Address string `json:"address" bson:"address"`
	Phone   string `json:"phone" bson:"phone"`
}

// DeliveryRecord captures one day of milk collected from a farmer. The amount
// fields are priced once, when the record is created, and never recomputed.
type DeliveryRecord struct {
	ID                string    `json:"id"`
	FarmerID          string    `json:"farmerId"`
	Date              time.Time `json:"date"`
	MorningLiters     *float64  `json:"morningLiters,omitempty"`
	MorningLactometer *float64  `json:"morningLactometer,omitempty"`
	EveningLiters     *float64  `json:"eveningLiters,omitempty"`
	EveningLactometer *float64  `json:"eveningLactometer,omitempty"`
	MorningAmount     float64   `json:"morningAmount"`
	EveningAmount     float64   `json:"eveningAmount"`
	TotalDailyAmount  float64   `json:"totalDailyAmount"`
}

// Liters returns the combined morning and evening quantity.
func (r DeliveryRecord) Liters() float64 {
	return Value(r.MorningLiters) + Value(r.EveningLiters)
}

// PaymentRecord is a cash payment that reduces what is owed to a farmer.
type PaymentRecord struct {
	ID       string    `json:"id"`
	FarmerID string    `json:"farmerId"`
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Notes    string    `json:"notes,omitempty"`
}

// RateTable maps a whole lactometer reading to a price per liter.
type RateTable map[int]float64

// Clone returns an independent copy of the table.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a calendar day.
func ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// Value dereferences an optional quantity, treating nil as zero.
func Value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
