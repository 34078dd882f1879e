package models

import "time"

// TransactionKind distinguishes merged ledger entries.
type TransactionKind string

const (
	KindMilk    TransactionKind = "milk"
	KindPayment TransactionKind = "payment"
)

// Transaction is a signed ledger entry: milk deliveries are positive, payments negative.
type Transaction struct {
	ID         string          `json:"id"`
	Kind       TransactionKind `json:"kind"`
	Date       time.Time       `json:"date"`
	FarmerID   string          `json:"farmerId"`
	FarmerName string          `json:"farmerName"`
	Amount     float64         `json:"amount"`
	Details    string          `json:"details"`
}

// FarmerSummary aggregates a farmer's account.
type FarmerSummary struct {
	FarmerID       string  `json:"farmerId" bson:"farmer_id"`
	Name           string  `json:"name" bson:"name"`
	TotalMilkValue float64 `json:"totalMilkValue" bson:"total_milk_value"`
	TotalPayments  float64 `json:"totalPayments" bson:"total_payments"`
	Balance        float64 `json:"balance" bson:"balance"`
}

// SummaryTotals sums every farmer summary.
type SummaryTotals struct {
	TotalMilkValue float64 `json:"totalMilkValue" bson:"total_milk_value"`
	TotalPayments  float64 `json:"totalPayments" bson:"total_payments"`
	Balance        float64 `json:"balance" bson:"balance"`
}

// SummarySnapshot is the archived state of all farmer accounts at a point in time.
type SummarySnapshot struct {
	TakenAt  time.Time       `bson:"taken_at" json:"taken_at"`
	Farmers  []FarmerSummary `bson:"farmers" json:"farmers"`
	Totals   SummaryTotals   `bson:"totals" json:"totals"`
	Currency string          `bson:"currency" json:"currency"`
}
