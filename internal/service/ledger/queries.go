package ledger

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// RateFor returns the current price per liter for reading.
func (s *Service) RateFor(reading float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RateFor(s.rates, reading)
}

// Rates returns a copy of the current rate table.
func (s *Service) Rates() models.RateTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates.Clone()
}

// Farmers lists farmers ordered by name.
func (s *Service) Farmers() []models.Farmer {
	s.mu.RLock()
	out := slices.Clone(s.farmers)
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Farmer) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

// Farmer looks up a farmer by id.
func (s *Service) Farmer(id string) (models.Farmer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findFarmer(id)
}

func (s *Service) findFarmer(id string) (models.Farmer, bool) {
	for _, f := range s.farmers {
		if f.ID == id {
			return f, true
		}
	}
	return models.Farmer{}, false
}

// Deliveries returns every delivery in insertion order.
func (s *Service) Deliveries() []models.DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.deliveries)
}

// Payments returns every payment in insertion order.
func (s *Service) Payments() []models.PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.payments)
}

// BalanceOf is the farmer's delivered milk value minus payments received.
// Positive means the collector owes the farmer.
func (s *Service) BalanceOf(farmerID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	milk, paid := s.totalsFor(farmerID)
	return milk - paid
}

func (s *Service) totalsFor(farmerID string) (milk, paid float64) {
	for _, r := range s.deliveries {
		if r.FarmerID == farmerID {
			milk += r.TotalDailyAmount
		}
	}
	for _, p := range s.payments {
		if p.FarmerID == farmerID {
			paid += p.Amount
		}
	}
	return milk, paid
}

// HistoryOf returns the farmer's deliveries and payments, most recent first.
func (s *Service) HistoryOf(farmerID string) ([]models.DeliveryRecord, []models.PaymentRecord) {
	s.mu.RLock()
	deliveries := filter(s.deliveries, func(r models.DeliveryRecord) bool { return r.FarmerID == farmerID })
	payments := filter(s.payments, func(p models.PaymentRecord) bool { return p.FarmerID == farmerID })
	s.mu.RUnlock()

	slices.SortStableFunc(deliveries, func(a, b models.DeliveryRecord) int { return b.Date.Compare(a.Date) })
	slices.SortStableFunc(payments, func(a, b models.PaymentRecord) int { return b.Date.Compare(a.Date) })
	return deliveries, payments
}

// AllTransactions merges deliveries and payments into one signed list, most
// recent first.
func (s *Service) AllTransactions() []models.Transaction {
	s.mu.RLock()
	names := make(map[string]string, len(s.farmers))
	for _, f := range s.farmers {
		names[f.ID] = f.Name
	}

	out := make([]models.Transaction, 0, len(s.deliveries)+len(s.payments))
	for _, r := range s.deliveries {
		out = append(out, DeliveryTransaction(r, farmerName(names, r.FarmerID), s.currency))
	}
	for _, p := range s.payments {
		out = append(out, PaymentTransaction(p, farmerName(names, p.FarmerID)))
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Transaction) int { return b.Date.Compare(a.Date) })
	return out
}

// Summaries aggregates every farmer's account, ordered by name.
func (s *Service) Summaries() []models.FarmerSummary {
	farmers := s.Farmers()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FarmerSummary, 0, len(farmers))
	for _, f := range farmers {
		milk, paid := s.totalsFor(f.ID)
		out = append(out, models.FarmerSummary{
			FarmerID:       f.ID,
			Name:           f.Name,
			TotalMilkValue: milk,
			TotalPayments:  paid,
			Balance:        milk - paid,
		})
	}
	return out
}

func farmerName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return UnknownFarmerName
}

// DeliveryTransaction converts a delivery into a positive ledger entry. The
// currency label, when set, prefixes the amounts in the detail line.
func DeliveryTransaction(r models.DeliveryRecord, farmer, currency string) models.Transaction {
	return models.Transaction{
		ID:         r.ID,
		Kind:       models.KindMilk,
		Date:       r.Date,
		FarmerID:   r.FarmerID,
		FarmerName: farmer,
		Amount:     r.TotalDailyAmount,
		Details: fmt.Sprintf("Morning: %sL @ %s (%s), Evening: %sL @ %s (%s)",
			num(r.MorningLiters), num(r.MorningLactometer), priced(currency, r.MorningAmount),
			num(r.EveningLiters), num(r.EveningLactometer), priced(currency, r.EveningAmount)),
	}
}

// PaymentTransaction converts a payment into a negative ledger entry.
func PaymentTransaction(p models.PaymentRecord, farmer string) models.Transaction {
	notes := p.Notes
	if notes == "" {
		notes = "N/A"
	}
	return models.Transaction{
		ID:         p.ID,
		Kind:       models.KindPayment,
		Date:       p.Date,
		FarmerID:   p.FarmerID,
		FarmerName: farmer,
		Amount:     -p.Amount,
		Details:    "Payment made. Notes: " + notes,
	}
}

func priced(currency string, v float64) string {
	amount := strconv.FormatFloat(v, 'f', 2, 64)
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

func num(v *float64) string {
	return strconv.FormatFloat(models.Value(v), 'f', -1, 64)
}
