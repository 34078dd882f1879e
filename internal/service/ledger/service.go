// Package ledger owns the farmers, milk deliveries, payments and lactometer
// rate table, and derives amounts and balances from them.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// Stable storage keys for the persisted collections.
const (
	KeyFarmers    = "farmers"
	KeyDeliveries = "deliveries"
	KeyPayments   = "payments"
	KeyRates      = "rates"
)

// UnknownFarmerName is shown for records whose farmer cannot be resolved.
const UnknownFarmerName = "Unknown Farmer"

// Service is the in-memory ledger. Every mutation is followed by a full write
// of the affected collections; reads are recomputed from the current state.
type Service struct {
	mu         sync.RWMutex
	store      repository.Store
	logger     *zap.Logger
	newID      func() string
	currency   string
	farmers    []models.Farmer
	deliveries []models.DeliveryRecord
	payments   []models.PaymentRecord
	rates      models.RateTable
}

// Option customises a Service.
type Option func(*Service)

// WithCurrency sets the label shown before amounts in transaction details.
func WithCurrency(label string) Option {
	return func(s *Service) { s.currency = label }
}

// NewService loads every collection from store. Unreadable or malformed blobs
// are logged and replaced by empty collections or the default rate table.
func NewService(ctx context.Context, store repository.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:  store,
		logger: logger,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.farmers = loadBlob(ctx, s, KeyFarmers, []models.Farmer{})
	s.deliveries = loadBlob(ctx, s, KeyDeliveries, []models.DeliveryRecord{})
	s.payments = loadBlob(ctx, s, KeyPayments, []models.PaymentRecord{})
	s.rates = loadBlob(ctx, s, KeyRates, DefaultRates())
	if s.rates == nil {
		s.rates = DefaultRates()
	}

	s.logger.Info("ledger loaded",
		zap.Int("farmers", len(s.farmers)),
		zap.Int("deliveries", len(s.deliveries)),
		zap.Int("payments", len(s.payments)),
		zap.Int("rates", len(s.rates)))

	return s
}

func loadBlob[T any](ctx context.Context, s *Service, key string, fallback T) T {
	data, err := s.store.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("failed to read stored collection, using defaults", zap.String("key", key), zap.Error(err))
		}
		return fallback
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("malformed stored collection, using defaults", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return out
}

// persist writes one collection. Callers must hold s.mu.
func (s *Service) persist(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Write(ctx, key, data); err != nil {
		s.logger.Error("failed to persist collection", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// AddFarmer registers a new farmer.
func (s *Service) AddFarmer(ctx context.Context, name, address, phone string) (models.Farmer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	farmer := models.Farmer{ID: s.newID(), Name: name, Address: address, Phone: phone}
	s.farmers = append(s.farmers, farmer)

	s.logger.Info("farmer added", zap.String("farmer_id", farmer.ID), zap.String("name", name))
	return farmer, s.persist(ctx, KeyFarmers, s.farmers)
}

// DeleteFarmer removes the farmer along with every delivery and payment that
// references it. It reports whether anything was removed.
func (s *Service) DeleteFarmer(ctx context.Context, farmerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	farmers := filter(s.farmers, func(f models.Farmer) bool { return f.ID != farmerID })
	deliveries := filter(s.deliveries, func(r models.DeliveryRecord) bool { return r.FarmerID != farmerID })
	payments := filter(s.payments, func(p models.PaymentRecord) bool { return p.FarmerID != farmerID })

	removedFarmer := len(farmers) != len(s.farmers)
	removedDeliveries := len(s.deliveries) - len(deliveries)
	removedPayments := len(s.payments) - len(payments)

	s.farmers, s.deliveries, s.payments = farmers, deliveries, payments

	if !removedFarmer && removedDeliveries == 0 && removedPayments == 0 {
		return false, nil
	}

	s.logger.Info("farmer deleted",
		zap.String("farmer_id", farmerID),
		zap.Int("deliveries_removed", removedDeliveries),
		zap.Int("payments_removed", removedPayments))

	var errs []error
	if removedFarmer {
		errs = append(errs, s.persist(ctx, KeyFarmers, s.farmers))
	}
	if removedDeliveries > 0 {
		errs = append(errs, s.persist(ctx, KeyDeliveries, s.deliveries))
	}
	if removedPayments > 0 {
		errs = append(errs, s.persist(ctx, KeyPayments, s.payments))
	}
	return true, errors.Join(errs...)
}

// DeliveryInput carries the raw quantities of a day's collection.
type DeliveryInput struct {
	FarmerID          string
	Date              time.Time
	MorningLiters     *float64
	MorningLactometer *float64
	EveningLiters     *float64
	EveningLactometer *float64
}

// RecordDelivery prices the input against the current rate table and stores
// it. The returned record is kept in memory even when persisting fails.
func (s *Service) RecordDelivery(ctx context.Context, in DeliveryInput) (models.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	morning, evening, total := ComputeDeliveryAmounts(in.MorningLiters, in.MorningLactometer, in.EveningLiters, in.EveningLactometer, s.rates)
	record := models.DeliveryRecord{
		ID:                s.newID(),
		FarmerID:          in.FarmerID,
		Date:              models.Day(in.Date),
		MorningLiters:     in.MorningLiters,
		MorningLactometer: in.MorningLactometer,
		EveningLiters:     in.EveningLiters,
		EveningLactometer: in.EveningLactometer,
		MorningAmount:     morning,
		EveningAmount:     evening,
		TotalDailyAmount:  total,
	}
	s.deliveries = append(s.deliveries, record)

	s.logger.Debug("delivery recorded",
		zap.String("record_id", record.ID),
		zap.String("farmer_id", record.FarmerID),
		zap.Float64("total", total))
	return record, s.persist(ctx, KeyDeliveries, s.deliveries)
}

// RecordPayment stores a cash payment to a farmer.
func (s *Service) RecordPayment(ctx context.Context, farmerID string, date time.Time, amount float64, notes string) (models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment := models.PaymentRecord{
		ID:       s.newID(),
		FarmerID: farmerID,
		Date:     models.Day(date),
		Amount:   amount,
		Notes:    notes,
	}
	s.payments = append(s.payments, payment)

	s.logger.Debug("payment recorded",
		zap.String("record_id", payment.ID),
		zap.String("farmer_id", farmerID),
		zap.Float64("amount", amount))
	return payment, s.persist(ctx, KeyPayments, s.payments)
}

// DeleteDeliveryRecord removes a single delivery.
func (s *Service) DeleteDeliveryRecord(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := filter(s.deliveries, func(r models.DeliveryRecord) bool { return r.ID != id })
	if len(kept) == len(s.deliveries) {
		return false, nil
	}
	s.deliveries = kept
	return true, s.persist(ctx, KeyDeliveries, s.deliveries)
}

// DeletePaymentRecord removes a single payment.
func (s *Service) DeletePaymentRecord(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := filter(s.payments, func(p models.PaymentRecord) bool { return p.ID != id })
	if len(kept) == len(s.payments) {
		return false, nil
	}
	s.payments = kept
	return true, s.persist(ctx, KeyPayments, s.payments)
}

// UpdateRate sets the price for a reading. Existing deliveries keep the
// amounts they were priced at.
func (s *Service) UpdateRate(ctx context.Context, reading int, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rates[reading] = rate
	s.logger.Info("rate updated", zap.Int("reading", reading), zap.Float64("rate", rate))
	return s.persist(ctx, KeyRates, s.rates)
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
