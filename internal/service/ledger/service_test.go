package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/repository/memory"
)

type failingStore struct {
	*memory.Store
	failWrites bool
	readErr    map[string]error
}

func (f *failingStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err, ok := f.readErr[key]; ok {
		return nil, err
	}
	return f.Store.Read(ctx, key)
}

func (f *failingStore) Write(ctx context.Context, key string, data []byte) error {
	if f.failWrites {
		return errors.New("disk full")
	}
	return f.Store.Write(ctx, key, data)
}

func newTestService(t *testing.T, store repository.Store) *Service {
	t.Helper()
	s := NewService(context.Background(), store, nil)
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func day(value string) time.Time {
	d, err := models.ParseDay(value)
	if err != nil {
		panic(err)
	}
	return d
}

func mustFarmer(t *testing.T, s *Service, name string) models.Farmer {
	t.Helper()
	f, err := s.AddFarmer(context.Background(), name, "Village Road", "98450")
	if err != nil {
		t.Fatalf("add farmer: %v", err)
	}
	return f
}

func mustDelivery(t *testing.T, s *Service, in DeliveryInput) models.DeliveryRecord {
	t.Helper()
	r, err := s.RecordDelivery(context.Background(), in)
	if err != nil {
		t.Fatalf("record delivery: %v", err)
	}
	return r
}

func mustPayment(t *testing.T, s *Service, farmerID, date string, amount float64) models.PaymentRecord {
	t.Helper()
	p, err := s.RecordPayment(context.Background(), farmerID, day(date), amount, "")
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	return p
}

func TestNewServiceDefaults(t *testing.T) {
	s := newTestService(t, memory.New())
	if len(s.Farmers()) != 0 || len(s.Deliveries()) != 0 || len(s.Payments()) != 0 {
		t.Fatalf("expected empty collections")
	}
	if s.RateFor(30) != 30 || s.RateFor(41) != 0 {
		t.Fatalf("expected default rate table")
	}
}

func TestNewServiceRecoversFromBadBlobs(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.New(), readErr: map[string]error{KeyPayments: errors.New("io error")}}
	_ = store.Store.Write(ctx, KeyFarmers, []byte(`[{"id":"f1","name":"Ravi"}]`))
	_ = store.Store.Write(ctx, KeyDeliveries, []byte(`{not json`))
	_ = store.Store.Write(ctx, KeyRates, []byte(`"oops"`))

	s := newTestService(t, store)
	if got := s.Farmers(); len(got) != 1 || got[0].Name != "Ravi" {
		t.Fatalf("farmers not loaded: %v", got)
	}
	if len(s.Deliveries()) != 0 || len(s.Payments()) != 0 {
		t.Fatalf("expected empty fallbacks")
	}
	if len(s.Rates()) != 21 {
		t.Fatalf("expected default rates, got %v", s.Rates())
	}
}

func TestNullRatesBlobFallsBackToDefaults(t *testing.T) {
	store := memory.New()
	_ = store.Write(context.Background(), KeyRates, []byte(`null`))
	s := newTestService(t, store)
	if err := s.UpdateRate(context.Background(), 41, 35); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	if s.RateFor(20) != 30 || s.RateFor(41) != 35 {
		t.Fatalf("unexpected rates: %v", s.Rates())
	}
}

func TestDeliveryScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, memory.New())
	if err := s.UpdateRate(ctx, 20, 25); err != nil {
		t.Fatal(err)
	}
	f := mustFarmer(t, s, "Ravi")

	r := mustDelivery(t, s, DeliveryInput{
		FarmerID:          f.ID,
		Date:              day("2024-05-01"),
		MorningLiters:     models.Float(10),
		MorningLactometer: models.Float(20),
		EveningLiters:     models.Float(5),
		EveningLactometer: models.Float(25),
	})
	if r.MorningAmount != 250 || r.EveningAmount != 150 || r.TotalDailyAmount != 400 {
		t.Fatalf("unexpected amounts: %+v", r)
	}

	mustPayment(t, s, f.ID, "2024-05-02", 150)
	if got := s.BalanceOf(f.ID); got != 250 {
		t.Fatalf("balance = %v, want 250", got)
	}
	if got := s.BalanceOf(f.ID); got != 250 {
		t.Fatalf("balance not idempotent: %v", got)
	}
}

func TestRecordDeliveryWithoutQuantitiesStoresZeros(t *testing.T) {
	s := newTestService(t, memory.New())
	r := mustDelivery(t, s, DeliveryInput{FarmerID: "missing", Date: day("2024-05-01")})
	if r.TotalDailyAmount != 0 || r.ID == "" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if len(s.Deliveries()) != 1 {
		t.Fatalf("record not stored")
	}
}

func TestUpdateRateDoesNotRepriceHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, memory.New())
	f := mustFarmer(t, s, "Ravi")
	mustDelivery(t, s, DeliveryInput{FarmerID: f.ID, Date: day("2024-05-01"), MorningLiters: models.Float(10), MorningLactometer: models.Float(33)})

	if err := s.UpdateRate(ctx, 33, 50); err != nil {
		t.Fatal(err)
	}
	if got := s.BalanceOf(f.ID); got != 300 {
		t.Fatalf("balance = %v, want frozen 300", got)
	}

	r := mustDelivery(t, s, DeliveryInput{FarmerID: f.ID, Date: day("2024-05-02"), MorningLiters: models.Float(10), MorningLactometer: models.Float(33)})
	if r.TotalDailyAmount != 500 {
		t.Fatalf("new delivery total = %v, want 500", r.TotalDailyAmount)
	}
}

func TestDeleteFarmerCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newTestService(t, store)
	ravi := mustFarmer(t, s, "Ravi")
	sita := mustFarmer(t, s, "Sita")

	mustDelivery(t, s, DeliveryInput{FarmerID: ravi.ID, Date: day("2024-05-01"), MorningLiters: models.Float(1), MorningLactometer: models.Float(30)})
	mustDelivery(t, s, DeliveryInput{FarmerID: ravi.ID, Date: day("2024-05-02"), MorningLiters: models.Float(1), MorningLactometer: models.Float(30)})
	mustPayment(t, s, ravi.ID, "2024-05-03", 10)
	mustDelivery(t, s, DeliveryInput{FarmerID: sita.ID, Date: day("2024-05-01"), EveningLiters: models.Float(2), EveningLactometer: models.Float(30)})
	mustPayment(t, s, sita.ID, "2024-05-03", 20)

	removed, err := s.DeleteFarmer(ctx, ravi.ID)
	if err != nil || !removed {
		t.Fatalf("delete farmer: removed=%v err=%v", removed, err)
	}

	if _, ok := s.Farmer(ravi.ID); ok {
		t.Fatalf("farmer still present")
	}
	for _, r := range s.Deliveries() {
		if r.FarmerID == ravi.ID {
			t.Fatalf("orphan delivery %s", r.ID)
		}
	}
	for _, p := range s.Payments() {
		if p.FarmerID == ravi.ID {
			t.Fatalf("orphan payment %s", p.ID)
		}
	}
	if len(s.Deliveries()) != 1 || len(s.Payments()) != 1 || s.BalanceOf(sita.ID) != 40 {
		t.Fatalf("other farmer's records changed")
	}

	reloaded := NewService(ctx, store, nil)
	if len(reloaded.Farmers()) != 1 || len(reloaded.Deliveries()) != 1 || len(reloaded.Payments()) != 1 {
		t.Fatalf("cascade not persisted")
	}

	removed, err = s.DeleteFarmer(ctx, ravi.ID)
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
}

func TestDeleteSingleRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, memory.New())
	f := mustFarmer(t, s, "Ravi")
	r := mustDelivery(t, s, DeliveryInput{FarmerID: f.ID, Date: day("2024-05-01"), MorningLiters: models.Float(1), MorningLactometer: models.Float(30)})
	p := mustPayment(t, s, f.ID, "2024-05-01", 5)

	if ok, err := s.DeleteDeliveryRecord(ctx, r.ID); !ok || err != nil {
		t.Fatalf("delete delivery: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.DeleteDeliveryRecord(ctx, r.ID); ok {
		t.Fatalf("delivery deleted twice")
	}
	if ok, err := s.DeletePaymentRecord(ctx, p.ID); !ok || err != nil {
		t.Fatalf("delete payment: ok=%v err=%v", ok, err)
	}
	if _, ok := s.Farmer(f.ID); !ok {
		t.Fatalf("farmer removed by record delete")
	}
	if s.BalanceOf(f.ID) != 0 {
		t.Fatalf("balance = %v", s.BalanceOf(f.ID))
	}
}

func TestHistoryOfSortsDescending(t *testing.T) {
	s := newTestService(t, memory.New())
	ravi := mustFarmer(t, s, "Ravi")
	sita := mustFarmer(t, s, "Sita")

	for _, d := range []string{"2024-05-02", "2024-05-05", "2024-05-01", "2024-05-05"} {
		mustDelivery(t, s, DeliveryInput{FarmerID: ravi.ID, Date: day(d), MorningLiters: models.Float(1), MorningLactometer: models.Float(30)})
	}
	mustDelivery(t, s, DeliveryInput{FarmerID: sita.ID, Date: day("2024-05-09"), MorningLiters: models.Float(1), MorningLactometer: models.Float(30)})
	mustPayment(t, s, ravi.ID, "2024-04-30", 5)
	mustPayment(t, s, ravi.ID, "2024-05-03", 5)

	deliveries, payments := s.HistoryOf(ravi.ID)
	if len(deliveries) != 4 || len(payments) != 2 {
		t.Fatalf("unexpected history sizes: %d %d", len(deliveries), len(payments))
	}
	want := []string{"2024-05-05", "2024-05-05", "2024-05-02", "2024-05-01"}
	for i, r := range deliveries {
		if r.FarmerID != ravi.ID || r.Date.Format(models.DateLayout) != want[i] {
			t.Fatalf("delivery %d: %s %s", i, r.FarmerID, r.Date.Format(models.DateLayout))
		}
	}
	if deliveries[0].ID != "id-4" || deliveries[1].ID != "id-6" {
		t.Fatalf("ties not stable: %s %s", deliveries[0].ID, deliveries[1].ID)
	}
	if payments[0].Date.Format(models.DateLayout) != "2024-05-03" {
		t.Fatalf("payments not sorted: %v", payments)
	}
}

func TestAllTransactions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	orphans := []models.PaymentRecord{{ID: "orphan", FarmerID: "gone", Date: day("2024-05-04"), Amount: 7}}
	data, _ := json.Marshal(orphans)
	_ = store.Write(ctx, KeyPayments, data)

	s := newTestService(t, store)
	f := mustFarmer(t, s, "Ravi")
	mustDelivery(t, s, DeliveryInput{FarmerID: f.ID, Date: day("2024-05-01"), MorningLiters: models.Float(10), MorningLactometer: models.Float(30)})
	mustPayment(t, s, f.ID, "2024-05-03", 100)

	txs := s.AllTransactions()
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	if txs[0].ID != "orphan" || txs[0].FarmerName != UnknownFarmerName || txs[0].Amount != -7 {
		t.Fatalf("unexpected first tx: %+v", txs[0])
	}
	if txs[1].Kind != models.KindPayment || txs[1].Amount != -100 || txs[1].FarmerName != "Ravi" {
		t.Fatalf("unexpected payment tx: %+v", txs[1])
	}
	if txs[1].Details != "Payment made. Notes: N/A" {
		t.Fatalf("unexpected payment details: %q", txs[1].Details)
	}
	if txs[2].Kind != models.KindMilk || txs[2].Amount != 300 {
		t.Fatalf("unexpected milk tx: %+v", txs[2])
	}
	if txs[2].Details != "Morning: 10L @ 30 (300.00), Evening: 0L @ 0 (0.00)" {
		t.Fatalf("unexpected milk details: %q", txs[2].Details)
	}
}

func TestSummariesSortedByName(t *testing.T) {
	s := newTestService(t, memory.New())
	zed := mustFarmer(t, s, "zed")
	amy := mustFarmer(t, s, "Amy")
	mustDelivery(t, s, DeliveryInput{FarmerID: zed.ID, Date: day("2024-05-01"), MorningLiters: models.Float(2), MorningLactometer: models.Float(30)})
	mustPayment(t, s, zed.ID, "2024-05-02", 15)
	mustPayment(t, s, amy.ID, "2024-05-02", 10)

	got := s.Summaries()
	if len(got) != 2 || got[0].Name != "Amy" || got[1].Name != "zed" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Balance != -10 || got[1].TotalMilkValue != 60 || got[1].TotalPayments != 15 || got[1].Balance != 45 {
		t.Fatalf("unexpected totals: %+v", got)
	}
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	store := &failingStore{Store: memory.New()}
	s := newTestService(t, store)
	store.failWrites = true

	f, err := s.AddFarmer(context.Background(), "Ravi", "", "")
	if err == nil {
		t.Fatalf("expected persistence error")
	}
	if _, ok := s.Farmer(f.ID); !ok {
		t.Fatalf("farmer should remain in memory")
	}

	_, err = s.DeleteFarmer(context.Background(), f.ID)
	if err == nil {
		t.Fatalf("expected persistence error on delete")
	}
	if _, ok := s.Farmer(f.ID); ok {
		t.Fatalf("farmer should be gone from memory")
	}
}

func TestStateSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := newTestService(t, store)
	f := mustFarmer(t, s, "Ravi")
	if err := s.UpdateRate(ctx, 45, 40); err != nil {
		t.Fatal(err)
	}
	mustDelivery(t, s, DeliveryInput{FarmerID: f.ID, Date: day("2024-05-01"), MorningLiters: models.Float(1.5), MorningLactometer: models.Float(44.6)})
	mustPayment(t, s, f.ID, "2024-05-02", 20)

	reloaded := NewService(ctx, store, nil)
	if reloaded.RateFor(45) != 40 {
		t.Fatalf("rates not reloaded")
	}
	if got := reloaded.BalanceOf(f.ID); got != 40 {
		t.Fatalf("reloaded balance = %v", got)
	}
	r := reloaded.Deliveries()[0]
	if r.MorningLiters == nil || *r.MorningLiters != 1.5 || r.EveningLiters != nil {
		t.Fatalf("optional fields not preserved: %+v", r)
	}
}

func TestDeliveryDetailsCarryCurrency(t *testing.T) {
	s := NewService(context.Background(), memory.New(), nil, WithCurrency("Rs."))
	f := mustFarmer(t, s, "Ravi")
	mustDelivery(t, s, DeliveryInput{FarmerID: f.ID, Date: day("2024-05-01"), MorningLiters: models.Float(10), MorningLactometer: models.Float(20), EveningLiters: models.Float(2.5), EveningLactometer: models.Float(30)})

	txs := s.AllTransactions()
	want := "Morning: 10L @ 20 (Rs. 300.00), Evening: 2.5L @ 30 (Rs. 75.00)"
	if len(txs) != 1 || txs[0].Details != want {
		t.Fatalf("details = %+v, want %q", txs, want)
	}
}
