package reporting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	repo "github.com/mamadbah2/dairy/internal/repository/sheets"
	"github.com/mamadbah2/dairy/internal/service/ledger"
)

const (
	monthLayout  = "2006-01"
	summaryRange = "Summary!A:D"
	digestRange  = "Digest!A:F"
	digestWindow = 7
)

// ErrInvalidMonth indicates a month filter that is not formatted as YYYY-MM.
var ErrInvalidMonth = errors.New("month must be formatted as YYYY-MM")

// LedgerReader is the read-only view of the ledger consumed by reports.
type LedgerReader interface {
	Farmer(id string) (models.Farmer, bool)
	HistoryOf(farmerID string) ([]models.DeliveryRecord, []models.PaymentRecord)
	AllTransactions() []models.Transaction
	Summaries() []models.FarmerSummary
	Deliveries() []models.DeliveryRecord
	Payments() []models.PaymentRecord
}

// SnapshotArchiver stores periodic copies of the farmer summary.
type SnapshotArchiver interface {
	SaveSummarySnapshot(ctx context.Context, snapshot models.SummarySnapshot) error
}

// Filter narrows a transaction report. Zero values disable a criterion.
type Filter struct {
	FarmerID string
	From     time.Time
	To       time.Time
	Month    string
}

// Service builds reports from ledger snapshots. It never mutates the ledger.
type Service struct {
	ledger   LedgerReader
	sheets   repo.Repository
	archive  SnapshotArchiver
	currency string
	logger   *zap.Logger
}

// NewService wires a new reporting service instance. sheets and archive are optional.
func NewService(ledger LedgerReader, sheets repo.Repository, archive SnapshotArchiver, currency string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ledger: ledger, sheets: sheets, archive: archive, currency: currency, logger: logger}
}

// Currency returns the label prefixed to amounts.
func (s *Service) Currency() string {
	return s.currency
}

// Transactions returns the signed ledger entries matching filter, most recent first.
func (s *Service) Transactions(filter Filter) ([]models.Transaction, error) {
	var month time.Time
	if filter.Month != "" {
		m, err := time.ParseInLocation(monthLayout, filter.Month, time.UTC)
		if err != nil {
			return nil, ErrInvalidMonth
		}
		month = m
	}

	var txs []models.Transaction
	if filter.FarmerID != "" {
		txs = s.farmerTransactions(filter.FarmerID)
	} else {
		txs = s.ledger.AllTransactions()
	}

	out := txs[:0]
	for _, tx := range txs {
		if !filter.From.IsZero() && tx.Date.Before(models.Day(filter.From)) {
			continue
		}
		if !filter.To.IsZero() && tx.Date.After(models.Day(filter.To)) {
			continue
		}
		if !month.IsZero() && (tx.Date.Year() != month.Year() || tx.Date.Month() != month.Month()) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Service) farmerTransactions(farmerID string) []models.Transaction {
	name := ledger.UnknownFarmerName
	if f, ok := s.ledger.Farmer(farmerID); ok && f.Name != "" {
		name = f.Name
	}

	deliveries, payments := s.ledger.HistoryOf(farmerID)
	txs := make([]models.Transaction, 0, len(deliveries)+len(payments))
	for _, r := range deliveries {
		txs = append(txs, ledger.DeliveryTransaction(r, name, s.currency))
	}
	for _, p := range payments {
		txs = append(txs, ledger.PaymentTransaction(p, name))
	}
	slices.SortStableFunc(txs, func(a, b models.Transaction) int { return b.Date.Compare(a.Date) })
	return txs
}

// Summary returns every farmer's account and the overall totals.
func (s *Service) Summary() ([]models.FarmerSummary, models.SummaryTotals) {
	summaries := s.ledger.Summaries()

	milk, paid, balance := decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range summaries {
		milk = milk.Add(decimal.NewFromFloat(row.TotalMilkValue))
		paid = paid.Add(decimal.NewFromFloat(row.TotalPayments))
		balance = balance.Add(decimal.NewFromFloat(row.Balance))
	}

	return summaries, models.SummaryTotals{
		TotalMilkValue: milk.InexactFloat64(),
		TotalPayments:  paid.InexactFloat64(),
		Balance:        balance.InexactFloat64(),
	}
}

// WeeklyDigest holds the figures of the trailing seven days.
type WeeklyDigest struct {
	Start       time.Time
	End         time.Time
	Liters      decimal.Decimal
	Deliveries  int
	MilkValue   decimal.Decimal
	Paid        decimal.Decimal
	Payments    int
	Outstanding decimal.Decimal
	Farmers     int
}

// BuildWeeklyDigest aggregates deliveries and payments dated in the seven days ending at now.
func (s *Service) BuildWeeklyDigest(now time.Time) WeeklyDigest {
	end := models.Day(now)
	start := end.AddDate(0, 0, -(digestWindow - 1))
	inWindow := func(d time.Time) bool { return !d.Before(start) && !d.After(end) }

	digest := WeeklyDigest{Start: start, End: end}
	for _, r := range s.ledger.Deliveries() {
		if !inWindow(r.Date) {
			continue
		}
		digest.Deliveries++
		digest.Liters = digest.Liters.Add(decimal.NewFromFloat(r.Liters()))
		digest.MilkValue = digest.MilkValue.Add(decimal.NewFromFloat(r.TotalDailyAmount))
	}
	for _, p := range s.ledger.Payments() {
		if !inWindow(p.Date) {
			continue
		}
		digest.Payments++
		digest.Paid = digest.Paid.Add(decimal.NewFromFloat(p.Amount))
	}

	summaries, totals := s.Summary()
	digest.Farmers = len(summaries)
	digest.Outstanding = decimal.NewFromFloat(totals.Balance)
	return digest
}

// GenerateWeeklyReport renders the weekly digest as a chat message.
func (s *Service) GenerateWeeklyReport(_ context.Context, now time.Time) (string, error) {
	d := s.BuildWeeklyDigest(now)

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly milk report (%s - %s)\n", d.Start.Format(models.DateLayout), d.End.Format(models.DateLayout))
	if d.Deliveries == 0 && d.Payments == 0 {
		b.WriteString("No deliveries or payments recorded this week.\n")
	} else {
		fmt.Fprintf(&b, "Milk collected: %s L across %d deliveries\n", d.Liters.StringFixed(2), d.Deliveries)
		fmt.Fprintf(&b, "Milk value: %s\n", s.Money(d.MilkValue))
		fmt.Fprintf(&b, "Payments made: %s (%d payments)\n", s.Money(d.Paid), d.Payments)
	}
	fmt.Fprintf(&b, "Outstanding balance: %s across %d farmers", s.Money(d.Outstanding), d.Farmers)
	return b.String(), nil
}

// Money formats an amount with the configured currency label.
func (s *Service) Money(amount decimal.Decimal) string {
	if s.currency == "" {
		return amount.StringFixed(2)
	}
	return s.currency + " " + amount.StringFixed(2)
}

// PublishSummary overwrites the summary sheet and appends the weekly digest row.
// It is a no-op when no spreadsheet is configured.
func (s *Service) PublishSummary(ctx context.Context, now time.Time) error {
	if s.sheets == nil {
		return nil
	}

	summaries, totals := s.Summary()
	rows := make([][]interface{}, 0, len(summaries)+3)
	rows = append(rows, []interface{}{"Farmer Name", "Total Milk", "Total Payments", "Balance"})
	for _, row := range summaries {
		rows = append(rows, []interface{}{row.Name, fixed(row.TotalMilkValue), fixed(row.TotalPayments), fixed(row.Balance)})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Overall Totals", fixed(totals.TotalMilkValue), fixed(totals.TotalPayments), fixed(totals.Balance)})

	if err := s.sheets.ReplaceRange(ctx, summaryRange, rows); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}

	d := s.BuildWeeklyDigest(now)
	digestRow := []interface{}{
		d.End.Format(models.DateLayout),
		d.Liters.StringFixed(2),
		d.MilkValue.StringFixed(2),
		d.Paid.StringFixed(2),
		d.Outstanding.StringFixed(2),
		d.Farmers,
	}
	if err := s.sheets.WriteRow(ctx, digestRange, digestRow); err != nil {
		return fmt.Errorf("append digest: %w", err)
	}

	s.logger.Info("summary published to sheets", zap.Int("farmers", len(summaries)))
	return nil
}

// ArchiveSummary stores a snapshot of the farmer summary when an archive is configured.
func (s *Service) ArchiveSummary(ctx context.Context, now time.Time) error {
	if s.archive == nil {
		return nil
	}

	summaries, totals := s.Summary()
	snapshot := models.SummarySnapshot{
		TakenAt:  now.UTC(),
		Farmers:  summaries,
		Totals:   totals,
		Currency: s.currency,
	}
	if err := s.archive.SaveSummarySnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("archive summary: %w", err)
	}
	return nil
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
