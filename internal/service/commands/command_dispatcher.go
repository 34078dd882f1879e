package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/ledger"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrUnknownFarmer indicates the farmer reference matched nobody.
var ErrUnknownFarmer = errors.New("unknown farmer")

// ErrAmbiguousFarmer indicates the farmer reference matched several farmers.
var ErrAmbiguousFarmer = errors.New("farmer name is ambiguous, use the farmer id")

// Upper bounds keep every priced amount finite so collections stay encodable.
const (
	MaxLiters  = 10000
	MaxReading = 100
	MaxAmount  = 10000000
	MaxRate    = 10000
)

// Usage lists the supported commands.
const Usage = "Commands:\n" +
	"/milk <farmer> <morning liters> <morning reading> [<evening liters> <evening reading>]\n" +
	"/pay <farmer> <amount> [note]\n" +
	"/balance <farmer>\n" +
	"/rate <reading> <price per liter>\n" +
	"Use the farmer id, or the name with spaces written as underscores."

// Ledger is the subset of the ledger the dispatcher mutates and queries.
type Ledger interface {
	Farmers() []models.Farmer
	Farmer(id string) (models.Farmer, bool)
	RecordDelivery(ctx context.Context, in ledger.DeliveryInput) (models.DeliveryRecord, error)
	RecordPayment(ctx context.Context, farmerID string, date time.Time, amount float64, notes string) (models.PaymentRecord, error)
	UpdateRate(ctx context.Context, reading int, rate float64) error
	BalanceOf(farmerID string) float64
}

// Dispatcher executes parsed commands against the ledger.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	ledger   Ledger
	currency string
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService constructs a command dispatcher. Entries are dated in loc.
func NewService(l Ledger, currency string, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		ledger:   l,
		currency: currency,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleCommand validates the command, applies it and returns the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	today := models.Day(s.now().In(s.location))

	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandMilk:
		farmer, in, err := s.buildDelivery(cmd, today)
		if err != nil {
			return "", err
		}
		record, err := s.ledger.RecordDelivery(ctx, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Milk recorded for %s on %s: %s L worth %s.\nBalance: %s",
			farmer.Name, record.Date.Format(models.DateLayout),
			decimal.NewFromFloat(record.Liters()).String(),
			s.money(record.TotalDailyAmount), s.money(s.ledger.BalanceOf(farmer.ID))), nil
	case models.CommandPay:
		farmer, amount, notes, err := s.buildPayment(cmd)
		if err != nil {
			return "", err
		}
		if _, err := s.ledger.RecordPayment(ctx, farmer.ID, today, amount, notes); err != nil {
			return "", err
		}
		return fmt.Sprintf("Payment of %s recorded for %s.\nBalance: %s",
			s.money(amount), farmer.Name, s.money(s.ledger.BalanceOf(farmer.ID))), nil
	case models.CommandBalance:
		if len(cmd.Args) != 1 {
			return "", ErrInvalidArguments
		}
		farmer, err := s.resolveFarmer(cmd.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Balance for %s: %s", farmer.Name, s.money(s.ledger.BalanceOf(farmer.ID))), nil
	case models.CommandRate:
		reading, rate, err := parseRate(cmd.Args)
		if err != nil {
			return "", err
		}
		if err := s.ledger.UpdateRate(ctx, reading, rate); err != nil {
			return "", err
		}
		return fmt.Sprintf("Rate for reading %d set to %s per liter.", reading, s.money(rate)), nil
	case models.CommandHelp:
		return Usage, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) buildDelivery(cmd models.Command, today time.Time) (models.Farmer, ledger.DeliveryInput, error) {
	if len(cmd.Args) != 3 && len(cmd.Args) != 5 {
		return models.Farmer{}, ledger.DeliveryInput{}, ErrInvalidArguments
	}

	farmer, err := s.resolveFarmer(cmd.Args[0])
	if err != nil {
		return models.Farmer{}, ledger.DeliveryInput{}, err
	}

	values := make([]float64, 0, 4)
	for i, arg := range cmd.Args[1:] {
		limit := float64(MaxLiters)
		if i%2 == 1 {
			limit = MaxReading
		}
		v, err := parseBounded(arg, limit)
		if err != nil {
			return models.Farmer{}, ledger.DeliveryInput{}, err
		}
		values = append(values, v)
	}

	in := ledger.DeliveryInput{FarmerID: farmer.ID, Date: today}
	if values[0] > 0 {
		in.MorningLiters = models.Float(values[0])
		in.MorningLactometer = models.Float(values[1])
	}
	if len(values) == 4 && values[2] > 0 {
		in.EveningLiters = models.Float(values[2])
		in.EveningLactometer = models.Float(values[3])
	}
	if in.MorningLiters == nil && in.EveningLiters == nil {
		return models.Farmer{}, ledger.DeliveryInput{}, ErrInvalidArguments
	}
	return farmer, in, nil
}

func (s *Service) buildPayment(cmd models.Command) (models.Farmer, float64, string, error) {
	if len(cmd.Args) < 2 {
		return models.Farmer{}, 0, "", ErrInvalidArguments
	}

	farmer, err := s.resolveFarmer(cmd.Args[0])
	if err != nil {
		return models.Farmer{}, 0, "", err
	}

	amount, err := parseBounded(cmd.Args[1], MaxAmount)
	if err != nil || amount == 0 {
		return models.Farmer{}, 0, "", ErrInvalidArguments
	}

	return farmer, amount, strings.Join(cmd.Args[2:], " "), nil
}

func parseRate(args []string) (int, float64, error) {
	if len(args) != 2 {
		return 0, 0, ErrInvalidArguments
	}
	reading, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, ErrInvalidArguments
	}
	rate, err := parseBounded(args[1], MaxRate)
	if err != nil {
		return 0, 0, err
	}
	return reading, rate, nil
}

// parseBounded accepts finite numbers in [0, limit].
func parseBounded(arg string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > limit {
		return 0, ErrInvalidArguments
	}
	return v, nil
}

// resolveFarmer matches ref against farmer ids first, then names.
func (s *Service) resolveFarmer(ref string) (models.Farmer, error) {
	if f, ok := s.ledger.Farmer(ref); ok {
		return f, nil
	}

	var matches []models.Farmer
	for _, f := range s.ledger.Farmers() {
		if strings.EqualFold(strings.ReplaceAll(f.Name, " ", "_"), ref) {
			matches = append(matches, f)
		}
	}

	switch len(matches) {
	case 0:
		return models.Farmer{}, fmt.Errorf("%w: %s", ErrUnknownFarmer, ref)
	case 1:
		return matches[0], nil
	default:
		return models.Farmer{}, ErrAmbiguousFarmer
	}
}

func (s *Service) money(v float64) string {
	amount := decimal.NewFromFloat(v).StringFixed(2)
	if s.currency == "" {
		return amount
	}
	return s.currency + " " + amount
}
