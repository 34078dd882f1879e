package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/ledger"
)

// Ledger is the mutation and query surface exposed over HTTP.
type Ledger interface {
	AddFarmer(ctx context.Context, name, address, phone string) (models.Farmer, error)
	Farmers() []models.Farmer
	Farmer(id string) (models.Farmer, bool)
	DeleteFarmer(ctx context.Context, farmerID string) (bool, error)
	RecordDelivery(ctx context.Context, in ledger.DeliveryInput) (models.DeliveryRecord, error)
	RecordPayment(ctx context.Context, farmerID string, date time.Time, amount float64, notes string) (models.PaymentRecord, error)
	DeleteDeliveryRecord(ctx context.Context, id string) (bool, error)
	DeletePaymentRecord(ctx context.Context, id string) (bool, error)
	UpdateRate(ctx context.Context, reading int, rate float64) error
	Rates() models.RateTable
	BalanceOf(farmerID string) float64
	HistoryOf(farmerID string) ([]models.DeliveryRecord, []models.PaymentRecord)
}

// LedgerHandler validates operator input and applies it to the ledger.
type LedgerHandler struct {
	ledger Ledger
	logger *zap.Logger
}

// NewLedgerHandler constructs the HTTP handler adapter.
func NewLedgerHandler(l Ledger, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{ledger: l, logger: logger}
}

type farmerRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
}

// Bounds on the numeric fields keep every priced amount finite.
type deliveryRequest struct {
	FarmerID          string   `json:"farmerId" binding:"required"`
	Date              string   `json:"date" binding:"required"`
	MorningLiters     *float64 `json:"morningLiters" binding:"omitempty,gte=0,lte=10000"`
	MorningLactometer *float64 `json:"morningLactometer" binding:"omitempty,gte=0,lte=100"`
	EveningLiters     *float64 `json:"eveningLiters" binding:"omitempty,gte=0,lte=10000"`
	EveningLactometer *float64 `json:"eveningLactometer" binding:"omitempty,gte=0,lte=100"`
}

type paymentRequest struct {
	FarmerID string  `json:"farmerId" binding:"required"`
	Date     string  `json:"date" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0,lte=10000000"`
	Notes    string  `json:"notes"`
}

type rateRequest struct {
	Rate *float64 `json:"rate" binding:"required,gte=0,lte=10000"`
}

type balanceResponse struct {
	FarmerID string  `json:"farmerId"`
	Balance  float64 `json:"balance"`
}

type historyResponse struct {
	Farmer     models.Farmer           `json:"farmer"`
	Balance    float64                 `json:"balance"`
	Deliveries []models.DeliveryRecord `json:"deliveries"`
	Payments   []models.PaymentRecord  `json:"payments"`
}

// ListFarmers returns every farmer ordered by name.
func (h *LedgerHandler) ListFarmers(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Farmers())
}

// CreateFarmer registers a farmer.
func (h *LedgerHandler) CreateFarmer(c *gin.Context) {
	var req farmerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid farmer payload", err)
		return
	}

	farmer, err := h.ledger.AddFarmer(c.Request.Context(), req.Name, req.Address, req.Phone)
	if err != nil {
		h.persistFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, farmer)
}

// GetFarmer returns one farmer.
func (h *LedgerHandler) GetFarmer(c *gin.Context) {
	farmer, ok := h.ledger.Farmer(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "farmer not found"})
		return
	}
	c.JSON(http.StatusOK, farmer)
}

// DeleteFarmer removes a farmer and all of its records.
func (h *LedgerHandler) DeleteFarmer(c *gin.Context) {
	h.deleted(c, "farmer")(h.ledger.DeleteFarmer(c.Request.Context(), c.Param("id")))
}

// Balance returns the farmer's current balance.
func (h *LedgerHandler) Balance(c *gin.Context) {
	farmer, ok := h.ledger.Farmer(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "farmer not found"})
		return
	}
	c.JSON(http.StatusOK, balanceResponse{FarmerID: farmer.ID, Balance: h.ledger.BalanceOf(farmer.ID)})
}

// History returns the farmer's deliveries and payments, most recent first.
func (h *LedgerHandler) History(c *gin.Context) {
	farmer, ok := h.ledger.Farmer(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "farmer not found"})
		return
	}
	deliveries, payments := h.ledger.HistoryOf(farmer.ID)
	c.JSON(http.StatusOK, historyResponse{
		Farmer:     farmer,
		Balance:    h.ledger.BalanceOf(farmer.ID),
		Deliveries: deliveries,
		Payments:   payments,
	})
}

// CreateDelivery records a day's milk for a farmer.
func (h *LedgerHandler) CreateDelivery(c *gin.Context) {
	var req deliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid delivery payload", err)
		return
	}

	date, err := models.ParseDay(req.Date)
	if err != nil {
		h.badRequest(c, "date must be formatted as YYYY-MM-DD", err)
		return
	}
	if models.Value(req.MorningLiters) == 0 && models.Value(req.EveningLiters) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enter at least morning or evening milk quantity"})
		return
	}
	if _, ok := h.ledger.Farmer(req.FarmerID); !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "farmer not found"})
		return
	}

	record, err := h.ledger.RecordDelivery(c.Request.Context(), ledger.DeliveryInput{
		FarmerID:          req.FarmerID,
		Date:              date,
		MorningLiters:     req.MorningLiters,
		MorningLactometer: req.MorningLactometer,
		EveningLiters:     req.EveningLiters,
		EveningLactometer: req.EveningLactometer,
	})
	if err != nil {
		h.persistFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// DeleteDelivery removes one delivery.
func (h *LedgerHandler) DeleteDelivery(c *gin.Context) {
	h.deleted(c, "delivery")(h.ledger.DeleteDeliveryRecord(c.Request.Context(), c.Param("id")))
}

// CreatePayment records a cash payment to a farmer.
func (h *LedgerHandler) CreatePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid payment payload", err)
		return
	}

	date, err := models.ParseDay(req.Date)
	if err != nil {
		h.badRequest(c, "date must be formatted as YYYY-MM-DD", err)
		return
	}
	if _, ok := h.ledger.Farmer(req.FarmerID); !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "farmer not found"})
		return
	}

	payment, err := h.ledger.RecordPayment(c.Request.Context(), req.FarmerID, date, req.Amount, req.Notes)
	if err != nil {
		h.persistFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// DeletePayment removes one payment.
func (h *LedgerHandler) DeletePayment(c *gin.Context) {
	h.deleted(c, "payment")(h.ledger.DeletePaymentRecord(c.Request.Context(), c.Param("id")))
}

// ListRates returns the lactometer rate table.
func (h *LedgerHandler) ListRates(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Rates())
}

// UpdateRate sets the price per liter for one reading.
func (h *LedgerHandler) UpdateRate(c *gin.Context) {
	reading, err := strconv.Atoi(c.Param("reading"))
	if err != nil {
		h.badRequest(c, "reading must be a whole number", err)
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "rate must be a number between 0 and 10000", err)
		return
	}

	if err := h.ledger.UpdateRate(c.Request.Context(), reading, *req.Rate); err != nil {
		h.persistFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reading": reading, "rate": *req.Rate})
}

func (h *LedgerHandler) deleted(c *gin.Context, what string) func(bool, error) {
	return func(removed bool, err error) {
		if err != nil {
			h.persistFailed(c, err)
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *LedgerHandler) badRequest(c *gin.Context, message string, err error) {
	h.logger.Warn(message, zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// persistFailed reports a storage error. The change is still applied in memory.
func (h *LedgerHandler) persistFailed(c *gin.Context, err error) {
	h.logger.Error("failed to persist ledger change", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "change applied but could not be saved"})
}
