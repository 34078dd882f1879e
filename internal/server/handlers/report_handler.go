package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/reporting"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Reports is the read-only reporting surface.
type Reports interface {
	Transactions(filter reporting.Filter) ([]models.Transaction, error)
	Summary() ([]models.FarmerSummary, models.SummaryTotals)
}

// ReportHandler serves transaction and summary reports.
type ReportHandler struct {
	reports Reports
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(reports Reports, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, logger: logger, now: time.Now}
}

type summaryResponse struct {
	Farmers []models.FarmerSummary `json:"farmers"`
	Totals  models.SummaryTotals   `json:"totals"`
}

// Transactions lists signed ledger entries filtered by farmer, from, to and month.
func (h *ReportHandler) Transactions(c *gin.Context) {
	txs, ok := h.transactions(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, txs)
}

// TransactionsCSV downloads the filtered transactions as CSV.
func (h *ReportHandler) TransactionsCSV(c *gin.Context) {
	txs, ok := h.transactions(c)
	if !ok {
		return
	}
	h.download(c, "milk_report", "csv", csvContentType, func(w io.Writer) error {
		return reporting.WriteTransactionsCSV(w, txs)
	})
}

// TransactionsXLSX downloads the filtered transactions as an Excel workbook.
func (h *ReportHandler) TransactionsXLSX(c *gin.Context) {
	txs, ok := h.transactions(c)
	if !ok {
		return
	}
	h.download(c, "milk_report", "xlsx", xlsxContentType, func(w io.Writer) error {
		return reporting.WriteTransactionsXLSX(w, txs)
	})
}

// Summary returns every farmer's totals and the overall totals.
func (h *ReportHandler) Summary(c *gin.Context) {
	rows, totals := h.reports.Summary()
	c.JSON(http.StatusOK, summaryResponse{Farmers: rows, Totals: totals})
}

// SummaryCSV downloads the farmer summary as CSV.
func (h *ReportHandler) SummaryCSV(c *gin.Context) {
	rows, totals := h.reports.Summary()
	h.download(c, "farmer_summary_report", "csv", csvContentType, func(w io.Writer) error {
		return reporting.WriteSummaryCSV(w, rows, totals)
	})
}

// SummaryXLSX downloads the farmer summary as an Excel workbook.
func (h *ReportHandler) SummaryXLSX(c *gin.Context) {
	rows, totals := h.reports.Summary()
	h.download(c, "farmer_summary_report", "xlsx", xlsxContentType, func(w io.Writer) error {
		return reporting.WriteSummaryXLSX(w, rows, totals)
	})
}

func (h *ReportHandler) transactions(c *gin.Context) ([]models.Transaction, bool) {
	filter := reporting.Filter{
		FarmerID: c.Query("farmer"),
		Month:    c.Query("month"),
	}

	for _, bound := range []struct {
		param string
		dst   *time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		value := c.Query(bound.param)
		if value == "" {
			continue
		}
		d, err := models.ParseDay(value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": bound.param + " must be formatted as YYYY-MM-DD"})
			return nil, false
		}
		*bound.dst = d
	}

	txs, err := h.reports.Transactions(filter)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidMonth) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
		h.logger.Error("failed to build report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return nil, false
	}
	return txs, true
}

// download renders into a buffer first so a failed export still yields a JSON error.
func (h *ReportHandler) download(c *gin.Context, name, ext, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.logger.Error("failed to export report", zap.String("report", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export report"})
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", name, h.now().Format(models.DateLayout), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
