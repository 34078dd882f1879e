package reporting

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

const sheetName = "Sheet1"

var (
	transactionHeaders = []string{"Date", "Type", "Farmer", "Details", "Amount"}
	summaryHeaders     = []string{"Farmer Name", "Total Milk", "Total Payments", "Balance"}
)

func displayType(kind models.TransactionKind) string {
	if kind == models.KindMilk {
		return "Milk Collection"
	}
	return "Payment"
}

func transactionRow(tx models.Transaction) []string {
	return []string{tx.Date.Format(models.DateLayout), displayType(tx.Kind), tx.FarmerName, tx.Details, fixed(tx.Amount)}
}

func summaryRows(summaries []models.FarmerSummary, totals models.SummaryTotals) [][]string {
	rows := make([][]string, 0, len(summaries)+2)
	for _, row := range summaries {
		rows = append(rows, []string{row.Name, fixed(row.TotalMilkValue), fixed(row.TotalPayments), fixed(row.Balance)})
	}
	rows = append(rows, nil, []string{"Overall Totals", fixed(totals.TotalMilkValue), fixed(totals.TotalPayments), fixed(totals.Balance)})
	return rows
}

// WriteTransactionsCSV renders a transaction report as CSV.
func WriteTransactionsCSV(w io.Writer, txs []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range txs {
		if err := cw.Write(transactionRow(tx)); err != nil {
			return fmt.Errorf("write csv row %s: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV renders the farmer summary with a trailing totals line.
func WriteSummaryCSV(w io.Writer, summaries []models.FarmerSummary, totals models.SummaryTotals) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range summaryRows(summaries, totals) {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTransactionsXLSX renders a transaction report as an Excel workbook.
func WriteTransactionsXLSX(w io.Writer, txs []models.Transaction) error {
	rows := make([][]interface{}, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []interface{}{tx.Date.Format(models.DateLayout), displayType(tx.Kind), tx.FarmerName, tx.Details, tx.Amount})
	}
	return writeWorkbook(w, transactionHeaders, rows)
}

// WriteSummaryXLSX renders the farmer summary as an Excel workbook.
func WriteSummaryXLSX(w io.Writer, summaries []models.FarmerSummary, totals models.SummaryTotals) error {
	rows := make([][]interface{}, 0, len(summaries)+2)
	for _, row := range summaries {
		rows = append(rows, []interface{}{row.Name, row.TotalMilkValue, row.TotalPayments, row.Balance})
	}
	rows = append(rows, nil, []interface{}{"Overall Totals", totals.TotalMilkValue, totals.TotalPayments, totals.Balance})
	return writeWorkbook(w, summaryHeaders, rows)
}

func writeWorkbook(w io.Writer, headers []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
