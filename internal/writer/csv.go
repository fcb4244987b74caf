package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

// CSVWriter writes bank transactions and check reports in CSV format.
type CSVWriter struct {
	// IncludeHeader emits "# key,value" metadata rows before the column header.
	IncludeHeader bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txns []models.BankTransaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	if err := w.TransactionsCSV(f, txns); err != nil {
		return err
	}
	return f.Close()
}

// TransactionsCSV writes one row per transaction. Debits are written with a
// negative signed amount next to the unsigned magnitude.
func (w *CSVWriter) TransactionsCSV(out io.Writer, txns []models.BankTransaction) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		var credits, debits decimal.Decimal
		for _, txn := range txns {
			if txn.Type == models.Credit {
				credits = credits.Add(decimal.NewFromFloat(txn.Amount))
			} else {
				debits = debits.Add(decimal.NewFromFloat(txn.Amount))
			}
		}
		meta := [][]string{
			{"# Transactions", strconv.Itoa(len(txns))},
			{"# Total Credits", credits.StringFixed(2)},
			{"# Total Debits", debits.StringFixed(2)},
		}
		if err := writer.WriteAll(meta); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	header := []string{"Date", "Description", "Type", "Amount", "Signed Amount", "Check Number", "Statement", "Validated", "Matched Check"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		signed := decimal.NewFromFloat(txn.Amount)
		if txn.Type == models.Debit {
			signed = signed.Neg()
		}
		row := []string{
			txn.Date.String(),
			txn.Description,
			string(txn.Type),
			formatAmount(txn.Amount),
			signed.StringFixed(2),
			txn.CheckNumber,
			txn.StatementID,
			strconv.FormatBool(txn.Validated),
			txn.MatchedCheckID,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// InTransitCSV writes the outstanding-checks report, one row per check with
// its age bucket, followed by a bucket summary.
func (w *CSVWriter) InTransitCSV(out io.Writer, report *models.InTransitReport) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		meta := [][]string{
			{"# Generated On", report.GeneratedOn.String()},
			{"# Total Checks", strconv.Itoa(report.TotalChecks)},
			{"# Total Amount", formatAmount(report.TotalAmount)},
		}
		if err := writer.WriteAll(meta); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	if err := writer.Write([]string{"Age", "Check Number", "Date Issued", "Days Outstanding", "Payee", "Amount"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, bucket := range report.ByAge {
		for _, chk := range bucket.Checks {
			row := []string{
				bucket.Label,
				chk.CheckNumber,
				chk.DateIssued.String(),
				strconv.Itoa(daysOutstanding(chk.DateIssued, report.GeneratedOn)),
				chk.Payee,
				formatAmount(chk.Amount),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	for _, bucket := range report.ByAge {
		row := []string{"# " + bucket.Label, strconv.Itoa(bucket.Count), formatAmount(bucket.Amount)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV summary: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func daysOutstanding(issued, on models.Date) int {
	days := issued.DaysTo(on)
	if days < 0 {
		return 0
	}
	return days
}

func formatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
