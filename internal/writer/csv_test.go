package writer

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

func sampleTransactions() []models.BankTransaction {
	return []models.BankTransaction{
		{
			Date:           models.NewDate(2024, 9, 15),
			Description:    "CHECK 1234 Office Supplies",
			Amount:         150,
			Type:           models.Debit,
			CheckNumber:    "1234",
			StatementID:    "stmt-1",
			MatchedCheckID: "chk-1",
		},
		{
			Date:        models.NewDate(2024, 9, 16),
			Description: "Zelle from Maria, invoice 7",
			Amount:      2500.5,
			Type:        models.Credit,
			StatementID: "stmt-1",
			Validated:   true,
		},
	}
}

func TestCSVWriter_TransactionsCSV(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	require.NoError(t, w.TransactionsCSV(&buf, sampleTransactions()))

	output := buf.String()
	assert.Contains(t, output, "# Transactions,2")
	assert.Contains(t, output, "# Total Credits,2500.50")
	assert.Contains(t, output, "# Total Debits,150.00")

	// Metadata rows have two fields, so the reader must not enforce a width.
	r := csv.NewReader(strings.NewReader(output))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)

	assert.Equal(t, "Date", records[3][0])
	assert.Equal(t, []string{"2024-09-15", "CHECK 1234 Office Supplies", "debit", "150.00", "-150.00", "1234", "stmt-1", "false", "chk-1"}, records[4])
	assert.Equal(t, "Zelle from Maria, invoice 7", records[5][1])
	assert.Equal(t, "2500.50", records[5][4])
	assert.Equal(t, "true", records[5][7])
}

func TestCSVWriter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	require.NoError(t, w.TransactionsCSV(&buf, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Description,Type,Amount"))
}

func TestCSVWriter_InTransitCSV(t *testing.T) {
	report := &models.InTransitReport{
		GeneratedOn: models.NewDate(2024, 10, 1),
		TotalChecks: 2,
		TotalAmount: 350,
		ByAge: []models.AgeBucket{
			{Label: "0-30", Count: 1, Amount: 100, Checks: []models.Check{
				{CheckNumber: "1001", DateIssued: models.NewDate(2024, 9, 21), Payee: "ACME", Amount: 100},
			}},
			{Label: "31-60", Count: 0},
			{Label: "61-90", Count: 0},
			{Label: "90+", Count: 1, Amount: 250, Checks: []models.Check{
				{CheckNumber: "0990", DateIssued: models.NewDate(2024, 5, 1), Payee: "Landlord", Amount: 250},
			}},
		},
	}

	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	require.NoError(t, w.InTransitCSV(&buf, report))

	output := buf.String()
	assert.Contains(t, output, "# Generated On,2024-10-01")
	assert.Contains(t, output, "0-30,1001,2024-09-21,10,ACME,100.00")
	assert.Contains(t, output, "90+,0990,2024-05-01,153,Landlord,250.00")
	assert.Contains(t, output, "# 31-60,0,0.00")
	assert.Contains(t, output, "# 90+,1,250.00")
}

func TestCSVWriter_WriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := &CSVWriter{}
	require.NoError(t, w.WriteToFile(path, sampleTransactions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}
