package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bookkeeper/internal/auth"
	"github.com/insightdelivered/bookkeeper/internal/extractor"
	"github.com/insightdelivered/bookkeeper/internal/ledger"
	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/parser"
	"github.com/insightdelivered/bookkeeper/internal/reconcile"
	"github.com/insightdelivered/bookkeeper/internal/statements"
	"github.com/insightdelivered/bookkeeper/internal/store/memory"
)

func fixedNow() time.Time { return time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC) }

type testEnv struct {
	app    *fiber.App
	store  *memory.Store
	signer *auth.Signer
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	log := zerolog.Nop()

	popts := parser.DefaultOptions()
	popts.Now = fixedNow
	ropts := reconcile.DefaultOptions()
	ropts.Now = fixedNow

	signer := auth.NewSigner("test-secret", time.Hour, nil)
	svc := Services{
		Store:      st,
		Statements: statements.New(st, parser.New(popts), extractor.NewPDF(log), nil, log),
		Reconcile:  reconcile.New(st, ropts, log),
		Ledger:     ledger.New(st, fixedNow, log),
		Signer:     signer,
	}
	return &testEnv{app: New(svc, Options{BodyLimitMB: 4}, log), store: st, signer: signer}
}

func (e *testEnv) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := e.signer.IssueToken(user)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, user string, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) doJSON(t *testing.T, user, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(t, user, req)
}

func multipartRequest(t *testing.T, path string, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "", http.MethodGet, "/api/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "fiber", result["engine"])
}

func TestAuthRequired(t *testing.T) {
	env := setupTestApp(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Token abc"},
		{"bad token", "Bearer not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/checks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, body := env.do(t, "", req)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			var er ErrorResponse
			require.NoError(t, json.Unmarshal(body, &er))
			assert.False(t, er.Success)
			assert.NotEmpty(t, er.Error)
		})
	}
}

func TestUploadRequiresFileOrText(t *testing.T) {
	env := setupTestApp(t)

	req := multipartRequest(t, "/api/bank-statements/upload", map[string]string{"period_start": "2024-09-01"}, "", nil)
	resp, body := env.do(t, "u1", req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "file")
}

func TestUploadRejectsUnreadablePDF(t *testing.T) {
	env := setupTestApp(t)

	req := multipartRequest(t, "/api/bank-statements/upload", nil, "scan.pdf", []byte("%PDF-1.4 garbage"))
	resp, _ := env.do(t, "u1", req)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUploadAutoMatchAndReport(t *testing.T) {
	env := setupTestApp(t)

	// Statement via pre-extracted text.
	req := multipartRequest(t, "/api/bank-statements/upload", map[string]string{
		"extractedText":  "9/15 CHECK 1234 Office Supplies 150.00\n---PAGE_BREAK---\n9/10 Zelle from Maria 200.00",
		"filename":       "september.pdf",
		"period_start":   "2024-09-01",
		"period_end":     "2024-09-30",
		"ending_balance": "1000",
	}, "", nil)
	resp, body := env.do(t, "u1", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var up statements.UploadResult
	require.NoError(t, json.Unmarshal(body, &up))
	assert.Equal(t, 2, up.TransactionsCount)
	assert.NotEmpty(t, up.StatementID)

	// A pending check that matches the CHECK 1234 line.
	resp, body = env.doJSON(t, "u1", http.MethodPost, "/api/checks", map[string]any{
		"check_number": "1234",
		"date_issued":  "2024-09-12",
		"amount":       150.00,
		"payee":        "Office Depot",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var chk models.Check
	require.NoError(t, json.Unmarshal(body, &chk))
	assert.Equal(t, models.CheckPending, chk.Status)

	// An unrelated outstanding check.
	resp, _ = env.doJSON(t, "u1", http.MethodPost, "/api/checks", map[string]any{
		"check_number": "1300",
		"date_issued":  "2024-09-20",
		"amount":       300.00,
		"payee":        "Landlord",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body = env.doJSON(t, "u1", http.MethodPost, "/api/bank-reconciliation/auto-match", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var am map[string]any
	require.NoError(t, json.Unmarshal(body, &am))
	assert.Equal(t, float64(1), am["matched_count"])

	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/checks/"+chk.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &chk))
	assert.Equal(t, models.CheckCleared, chk.Status)
	require.NotNil(t, chk.DateCleared)
	assert.Equal(t, "2024-09-15", chk.DateCleared.String())

	// Outstanding: 300. No bank-routed sales, so no deposits in transit.
	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/bank-reconciliation/report?statement_balance=1000", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var report models.ReconciliationReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 300.0, report.OutstandingChecksTotal)
	assert.Equal(t, 700.0, report.ReconciledBalance)
	assert.Equal(t, 1000.0, report.BookBalance)
	assert.Equal(t, -300.0, report.Difference)

	// Unmatched debit filter sees nothing left.
	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/bank-transactions?type=debit&unmatched=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))
}

func TestReportRequiresBalance(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := env.doJSON(t, "u1", http.MethodGet, "/api/bank-reconciliation/report", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.doJSON(t, "u1", http.MethodGet, "/api/bank-reconciliation/report?statement_balance=abc", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTestParseEndpoint(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "u1", http.MethodPost, "/api/bank-statements/test-parse", map[string]string{
		"text": "DATE DESCRIPTION AMOUNT BALANCE\n9/10 Zelle from Maria 200.00",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var tp TestParseResponse
	require.NoError(t, json.Unmarshal(body, &tp))
	assert.Equal(t, 1, tp.Count)
	require.Len(t, tp.Lines, 2)
	assert.Equal(t, models.LineHeader, tp.Lines[0].Result)
	assert.Equal(t, "compact", tp.Lines[1].Rule)
	assert.Equal(t, []string{"9", "10", "", "Zelle from Maria", "200.00"}, tp.Lines[1].Groups)

	// Nothing persisted.
	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/bank-transactions", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	resp, _ = env.doJSON(t, "u1", http.MethodPost, "/api/bank-statements/test-parse", map[string]string{"text": ""})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestManualTransactionLifecycle(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "u1", http.MethodPost, "/api/bank-transactions", map[string]any{
		"date":        "2024-09-03",
		"description": "ATM withdrawal",
		"amount":      60,
		"type":        "debit",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var txn models.BankTransaction
	require.NoError(t, json.Unmarshal(body, &txn))
	assert.Equal(t, models.ManualStatementID, txn.StatementID)

	// Other users cannot see it.
	resp, _ = env.doJSON(t, "u2", http.MethodGet, "/api/bank-transactions/"+txn.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Validate with a category.
	resp, body = env.doJSON(t, "u1", http.MethodPost, "/api/categories", map[string]any{"name": "Petty cash", "type": "expense"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var cat models.Category
	require.NoError(t, json.Unmarshal(body, &cat))

	resp, body = env.doJSON(t, "u1", http.MethodPost, "/api/bank-transactions/"+txn.ID+"/validate", map[string]any{
		"type":        "debit",
		"category_id": cat.ID,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &txn))
	assert.True(t, txn.Validated)
	assert.Equal(t, cat.ID, txn.CategoryID)

	resp, _ = env.doJSON(t, "u1", http.MethodPost, "/api/bank-transactions/"+txn.ID+"/validate", map[string]any{"type": "refund"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.doJSON(t, "u1", http.MethodPost, "/api/bank-transactions/"+txn.ID+"/validate", map[string]any{
		"type":        "debit",
		"category_id": "missing",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Export.
	req := httptest.NewRequest(http.MethodGet, "/api/bank-transactions/export", nil)
	resp, body = env.do(t, "u1", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bank_transactions.csv")
	assert.Contains(t, string(body), "2024-09-03,ATM withdrawal,debit,60.00,-60.00")

	resp, _ = env.doJSON(t, "u1", http.MethodDelete, "/api/bank-transactions/"+txn.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.doJSON(t, "u1", http.MethodGet, "/api/bank-transactions/"+txn.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCheckStateMachineEndpoints(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "u1", http.MethodPost, "/api/checks", map[string]any{
		"check_number": "2001",
		"date_issued":  "2024-08-01",
		"amount":       75.5,
		"payee":        "Plumber",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var chk models.Check
	require.NoError(t, json.Unmarshal(body, &chk))

	resp, body = env.doJSON(t, "u1", http.MethodPost, "/api/bank-transactions", map[string]any{
		"date": "2024-08-05", "description": "CHECK 2001", "amount": 75.5, "type": "debit",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var txn models.BankTransaction
	require.NoError(t, json.Unmarshal(body, &txn))

	// In-transit CSV while pending.
	req := httptest.NewRequest(http.MethodGet, "/api/checks/in-transit-report?format=csv", nil)
	resp, body = env.do(t, "u1", req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "61-90,2001,2024-08-01,61,Plumber,75.50")

	resp, body = env.doJSON(t, "u1", http.MethodPost, "/api/checks/"+chk.ID+"/cancel", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &chk))
	assert.Equal(t, models.CheckCancelled, chk.Status)

	// Cancelling again is a no-op.
	resp, _ = env.doJSON(t, "u1", http.MethodPost, "/api/checks/"+chk.ID+"/cancel", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// A cancelled check cannot be matched.
	resp, body = env.doJSON(t, "u1", http.MethodPost, "/api/bank-transactions/"+txn.ID+"/match-check/"+chk.ID, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	assert.False(t, er.Success)

	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/checks?status=cancelled", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list []models.Check
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	resp, _ = env.doJSON(t, "u1", http.MethodGet, "/api/checks?status=bounced", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.doJSON(t, "u1", http.MethodDelete, "/api/checks/"+chk.ID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.doJSON(t, "u1", http.MethodDelete, "/api/checks/"+chk.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLedgerEndpoints(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.doJSON(t, "u1", http.MethodPost, "/api/categories/defaults", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var seeded struct {
		Created    int               `json:"created"`
		Categories []models.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(body, &seeded))
	require.NotZero(t, seeded.Created)

	var income, cogs models.Category
	for _, c := range seeded.Categories {
		if c.Type == models.IncomeCategory && income.ID == "" {
			income = c
		}
		if c.IsCOGS && cogs.ID == "" {
			cogs = c
		}
	}
	require.NotEmpty(t, income.ID)
	require.NotEmpty(t, cogs.ID)

	resp, _ = env.doJSON(t, "u1", http.MethodPost, "/api/sales", map[string]any{
		"date": "2024-09-10", "amount": 1000, "category_id": income.ID, "payment_method": "cash",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, _ = env.doJSON(t, "u1", http.MethodPost, "/api/expenses", map[string]any{
		"date": "2024-09-11", "amount": 400, "category_id": cogs.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/dashboard/summary", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var summary ledger.Summary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 1000.0, summary.TotalIncome)
	assert.Equal(t, 400.0, summary.TotalExpenses)
	assert.Equal(t, 40.0, summary.COGSPercentage)

	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/dashboard/comparison?months=3", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var cmp []ledger.MonthComparison
	require.NoError(t, json.Unmarshal(body, &cmp))
	require.Len(t, cmp, 3)
	assert.Equal(t, "2024-10", cmp[0].Month)
	assert.Equal(t, 600.0, cmp[1].Profit)

	resp, _ = env.doJSON(t, "u1", http.MethodGet, "/api/analytics/report?filter_type=custom&start_date=2024-09-01", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/analytics/report?filter_type=custom&start_date=2024-09-01&end_date=2024-09-30", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var pr ledger.PeriodReport
	require.NoError(t, json.Unmarshal(body, &pr))
	assert.Equal(t, 600.0, pr.Summary.NetProfit)

	resp, _ = env.doJSON(t, "u1", http.MethodGet, "/api/analytics/report?filter_type=decade", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = env.doJSON(t, "u1", http.MethodGet, "/api/debug/cogs", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var cb ledger.CogsBreakdown
	require.NoError(t, json.Unmarshal(body, &cb))
	assert.Equal(t, 400.0, cb.TotalCogs)

	resp, _ = env.doJSON(t, "u1", http.MethodGet, "/api/sales?start_date=2024-13-01", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
