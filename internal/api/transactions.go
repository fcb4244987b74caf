package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

type createTransactionRequest struct {
	Date        models.Date    `json:"date"`
	Description string         `json:"description"`
	Amount      float64        `json:"amount"`
	Type        models.TxnType `json:"type"`
	CheckNumber string         `json:"check_number"`
	CategoryID  string         `json:"category_id"`
}

type validateRequest struct {
	Type       models.TxnType `json:"type"`
	CategoryID string         `json:"category_id"`
}

func transactionFilter(c *fiber.Ctx) (store.TransactionFilter, error) {
	f := store.TransactionFilter{
		Type:        models.TxnType(c.Query("type")),
		StatementID: c.Query("statement_id"),
		Unmatched:   c.QueryBool("unmatched"),
	}
	if f.Type != "" && !f.Type.Valid() {
		return f, badRequest("type must be debit or credit")
	}
	switch c.Query("validated") {
	case "":
	case "true":
		v := true
		f.Validated = &v
	case "false":
		v := false
		f.Validated = &v
	default:
		return f, badRequest("validated must be true or false")
	}
	r, err := queryRange(c)
	if err != nil {
		return f, err
	}
	f.Range = r
	return f, nil
}

func (h *Handler) listTransactions(c *fiber.Ctx) error {
	f, err := transactionFilter(c)
	if err != nil {
		return err
	}
	txns, err := h.svc.Store.ListTransactions(c.UserContext(), userID(c), f)
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(txns))
}

func (h *Handler) exportTransactions(c *fiber.Ctx) error {
	f, err := transactionFilter(c)
	if err != nil {
		return err
	}
	txns, err := h.svc.Store.ListTransactions(c.UserContext(), userID(c), f)
	if err != nil {
		return err
	}
	c.Attachment("bank_transactions.csv")
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return h.csv.TransactionsCSV(c, txns)
}

func (h *Handler) createTransaction(c *fiber.Ctx) error {
	var req createTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(fmt.Sprintf("invalid body: %v", err))
	}
	if req.Type == "" {
		req.Type = models.Debit
	}
	txn := &models.BankTransaction{
		UserID:      userID(c),
		StatementID: models.ManualStatementID,
		Date:        req.Date,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		CheckNumber: req.CheckNumber,
		CategoryID:  req.CategoryID,
	}
	if err := h.svc.Store.CreateTransaction(c.UserContext(), txn); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(txn)
}

func (h *Handler) getTransaction(c *fiber.Ctx) error {
	txn, err := h.svc.Store.GetTransaction(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(txn)
}

func (h *Handler) deleteTransaction(c *fiber.Ctx) error {
	if err := h.svc.Store.DeleteTransaction(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(deleted("transaction"))
}

func (h *Handler) validateTransaction(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(fmt.Sprintf("invalid body: %v", err))
	}
	txn, err := h.svc.Reconcile.Validate(c.UserContext(), userID(c), c.Params("id"), req.Type, req.CategoryID)
	if err != nil {
		return err
	}
	return c.JSON(txn)
}

func (h *Handler) matchCheck(c *fiber.Ctx) error {
	txn, chk, err := h.svc.Reconcile.ManualMatch(c.UserContext(), userID(c), c.Params("id"), c.Params("checkId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "check matched",
		"transaction": txn,
		"check":       chk,
	})
}

func (h *Handler) suggestChecks(c *fiber.Ctx) error {
	suggestions, err := h.svc.Reconcile.Suggest(c.UserContext(), userID(c), c.Params("id"), c.QueryInt("limit", 5))
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(suggestions))
}
