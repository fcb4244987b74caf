package api

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) autoMatch(c *fiber.Ctx) error {
	n, err := h.svc.Reconcile.AutoMatch(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"matched_count": n,
		"message":       fmt.Sprintf("%d checks matched", n),
	})
}

func (h *Handler) reconciliationReport(c *fiber.Ctx) error {
	raw := c.Query("statement_balance")
	if raw == "" {
		return badRequest("statement_balance is required")
	}
	balance, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return badRequest("statement_balance must be a number")
	}
	report, err := h.svc.Reconcile.Report(c.UserContext(), userID(c), balance)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *Handler) depositsInTransit(c *fiber.Ctx) error {
	sales, err := h.svc.Reconcile.DepositsInTransit(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(sales))
}
