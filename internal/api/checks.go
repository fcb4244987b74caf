package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

type createCheckRequest struct {
	CheckNumber string      `json:"check_number"`
	DateIssued  models.Date `json:"date_issued"`
	Amount      float64     `json:"amount"`
	Payee       string      `json:"payee"`
	Description string      `json:"description"`
}

func (h *Handler) listChecks(c *fiber.Ctx) error {
	status := models.CheckStatus(c.Query("status"))
	switch status {
	case "", models.CheckPending, models.CheckCleared, models.CheckCancelled:
	default:
		return badRequest("status must be pending, cleared or cancelled")
	}
	checks, err := h.svc.Store.ListChecks(c.UserContext(), userID(c), store.CheckFilter{Status: status})
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(checks))
}

func (h *Handler) createCheck(c *fiber.Ctx) error {
	var req createCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(fmt.Sprintf("invalid body: %v", err))
	}
	chk := &models.Check{
		UserID:      userID(c),
		CheckNumber: req.CheckNumber,
		DateIssued:  req.DateIssued,
		Amount:      req.Amount,
		Payee:       req.Payee,
		Description: req.Description,
		Status:      models.CheckPending,
	}
	if err := h.svc.Store.CreateCheck(c.UserContext(), chk); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(chk)
}

func (h *Handler) getCheck(c *fiber.Ctx) error {
	chk, err := h.svc.Store.GetCheck(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(chk)
}

func (h *Handler) cancelCheck(c *fiber.Ctx) error {
	chk, err := h.svc.Reconcile.CancelCheck(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(chk)
}

func (h *Handler) deleteCheck(c *fiber.Ctx) error {
	if err := h.svc.Store.DeleteCheck(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(deleted("check"))
}

// inTransitReport returns JSON, or CSV with ?format=csv.
func (h *Handler) inTransitReport(c *fiber.Ctx) error {
	report, err := h.svc.Reconcile.InTransitReport(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	if c.Query("format") != "csv" {
		return c.JSON(report)
	}
	c.Attachment("checks_in_transit_" + report.GeneratedOn.String() + ".csv")
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return h.csv.InTransitCSV(c, report)
}
