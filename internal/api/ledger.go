package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

type createCategoryRequest struct {
	Name   string              `json:"name"`
	Type   models.CategoryType `json:"type"`
	IsCOGS bool                `json:"is_cogs"`
}

type createSaleRequest struct {
	Date          models.Date `json:"date"`
	Amount        float64     `json:"amount"`
	CategoryID    string      `json:"category_id"`
	PaymentMethod string      `json:"payment_method"`
	Description   string      `json:"description"`
}

type createExpenseRequest struct {
	Date        models.Date `json:"date"`
	Amount      float64     `json:"amount"`
	CategoryID  string      `json:"category_id"`
	Description string      `json:"description"`
}

// Categories

func (h *Handler) listCategories(c *fiber.Ctx) error {
	cats, err := h.svc.Store.ListCategories(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(cats))
}

func (h *Handler) createCategory(c *fiber.Ctx) error {
	var req createCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(fmt.Sprintf("invalid body: %v", err))
	}
	cat := &models.Category{
		UserID: userID(c),
		Name:   req.Name,
		Type:   req.Type,
		IsCOGS: req.IsCOGS && req.Type == models.ExpenseCategory,
	}
	if err := h.svc.Store.CreateCategory(c.UserContext(), cat); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}

func (h *Handler) seedCategories(c *fiber.Ctx) error {
	created, err := h.svc.Ledger.SeedDefaultCategories(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"created":    len(created),
		"categories": orEmpty(created),
	})
}

func (h *Handler) deleteCategory(c *fiber.Ctx) error {
	if err := h.svc.Store.DeleteCategory(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(deleted("category"))
}

// Sales

func (h *Handler) listSales(c *fiber.Ctx) error {
	r, err := queryRange(c)
	if err != nil {
		return err
	}
	sales, err := h.svc.Store.ListSales(c.UserContext(), userID(c), r)
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(sales))
}

func (h *Handler) createSale(c *fiber.Ctx) error {
	var req createSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(fmt.Sprintf("invalid body: %v", err))
	}
	sale := &models.Sale{
		UserID:        userID(c),
		Date:          req.Date,
		Amount:        req.Amount,
		CategoryID:    req.CategoryID,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		Source:        "manual",
	}
	if err := h.svc.Store.CreateSale(c.UserContext(), sale); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sale)
}

func (h *Handler) deleteSale(c *fiber.Ctx) error {
	if err := h.svc.Store.DeleteSale(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(deleted("sale"))
}

// Expenses

func (h *Handler) listExpenses(c *fiber.Ctx) error {
	r, err := queryRange(c)
	if err != nil {
		return err
	}
	expenses, err := h.svc.Store.ListExpenses(c.UserContext(), userID(c), r)
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(expenses))
}

func (h *Handler) createExpense(c *fiber.Ctx) error {
	var req createExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(fmt.Sprintf("invalid body: %v", err))
	}
	expense := &models.Expense{
		UserID:      userID(c),
		Date:        req.Date,
		Amount:      req.Amount,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	}
	if err := h.svc.Store.CreateExpense(c.UserContext(), expense); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(expense)
}

func (h *Handler) deleteExpense(c *fiber.Ctx) error {
	if err := h.svc.Store.DeleteExpense(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(deleted("expense"))
}

// Reports

func (h *Handler) dashboardSummary(c *fiber.Ctx) error {
	r, err := queryRange(c)
	if err != nil {
		return err
	}
	summary, err := h.svc.Ledger.Summary(c.UserContext(), userID(c), r)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *Handler) dashboardComparison(c *fiber.Ctx) error {
	months := c.QueryInt("months", 6)
	if months < 1 || months > 60 {
		return badRequest("months must be between 1 and 60")
	}
	cmp, err := h.svc.Ledger.MonthComparison(c.UserContext(), userID(c), months)
	if err != nil {
		return err
	}
	return c.JSON(cmp)
}

func (h *Handler) analyticsReport(c *fiber.Ctx) error {
	start, err := parseDate("start_date", c.Query("start_date"))
	if err != nil {
		return err
	}
	end, err := parseDate("end_date", c.Query("end_date"))
	if err != nil {
		return err
	}
	report, err := h.svc.Ledger.PeriodReport(c.UserContext(), userID(c), c.Query("filter_type", "month"), start, end)
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *Handler) debugCogs(c *fiber.Ctx) error {
	r, err := queryRange(c)
	if err != nil {
		return err
	}
	breakdown, err := h.svc.Ledger.CogsBreakdown(c.UserContext(), userID(c), r)
	if err != nil {
		return err
	}
	return c.JSON(breakdown)
}
