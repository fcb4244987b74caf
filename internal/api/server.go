// Package api exposes the bookkeeping services over HTTP with fiber.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/bookkeeper/internal/auth"
	"github.com/insightdelivered/bookkeeper/internal/ledger"
	"github.com/insightdelivered/bookkeeper/internal/reconcile"
	"github.com/insightdelivered/bookkeeper/internal/statements"
	"github.com/insightdelivered/bookkeeper/internal/store"
	"github.com/insightdelivered/bookkeeper/internal/writer"
)

const version = "2.0.0"

// Services are the components the handlers call.
type Services struct {
	Store      store.Store
	Statements *statements.Service
	Reconcile  *reconcile.Engine
	Ledger     *ledger.Aggregator
	Signer     *auth.Signer
}

// Options configures the HTTP surface.
type Options struct {
	BodyLimitMB int
	CORSOrigins string
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	svc Services
	csv *writer.CSVWriter
	log zerolog.Logger
}

// New builds the fiber app with middleware and every route registered.
func New(svc Services, opts Options, log zerolog.Logger) *fiber.App {
	h := &Handler{
		svc: svc,
		csv: &writer.CSVWriter{IncludeHeader: true},
		log: log.With().Str("component", "api").Logger(),
	}

	if opts.CORSOrigins == "" {
		opts.CORSOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "bookkeeper " + version,
		BodyLimit:             opts.BodyLimitMB << 20,
		ErrorHandler:          h.handleError,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(h.log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes. Everything except health requires
// a bearer token.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.handleHealth)

	api := app.Group("/api", authRequired(h.svc.Signer))

	stmts := api.Group("/bank-statements")
	stmts.Get("/", h.listStatements)
	stmts.Post("/upload", h.uploadStatement)
	stmts.Post("/extract-text", h.extractText)
	stmts.Post("/test-parse", h.testParse)

	txns := api.Group("/bank-transactions")
	txns.Get("/", h.listTransactions)
	txns.Post("/", h.createTransaction)
	txns.Get("/export", h.exportTransactions)
	txns.Get("/:id", h.getTransaction)
	txns.Delete("/:id", h.deleteTransaction)
	txns.Post("/:id/validate", h.validateTransaction)
	txns.Post("/:id/match-check/:checkId", h.matchCheck)
	txns.Get("/:id/suggestions", h.suggestChecks)

	checks := api.Group("/checks")
	checks.Get("/", h.listChecks)
	checks.Post("/", h.createCheck)
	checks.Get("/in-transit-report", h.inTransitReport)
	checks.Get("/:id", h.getCheck)
	checks.Post("/:id/cancel", h.cancelCheck)
	checks.Delete("/:id", h.deleteCheck)

	recon := api.Group("/bank-reconciliation")
	recon.Post("/auto-match", h.autoMatch)
	recon.Get("/report", h.reconciliationReport)
	recon.Get("/deposits-in-transit", h.depositsInTransit)

	cats := api.Group("/categories")
	cats.Get("/", h.listCategories)
	cats.Post("/", h.createCategory)
	cats.Post("/defaults", h.seedCategories)
	cats.Delete("/:id", h.deleteCategory)

	sales := api.Group("/sales")
	sales.Get("/", h.listSales)
	sales.Post("/", h.createSale)
	sales.Delete("/:id", h.deleteSale)

	expenses := api.Group("/expenses")
	expenses.Get("/", h.listExpenses)
	expenses.Post("/", h.createExpense)
	expenses.Delete("/:id", h.deleteExpense)

	api.Get("/dashboard/summary", h.dashboardSummary)
	api.Get("/dashboard/comparison", h.dashboardComparison)
	api.Get("/analytics/report", h.analyticsReport)
	api.Get("/debug/cogs", h.debugCogs)
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": version,
	})
}
