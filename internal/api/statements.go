package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/statements"
)

// TestParseResponse carries per-line classifier diagnostics.
type TestParseResponse struct {
	Count        int                      `json:"count"`
	TextLength   int                      `json:"text_length"`
	Stats        models.ParseStats        `json:"stats"`
	Transactions []models.BankTransaction `json:"transactions"`
	Lines        []models.DebugLine       `json:"lines"`
}

func (h *Handler) listStatements(c *fiber.Ctx) error {
	stmts, err := h.svc.Store.ListStatements(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(orEmpty(stmts))
}

func (h *Handler) uploadStatement(c *fiber.Ctx) error {
	req := statements.UploadRequest{
		UserID:        userID(c),
		ExtractedText: c.FormValue("extractedText"),
	}

	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		data, err := readFormFile(fh)
		if err != nil {
			return err
		}
		req.Data = data
		req.Filename = fh.Filename
	case req.ExtractedText == "":
		return badRequest("no file uploaded; use form field 'file'")
	default:
		req.Filename = c.FormValue("filename")
	}

	start, err := parseDate("period_start", c.FormValue("period_start"))
	if err != nil {
		return err
	}
	end, err := parseDate("period_end", c.FormValue("period_end"))
	if err != nil {
		return err
	}
	req.PeriodStart, req.PeriodEnd = datePtr(start), datePtr(end)

	if req.StartingBalance, err = parseOptionalFloat("starting_balance", c.FormValue("starting_balance")); err != nil {
		return err
	}
	if req.EndingBalance, err = parseOptionalFloat("ending_balance", c.FormValue("ending_balance")); err != nil {
		return err
	}

	res, err := h.svc.Statements.Upload(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) extractText(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("no file uploaded; use form field 'file'")
	}
	data, err := readFormFile(fh)
	if err != nil {
		return err
	}
	res, err := h.svc.Statements.ExtractText(c.UserContext(), data)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) testParse(c *fiber.Ctx) error {
	var body struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest("body must carry a text field")
	}

	info, err := h.svc.Statements.TestParse(body.Text)
	if err != nil {
		return err
	}
	return c.JSON(TestParseResponse{
		Count:        len(info.Transactions),
		TextLength:   info.TextLength,
		Stats:        info.Stats,
		Transactions: orEmpty(info.Transactions),
		Lines:        orEmpty(info.DebugLines),
	})
}
