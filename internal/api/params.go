package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

// parseDate reads an optional YYYY-MM-DD value; empty yields the zero date.
func parseDate(key, value string) (models.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseISODate(value)
	if err != nil {
		return models.Date{}, badRequest(fmt.Sprintf("%s must be a YYYY-MM-DD date", key))
	}
	return d, nil
}

func parseOptionalFloat(key, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, badRequest(fmt.Sprintf("%s must be a number", key))
	}
	return &f, nil
}

// queryRange reads start_date and end_date.
func queryRange(c *fiber.Ctx) (store.DateRange, error) {
	from, err := parseDate("start_date", c.Query("start_date"))
	if err != nil {
		return store.DateRange{}, err
	}
	to, err := parseDate("end_date", c.Query("end_date"))
	if err != nil {
		return store.DateRange{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		return store.DateRange{}, badRequest("end_date is before start_date")
	}
	return store.DateRange{From: from, To: to}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func datePtr(d models.Date) *models.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func deleted(what string) fiber.Map {
	return fiber.Map{"success": true, "message": what + " deleted"}
}
