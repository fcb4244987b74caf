package ledger

import (
	"context"
	"fmt"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

type defaultCategory struct {
	name   string
	typ    models.CategoryType
	isCOGS bool
}

var defaultCategories = []defaultCategory{
	{"Ventas de Productos", models.IncomeCategory, false},
	{"Servicios", models.IncomeCategory, false},
	{"Propinas", models.IncomeCategory, false},
	{"Otros Ingresos", models.IncomeCategory, false},
	{"Costo de Mercancía Vendida", models.ExpenseCategory, true},
	{"Inventario/Productos", models.ExpenseCategory, true},
	{"Renta", models.ExpenseCategory, false},
	{"Nómina", models.ExpenseCategory, false},
	{"Marketing", models.ExpenseCategory, false},
	{"Servicios Públicos", models.ExpenseCategory, false},
	{"Mantenimiento", models.ExpenseCategory, false},
	{"Otros Gastos", models.ExpenseCategory, false},
}

// SeedDefaultCategories creates the predefined taxonomy for a user, skipping
// any name/type pair the user already has. It returns the categories created.
func (a *Aggregator) SeedDefaultCategories(ctx context.Context, userID string) ([]models.Category, error) {
	existing, err := a.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[string(c.Type)+"/"+c.Name] = true
	}

	created := []models.Category{}
	for _, d := range defaultCategories {
		if have[string(d.typ)+"/"+d.name] {
			continue
		}
		c := models.Category{
			UserID:       userID,
			Name:         d.name,
			Type:         d.typ,
			IsPredefined: true,
			IsCOGS:       d.isCOGS,
		}
		if err := a.store.CreateCategory(ctx, &c); err != nil {
			return created, fmt.Errorf("create category %q: %w", d.name, err)
		}
		created = append(created, c)
	}
	a.log.Info().Str("user_id", userID).Int("created", len(created)).Msg("seeded default categories")
	return created, nil
}
