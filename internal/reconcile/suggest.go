package reconcile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

// Suggestion is a pending check ranked against one transaction.
type Suggestion struct {
	Check       models.Check `json:"check"`
	Score       float64      `json:"score"`
	AmountDiff  float64      `json:"amount_diff"`
	DaysApart   int          `json:"days_apart"`
	NumberMatch bool         `json:"number_match"`
	Similarity  float64      `json:"similarity"`
}

// Suggest ranks pending checks as candidates for txnID by check number,
// amount distance, date distance and payee similarity. It never links.
func (e *Engine) Suggest(ctx context.Context, userID, txnID string, limit int) ([]Suggestion, error) {
	txn, err := e.store.GetTransaction(ctx, userID, txnID)
	if err != nil {
		return nil, err
	}
	pending, err := e.store.ListChecks(ctx, userID, store.CheckFilter{Status: models.CheckPending})
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}

	out := []Suggestion{}
	for _, c := range pending {
		s := e.score(*txn, c)
		if s.Score <= 0 {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (e *Engine) score(txn models.BankTransaction, c models.Check) Suggestion {
	s := Suggestion{
		Check:       c,
		AmountDiff:  math.Abs(txn.Amount - c.Amount),
		DaysApart:   daysApart(txn.Date, c.DateIssued),
		NumberMatch: txn.CheckNumber != "" && txn.CheckNumber == c.CheckNumber,
		Similarity:  payeeSimilarity(c.Payee, txn.Description),
	}

	amountScore := 0.0
	if e.amountsMatch(txn.Amount, c.Amount) {
		amountScore = 1
	} else if c.Amount > 0 {
		amountScore = math.Max(0, 1-s.AmountDiff/c.Amount)
	}
	window := float64(e.opts.DateWindowDays * 4)
	dateScore := math.Max(0, 1-float64(s.DaysApart)/window)

	score := 0.5*amountScore + 0.3*dateScore + 0.2*s.Similarity
	if s.NumberMatch {
		score += 1
	}
	s.Score = math.Round(score*1000) / 1000
	return s
}

// payeeSimilarity compares the payee with the description as a whole and with
// each same-length run of description words, keeping the best ratio.
func payeeSimilarity(payee, description string) float64 {
	p := strings.ToUpper(strings.TrimSpace(payee))
	d := strings.ToUpper(strings.TrimSpace(description))
	if p == "" || d == "" {
		return 0
	}

	best := ratio(p, d)
	words := strings.Fields(d)
	n := len(strings.Fields(p))
	for i := 0; i+n <= len(words); i++ {
		if r := ratio(p, strings.Join(words[i:i+n], " ")); r > best {
			best = r
		}
	}
	return best
}

func ratio(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
