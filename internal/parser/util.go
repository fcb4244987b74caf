package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

// Date layouts tried in order; the first that parses the literal token wins.
var dateLayouts = []string{
	"1/2/2006", // MM/DD/YYYY
	"1/2/06",   // MM/DD/YY
	"2006-1-2", // ISO
	"2/1/2006", // DD/MM/YYYY
	"2/1/06",   // DD/MM/YY
}

// Direction keywords, matched case-insensitively at word boundaries.
var (
	creditKeywords = regexp.MustCompile(`(?i)\b(?:from|deposits?|payment received|transfer in|credit|dep[oó]sito|abono)\b`)
	debitKeywords  = regexp.MustCompile(`(?i)\b(?:to|purchase|payment|withdrawal|debit|check|atm|retiro|cargo|cheque)\b`)

	// Statement furniture that full-date patterns tend to pick up.
	furnitureKeywords = regexp.MustCompile(`(?i)\b(?:total|subtotal|balance|continued|page)\b`)

	checkNumberKeyword = regexp.MustCompile(`(?i)\b(?:check|chk|cheque)\s*#?\s*(\d+)`)
	checkNumberHash    = regexp.MustCompile(`#(\d{4,})`)

	amountDigits = regexp.MustCompile(`^(?:\d+(?:\.\d*)?|\.\d+)$`)
)

// amountStripper removes currency symbols, thousands separators and spacing.
var amountStripper = strings.NewReplacer(
	"$", "",
	"£", "",
	"€", "",
	",", "",
	" ", "",
	"\u00a0", "",
	"\t", "",
)

// NormalizeAmount converts an amount token like "$1,234.56", "(500.00)" or
// "-57" into an unsigned magnitude. negative reports whether the token carried
// a minus sign or enclosing parentheses.
func NormalizeAmount(token string) (magnitude float64, negative bool, err error) {
	s := strings.TrimSpace(token)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountStripper.Replace(s)

	// A minus may sit before or after the currency symbol, or trail the number.
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasSuffix(s, "-") {
		negative = true
		s = s[:len(s)-1]
	}
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if !amountDigits.MatchString(s) {
		return 0, false, fmt.Errorf("%w: %q", ErrBadAmount, token)
	}

	v, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return 0, false, fmt.Errorf("%w: %q", ErrBadAmount, token)
	}
	return v, negative, nil
}

// ParseDate normalizes a full date token using the fixed layout order.
func ParseDate(token string) (models.Date, error) {
	token = strings.TrimSpace(token)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("%w: %q", ErrBadDate, token)
}

// parseShortDate resolves a month/day pair against the given year.
func parseShortDate(month, day string, year int) (models.Date, error) {
	t, err := time.Parse("1/2/2006", fmt.Sprintf("%s/%s/%d", month, day, year))
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: %s/%s", ErrBadDate, month, day)
	}
	return models.DateOf(t), nil
}

// compactDirection decides direction from description keywords only; credit
// phrases outrank debit phrases and the fallback is debit.
func compactDirection(description string) models.TxnType {
	if creditKeywords.MatchString(description) {
		return models.Credit
	}
	return models.Debit
}

// inferDirection is used for full-date lines where the amount sign is known.
func inferDirection(description string, negative bool) models.TxnType {
	switch {
	case negative, debitKeywords.MatchString(description):
		return models.Debit
	case creditKeywords.MatchString(description):
		return models.Credit
	default:
		return models.Debit
	}
}

// findCheckNumber searches a description for a check reference.
func findCheckNumber(description string) string {
	if m := checkNumberKeyword.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	if m := checkNumberHash.FindStringSubmatch(description); m != nil {
		return m[1]
	}
	return ""
}

func isFurniture(description string) bool {
	return furnitureKeywords.MatchString(description)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

// collapseSpaces folds runs of whitespace produced by PDF extraction.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
