package parser

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

var (
	ErrNoMatch   = errors.New("no pattern matched")
	ErrBadDate   = errors.New("unparseable date")
	ErrBadAmount = errors.New("unparseable amount")
	ErrFurniture = errors.New("statement furniture")
)

// Token fragments shared by the full-date patterns.
const (
	slashDate = `\d{1,2}/\d{1,2}/\d{2,4}`
	isoDate   = `\d{4}-\d{1,2}-\d{1,2}`
	amountTok = `\(?-?[$£€]?-?\d[\d,]*(?:\.\d{1,2})?\)?-?`
)

// Match holds the raw tokens a rule captured from one line.
type Match struct {
	Rule        string
	Groups      []string
	DateToken   string
	Month, Day  string // compact lines carry no year
	Description string
	AmountToken string
	CheckToken  string
}

// Rule tries to recognise one transaction line layout.
type Rule interface {
	Name() string
	Match(line string) (Match, bool)
}

// Candidate is a classified transaction line, not yet persisted.
type Candidate struct {
	Date        models.Date
	Description string
	Amount      float64
	Type        models.TxnType
	CheckNumber string
}

// compactRule matches "M/D [check#] description amount" with no year.
type compactRule struct {
	re *regexp.Regexp
}

func (compactRule) Name() string { return "compact" }

func (r compactRule) Match(line string) (Match, bool) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return Match{}, false
	}
	return Match{
		Rule:        "compact",
		Groups:      m[1:],
		Month:       m[1],
		Day:         m[2],
		CheckToken:  m[3],
		Description: m[4],
		AmountToken: m[5],
	}, true
}

// fullDateRule matches a line carrying a complete date, with the date,
// description and amount in the order given by the submatch indexes.
type fullDateRule struct {
	name               string
	re                 *regexp.Regexp
	date, desc, amount int
}

func (r fullDateRule) Name() string { return r.name }

func (r fullDateRule) Match(line string) (Match, bool) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return Match{}, false
	}
	return Match{
		Rule:        r.name,
		Groups:      m[1:],
		DateToken:   m[r.date],
		Description: m[r.desc],
		AmountToken: m[r.amount],
	}, true
}

// DefaultRules returns the rule list in priority order. The compact layout is
// tried first; full-date layouts follow.
func DefaultRules() []Rule {
	return []Rule{
		compactRule{re: regexp.MustCompile(`^(\d{1,2})/(\d{1,2})\s+(?:(\d{3,})\s+)?(.+?)\s+\$?(\d[\d,]*(?:\.\d{1,2})?)$`)},
		// Posting date followed by value date; the posting date is kept.
		fullDateRule{
			name: "dual_date",
			re:   regexp.MustCompile(`^(` + slashDate + `)\s+` + slashDate + `\s+(.+?)\s+(` + amountTok + `)$`),
			date: 1, desc: 2, amount: 3,
		},
		fullDateRule{
			name: "date_desc_amount",
			re:   regexp.MustCompile(`^(` + slashDate + `)\s+(.+?)\s+(` + amountTok + `)$`),
			date: 1, desc: 2, amount: 3,
		},
		fullDateRule{
			name: "date_amount_desc",
			re:   regexp.MustCompile(`^(` + slashDate + `)\s+(` + amountTok + `)\s+(.+)$`),
			date: 1, amount: 2, desc: 3,
		},
		fullDateRule{
			name: "desc_date_amount",
			re:   regexp.MustCompile(`^(.+?)\s+(` + slashDate + `)\s+(` + amountTok + `)$`),
			desc: 1, date: 2, amount: 3,
		},
		fullDateRule{
			name: "iso_date",
			re:   regexp.MustCompile(`^(` + isoDate + `)\s+(.+?)\s+(` + amountTok + `)$`),
			date: 1, desc: 2, amount: 3,
		},
		fullDateRule{
			name: "iso_date_amount_first",
			re:   regexp.MustCompile(`^(` + isoDate + `)\s+(` + amountTok + `)\s+(.+)$`),
			date: 1, amount: 2, desc: 3,
		},
	}
}

// Classifier turns single statement lines into transaction candidates.
type Classifier struct {
	rules          []Rule
	now            func() time.Time
	maxDescription int
}

// NewClassifier builds a classifier over DefaultRules. now supplies the year
// for compact lines.
func NewClassifier(now func() time.Time, maxDescription int) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{rules: DefaultRules(), now: now, maxDescription: maxDescription}
}

// Rules exposes the rule list in priority order.
func (c *Classifier) Rules() []Rule { return c.rules }

// Classify runs the rules in order. The first rule that matches decides the
// outcome: if its tokens fail to normalize the line is rejected without
// consulting later rules.
func (c *Classifier) Classify(line string) (Candidate, Match, error) {
	for _, rule := range c.rules {
		m, ok := rule.Match(line)
		if !ok {
			continue
		}
		cand, err := c.build(m)
		return cand, m, err
	}
	return Candidate{}, Match{}, ErrNoMatch
}

func (c *Classifier) build(m Match) (Candidate, error) {
	desc := collapseSpaces(m.Description)
	amount, negative, err := NormalizeAmount(m.AmountToken)
	if err != nil {
		return Candidate{}, fmt.Errorf("%s: %w", m.Rule, err)
	}

	cand := Candidate{Amount: amount}
	if m.DateToken == "" {
		cand.Date, err = parseShortDate(m.Month, m.Day, c.now().Year())
		if err != nil {
			return Candidate{}, fmt.Errorf("%s: %w", m.Rule, err)
		}
		cand.Type = compactDirection(desc)
	} else {
		if isFurniture(desc) {
			return Candidate{}, fmt.Errorf("%s: %w: %q", m.Rule, ErrFurniture, desc)
		}
		cand.Date, err = ParseDate(m.DateToken)
		if err != nil {
			return Candidate{}, fmt.Errorf("%s: %w", m.Rule, err)
		}
		cand.Type = inferDirection(desc, negative)
	}

	cand.CheckNumber = m.CheckToken
	if cand.CheckNumber == "" {
		cand.CheckNumber = findCheckNumber(desc)
	}
	cand.Description = truncate(desc, c.maxDescription)
	return cand, nil
}
