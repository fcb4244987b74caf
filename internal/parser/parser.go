package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/bookkeeper/internal/models"
)

// PageBreak separates pages when a statement is carried as a single text blob.
const PageBreak = "\n---PAGE_BREAK---\n"

// Header and footer markers in English and Spanish. A line containing any of
// them is never classified.
var headerMarkers = regexp.MustCompile(`(?i)\b(?:date|fecha|description|descripci[oó]n|amount|monto|importe|balance|saldo|page|p[aá]gina|statement period|account number|n[uú]mero de cuenta)\b`)

// Options tunes the statement parser.
type Options struct {
	MinLineLength        int
	MaxDescriptionLength int
	// MaxLines caps the number of lines examined per statement; 0 means no cap.
	MaxLines int
	Now      func() time.Time
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		MinLineLength:        10,
		MaxDescriptionLength: 200,
		MaxLines:             50000,
		Now:                  time.Now,
	}
}

// Parser turns extracted statement text into transaction candidates. It holds
// no state between calls and is safe for concurrent use.
type Parser struct {
	opts       Options
	classifier *Classifier
}

// New returns a Parser using the default rule list.
func New(opts Options) *Parser {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Parser{
		opts:       opts,
		classifier: NewClassifier(opts.Now, opts.MaxDescriptionLength),
	}
}

// Classifier returns the underlying line classifier.
func (p *Parser) Classifier() *Classifier { return p.classifier }

// SplitPages splits a text blob on page-break markers (or form feeds, as
// emitted by pdftotext).
func SplitPages(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var pages []string
	for _, chunk := range strings.Split(text, PageBreak) {
		pages = append(pages, strings.Split(chunk, "\f")...)
	}
	return pages
}

// Parse classifies every line of every page. Lines that do not classify are
// dropped and counted; they never fail the parse. Output keeps source order
// and is not deduplicated. Transactions carry userID and a blank statement id.
func (p *Parser) Parse(userID string, pages []string) *models.StatementInfo {
	info := &models.StatementInfo{
		Stats: models.ParseStats{RejectedBy: map[string]int{}},
	}

	lineNum := 0
	for pageIdx, page := range pages {
		info.TextLength += len(page)
		for _, raw := range strings.Split(page, "\n") {
			if p.opts.MaxLines > 0 && lineNum >= p.opts.MaxLines {
				info.Stats.Truncated = true
				return info
			}
			lineNum++
			info.Stats.Lines++

			dl := models.DebugLine{Page: pageIdx + 1, LineNum: lineNum, Text: raw}
			line := strings.TrimSpace(raw)

			switch {
			case line == "" || len([]rune(line)) < p.opts.MinLineLength:
				dl.Result = models.LineSkipped
				dl.Reason = "too_short"
				info.Stats.Skipped++
			case headerMarkers.MatchString(line):
				dl.Result = models.LineHeader
				info.Stats.Headers++
			default:
				cand, m, err := p.classifyLine(line)
				dl.Rule = m.Rule
				dl.Groups = m.Groups
				dl.Matched = m.Rule != ""
				if err != nil {
					dl.Result = models.LineRejected
					dl.Reason = rejectReason(err)
					info.Stats.Rejected++
					info.Stats.RejectedBy[dl.Reason]++
					break
				}
				dl.Result = models.LineParsed
				dl.Date = cand.Date.String()
				dl.Type = cand.Type
				dl.Amount = cand.Amount
				dl.CheckNumber = cand.CheckNumber
				info.Stats.Parsed++
				info.Transactions = append(info.Transactions, models.BankTransaction{
					UserID:      userID,
					Date:        cand.Date,
					Description: cand.Description,
					Amount:      cand.Amount,
					Type:        cand.Type,
					CheckNumber: cand.CheckNumber,
				})
			}
			info.DebugLines = append(info.DebugLines, dl)
		}
	}
	return info
}

// TestParse runs the parser over a raw text blob and keeps the per-line
// diagnostics. It bypasses PDF extraction entirely.
func (p *Parser) TestParse(text string) *models.StatementInfo {
	return p.Parse("", SplitPages(text))
}

// classifyLine shields the document loop from a misbehaving rule.
func (p *Parser) classifyLine(line string) (cand Candidate, m Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return p.classifier.Classify(line)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrBadDate):
		return "bad_date"
	case errors.Is(err, ErrBadAmount):
		return "bad_amount"
	case errors.Is(err, ErrFurniture):
		return "furniture"
	default:
		return "error"
	}
}
