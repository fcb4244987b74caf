// Package statements ingests uploaded bank statements: extract text, parse
// lines into transactions, persist the statement and its transactions.
package statements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/bookkeeper/internal/archive"
	"github.com/insightdelivered/bookkeeper/internal/extractor"
	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/parser"
	"github.com/insightdelivered/bookkeeper/internal/store"
)

var (
	// ErrInvalidInput is returned for malformed uploads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExtraction is returned when no text could be pulled from a file.
	ErrExtraction = errors.New("text extraction failed")
)

// Extractor returns the text of each page of a PDF.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]string, error)
}

// Store is the persistence the service needs.
type Store interface {
	store.StatementStore
	store.TransactionStore
}

// UploadRequest describes one statement upload. When ExtractedText is set
// the file bytes are not extracted.
type UploadRequest struct {
	UserID          string
	Filename        string
	Data            []byte
	ExtractedText   string
	PeriodStart     *models.Date
	PeriodEnd       *models.Date
	StartingBalance *float64
	EndingBalance   *float64
}

// UploadResult summarises an upload. A zero count is still a success.
type UploadResult struct {
	Message           string            `json:"message"`
	StatementID       string            `json:"statement_id"`
	TransactionsCount int               `json:"transactions_count"`
	TextLength        int               `json:"text_length"`
	Pages             int               `json:"pages"`
	Stats             models.ParseStats `json:"stats"`
	ArchiveURI        string            `json:"archive_uri,omitempty"`
}

// ExtractResult is the raw text of an upload, pages joined by parser.PageBreak.
type ExtractResult struct {
	Text       string `json:"text"`
	Pages      int    `json:"pages"`
	TextLength int    `json:"text_length"`
}

// Service runs statement ingestion.
type Service struct {
	store     Store
	parser    *parser.Parser
	extractor Extractor
	archiver  archive.Archiver
	log       zerolog.Logger
}

// New creates a Service. A nil archiver disables archiving.
func New(s Store, p *parser.Parser, ex Extractor, ar archive.Archiver, log zerolog.Logger) *Service {
	if ar == nil {
		ar = archive.Nop{}
	}
	return &Service{
		store:     s,
		parser:    p,
		extractor: ex,
		archiver:  ar,
		log:       log.With().Str("component", "statements").Logger(),
	}
}

// Upload parses a statement and stores it with its transactions.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if req.PeriodStart != nil && req.PeriodEnd != nil && req.PeriodEnd.Before(req.PeriodStart.Time) {
		return nil, fmt.Errorf("%w: period_end is before period_start", ErrInvalidInput)
	}

	var pages []string
	if strings.TrimSpace(req.ExtractedText) != "" {
		pages = parser.SplitPages(req.ExtractedText)
	} else {
		var err error
		pages, err = s.pages(ctx, req.Data)
		if err != nil {
			return nil, err
		}
	}

	info := s.parser.Parse(req.UserID, pages)

	stmt := &models.BankStatement{
		UserID:            req.UserID,
		Filename:          req.Filename,
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		StartingBalance:   req.StartingBalance,
		EndingBalance:     req.EndingBalance,
		TransactionsCount: len(info.Transactions),
	}
	if err := s.store.CreateStatement(ctx, stmt); err != nil {
		return nil, fmt.Errorf("create statement: %w", err)
	}

	for i := range info.Transactions {
		info.Transactions[i].StatementID = stmt.ID
		info.Transactions[i].Position = i
	}
	if len(info.Transactions) > 0 {
		if _, err := s.store.InsertTransactions(ctx, info.Transactions); err != nil {
			return nil, fmt.Errorf("insert transactions for statement %s: %w", stmt.ID, err)
		}
	}

	s.log.Info().
		Str("user_id", req.UserID).
		Str("statement_id", stmt.ID).
		Str("filename", req.Filename).
		Int("pages", len(pages)).
		Int("lines", info.Stats.Lines).
		Int("skipped", info.Stats.Skipped).
		Int("headers", info.Stats.Headers).
		Int("parsed", info.Stats.Parsed).
		Int("rejected", info.Stats.Rejected).
		Interface("rejected_by", info.Stats.RejectedBy).
		Bool("truncated", info.Stats.Truncated).
		Msg("statement parsed")

	result := &UploadResult{
		StatementID:       stmt.ID,
		TransactionsCount: len(info.Transactions),
		TextLength:        info.TextLength,
		Pages:             len(pages),
		Stats:             info.Stats,
	}
	if result.TransactionsCount == 0 {
		result.Message = "No transactions detected; add them manually"
	} else {
		result.Message = fmt.Sprintf("Statement processed: %d transactions extracted", result.TransactionsCount)
	}

	if len(req.Data) > 0 {
		uri, err := s.archiver.Archive(ctx, req.UserID, stmt.ID, req.Filename, req.Data)
		if err != nil {
			s.log.Warn().Err(err).Str("statement_id", stmt.ID).Msg("archive failed")
		}
		result.ArchiveURI = uri
	}

	return result, nil
}

// ExtractText returns the raw text of an uploaded file without parsing it.
func (s *Service) ExtractText(ctx context.Context, data []byte) (*ExtractResult, error) {
	pages, err := s.pages(ctx, data)
	if err != nil {
		return nil, err
	}
	text := strings.Join(pages, parser.PageBreak)
	return &ExtractResult{Text: text, Pages: len(pages), TextLength: len(text)}, nil
}

// TestParse runs the parser over raw text and returns per-line diagnostics.
// Nothing is persisted.
func (s *Service) TestParse(text string) (*models.StatementInfo, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return s.parser.TestParse(text), nil
}

// pages extracts PDF uploads and splits plain-text uploads.
func (s *Service) pages(ctx context.Context, data []byte) ([]string, error) {
	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: a file or extracted text is required", ErrInvalidInput)
	case extractor.IsPDF(data):
		pages, err := s.extractor.Extract(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		return pages, nil
	case utf8.Valid(data):
		return parser.SplitPages(string(data)), nil
	default:
		return nil, fmt.Errorf("%w: file is neither a PDF nor UTF-8 text", ErrInvalidInput)
	}
}
