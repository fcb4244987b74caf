package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/bookkeeper/internal/api"
	"github.com/insightdelivered/bookkeeper/internal/archive"
	"github.com/insightdelivered/bookkeeper/internal/auth"
	"github.com/insightdelivered/bookkeeper/internal/config"
	"github.com/insightdelivered/bookkeeper/internal/extractor"
	"github.com/insightdelivered/bookkeeper/internal/ledger"
	"github.com/insightdelivered/bookkeeper/internal/logger"
	"github.com/insightdelivered/bookkeeper/internal/models"
	"github.com/insightdelivered/bookkeeper/internal/parser"
	"github.com/insightdelivered/bookkeeper/internal/reconcile"
	"github.com/insightdelivered/bookkeeper/internal/statements"
	"github.com/insightdelivered/bookkeeper/internal/store"
	"github.com/insightdelivered/bookkeeper/internal/store/memory"
	"github.com/insightdelivered/bookkeeper/internal/store/sqlstore"
	"github.com/insightdelivered/bookkeeper/internal/writer"
)

const usage = `Bookkeeper: bank statement parsing and reconciliation

Usage:
  bookkeeper [serve]                      Run the HTTP API (default)
  bookkeeper parse [flags] <file>         Parse a statement PDF or text file to CSV
  bookkeeper token -user <id> [-ttl d]    Issue an API token for a user

Configuration is read from $BOOKKEEPER_CONFIG or ~/.config/bookkeeper/config.toml
and BOOKKEEPER_* environment variables (e.g. BOOKKEEPER_DATABASE_DRIVER=sqlite3).
`

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("config: %v\n", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	switch cmd {
	case "serve":
		err = runServe(cfg, log)
	case "parse":
		err = runParse(cfg, log, args)
	case "token":
		err = runToken(cfg, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stderr, usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		fatalf("unknown command %q\n", cmd)
	}
	if err != nil {
		fatalf("%s: %v\n", cmd, err)
	}
}

func runServe(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var archiver archive.Archiver = archive.Nop{}
	if cfg.Archive.GCSBucket != "" {
		gcs, err := archive.NewGCS(ctx, cfg.Archive.GCSBucket, cfg.Archive.CredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		archiver = gcs
	}

	ropts := reconcile.DefaultOptions()
	ropts.AmountTolerance = cfg.Reconcile.AmountTolerance
	ropts.DateWindowDays = cfg.Reconcile.DateWindowDays
	ropts.DepositWindow = cfg.Reconcile.DepositWindow
	if len(cfg.Reconcile.BankPaymentMethods) > 0 {
		ropts.BankPaymentMethods = cfg.Reconcile.BankPaymentMethods
	}

	svc := api.Services{
		Store:      st,
		Statements: statements.New(st, newParser(cfg), extractor.NewPDF(log), archiver, log),
		Reconcile:  reconcile.New(st, ropts, log),
		Ledger:     ledger.New(st, time.Now, log),
		Signer:     auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, nil),
	}
	app := api.New(svc, api.Options{
		BodyLimitMB: cfg.Server.BodyLimitMB,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, log)

	errc := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("listening")
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func openStore(ctx context.Context, db config.DatabaseConfig) (store.Store, error) {
	if db.Driver == "memory" {
		return memory.New(), nil
	}
	return sqlstore.Open(ctx, db.Driver, db.DSN(), db.MigrationURL())
}

func newParser(cfg config.Config) *parser.Parser {
	opts := parser.DefaultOptions()
	opts.MinLineLength = cfg.Parser.MinLineLength
	opts.MaxDescriptionLength = cfg.Parser.MaxDescriptionLength
	opts.MaxLines = cfg.Parser.MaxLines
	return parser.New(opts)
}

func runParse(cfg config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	outputFlag := fs.String("output", "", "Output CSV file path (defaults to input filename with .csv extension)")
	headerFlag := fs.Bool("header", true, "Include summary header rows in CSV")
	debugFlag := fs.Bool("debug", false, "Print rejected lines and the reason for each")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one input file")
	}
	inputPath := fs.Arg(0)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	var pages []string
	if extractor.IsPDF(data) {
		pages, err = extractor.NewPDF(log).Extract(context.Background(), data)
		if err != nil {
			return fmt.Errorf("PDF extraction failed: %w", err)
		}
	} else {
		pages = parser.SplitPages(string(data))
	}
	fmt.Printf("  Extracted text from %d page(s)\n", len(pages))

	info := newParser(cfg).Parse("", pages)
	fmt.Printf("  Lines: %d, skipped: %d, headers: %d, rejected: %d\n",
		info.Stats.Lines, info.Stats.Skipped, info.Stats.Headers, info.Stats.Rejected)
	fmt.Printf("  Found %d transaction(s)\n", len(info.Transactions))
	if info.Stats.Truncated {
		fmt.Println("  Warning: line cap reached; the rest of the document was not read.")
	}
	if len(info.Transactions) == 0 {
		fmt.Println("  Warning: No transactions found. Run with -debug to see why lines were rejected.")
	}
	if *debugFlag {
		for _, dl := range info.DebugLines {
			if dl.Result == models.LineRejected {
				fmt.Printf("  [p%d:%d] %-10s %s\n", dl.Page, dl.LineNum, dl.Reason, dl.Text)
			}
		}
	}

	outPath := *outputFlag
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".csv"
	}
	w := &writer.CSVWriter{IncludeHeader: *headerFlag}
	if err := w.WriteToFile(outPath, info.Transactions); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	fmt.Printf("  Output: %s\n", outPath)
	return nil
}

func runToken(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userFlag := fs.String("user", "", "User id to put in the token subject")
	ttlFlag := fs.Duration("ttl", cfg.Auth.TokenTTL, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userFlag == "" {
		return errors.New("-user is required")
	}
	token, err := auth.NewSigner(cfg.Auth.JWTSecret, *ttlFlag, nil).IssueToken(*userFlag)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
