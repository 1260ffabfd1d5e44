package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"fixity/internal/archive"
	"fixity/internal/bagit"
	"fixity/internal/config"
	"fixity/internal/ldp"
	"fixity/internal/progress"
	"fixity/internal/rdf"
	"fixity/internal/report"
	"fixity/internal/verify"
)

var (
	verifyUser     string
	verifyWorkers  int
	verifyTimeout  time.Duration
	verifyBinaries bool
	verifyCSVDir   string
	verifyHistory  string
	noProgress     bool
)

// verifyCmd runs the acceptance check described by a migration config file.
var verifyCmd = &cobra.Command{
	Use:   "verify [config.yaml]",
	Short: "Verify a migration against its source",
	Long: `Runs the acceptance check described by a migration config file.

The config names the live repository, the archive directory, and the
direction the transfer ran. fixity pairs every resource found on either
side and reports one verdict per identifier; a resource present on only
one side is reported as missing rather than skipped.

Findings print to stdout as they are found. Use --csv-dir for a
per-resource report and --history to append the run to a SQLite log
queryable with "fixity history".

Example:
  fixity verify export.yaml --csv-dir ./reports --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyUser, "user", "u", "", "Repository credentials as user:pass (overrides config)")
	verifyCmd.Flags().IntVar(&verifyWorkers, "workers", 1, "Number of resources to verify concurrently")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 0, "Per-resource time limit (overrides config)")
	verifyCmd.Flags().BoolVar(&verifyBinaries, "binaries", true, "Verify binary resources and their metadata")
	verifyCmd.Flags().StringVar(&verifyCSVDir, "csv-dir", "", "Directory to write a per-resource CSV report into")
	verifyCmd.Flags().StringVar(&verifyHistory, "history", "", "SQLite file recording run history (overrides config)")
	verifyCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if verifyUser != "" {
		cfg.User = verifyUser
	}
	if verifyHistory != "" {
		cfg.HistoryDB = verifyHistory
	}
	if verifyTimeout > 0 {
		cfg.Timeout = verifyTimeout.String()
	}
	if cmd.Flags().Changed("binaries") {
		cfg.Binaries = verifyBinaries
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown: finish the resource in flight, record what
	// was verified so far, and exit through the normal reporting path.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Received shutdown signal, stopping after current resources")
		cancel()
	}()

	user, pass, _ := cfg.Credentials()
	client, err := ldp.NewClient(cfg.Repository, ldp.Options{
		User:    user,
		Pass:    pass,
		RDFLang: cfg.RDFLang,
		Timeout: cfg.GetTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if err := client.Preflight(ctx); err != nil {
		return err
	}

	if cfg.Bag {
		problems, err := bagit.Validate(cfg.Dir)
		if err != nil {
			return fmt.Errorf("failed to validate bag: %w", err)
		}
		for _, p := range problems {
			logger.Error("Bag problem", zap.String("path", p.Path), zap.String("detail", p.Detail))
		}
		if len(problems) > 0 {
			return fmt.Errorf("bag validation failed with %d problems", len(problems))
		}
		logger.Info("Bag validated", zap.String("dir", cfg.Dir))
	}

	archWalker, err := archive.NewWalker(cfg.PayloadDir(), cfg.Binaries, logger)
	if err != nil {
		return err
	}
	liveWalker := ldp.NewWalker(client, cfg.Binaries)

	var matched, mismatched, errored, missing atomic.Int64
	var bar *progress.Bar
	console := report.NewConsole(os.Stdout)
	console.Verbose = verbose

	eng := verify.New(liveWalker, archWalker, verify.Options{
		Workers:           verifyWorkers,
		Timeout:           cfg.GetTimeout(),
		IgnoredPredicates: cfg.IgnoredPredicates,
		Limits: rdf.Limits{
			MaxBlankNodes: cfg.MaxBlankNodes,
			MaxSteps:      cfg.IsoStepLimit,
		},
		Start: func(total int) {
			if noProgress || !term.IsTerminal(int(os.Stderr.Fd())) {
				return
			}
			bar = progress.New(os.Stderr, int64(total), func() (int64, int64, int64, int64) {
				return matched.Load(), mismatched.Load(), errored.Load(), missing.Load()
			})
		},
		Observer: func(rec verify.Record) {
			switch rec.Outcome.Kind {
			case verify.Match:
				matched.Add(1)
			case verify.Mismatch:
				mismatched.Add(1)
			case verify.Error:
				errored.Add(1)
			case verify.Missing:
				missing.Add(1)
			}
			console.Record(rec)
			if bar != nil {
				bar.Step()
			}
		},
		Logger: logger,
	})

	rep, verr := eng.Verify(ctx)
	if bar != nil {
		bar.Close()
	}
	if verr != nil && !errors.Is(verr, context.Canceled) {
		return verr
	}

	if verifyCSVDir != "" {
		if err := os.MkdirAll(verifyCSVDir, 0755); err != nil {
			return fmt.Errorf("failed to create csv directory: %w", err)
		}
		path := report.CSVPath(verifyCSVDir, time.Now())
		if err := report.WriteCSV(path, rep); err != nil {
			return err
		}
		logger.Info("CSV report written", zap.String("path", path))
	}

	if cfg.HistoryDB != "" {
		if err := recordHistory(cfg, rep); err != nil {
			logger.Warn("Failed to record run history", zap.Error(err))
		}
	}

	console.Summary(rep)

	if verr != nil {
		return fmt.Errorf("verification interrupted after %d resources", rep.Counts.Total())
	}
	if !rep.Clean() {
		exitCode = 1
	}
	return nil
}

func recordHistory(cfg *config.Config, rep *verify.Report) error {
	h, err := report.OpenHistory(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer h.Close()
	return h.RecordRun(rep, cfg.Repository, cfg.Dir)
}
