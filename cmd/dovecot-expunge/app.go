package main

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/migadu/dovecot-expunge/config"
	"github.com/migadu/dovecot-expunge/db"
	"github.com/migadu/dovecot-expunge/doveadm"
	"github.com/migadu/dovecot-expunge/expunge"
	"github.com/migadu/dovecot-expunge/logger"
	"github.com/migadu/dovecot-expunge/pkg/metrics"
)

// recordStore is the database as the commands use it.
type recordStore interface {
	expunge.RecordSource
	Close() error
}

type app struct {
	log       *logger.Logger
	openDB    func(ctx context.Context, sc *config.SQLConfig) (recordStore, error)
	newRunner func(path string) doveadm.Runner
}

func newApp(log *logger.Logger) *app {
	return &app{
		log: log,
		openDB: func(ctx context.Context, sc *config.SQLConfig) (recordStore, error) {
			database, err := db.Open(ctx, sc)
			if err != nil {
				return nil, err
			}
			return database, nil
		},
		newRunner: func(path string) doveadm.Runner {
			return doveadm.NewExecRunner(path)
		},
	}
}

// connect reads the Dovecot SQL config and opens the database it names.
// Errors are worded for the fatal log line, see fatalMessage.
func (a *app) connect(ctx context.Context, path string) (recordStore, error) {
	sc, err := config.ReadSQLConfig(path)
	switch {
	case errors.Is(err, config.ErrEmptyPath):
		return nil, fmt.Errorf("could not read connection parameter file: %w", err)
	case errors.Is(err, config.ErrNoConnect):
		return nil, fmt.Errorf("could not read connection parameters from config file %s: %w", path, config.ErrNoConnect)
	case errors.Is(err, config.ErrMalformedParams):
		return nil, fmt.Errorf("bad format for connection parameters: %w", err)
	case err != nil:
		return nil, fmt.Errorf("could not read connection parameter file %s: %w", path, err)
	}

	a.log.Debugf("Connecting to %s database from %s", sc.Driver, sc.Path)
	database, err := a.openDB(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	return database, nil
}

// runExpunge performs one expunge pass. Any returned error is fatal.
func (a *app) runExpunge(ctx context.Context, cfg config.Config) error {
	start := time.Now()
	a.log.Info("Beginning Dovecot Expunge")

	database, err := a.connect(ctx, cfg.SQLConfig)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.DryRun {
		a.log.Info("Dry run: messages will be listed but not expunged")
	}

	worker := expunge.New(database, doveadm.NewClient(a.newRunner(cfg.DoveadmPath)), a.log, bool(cfg.DryRun))
	summary, runErr := worker.Run(ctx)

	metrics.ObserveRun(start, runErr == nil)
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			a.log.Warnf("Could not write metrics to %s: %v", cfg.MetricsFile, err)
		}
	}

	if runErr != nil {
		return runErr
	}

	a.log.Debug("Expunge summary",
		"policies", summary.Policies,
		"skipped", summary.Skipped,
		"expunged", summary.Expunged,
		"listed", summary.MessagesListed,
		"listing_failures", summary.ListingFailures,
		"outputs", summary.ExpungeOutputs,
	)
	a.log.Info("Finished Dovecot Expunge")
	return nil
}

// fatalMessage renders err as a log line: the first letter is capitalized.
func fatalMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
