package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/weathervane/internal/api/schwab"
	"github.com/quantfold/weathervane/internal/config"
	"github.com/quantfold/weathervane/internal/contracts"
	"github.com/quantfold/weathervane/internal/database"
	"github.com/quantfold/weathervane/internal/model"
	"github.com/quantfold/weathervane/internal/notify"
	"github.com/quantfold/weathervane/internal/regime"
	"github.com/quantfold/weathervane/internal/session"
)

type options struct {
	pretty  bool
	dryRun  bool
	offline bool
	history int
}

func main() {
	instrument := flag.String("instrument", "", "futures product to classify (ES or NQ); overrides INSTRUMENT")
	pretty := flag.Bool("pretty", false, "pretty-print the verdict JSON")
	dryRun := flag.Bool("dry-run", false, "skip database writes")
	offline := flag.Bool("offline", false, "classify from stored candles instead of fetching")
	history := flag.Int("history", 0, "print the last N stored snapshots and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config failed")
	}
	if *instrument != "" {
		cfg.Instrument = *instrument
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if *debug {
		level = zerolog.DebugLevel
	}
	// Verdict JSON goes to stdout; everything else to stderr.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	opts := options{pretty: *pretty, dryRun: *dryRun, offline: *offline, history: *history}
	if err := run(cfg, opts); err != nil {
		log.Fatal().Err(err).Msg("classification run failed")
	}
}

// run executes one single-shot classification: resolve the front month
// contract, fetch market data, persist it, compute features, classify, store
// the snapshot and print the verdict.
func run(cfg *config.Config, opts options) error {
	ctx := context.Background()

	if opts.dryRun && (opts.offline || opts.history > 0) {
		return errors.New("-offline and -history need the database; drop -dry-run")
	}

	calibration, err := regime.Lookup(cfg.Instrument)
	if err != nil {
		return err
	}

	if cfg.CalibrationFile != "" {
		overrides, err := regime.LoadCalibrationFile(cfg.CalibrationFile)
		if err != nil {
			return err
		}
		if params, ok := overrides[calibration.Instrument]; ok {
			log.Info().Str("file", cfg.CalibrationFile).Msg("Using calibration override")
			calibration = params
		}
	}

	clock, err := session.NewClock()
	if err != nil {
		return err
	}

	var store *database.Store
	if opts.dryRun {
		log.Info().Msg("Dry run mode: database operations disabled")
	} else {
		store, err = database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer store.Close()
	}

	if opts.history > 0 {
		return printHistory(store, cfg.Instrument, opts.history, opts.pretty)
	}

	symbol := contracts.FrontMonth(cfg.Instrument, time.Now())
	log.Info().Str("symbol", symbol).Msg("Resolved front month contract")

	var fine, coarse []model.Candle
	var currentPrice float64

	if opts.offline {
		fine, coarse, currentPrice, err = loadStoredCandles(store, symbol, cfg.DaysBack)
	} else {
		fine, coarse, currentPrice, err = fetchCandles(ctx, cfg, store, symbol)
	}
	if err != nil {
		return err
	}
	log.Info().Int("fine", len(fine)).Int("coarse", len(coarse)).Float64("price", currentPrice).Msg("Candle series ready")

	calculator := regime.NewCalculator(cfg.Instrument, calibration, clock, nil)
	features, err := calculator.Calculate(fine, coarse, currentPrice)
	if err != nil {
		return err
	}

	classifier := regime.NewClassifier(cfg.Instrument, calibration, nil)
	snapshot := classifier.Classify(features)

	if store != nil {
		rawFeatures, err := json.Marshal(features)
		if err != nil {
			return fmt.Errorf("serializing features: %w", err)
		}
		if err := store.InsertSnapshot(snapshot, rawFeatures); err != nil {
			return err
		}

		retention := time.Duration(cfg.DataRetentionDays) * 24 * time.Hour
		if err := store.CleanupOldData(retention); err != nil {
			log.Warn().Err(err).Msg("retention cleanup failed")
		}
	}

	if err := printJSON(snapshot, opts.pretty); err != nil {
		return err
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("telegram notifier unavailable")
		} else if err := notifier.Announce(snapshot); err != nil {
			log.Warn().Err(err).Msg("telegram announcement failed")
		}
	}

	return nil
}

// fetchCandles pulls the quote plus 1-minute and 5-minute series from the
// market data API and persists the candles when a store is available.
func fetchCandles(ctx context.Context, cfg *config.Config, store *database.Store, symbol string) ([]model.Candle, []model.Candle, float64, error) {
	auth := schwab.NewAuthManager(schwab.AuthOptions{
		AppKey:    cfg.SchwabAppKey,
		AppSecret: cfg.SchwabAppSecret,
		TokenURL:  cfg.SchwabTokenURL,
		Store:     schwab.NewTokenStore(cfg.CredentialsDir),
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
	})

	client := schwab.NewClient(schwab.ClientOptions{
		BaseURL:        cfg.SchwabAPIBaseURL,
		Auth:           auth,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	currentPrice, err := client.GetQuote(ctx, symbol)
	if err != nil {
		return nil, nil, 0, err
	}

	fine, err := client.GetPriceHistory(ctx, symbol, 1, cfg.DaysBack)
	if err != nil {
		return nil, nil, 0, err
	}

	coarse, err := client.GetPriceHistory(ctx, symbol, 5, cfg.DaysBack)
	if err != nil {
		return nil, nil, 0, err
	}

	if store != nil {
		if err := store.InsertCandles(symbol, 1, fine); err != nil {
			return nil, nil, 0, err
		}
		if err := store.InsertCandles(symbol, 5, coarse); err != nil {
			return nil, nil, 0, err
		}
	}

	return fine, coarse, currentPrice, nil
}

// loadStoredCandles reads both series from the database; the last 1-minute
// close stands in for the live quote.
func loadStoredCandles(store *database.Store, symbol string, daysBack int) ([]model.Candle, []model.Candle, float64, error) {
	lookback := time.Duration(daysBack) * 24 * time.Hour

	fine, err := store.RecentCandles(symbol, 1, lookback, 0)
	if err != nil {
		return nil, nil, 0, err
	}
	coarse, err := store.RecentCandles(symbol, 5, lookback, 0)
	if err != nil {
		return nil, nil, 0, err
	}

	if len(fine) == 0 {
		return nil, nil, 0, fmt.Errorf("no stored 1m candles for %s; run online first", symbol)
	}

	return fine, coarse, fine[len(fine)-1].Close, nil
}

func printHistory(store *database.Store, instrument string, limit int, pretty bool) error {
	snapshots, err := store.SnapshotHistory(instrument, limit)
	if err != nil {
		return err
	}
	return printJSON(snapshots, pretty)
}

func printJSON(v any, pretty bool) error {
	var out []byte
	var err error
	if pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("serializing output: %w", err)
	}

	fmt.Println(string(out))
	return nil
}
