package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sddhantjaiii/hrms-batch-client/internal/config"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/loader"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/logging"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/ratelimit"
)

func newFetchCmd(cfgPath *string) *cobra.Command {
	var (
		date    string
		outPath string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one progressive load to completion and write the merged list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if date == "" {
				return fmt.Errorf("--date is required")
			}

			logger := logging.NewLogger("fetch")

			ld, err := buildLoader(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			done := make(chan []api.Entity, 1)
			ld.Subscribe(func(ev loader.Event) {
				switch ev.Kind {
				case loader.EventInitialLoaded:
					logger.Info().
						Str("date", ev.Key).
						Int("items", len(ev.Entities)).
						Int("remaining", ev.RemainingItems).
						Msg("Initial batch ready")
					if ev.Complete {
						done <- ev.Entities
					}
				case loader.EventAllLoaded:
					done <- ev.Entities
				case loader.EventProgress:
					if ev.Err != nil {
						logger.Warn().Err(ev.Err).Msg("Remaining batch failed")
					}
				}
			})

			if err := ld.LoadForKey(ctx, date); err != nil {
				return err
			}

			var entities []api.Entity
			select {
			case entities = <-done:
			case <-ctx.Done():
				return fmt.Errorf("load did not complete: %w", ctx.Err())
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(entities); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			logger.Info().Int("items", len(entities)).Str("date", date).Msg("Fetch complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "attendance date (ISO format, e.g. 2024-01-15)")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default: stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall load timeout")

	return cmd
}

// buildLoader wires the API client (with optional Redis-backed rate limiter)
// and a progressive loader from config.
func buildLoader(cfg config.Config) (*loader.Loader, error) {
	apiCfg := api.Config{
		BaseURL:  cfg.API.BaseURL,
		Resource: cfg.API.Resource,
		Token:    cfg.API.Token,
		TenantID: cfg.API.TenantID,
		Timeout:  config.Duration(cfg.API.Timeout, 30*time.Second),
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		apiCfg.RateLimiter = ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))
	}

	client, err := api.New(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	return loader.New(client, loader.Config{
		AutoFetchRemaining: cfg.Loader.AutoFetchRemaining,
		DefaultDelay:       config.Duration(cfg.Loader.DefaultDelay, 500*time.Millisecond),
	}), nil
}
