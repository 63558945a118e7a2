package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sddhantjaiii/hrms-batch-client/internal/config"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/api"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/cache"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/loader"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/logging"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve merged attendance snapshots over HTTP with Redis caching",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return runServe(cfg, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(cfg config.Config, addr string) error {
	logger := logging.NewLogger("serve")

	var cacheMgr *cache.Manager
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		cacheMgr = cache.NewManager(redisClient)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Snapshot cache enabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/attendance", attendanceHandler(cfg, cacheMgr))

	logger.Info().Str("addr", addr).Msg("Starting attendance server")
	return e.Start(addr)
}

func attendanceHandler(cfg config.Config, cacheMgr *cache.Manager) echo.HandlerFunc {
	logger := logging.NewLogger("attendance-handler")
	snapshotTTL := config.Duration(cfg.Cache.SnapshotTTL, 10*time.Minute)

	return func(c echo.Context) error {
		date := c.QueryParam("date")
		if date == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "date query parameter is required")
		}

		key := cache.SnapshotKey{Date: date, Tenant: cfg.API.TenantID}

		if cacheMgr != nil {
			snap, err := cacheMgr.Get(c.Request().Context(), key)
			if err == nil {
				logger.Debug().Str("date", date).Msg("Serving snapshot from cache")
				return c.JSON(http.StatusOK, snap)
			}
			if err != cache.ErrCacheMiss {
				logger.Warn().Err(err).Str("date", date).Msg("Cache get failed - loading fresh")
			}
		}

		ld, err := buildLoader(cfg)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
		defer cancel()

		done := make(chan []api.Entity, 1)
		failed := make(chan error, 1)
		ld.Subscribe(func(ev loader.Event) {
			switch {
			case ev.Complete:
				done <- ev.Entities
			case ev.Kind == loader.EventProgress && ev.Err != nil:
				// The remaining phase failed and there is no auto-retry;
				// fail the request now instead of waiting out the timeout.
				failed <- ev.Err
			}
		})

		if err := ld.LoadForKey(ctx, date); err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}

		var entities []api.Entity
		select {
		case entities = <-done:
		case err := <-failed:
			logger.Warn().Err(err).Str("date", date).Msg("Remaining batch failed - request aborted")
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		case <-ctx.Done():
			return echo.NewHTTPError(http.StatusGatewayTimeout, "progressive load did not complete")
		}

		snap := cache.NewSnapshot(entities, ld.TotalItems(), snapshotTTL)
		if cacheMgr != nil {
			if err := cacheMgr.Set(c.Request().Context(), key, snap); err != nil {
				logger.Warn().Err(err).Str("date", date).Msg("Failed to cache snapshot")
			}
		}

		return c.JSON(http.StatusOK, snap)
	}
}
