// Command hrmsload loads a day's attendance sheet from an HRMS backend using
// the progressive two-phase protocol, either once to a file (fetch) or as a
// caching HTTP frontend (serve).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sddhantjaiii/hrms-batch-client/internal/config"
	"github.com/sddhantjaiii/hrms-batch-client/pkg/logging"
)

func main() {
	// Missing .env is fine; real deployments use the environment directly.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "hrmsload",
		Short: "Progressive batch loader for HRMS attendance data",
		Long: `hrmsload talks to an HRMS backend that serves large attendance sheets in
two phases: an instant initial batch and a background remaining batch. It can
run a single load to completion (fetch) or serve merged snapshots over HTTP
with Redis caching (serve).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")

	root.AddCommand(newFetchCmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and sets up global logging from it.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	return cfg, nil
}
