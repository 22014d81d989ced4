// Command aplrun is the one-shot demo CLI driver for the APL runtime:
// it loads a single .apl source file, optionally an aplconfig.yaml
// sidecar, and prints the run's final context as JSON.
//
// Grounded on cmd/simple-agent/main.go in the teacher repository: a thin
// main() that wires config, providers and tools, then drives one run
// and reports the result on stdout — not the teacher's TUI (cmd/poncho),
// which this repository's spec explicitly excludes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilkoid/apl/pkg/aplconfig"
	"github.com/ilkoid/apl/pkg/aplprovider"
	"github.com/ilkoid/apl/pkg/aplprovider/openai"
	"github.com/ilkoid/apl/pkg/aplrun"
	"github.com/ilkoid/apl/pkg/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		timeout    int
		maxRuns    int
		relaxed    bool
	)

	cmd := &cobra.Command{
		Use:   "aplrun <file.apl>",
		Short: "Run a single Agent Prompt Language document to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], configPath, timeout, maxRuns, relaxed)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to an aplconfig.yaml sidecar (optional)")
	cmd.Flags().IntVar(&timeout, "timeout", 0, "run wall-clock timeout in seconds (0 = default)")
	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "global run budget (0 = unbounded)")
	cmd.Flags().BoolVar(&relaxed, "relaxed", true, "enable the sugarless pre/post syntax lowerer")

	return cmd
}

func runFile(path, configPath string, timeoutSeconds, maxRuns int, relaxedFlag bool) error {
	if err := utils.InitLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to init logger: %v\n", err)
	}
	defer utils.Close()

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	opts := aplrun.Options{Relaxed: &relaxedFlag}
	if timeoutSeconds > 0 {
		opts.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if maxRuns > 0 {
		opts.MaxRuns = maxRuns
	}

	if configPath != "" {
		cfg, err := aplconfig.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts.WithProviders = providersFromConfig(cfg)
		if opts.Timeout == 0 && cfg.App.Timeout > 0 {
			opts.Timeout = cfg.App.Timeout
		}
		if opts.MaxRuns == 0 && cfg.App.MaxRuns > 0 {
			opts.MaxRuns = cfg.App.MaxRuns
		}
	}

	utils.Info("aplrun starting", "file", path)
	result, err := aplrun.Start(context.Background(), string(source), opts)
	if err != nil {
		utils.Error("aplrun failed", "error", err.Error())
		return err
	}
	utils.Info("aplrun finished", "file", path)

	out, err := json.MarshalIndent(result.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal final context: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// providersFromConfig builds the model-name-keyed provider table used by
// aplrun.Options.WithProviders from a loaded aplconfig.Config. Only the
// "openai" provider kind is recognized — this is the one illustrative
// adapter the spec calls for, not a full provider matrix (spec.md §1).
func providersFromConfig(cfg *aplconfig.Config) map[string]aplprovider.Provider {
	providers := make(map[string]aplprovider.Provider, len(cfg.Models.Definitions))
	for name, def := range cfg.Models.Definitions {
		if def.Provider != "openai" {
			continue
		}
		var clientOpts []openai.Option
		if def.RequestsPerMinute > 0 {
			clientOpts = append(clientOpts, openai.WithRateLimit(def.RequestsPerMinute, def.Burst))
		}
		providers[name] = openai.New(def.APIKey, def.BaseURL, clientOpts...)
	}
	return providers
}
