// Package cli implements the quotebook command line: the HTTP server, the
// terminal UI and one-shot commands over the same quote store.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// DefaultProfile is used when neither --profile nor APP_ENVIRONMENT is set.
const DefaultProfile = "local"

// BuildInfo identifies the binary. main fills it from ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

type options struct {
	profile   string
	configDir string
	build     BuildInfo
}

// New returns the root command with every subcommand attached.
func New(build BuildInfo) *cobra.Command {
	opts := &options{build: build}

	cmd := &cobra.Command{
		Use:           "quotebook",
		Short:         "Keep, browse and share a collection of quotes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "",
		"Configuration profile to load. Overrides APP_ENVIRONMENT.")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", config.DefaultConfigDir,
		"Directory holding base.yaml and the profile files.")

	addCommands(cmd, opts)

	return cmd
}

func addCommands(topLevel *cobra.Command, opts *options) {
	addServe(topLevel, opts)
	addUI(topLevel, opts)
	addRandom(topLevel, opts)
	addAdd(topLevel, opts)
	addList(topLevel, opts)
	addCategories(topLevel, opts)
	addFilter(topLevel, opts)
	addExport(topLevel, opts)
	addImport(topLevel, opts)
	addSync(topLevel, opts)
	addStatus(topLevel, opts)
	addVersion(topLevel, opts)
}

func (o *options) resolveProfile() string {
	if o.profile != "" {
		return o.profile
	}

	if env := os.Getenv("APP_ENVIRONMENT"); env != "" {
		return env
	}

	return DefaultProfile
}

// loadConfig loads and validates configuration, failing fast.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(o.configDir, o.resolveProfile())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
