// Package cli implements the rainmeas-registry command-line interface.
package cli

import (
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/rainmeas/registry"
	"github.com/rainmeas/registry/client"
	"github.com/rainmeas/registry/fetch"
	"github.com/rainmeas/registry/internal/config"
)

const appName = "rainmeas-registry"

var (
	version = "dev"
	commit  string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c string) {
	version = v
	commit = c
}

// CLI holds shared state for all commands.
type CLI struct {
	out    io.Writer
	level  *slog.LevelVar
	logger *slog.Logger

	// global flags
	configPath  string
	baseURL     string
	debug       bool
	semver      bool
	concurrency int

	cfg *config.Config
	reg *registry.Registry
}

// New creates a CLI printing results to out and logs to errOut.
func New(out, errOut io.Writer) *CLI {
	level := new(slog.LevelVar)
	return &CLI{
		out:    out,
		level:  level,
		logger: newLogger(errOut, level),
	}
}

// Logger returns the CLI's logger.
func (c *CLI) Logger() *slog.Logger {
	return c.logger
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Query a Rainmeas package registry",
		Long:          `rainmeas-registry lists, searches and downloads packages published in a Rainmeas registry.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.SetOut(c.out)
	root.SetVersionTemplate(appName + " {{.Version}}" + commitSuffix() + "\n")

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", config.DefaultPath, "config file")
	flags.StringVar(&c.baseURL, "base-url", "", "registry base URL (overrides config)")
	flags.BoolVar(&c.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&c.semver, "semver", false, "order versions semantically instead of lexicographically")
	flags.IntVar(&c.concurrency, "concurrency", 0, "parallel package fetches during search (overrides config)")

	root.AddCommand(c.listCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.latestCommand())
	root.AddCommand(c.versionsCommand())
	root.AddCommand(c.urlCommand())
	root.AddCommand(c.downloadCommand())

	return root
}

func commitSuffix() string {
	if commit == "" {
		return ""
	}
	return " (" + commit + ")"
}

// setup loads the config, applies flag overrides and builds the registry.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return oops.Wrapf(err, "failed to load config")
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = c.baseURL
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = c.concurrency
	}
	if c.semver {
		cfg.Ordering = config.OrderingSemver
	}
	if err := cfg.Validate(); err != nil {
		return oops.Wrapf(err, "invalid flags")
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return oops.Wrapf(err, "invalid log level")
	}
	if c.debug {
		level = slog.LevelDebug
	}
	c.level.Set(level)

	c.cfg = cfg
	c.reg = registry.New(cfg.BaseURL, c.newClient(cfg),
		registry.WithLogger(c.logger),
		registry.WithOrdering(cfg.VersionOrdering()),
		registry.WithConcurrency(cfg.Concurrency),
	)
	c.logger.Debug("registry configured", "base_url", c.reg.BaseURL(), "ordering", cfg.Ordering, "concurrency", cfg.Concurrency)
	return nil
}

func (c *CLI) newClient(cfg *config.Config) *registry.Client {
	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithMaxRetries(cfg.MaxRetries),
		client.WithLogger(c.logger),
	}
	if cfg.RateLimit.RPS > 0 {
		opts = append(opts, client.WithRateLimiter(newLimiter(cfg.RateLimit)))
	}
	hc := client.NewClient(opts...)
	if cfg.UserAgent != "" {
		hc = hc.WithUserAgent(cfg.UserAgent)
	}
	return hc
}

// newLimiter builds a token bucket from the rate_limit settings. A zero
// burst would reject every request, so it is raised to one.
func newLimiter(rl config.RateLimit) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rl.RPS), max(rl.Burst, 1))
}

func (c *CLI) newFetcher() fetch.FetcherInterface {
	opts := []fetch.Option{
		fetch.WithMaxRetries(c.cfg.MaxRetries),
		fetch.WithLogger(c.logger),
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(c.cfg.UserAgent))
	}
	f := fetch.NewFetcher(opts...)
	return fetch.NewCircuitBreakerFetcher(f).WithLogger(c.logger)
}
