// Command webfetch fetches URLs through the webcache disk cache. Repeated
// invocations against the same cache directory are served from disk until
// the TTL lapses.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/epifetch/webcache/pkg/cache"
	"github.com/epifetch/webcache/pkg/client"
	"github.com/epifetch/webcache/pkg/logging"
	"github.com/epifetch/webcache/pkg/processors"
	"github.com/epifetch/webcache/pkg/transport"
	"github.com/spf13/cobra"
)

// config is the environment-driven configuration; flags override it.
type config struct {
	CacheDir  string        `env:"WEBCACHE_DIR" envDefault:"./cache"`
	TTL       time.Duration `env:"WEBCACHE_TTL" envDefault:"1h"`
	Timeout   time.Duration `env:"WEBCACHE_TIMEOUT" envDefault:"30s"`
	UserAgent string        `env:"WEBCACHE_USER_AGENT" envDefault:"webfetch/1.0"`
	LogLevel  string        `env:"WEBCACHE_LOG_LEVEL" envDefault:"warn"`
	LogPretty bool          `env:"WEBCACHE_LOG_PRETTY" envDefault:"true"`
}

var (
	cfg config

	cacheDir      string
	ttl           time.Duration
	postProcessor string
	forceRefresh  bool
	delay         time.Duration
	olderThan     time.Duration

	rootCmd = &cobra.Command{
		Use:          "webfetch",
		Short:        "Fetch URLs through a persistent HTTP response cache",
		SilenceUsage: true,
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch URL [URL...]",
		Short: "Fetch one or more URLs, serving repeats from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFetch,
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete cached records, optionally only those older than --older-than",
		Args:  cobra.NoArgs,
		RunE:  runClear,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print cache statistics as JSON",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default $WEBCACHE_DIR or ./cache)")
	rootCmd.PersistentFlags().DurationVar(&ttl, "ttl", -1, "record time-to-live, 0 for no expiration (default $WEBCACHE_TTL or 1h)")

	fetchCmd.Flags().StringVarP(&postProcessor, "processor", "p", "", "post-processor to apply (extract_links, html_title, word_count, json, headers)")
	fetchCmd.Flags().BoolVarP(&forceRefresh, "force", "f", false, "ignore cached records and fetch fresh")
	fetchCmd.Flags().DurationVar(&delay, "delay", 100*time.Millisecond, "pause between requests when fetching multiple URLs")

	clearCmd.Flags().DurationVar(&olderThan, "older-than", 0, "only delete records older than this age")

	rootCmd.AddCommand(fetchCmd, clearCmd, statsCmd)
}

func main() {
	var err error
	cfg, err = env.ParseAs[config]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// effectiveDir resolves the cache directory from the flag, falling back to
// the environment.
func effectiveDir() string {
	if cacheDir != "" {
		return cacheDir
	}
	return cfg.CacheDir
}

// effectiveTTL resolves the TTL; the flag default of -1 means "not set".
func effectiveTTL() time.Duration {
	if ttl >= 0 {
		return ttl
	}
	return cfg.TTL
}

func newCache() (*cache.Cache, error) {
	store, err := cache.NewFileStore(effectiveDir(), logging.NewLogger("store"))
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cache.Config{
		Store: store,
		Transport: transport.New(transport.Config{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		}),
		TTL:    effectiveTTL(),
		Logger: logging.NewLogger("cache"),
	})
	if err != nil {
		return nil, err
	}

	processors.RegisterAll(c)
	return c, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	c, err := newCache()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 1 {
		value, err := c.Request(ctx, cache.Request{URL: args[0]}, cache.Options{
			PostProcessor: postProcessor,
			ForceRefresh:  forceRefresh,
		})
		if err != nil {
			return err
		}
		return printJSON(value)
	}

	api, err := client.New(client.Config{
		Cache:  c,
		Logger: logging.NewLogger("client"),
	})
	if err != nil {
		return err
	}

	results, err := api.Batch(ctx, args, client.BatchConfig{
		Delay:         delay,
		PostProcessor: postProcessor,
		Visited:       client.NewVisitedSet(),
	})
	if err != nil {
		return err
	}
	return printJSON(results)
}

func runClear(cmd *cobra.Command, _ []string) error {
	c, err := newCache()
	if err != nil {
		return err
	}

	cleared, err := c.Clear(cmd.Context(), olderThan)
	if err != nil {
		return err
	}
	fmt.Printf("cleared %d records\n", cleared)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	c, err := newCache()
	if err != nil {
		return err
	}

	stats, err := c.Stats(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func printJSON(value any) error {
	// Raw snapshots print as their text body, everything else as JSON.
	if resp, ok := value.(*cache.Response); ok {
		fmt.Println(resp.Text)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
