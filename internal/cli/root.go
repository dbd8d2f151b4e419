package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/osmlookup/internal/logging"
	"github.com/ppiankov/osmlookup/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is the osmlookup release
const Version = "0.1.0"

// ErrReported marks a failure whose message has already been printed
var ErrReported = errors.New("failure already reported")

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "osmlookup",
	Short: "osmlookup - OpenStreetMap place lookup by name",
	Long: `osmlookup looks up a place by its name in OpenStreetMap.

It searches the ways and nodes carrying exactly that name through the
Overpass API, reads the tags of each of them from the OSM API, merges
them (first non-empty value wins, in search order) and prints the name,
opening hours, website, url, Wikipedia article and image of the place.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "osmlookup v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := model.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.osmlookup/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	flags.StringVar(&logFormat, "log-format", "text", "log format on stderr (text, json)")

	flags.String("overpass-url", defaults.Endpoints.OverpassURL, "Overpass interpreter endpoint")
	flags.String("osm-api-url", defaults.Endpoints.OSMAPIURL, "OSM API base URL")
	flags.Duration("timeout", defaults.HTTP.Timeout, "timeout of each HTTP request")
	flags.String("ua", defaults.HTTP.UserAgent, "HTTP User-Agent")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.Int("fetch-concurrency", defaults.Fetch.Concurrency, "max simultaneous attribute fetches per place (0 = all)")
	flags.Float64("rate", defaults.RateLimiting.RequestsPerSecond, "max requests per second per host (0 = unlimited)")
	flags.Bool("cache", defaults.Cache.Enabled, "cache OSM responses")
	flags.String("cache-dir", "", "persist cached responses in this directory")
	flags.StringP("mode", "m", defaults.Output.Mode, "output mode (display, format, html, json, yaml)")
	flags.String("wikipedia-lang", defaults.Output.WikipediaLanguage, "Wikipedia language for tags without a language prefix")

	rootCmd.AddCommand(versionCmd)
}

// flagKeys maps persistent flags to configuration keys
var flagKeys = map[string]string{
	"verbose":           "output.verbose",
	"overpass-url":      "endpoints.overpass_url",
	"osm-api-url":       "endpoints.osm_api_url",
	"timeout":           "http.timeout",
	"ua":                "http.user_agent",
	"http-proxy":        "http.http_proxy",
	"https-proxy":       "http.https_proxy",
	"fetch-concurrency": "fetch.concurrency",
	"rate":              "rate_limiting.requests_per_second",
	"cache":             "cache.enabled",
	"cache-dir":         "cache.disk_dir",
	"mode":              "output.mode",
	"wikipedia-lang":    "output.wikipedia_language",
}

// initConfig layers defaults, config file, OSMLOOKUP_* env vars and flags
func initConfig() {
	setDefaults()

	for flag, key := range flagKeys {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".osmlookup"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OSMLOOKUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of the default configuration so that
// environment variables can override keys absent from the config file.
func setDefaults() {
	raw, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return
	}

	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(key, child)
				continue
			}
			viper.SetDefault(key, v)
		}
	}
	walk("", tree)
}

// loadConfig returns the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = 30 * time.Second
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) *slog.Logger {
	return logging.New(os.Stderr, logFormat, cfg.Output.Verbose)
}
