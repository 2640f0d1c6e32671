package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Upstream feed configuration
	FeedURL      string `long:"feed-url" env:"FEED_URL" default:"https://www.covid19.act.gov.au/act-status-and-response/act-covid-19-exposure-locations" description:"Exposure location publication URL"`
	FeedFormat   string `long:"feed-format" env:"FEED_FORMAT" default:"html" choice:"html" choice:"rss" description:"Upstream publication format"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Upstream fetch timeout in seconds"`

	// Application configuration
	DBPath           string `long:"db-path" env:"DB_PATH" default:"./casewatch.db" description:"Path to the sqlite database"`
	DestinationsFile string `long:"destinations-file" env:"DESTINATIONS_FILE" default:"./destinations.yml" description:"YAML file mapping destination ids to webhook URLs"`
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	PollInterval     int    `long:"poll-interval" env:"POLL_INTERVAL" default:"600" description:"Poll interval in seconds"`
	PacingInterval   int    `long:"pacing-interval" env:"PACING_INTERVAL" default:"500" description:"Minimum delay between sends to one destination, in milliseconds"`
	SummaryThreshold int    `long:"summary-threshold" env:"SUMMARY_THRESHOLD" default:"0" description:"Send a count message before itemized ones when more than this many match (0 disables)"`
	CommandPrefix    string `long:"command-prefix" env:"COMMAND_PREFIX" default:"!" description:"Prefix that triggers textual commands"`
	APIAccessKey     string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"casewatch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Australia/Canberra)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		FeedURL:          raw.FeedURL,
		FeedFormat:       raw.FeedFormat,
		FetchTimeout:     raw.FetchTimeout,
		DBPath:           raw.DBPath,
		DestinationsFile: raw.DestinationsFile,
		Port:             raw.Port,
		PollInterval:     raw.PollInterval,
		PacingInterval:   raw.PacingInterval,
		SummaryThreshold: raw.SummaryThreshold,
		CommandPrefix:    raw.CommandPrefix,
		APIAccessKey:     raw.APIAccessKey,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
