package cfg

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	ActionRun       = "run"
	ActionListFeeds = "list-feeds"
)

// Boolean flags that accept an explicit value (--dry-run=false) are
// declared as strings and parsed with parseBool, because plain bool
// flags can only be switched on.
type rawCfg struct {
	DryRun                string `long:"dry-run" env:"DRY_RUN" default:"true" description:"True to print what would be archived, then exit. False to archive old unread entries."`
	IgnoreRulesValidation string `long:"ignore-rules-validation" default:"false" description:"True to ignore validation checks on the rules file; false to exit on validation errors."`
	MaxAge                int    `long:"max-age" env:"MAX_AGE" default:"30" description:"Entries older than this many days will be marked as read. Ignored if using --rules-file."`
	OnlyFeed              *int64 `long:"only-feed" description:"Operate on only the given feed ID."`
	RulesFile             string `long:"rules-file" env:"RULES_FILE" description:"Extended rules JSONC file. See rules.sample.json for an example."`
	UserAgent             string `long:"user-agent" env:"USER_AGENT" default:"feedbin-archiver/1.0" description:"User agent string for Feedbin API requests"`
	Debug                 bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Args struct {
		Action string `positional-arg-name:"action" description:"run (default) or list-feeds"`
	} `positional-args:"yes"`
}

var globalCfg *Cfg

// Load parses command-line flags and environment variables into the
// application configuration. A .env file in the working directory is
// loaded first, so credentials can live there. Returns (nil, nil)
// when help was requested.
func Load() (*Cfg, error) {
	// Missing .env is fine; the variables may be set directly.
	_ = godotenv.Load()

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

	dryRun, err := parseBool(raw.DryRun)
	if err != nil {
		return nil, fmt.Errorf("invalid --dry-run value %q: boolean expected", raw.DryRun)
	}
	ignoreValidation, err := parseBool(raw.IgnoreRulesValidation)
	if err != nil {
		return nil, fmt.Errorf("invalid --ignore-rules-validation value %q: boolean expected", raw.IgnoreRulesValidation)
	}

	action := cmp.Or(raw.Args.Action, ActionRun)
	if action != ActionRun && action != ActionListFeeds {
		return nil, fmt.Errorf("unknown action %q (expected %s or %s)", action, ActionRun, ActionListFeeds)
	}

	if raw.MaxAge < 0 {
		return nil, fmt.Errorf("--max-age must be non-negative, got %d", raw.MaxAge)
	}

	rulesFile := raw.RulesFile
	if rulesFile == "" {
		if path := DefaultRulesPath(); fileExists(path) {
			rulesFile = path
		}
	}

	cfg := &Cfg{
		Action:                action,
		DryRun:                dryRun,
		IgnoreRulesValidation: ignoreValidation,
		MaxAge:                raw.MaxAge,
		OnlyFeedID:            raw.OnlyFeed,
		RulesFile:             rulesFile,
		UserAgent:             raw.UserAgent,
		Debug:                 raw.Debug,
		Username:              os.Getenv("FEEDBIN_ARCHIVER_USERNAME"),
		Password:              os.Getenv("FEEDBIN_ARCHIVER_PASSWORD"),
		Version:               GetVersion(),
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

// DefaultRulesPath is the rules file used when --rules-file is not
// given and the file exists.
func DefaultRulesPath() string {
	return filepath.Join(xdg.ConfigHome, "feedbin-archiver", "rules.json")
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "true", "t", "y", "1":
		return true, nil
	case "no", "false", "f", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", value)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
