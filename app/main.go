package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feedbin-archiver/app/archiver"
	"github.com/lysyi3m/feedbin-archiver/app/cfg"
	"github.com/lysyi3m/feedbin-archiver/app/feedbin"
	"github.com/lysyi3m/feedbin-archiver/app/rules"
)

// Exit codes
const (
	exitOK         = 0
	exitConfig     = 1
	exitValidation = 2
	exitAPI        = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitConfig
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return exitOK
	}

	setupLogging(appCfg.Debug)
	slog.Debug("Configuration loaded", "action", appCfg.Action, "dry_run", appCfg.DryRun, "version", appCfg.Version)

	if appCfg.Username == "" || appCfg.Password == "" {
		fmt.Fprintln(os.Stderr, "Feedbin username & password must be set using environment variables.")
		fmt.Fprintln(os.Stderr, "Copy .env.sample to .env and fill it out to provide credentials.")
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	client := feedbin.NewClient(httpClient, appCfg.Username, appCfg.Password, appCfg.UserAgent)

	if err := client.CheckAuth(ctx); err != nil {
		var authErr *feedbin.AuthError
		if errors.As(err, &authErr) {
			fmt.Fprintln(os.Stderr, "Feedbin authentication failed.")
			fmt.Fprintln(os.Stderr, "Check your credentials and try again.")
			return exitConfig
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitAPI
	}

	switch appCfg.Action {
	case cfg.ActionListFeeds:
		return runListFeeds(ctx, client)
	default:
		return runArchive(ctx, client, appCfg)
	}
}

func runListFeeds(ctx context.Context, client *feedbin.Client) int {
	runner := archiver.NewRunner(client, nil)
	if err := runner.ListFeeds(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitAPI
	}
	return exitOK
}

func runArchive(ctx context.Context, client *feedbin.Client, appCfg *cfg.Cfg) int {
	store := rules.NewStore(appCfg.MaxAge, appCfg.OnlyFeedID)

	if appCfg.RulesFile != "" {
		slog.Debug("Loading rules file", "path", appCfg.RulesFile)
		if err := rules.LoadFile(appCfg.RulesFile, store); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return exitConfig
		}
	}

	subscriptions, err := client.Subscriptions(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitAPI
	}

	feedIDs := make([]int64, len(subscriptions))
	for i, subscription := range subscriptions {
		feedIDs[i] = subscription.FeedID
	}
	if err := store.Validate(feedIDs); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if !appCfg.IgnoreRulesValidation {
			return exitValidation
		}
		slog.Warn("Rules validation failed, continuing anyway")
	}

	runner := archiver.NewRunner(client, store)
	if err := runner.Run(ctx, appCfg.DryRun); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitAPI
	}
	return exitOK
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
