// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the birdserve page augmentation server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

BirdServe augments bird-watching pages: vocabulary names are rewritten to their
bilingual form, species missing from the life list are highlighted (endemics in
their own color), and a typeahead control jumps to species by pinyin key or
initials. It runs as a MessagePack IPC server for a browser host, as an HTTP API,
or as a CLI for testing lookups.

# Usage

Start the IPC server with default settings:

	birdserve

Use a custom data directory and enable debug logging:

	birdserve -data /path/to/data -d

Serve the HTTP API:

	birdserve -http 127.0.0.1:8740

Annotate a saved page once and print the result:

	birdserve -annotate checklist.html -url https://ebird.org/checklist/S123

Run in CLI mode for interactive lookups:

	birdserve -c -limit 10

The data directory must contain birdMap.json; endemic.json and pinyin_mapping.json
are optional and their features stay off when missing. Decoded datasets are cached
as a msgpack snapshot next to the config file.

# Configuration

Runtime configuration lives in a TOML file created with defaults on first run:

	[server]
	http_addr = "127.0.0.1:8740"
	enable_filter = true

	[typeahead]
	local_prefix = "/"
	global_prefix = "//"
	debounce_ms = 150

A file with wrong-typed values is parsed section by section; valid values are kept.

# Command Line Flags

	-data string
	    Directory containing the datasets (default from config)
	-config string
	    Path to a config file
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of species to print in CLI mode
	-no-filter
	    Disable lookup term filtering
	-http string
	    Serve the HTTP API on this address instead of IPC
	-annotate string
	    Annotate a saved page and print it
	-url string
	    Page URL used to classify the -annotate page
	-log string
	    Write logs to a file instead of stderr
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/birdserve/internal/cli"
	"github.com/bastiangx/birdserve/internal/logger"
	"github.com/bastiangx/birdserve/internal/utils"
	"github.com/bastiangx/birdserve/pkg/config"
	"github.com/bastiangx/birdserve/pkg/dataset"
	"github.com/bastiangx/birdserve/pkg/page"
	"github.com/bastiangx/birdserve/pkg/seen"
	"github.com/bastiangx/birdserve/pkg/server"
	"github.com/bastiangx/birdserve/pkg/session"
)

const (
	Version = "0.3.0-beta"
	AppName = "birdserve"
	gh      = "https://github.com/bastiangx/birdserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires config, datasets and the session, then hands over to the selected mode.
func main() {
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", "", "Directory containing the datasets")
	configPath := flag.String("config", "", "Path to a custom config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", 0, "Number of species to print in CLI mode (default from config)")
	noFilter := flag.Bool("no-filter", false, "Disable lookup term filtering")
	httpAddr := flag.String("http", "", "Serve the HTTP API on this address instead of IPC")
	annotate := flag.String("annotate", "", "Annotate a saved page and print it to stdout")
	pageURL := flag.String("url", "", "URL of the page given to -annotate")
	logFile := flag.String("log", "", "Write logs to this file instead of stderr")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
		logger.SetOutput(f)
	}

	cfg, activeConfig, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Warnf("Failed to load config: %v. Using built-in defaults...", err)
		cfg = defaultConfig
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activeConfig))

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	wanted := cfg.Data.Dir
	if *dataDir != "" {
		wanted = *dataDir
	}
	resolvedDataDir, err := pathResolver.GetDataDir(wanted)
	if err != nil {
		log.Fatalf("Failed to resolve data dir %q: no %s found (%v)", wanted, utils.DataMarker, err)
	}
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	stateDir := pathResolver.GetConfigDir()
	if activeConfig != "" {
		stateDir = filepath.Dir(activeConfig)
	}

	ctx := context.Background()
	bundle, err := dataset.Load(ctx, dataset.DirSource{Dir: resolvedDataDir},
		&dataset.Cache{Path: statePath(stateDir, cfg.Data.CacheFile)})
	if err != nil {
		log.Fatalf("Failed to load datasets: %v", err)
	}

	store, err := seen.Open(statePath(stateDir, cfg.Data.SeenDB))
	if err != nil {
		log.Fatalf("Failed to open life list: %v", err)
	}
	defer store.Close()

	list, err := store.List(ctx)
	if err != nil {
		log.Errorf("Failed to read life list, starting empty: %v", err)
	}
	if at, total, ok, err := store.LastSync(ctx); err == nil && ok {
		log.Debugf("Life list: %d species, last synced %s", total, at.Local().Format(time.DateTime))
	}

	sess := session.New(sessionOptions(cfg, store), page.NewSelectorLocator(cfg.SelectorOverrides()))
	defer sess.Close()
	sess.Attach(bundle, list)

	opts := server.Options{EnableFilter: cfg.Server.EnableFilter, MaxResults: cfg.Typeahead.MaxResults}

	switch {
	case *annotate != "":
		if err := annotateFile(ctx, sess, *annotate, *pageURL); err != nil {
			log.Fatalf("Annotate failed: %v", err)
		}

	// CLI would be mainly used for testing and dbg purposes.
	case *cliMode:
		sigHandler()
		log.SetReportTimestamp(false)
		n := cfg.CLI.DefaultLimit
		if *limit > 0 {
			n = *limit
		}
		inputHandler := cli.NewInputHandler(sess, n, cfg.CLI.ShowLatin, *noFilter)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}

	case *httpAddr != "":
		if err := serveHTTP(sess, server.HTTPConfig{
			Address:      *httpAddr,
			MaxBodyBytes: int64(cfg.Server.MaxBodyBytes),
			Options:      opts,
		}); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}

	default:
		sigHandler()
		log.Debug("spawning IPC")
		showStartupInfo(resolvedDataDir, sess.Stats())
		if err := server.NewServer(sess, os.Stdin, os.Stdout, opts).Start(ctx); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}
}

func sessionOptions(cfg *config.Config, store seen.Store) session.Options {
	return session.Options{
		Highlight:    cfg.ClassifyOptions(),
		LocalPrefix:  cfg.Typeahead.LocalPrefix,
		GlobalPrefix: cfg.Typeahead.GlobalPrefix,
		Debounce:     cfg.Debounce(),
		RowSpec:      cfg.RowSpec(),
		Container:    cfg.Typeahead.SuggestionContainer,
		LifeList:     cfg.LifeListSelectors(),
		Store:        store,
	}
}

// statePath places relative state files next to the config.
func statePath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func annotateFile(ctx context.Context, sess *session.Session, path, url string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if url == "" {
		url = "file://" + utils.GetAbsolutePath(path)
	}
	report, err := sess.Load(ctx, url, f)
	if err != nil {
		return err
	}
	log.Info("annotated", "kind", report.Kind, "rewritten", report.Rewritten,
		"flagged", report.Flagged, "endemic", report.Endemic)

	out, err := sess.Render()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

func serveHTTP(sess *session.Session, cfg server.HTTPConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewHTTPServer(sess, cfg)
	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP API listening on %s", cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	fmt.Fprintf(os.Stderr, "\nExiting...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printVersion() {
	banner := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ BirdServe ] Bilingual names and life-list highlights for birding pages")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(dataDir string, st session.Stats) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, " BirdServe ")
	fmt.Fprintln(os.Stderr, "===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("data dir: ( %s )", dataDir)
	log.Info("datasets", "names", st.Names, "endemic", st.Endemic, "typeahead", st.Typeahead, "seen", st.Seen)
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
