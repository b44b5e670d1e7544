// Command overlayctl drives the decoration engine outside a storefront.
//
// Usage:
//
//	overlayctl decorate -url https://shop.example/products/red-shoes [-api URL | -db overlay.db] [-hold]
//	overlayctl probe -file page.html [-path /products/red-shoes]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/shopoverlay/config"
	"github.com/hazyhaar/shopoverlay/configstore"
	"github.com/hazyhaar/shopoverlay/dbopen"
	"github.com/hazyhaar/shopoverlay/decorate"
	"github.com/hazyhaar/shopoverlay/dom"
	"github.com/hazyhaar/shopoverlay/dom/htmldoc"
	"github.com/hazyhaar/shopoverlay/dom/roddoc"
	"github.com/hazyhaar/shopoverlay/internal/browser"
	"github.com/hazyhaar/shopoverlay/observability"
	"github.com/hazyhaar/shopoverlay/overlay"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: overlayctl decorate -url <page> [-config f] [-api url | -db path] [-hold]")
	fmt.Fprintln(os.Stderr, "       overlayctl probe -file <page.html> [-path /products/x] [-config f]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "decorate":
		err = runDecorate(ctx, os.Args[2:])
	case "probe":
		err = runProbe(ctx, os.Args[2:], os.Stdout)
	default:
		usage()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "overlayctl:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func newLogger(lc config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(observability.NewFilterHandler(h, lc.Mute)), nil
}

func runDecorate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decorate", flag.ExitOnError)
	pageURL := fs.String("url", "", "storefront page to decorate")
	configPath := fs.String("config", "", "YAML config file")
	apiBase := fs.String("api", "", "ConfigStore API base URL (overrides config)")
	dbPath := fs.String("db", "", "read descriptors from this SQLite file instead of the API")
	hold := fs.Bool("hold", false, "keep the tab open until interrupted")
	logLevel := fs.String("log-level", "", "debug|info|warn|error")
	fs.Parse(args)

	if *pageURL == "" {
		usage()
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *apiBase != "" {
		cfg.Engine.APIBase = *apiBase
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	source, closeSource, err := overlaySource(cfg, *dbPath, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	b := browser.New(cfg.BrowserOptions(logger.With("component", "browser")))
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Close()

	tab, err := b.Open(ctx, *pageURL)
	if err != nil {
		return err
	}
	defer tab.Close()

	s := decorate.NewScheduler(source, cfg.DecorateConfig(), logger)
	if err := s.Run(ctx, roddoc.New(tab.Page)); err != nil {
		return fmt.Errorf("decorate %s: %w", *pageURL, err)
	}
	logger.Info("overlayctl: decoration done", "url", *pageURL)

	if *hold {
		<-ctx.Done()
	}
	return nil
}

// overlaySource reads from a local store when dbPath is set, otherwise
// from the HTTP API.
func overlaySource(cfg *config.Config, dbPath string, logger *slog.Logger) (decorate.OverlaySource, func(), error) {
	if dbPath != "" {
		db, err := dbopen.Open(dbPath, dbopen.WithSchema(configstore.Schema))
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		store := configstore.New(db, configstore.WithLogger(logger))
		return configstore.NewCached(store, cfg.Server.CacheTTL), func() { db.Close() }, nil
	}
	if cfg.Engine.APIBase == "" {
		return nil, nil, errors.New("no overlay source: set engine.api_base, -api or -db")
	}
	f := decorate.NewFetcher(cfg.Engine.APIBase,
		decorate.WithHTTPClient(&http.Client{Timeout: cfg.Engine.FetchTimeout}),
		decorate.WithFetchLogger(logger),
	)
	return f, func() {}, nil
}

// ProbeReport is what probe prints.
type ProbeReport struct {
	Path      string         `json:"path"`
	ProductID string         `json:"product_id,omitempty"`
	Detail    []ProbeElement `json:"detail"`
	Listing   []ProbeElement `json:"listing"`
}

// ProbeElement describes one located container.
type ProbeElement struct {
	Node      string `json:"node"`
	ID        string `json:"id,omitempty"`
	Class     string `json:"class,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Decorated bool   `json:"decorated,omitempty"`
}

func runProbe(ctx context.Context, args []string, out *os.File) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	file := fs.String("file", "", "saved storefront page")
	path := fs.String("path", "/", "location pathname the page was served at")
	configPath := fs.String("config", "", "YAML config file")
	fs.Parse(args)

	if *file == "" {
		usage()
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()
	doc, err := htmldoc.Parse(f, *path)
	if err != nil {
		return err
	}

	report, err := probe(ctx, doc, *path, cfg.Locator, logger)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func probe(ctx context.Context, doc dom.Document, path string, lc decorate.LocatorConfig, logger *slog.Logger) (*ProbeReport, error) {
	report := &ProbeReport{Path: path, Detail: []ProbeElement{}, Listing: []ProbeElement{}}

	if id, ok := decorate.NewResolver(logger).Resolve(ctx, doc); ok {
		report.ProductID = string(id)
	}

	loc := decorate.NewLocator(lc)
	detail, err := loc.Locate(ctx, doc, decorate.ScopeDetail)
	if err != nil {
		return nil, err
	}
	for _, el := range detail {
		report.Detail = append(report.Detail, describe(ctx, el, ""))
	}

	cards, err := loc.Locate(ctx, doc, decorate.ScopeListing)
	if err != nil {
		return nil, err
	}
	for _, el := range cards {
		var pid overlay.ProductID
		if id, ok := loc.CardIdentity(ctx, el); ok {
			pid = id
		}
		report.Listing = append(report.Listing, describe(ctx, el, pid))
	}
	return report, nil
}

func describe(ctx context.Context, el dom.Element, pid overlay.ProductID) ProbeElement {
	id, _, _ := el.Attr(ctx, "id")
	class, _, _ := el.Attr(ctx, "class")
	state, _, _ := el.Attr(ctx, decorate.StateAttr)
	return ProbeElement{
		Node:      string(el.NodeID()),
		ID:        id,
		Class:     class,
		ProductID: string(pid),
		Decorated: state == decorate.StateDecorated,
	}
}
