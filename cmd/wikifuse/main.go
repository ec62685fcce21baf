package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/configs"
	"github.com/fwojciec/wikifuse/crawl"
	"github.com/fwojciec/wikifuse/fs"
	"github.com/fwojciec/wikifuse/fuse"
	"github.com/fwojciec/wikifuse/goquery"
	"github.com/fwojciec/wikifuse/htmltomarkdown"
	wfhttp "github.com/fwojciec/wikifuse/http"
	"github.com/fwojciec/wikifuse/normalize"
	"github.com/fwojciec/wikifuse/pipeline"
	"github.com/fwojciec/wikifuse/prometheus"
	"github.com/fwojciec/wikifuse/quality"
	"github.com/fwojciec/wikifuse/rod"
	wfslog "github.com/fwojciec/wikifuse/slog"
	"github.com/fwojciec/wikifuse/sqlite"
	"github.com/fwojciec/wikifuse/toml"
	"github.com/fwojciec/wikifuse/yaml"
	"github.com/gofrs/flock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	m := NewMain(cfg)
	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Runtime settings. Set before calling Run().
	Config Config

	// SQLite database used by the store.
	DB *sqlite.DB

	// Advisory lock held on the database while scraping.
	lock *flock.Flock
}

// NewMain returns a new instance of Main.
func NewMain(cfg Config) *Main {
	return &Main{Config: cfg}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var err error
	if m.DB != nil {
		err = m.DB.Close()
	}
	if m.lock != nil {
		if uerr := m.lock.Unlock(); err == nil {
			err = uerr
		}
	}
	return err
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Config: m.Config,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("wikifuse"),
		kong.Description("Extract, normalize and fuse character records from wikis."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'wikifuse --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd = strings.Fields(kongCtx.Command())[0]

	logger, err := newLogger(stderr, m.Config.LogLevel)
	if err != nil {
		return err
	}
	deps.Logger = logger

	// Configuration documents in the user directory take precedence over
	// the embedded defaults.
	extractor := goquery.NewExtractor()
	registry := fs.NewRegistry(m.configLayers(),
		[]wikifuse.ConfigCodec{yaml.NewCodec(), toml.NewCodec()},
		fs.WithValidator(extractor),
		fs.WithDefaultKey(cmp.Or(m.Config.DefaultSource, wikifuse.DefaultSourceKey)),
	)
	deps.Registry = wfslog.NewLoggingRegistry(registry, logger)
	deps.Validator = extractor
	deps.Writer = fs.NewWriter(m.Config.ConfigDir, yaml.NewCodec())

	switch cmd {
	case "scrape", "show", "list":
		if err := os.MkdirAll(filepath.Dir(m.Config.DB), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		if cmd == "scrape" {
			m.lock = flock.New(m.Config.DB + ".lock")
			ok, err := m.lock.TryLock()
			if err != nil {
				return fmt.Errorf("failed to lock database: %w", err)
			}
			if !ok {
				m.lock = nil
				return fmt.Errorf("database %q is in use by another scrape", m.Config.DB)
			}
		}

		m.DB = sqlite.NewDB(m.Config.DB)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(stderr, "Hint: Set WIKIFUSE_DB to use a different database path\n")
			_ = m.Close()
			return fmt.Errorf("failed to open database at %q: %w", m.Config.DB, err)
		}
		defer m.Close()
		deps.Store = wfslog.NewLoggingStore(sqlite.NewStore(m.DB), logger)
	}

	if cmd == "scrape" {
		fetcher, err := m.wireScrape(deps, &cli.Scrape, extractor)
		if err != nil {
			return err
		}
		defer fetcher.Close()
	}

	return kongCtx.Run(deps)
}

// wireScrape builds the fetcher, discovery and pipeline for the scrape
// command. Flags override the environment.
func (m *Main) wireScrape(deps *Dependencies, c *ScrapeCmd, extractor *goquery.Extractor) (wikifuse.Fetcher, error) {
	logger := deps.Logger
	timeout := cmp.Or(c.FetchTimeout, m.Config.FetchTimeout)
	concurrency := cmp.Or(c.Concurrency, m.Config.Concurrency)

	// Wikis on one farm share its servers.
	limiter := crawl.NewDomainLimiter(m.Config.RateLimit, crawl.ByRegistrableDomain())
	client := wfhttp.NewFetcher(
		wfhttp.WithTimeout(timeout),
		wfhttp.WithRetryMax(m.Config.RetryMax),
		wfhttp.WithDomainLimiter(limiter),
		wfhttp.WithLogger(logger),
	)
	var pages wikifuse.Fetcher = client
	budget := timeout * time.Duration(m.Config.RetryMax+1)
	if c.Render {
		browsers, err := rod.NewBrowserManager()
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		pages = rod.NewFetcher(browsers, rod.WithDomainLimiter(limiter))
		budget = timeout
	}
	fetcher := wfslog.NewLoggingFetcher(pages, logger)
	sitemaps := wfslog.NewLoggingSitemapService(wfhttp.NewSitemapService(client.Client()), logger)

	deps.Discoverer = &crawl.Discoverer{
		Fetcher:     fetcher,
		Links:       goquery.NewLinkExtractor(),
		Sitemaps:    sitemaps,
		Concurrency: concurrency,
	}
	deps.URLs = wfslog.NewLoggingURLSource(deps.Discoverer, logger)

	deps.Pipeline = &pipeline.Pipeline{
		Registry:   deps.Registry,
		Validator:  extractor,
		Fetcher:    fetcher,
		Extractor:  extractor,
		Normalizer: normalize.NewNormalizer(normalize.WithConverter(htmltomarkdown.NewConverter())),
		Scorer:     quality.NewScorer(),
		Fuser:      fuse.NewFuser(),
		Locker:     fuse.NewLocker(),
		Store:      deps.Store,
		Logger:     logger,

		Concurrency: concurrency,
		// The page budget covers every retry attempt.
		FetchTimeout: budget,
		NoFuse:       c.NoFuse,
	}

	if c.MetricsFile != "" {
		deps.Metrics = prometheus.NewMetrics()
	}
	return fetcher, nil
}

// configLayers returns the configuration file systems in priority order.
func (m *Main) configLayers() []iofs.FS {
	var layers []iofs.FS
	if info, err := os.Stat(m.Config.ConfigDir); err == nil && info.IsDir() {
		layers = append(layers, os.DirFS(m.Config.ConfigDir))
	}
	return append(layers, configs.FS)
}
