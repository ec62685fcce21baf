package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/crawl"
	"github.com/fwojciec/wikifuse/fs"
	"github.com/fwojciec/wikifuse/pipeline"
	"github.com/fwojciec/wikifuse/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config Config
	Logger *slog.Logger

	Registry  wikifuse.Registry
	Validator wikifuse.ConfigValidator
	Writer    *fs.Writer
	Store     wikifuse.Store

	// Set for the scrape command only.
	Pipeline   *pipeline.Pipeline
	Discoverer *crawl.Discoverer
	URLs       wikifuse.URLSource
	Metrics    *prometheus.Metrics
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Scrape   ScrapeCmd   `cmd:"" help:"Scrape pages of a source and fuse them into canonical entities"`
	Show     ShowCmd     `cmd:"" help:"Show a canonical entity"`
	List     ListCmd     `cmd:"" help:"List canonical entities"`
	Sources  SourcesCmd  `cmd:"" help:"List available source configurations"`
	Validate ValidateCmd `cmd:"" help:"Validate a source configuration"`
	Init     InitCmd     `cmd:"" help:"Create a source configuration"`
}

// ScrapeCmd is the "scrape" subcommand.
type ScrapeCmd struct {
	Source       string        `arg:"" help:"Source key"`
	URLs         []string      `arg:"" optional:"" name:"url" help:"Page URLs to scrape"`
	Discover     bool          `short:"d" help:"Discover entity pages from listing pages or sitemaps"`
	Sitemap      string        `help:"Discover entity pages from the sitemaps of this site"`
	Concurrency  int           `short:"c" help:"Concurrent page limit (default from WIKIFUSE_CONCURRENCY)"`
	FetchTimeout time.Duration `help:"Per-page fetch timeout (default from WIKIFUSE_FETCH_TIMEOUT)"`
	NoFuse       bool          `help:"Store normalized records without fusing"`
	Render       bool          `help:"Render pages in headless Chrome before extraction"`
	MetricsFile  string        `help:"Write Prometheus metrics to this textfile"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	Key  string `arg:"" help:"Entity key, e.g. onepiece/monkey-d-luffy"`
	JSON bool   `help:"Print JSON"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	Source string `short:"s" help:"Only entities of this source"`
	Limit  int    `short:"n" default:"0" help:"Maximum number of entities (0 for all)"`
}

// SourcesCmd is the "sources" subcommand.
type SourcesCmd struct{}

// ValidateCmd is the "validate" subcommand.
type ValidateCmd struct {
	Source string `arg:"" help:"Source key"`
}

// InitCmd is the "init" subcommand.
type InitCmd struct {
	Source  string   `arg:"" help:"Source key"`
	Name    string   `help:"Display name"`
	Extends string   `default:"generic" help:"Configuration to inherit from"`
	Domain  []string `name:"domain" help:"Allowed domain (repeatable)"`
	Listing []string `name:"listing" help:"Listing page URL (repeatable)"`
	Force   bool     `short:"f" help:"Overwrite an existing configuration"`
}
