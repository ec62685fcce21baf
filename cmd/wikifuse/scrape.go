package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fwojciec/wikifuse"
	"github.com/fwojciec/wikifuse/crawl"
	"github.com/fwojciec/wikifuse/pipeline"
)

// Run executes the scrape command.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	cfg, err := deps.Registry.Load(c.Source)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifuse.ErrorMessage(err))
		return err
	}

	urls := c.URLs
	if c.Sitemap != "" {
		found, err := deps.Discoverer.DiscoverSitemap(deps.Ctx, cfg, c.Sitemap)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
			return err
		}
		urls = append(urls, found...)
	}
	if c.Discover {
		found, err := deps.URLs.Discover(deps.Ctx, cfg)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
			return err
		}
		urls = append(urls, found...)
	}
	urls = uniqueURLs(urls)
	if len(urls) == 0 {
		err := wikifuse.Errorf(wikifuse.EINVALID, "no pages to scrape: pass URLs, --discover or --sitemap")
		fmt.Fprintf(deps.Stderr, "error: %s\n", wikifuse.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Scraping %d pages from %s\n", len(urls), cfg.Key)

	progress := func(e pipeline.Event) {
		if e.Stage.Failed() {
			fmt.Fprintf(deps.Stderr, "  fail %s [%s]: %s\n", e.URL, e.Stage, errorText(e.Err))
		}
	}
	if deps.Metrics != nil {
		progress = deps.Metrics.Progress(progress)
	}

	begin := time.Now()
	summary, runErr := deps.Pipeline.Run(deps.Ctx, c.Source, urls, progress)
	if summary == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(runErr))
		return runErr
	}

	fmt.Fprintln(deps.Stdout, renderSummary(summary))

	if deps.Metrics != nil {
		deps.Metrics.ObserveRun(cfg.Key, summary, time.Since(begin), time.Now())
		if err := deps.Metrics.WriteToTextfile(c.MetricsFile); err != nil {
			fmt.Fprintf(deps.Stderr, "error: writing metrics: %v\n", err)
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d pages failed", summary.Failed, len(urls))
	}
	return nil
}

func renderSummary(s *pipeline.Summary) string {
	out := renderTable(
		[]string{"Succeeded", "Failed", "Skipped", "Conflicts", "Entities"},
		[][]string{{
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.ConflictsDetected),
			strconv.Itoa(len(s.Entities)),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	)
	if len(s.Failures) == 0 {
		return out
	}

	rows := make([][]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		rows = append(rows, []string{f.URL, string(f.Stage), errorText(f.Err)})
	}
	return out + "\n" + renderTable([]string{"URL", "Stage", "Error"}, rows, nil)
}

// uniqueURLs drops repeated URLs, keeping the first occurrence.
func uniqueURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		key := crawl.CanonicalURL(u)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}

// errorText returns the message of application errors and the full text of
// any other error.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	if wikifuse.ErrorCode(err) == wikifuse.EINTERNAL {
		return err.Error()
	}
	return wikifuse.ErrorMessage(err)
}
