package main_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	main "github.com/fwojciec/wikifuse/cmd/wikifuse"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testwikiConfig = `key: testwiki
name: Test Wiki
rules:
  - field: name
    selector: h1
    required: true
  - field: age
    selector: .age
  - field: abilities
    selector: .ability
    mode: list
`

// newTestConfig returns a configuration rooted in a temporary directory,
// with the testwiki source installed.
func newTestConfig(t *testing.T) main.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := main.Config{
		DB:           filepath.Join(dir, "wikifuse.db"),
		ConfigDir:    filepath.Join(dir, "sources"),
		LogLevel:     "error",
		Concurrency:  2,
		FetchTimeout: 5 * time.Second,
		RetryMax:     0,
	}
	require.NoError(t, os.MkdirAll(cfg.ConfigDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ConfigDir, "testwiki.yaml"), []byte(testwikiConfig), 0644))
	return cfg
}

// run executes the CLI once with a fresh Main.
func run(t *testing.T, cfg main.Config, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	err = main.NewMain(cfg).Run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

// newWiki serves character pages.
func newWiki(t *testing.T) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/wiki/Luffy":         `<html><body><h1>Monkey D. Luffy</h1><span class="age">19</span></body></html>`,
		"/wiki/Luffy/Powers":  `<html><body><h1>Monkey D. Luffy</h1><ul><li class="ability">Gomu Gomu no Mi</li></ul></body></html>`,
		"/wiki/Nami":          `<html><body><h1>Nami</h1><span class="age">20</span></body></html>`,
		"/wiki/Nami/Timeskip": `<html><body><h1>Nami</h1><span class="age">18</span></body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("requires a command", func(t *testing.T) {
		t.Parallel()

		_, _, err := run(t, newTestConfig(t))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no command specified")
	})

	t.Run("help succeeds", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := run(t, newTestConfig(t), "--help")

		require.NoError(t, err)
		assert.Contains(t, stdout, "scrape")
		assert.Contains(t, stdout, "validate")
	})

	t.Run("rejects an invalid log level", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		cfg.LogLevel = "chatty"

		_, _, err := run(t, cfg, "sources")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestCmdSources(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, newTestConfig(t), "sources")

	require.NoError(t, err)
	for _, key := range []string{"generic", "naruto", "onepiece", "testwiki"} {
		assert.Contains(t, stdout, key)
	}
}

func TestCmdValidate(t *testing.T) {
	t.Parallel()

	t.Run("prints the rules of a valid configuration", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := run(t, newTestConfig(t), "validate", "onepiece")

		require.NoError(t, err)
		assert.Contains(t, stdout, "onepiece is valid")
		assert.Contains(t, stdout, "bounty")
		assert.Contains(t, stdout, "parse_bounty")
	})

	t.Run("reports invalid selectors", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		broken := "key: broken\nrules:\n  - field: name\n    selector: \"h1[\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(cfg.ConfigDir, "broken.yaml"), []byte(broken), 0644))

		_, stderr, err := run(t, cfg, "validate", "broken")

		require.Error(t, err)
		assert.Contains(t, stderr, "error:")
	})
}

func TestCmdInit(t *testing.T) {
	t.Parallel()

	t.Run("creates a configuration that inherits the generic rules", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)

		stdout, _, err := run(t, cfg, "init", "bleach", "--domain", "bleach.fandom.com")
		require.NoError(t, err)
		assert.Contains(t, stdout, filepath.Join(cfg.ConfigDir, "bleach.yaml"))

		stdout, _, err = run(t, cfg, "validate", "bleach")
		require.NoError(t, err)
		assert.Contains(t, stdout, "bleach is valid")
		assert.Contains(t, stdout, "clean_character_name")
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)

		_, _, err := run(t, cfg, "init", "bleach")
		require.NoError(t, err)

		_, stderr, err := run(t, cfg, "init", "bleach")
		require.Error(t, err)
		assert.Contains(t, stderr, "already exists")

		_, _, err = run(t, cfg, "init", "bleach", "--force")
		require.NoError(t, err)
	})

	t.Run("rejects an unknown base", func(t *testing.T) {
		t.Parallel()

		_, stderr, err := run(t, newTestConfig(t), "init", "bleach", "--extends", "nosuchwiki")

		require.Error(t, err)
		assert.Contains(t, stderr, "unknown base configuration")
	})
}

func TestCmdScrape(t *testing.T) {
	t.Parallel()

	t.Run("scrapes, fuses and shows entities", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		wiki := newWiki(t)

		stdout, stderr, err := run(t, cfg, "scrape", "testwiki",
			wiki.URL+"/wiki/Luffy",
			wiki.URL+"/wiki/Luffy/Powers",
			wiki.URL+"/wiki/Nami",
			wiki.URL+"/wiki/Nami/Timeskip",
		)
		require.NoError(t, err, stderr)
		assert.Contains(t, stdout, "Scraping 4 pages from testwiki")
		assert.Contains(t, stdout, "SUCCEEDED")

		stdout, _, err = run(t, cfg, "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "testwiki/monkey-d-luffy")
		assert.Contains(t, stdout, "testwiki/nami")

		stdout, _, err = run(t, cfg, "show", "testwiki/monkey-d-luffy", "--json")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"age": "19"`)
		assert.Contains(t, stdout, "Gomu Gomu no Mi")
		assert.NotContains(t, stdout, "merge_conflicts")

		stdout, _, err = run(t, cfg, "show", "testwiki/nami")
		require.NoError(t, err)
		assert.Contains(t, stdout, "CONFLICTS")
		assert.Contains(t, stdout, "/wiki/Nami/Timeskip")
	})

	t.Run("reports failed pages and exits with an error", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		wiki := newWiki(t)

		stdout, stderr, err := run(t, cfg, "scrape", "testwiki", wiki.URL+"/wiki/Luffy", wiki.URL+"/wiki/Zoro")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2 pages failed")
		assert.Contains(t, stdout, "FETCH_FAILED")
		assert.Contains(t, stderr, "fail "+wiki.URL+"/wiki/Zoro")
	})

	t.Run("skips fusion when asked", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		wiki := newWiki(t)

		_, _, err := run(t, cfg, "scrape", "testwiki", "--no-fuse", wiki.URL+"/wiki/Nami")
		require.NoError(t, err)

		stdout, _, err := run(t, cfg, "list")
		require.NoError(t, err)
		assert.Contains(t, stdout, "No entities found")
	})

	t.Run("writes metrics", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		wiki := newWiki(t)
		metrics := filepath.Join(t.TempDir(), "wikifuse.prom")

		_, _, err := run(t, cfg, "scrape", "testwiki", "--metrics-file", metrics, wiki.URL+"/wiki/Nami")
		require.NoError(t, err)

		data, err := os.ReadFile(metrics)
		require.NoError(t, err)
		assert.Contains(t, string(data), `wikifuse_pages_total{outcome="succeeded",source="testwiki"} 1`)
	})

	t.Run("requires pages", func(t *testing.T) {
		t.Parallel()

		_, stderr, err := run(t, newTestConfig(t), "scrape", "testwiki")

		require.Error(t, err)
		assert.Contains(t, stderr, "no pages to scrape")
	})

	t.Run("refuses to run while another scrape holds the database", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		lock := flock.New(cfg.DB + ".lock")
		ok, err := lock.TryLock()
		require.NoError(t, err)
		require.True(t, ok)
		defer lock.Unlock()

		_, _, err = run(t, cfg, "scrape", "testwiki", "https://example.com/wiki/Nami")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "in use by another scrape")
	})
}

func TestCmdShow(t *testing.T) {
	t.Parallel()

	_, stderr, err := run(t, newTestConfig(t), "show", "testwiki/nobody")

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(stderr, "error:"))
}
