// Package fs provides file-system backed source configurations.
//
// Configurations are read from one or more io/fs.FS layers, typically a user
// directory followed by the embedded defaults. The first layer holding a key
// wins. The file extension selects the codec.
package fs

import (
	"errors"
	iofs "io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/wikifuse"
	"golang.org/x/sync/singleflight"
)

var _ wikifuse.Registry = (*Registry)(nil)

// Registry implements wikifuse.Registry. Loaded configurations are cached
// per key; concurrent first loads of a key share a single parse.
type Registry struct {
	layers     []iofs.FS
	codecs     map[string]wikifuse.ConfigCodec
	validator  wikifuse.ConfigValidator
	defaultKey string

	indexOnce sync.Once
	index     map[string]location
	indexErr  error

	mu    sync.RWMutex
	cache map[string]*wikifuse.SourceConfig
	group singleflight.Group
}

type location struct {
	fsys iofs.FS
	path string
}

// Option configures a Registry.
type Option func(*Registry)

// WithValidator sets the validator used to check selector syntax.
func WithValidator(v wikifuse.ConfigValidator) Option {
	return func(r *Registry) {
		r.validator = v
	}
}

// WithDefaultKey sets the key of the fallback configuration.
// Defaults to wikifuse.DefaultSourceKey.
func WithDefaultKey(key string) Option {
	return func(r *Registry) {
		r.defaultKey = wikifuse.NormalizeSourceKey(key)
	}
}

// NewRegistry creates a Registry reading configuration documents from
// layers, in priority order.
func NewRegistry(layers []iofs.FS, codecs []wikifuse.ConfigCodec, opts ...Option) *Registry {
	r := &Registry{
		layers:     layers,
		codecs:     make(map[string]wikifuse.ConfigCodec),
		defaultKey: wikifuse.DefaultSourceKey,
		cache:      make(map[string]*wikifuse.SourceConfig),
	}
	for _, c := range codecs {
		for _, ext := range c.Extensions() {
			r.codecs[strings.ToLower(ext)] = c
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load returns the configuration for sourceKey. When no document exists for
// the key, the default configuration is returned under the requested key.
func (r *Registry) Load(sourceKey string) (*wikifuse.SourceConfig, error) {
	key := wikifuse.NormalizeSourceKey(sourceKey)
	if key == "" {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "source key required")
	}

	if cfg, ok := r.cached(key); ok {
		return cfg, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if cfg, ok := r.cached(key); ok {
			return cfg, nil
		}
		cfg, err := r.build(key)
		if err != nil {
			return nil, err
		}
		return r.store(key, cfg), nil
	})
	if err != nil {
		return nil, err
	}
	cfg, _ := v.(*wikifuse.SourceConfig)
	return cfg, nil
}

// ResolveRule returns the rule for field of sourceKey.
func (r *Registry) ResolveRule(sourceKey, field string) (*wikifuse.SelectorRule, error) {
	cfg, err := r.Load(sourceKey)
	if err != nil {
		return nil, err
	}
	rule, ok := cfg.Rule(field)
	if !ok {
		return nil, wikifuse.Errorf(wikifuse.EUNKNOWNFIELD, "%s: no rule for field %q", cfg.Key, field)
	}
	return rule, nil
}

// List returns the keys of every configuration document, sorted.
func (r *Registry) List() ([]string, error) {
	index, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Register validates cfg and makes it available under its key, replacing
// any cached configuration.
func (r *Registry) Register(cfg *wikifuse.SourceConfig) error {
	cfg = cfg.Clone()
	cfg.Key = wikifuse.NormalizeSourceKey(cfg.Key)
	if err := r.validate(cfg); err != nil {
		return err
	}
	r.mu.Lock()
	r.cache[cfg.Key] = cfg
	r.mu.Unlock()
	return nil
}

func (r *Registry) cached(key string) (*wikifuse.SourceConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.cache[key]
	return cfg, ok
}

// store publishes a fully built configuration. An entry registered in the
// meantime wins.
func (r *Registry) store(key string, cfg *wikifuse.SourceConfig) *wikifuse.SourceConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[key]; ok {
		return existing
	}
	r.cache[key] = cfg
	return cfg
}

func (r *Registry) build(key string) (*wikifuse.SourceConfig, error) {
	cfg, err := r.resolve(key, nil)
	if wikifuse.ErrorCode(err) == wikifuse.ENOTFOUND {
		if key == r.defaultKey {
			return nil, wikifuse.Errorf(wikifuse.ECONFIG, "no configuration for %q and no default configuration", key)
		}
		base, err := r.Load(r.defaultKey)
		if err != nil {
			return nil, wikifuse.Errorf(wikifuse.ECONFIG, "no configuration for %q: %s", key, wikifuse.ErrorMessage(err))
		}
		cfg = base.Clone()
		cfg.Key = key
		return cfg, nil
	} else if err != nil {
		return nil, err
	}

	if err := r.validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *Registry) validate(cfg *wikifuse.SourceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if r.validator != nil {
		return r.validator.ValidateConfig(cfg)
	}
	return nil
}

// resolve decodes the document for key and applies its extends chain.
func (r *Registry) resolve(key string, visiting []string) (*wikifuse.SourceConfig, error) {
	for _, k := range visiting {
		if k == key {
			return nil, wikifuse.Errorf(wikifuse.ECONFIG, "configuration inheritance cycle: %s -> %s", strings.Join(visiting, " -> "), key)
		}
	}
	visiting = append(visiting, key)

	cfg, err := r.decode(key)
	if err != nil {
		return nil, err
	}
	cfg.Key = key

	if cfg.Extends == "" {
		return cfg, nil
	}
	baseKey := wikifuse.NormalizeSourceKey(cfg.Extends)
	base, err := r.resolve(baseKey, visiting)
	if wikifuse.ErrorCode(err) == wikifuse.ENOTFOUND {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "%s extends unknown configuration %q", key, cfg.Extends)
	} else if err != nil {
		return nil, err
	}
	return cfg.Inherit(base), nil
}

func (r *Registry) decode(key string) (*wikifuse.SourceConfig, error) {
	index, err := r.loadIndex()
	if err != nil {
		return nil, err
	}
	loc, ok := index[key]
	if !ok {
		return nil, wikifuse.Errorf(wikifuse.ENOTFOUND, "no configuration document for %q", key)
	}

	data, err := iofs.ReadFile(loc.fsys, loc.path)
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "reading %s: %v", loc.path, err)
	}
	codec := r.codecs[strings.ToLower(path.Ext(loc.path))]

	var cfg wikifuse.SourceConfig
	if err := codec.Decode(data, &cfg); err != nil {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "%s: %s", loc.path, wikifuse.ErrorMessage(err))
	}
	return &cfg, nil
}

// loadIndex maps every configuration document to its normalized key.
func (r *Registry) loadIndex() (map[string]location, error) {
	r.indexOnce.Do(func() {
		r.index = make(map[string]location)
		pattern := r.pattern()
		if pattern == "" {
			return
		}
		for _, layer := range r.layers {
			matches, err := doublestar.Glob(layer, pattern)
			if err != nil && !errors.Is(err, iofs.ErrNotExist) {
				r.indexErr = wikifuse.Errorf(wikifuse.ECONFIG, "scanning configuration directory: %v", err)
				return
			}
			sort.Strings(matches)
			for _, m := range matches {
				stem := strings.TrimSuffix(path.Base(m), path.Ext(m))
				key := wikifuse.NormalizeSourceKey(stem)
				if _, ok := r.index[key]; !ok {
					r.index[key] = location{fsys: layer, path: m}
				}
			}
		}
	})
	return r.index, r.indexErr
}

// pattern returns a glob matching every extension with a codec.
func (r *Registry) pattern() string {
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	if len(exts) == 0 {
		return ""
	}
	sort.Strings(exts)
	return "**/*.{" + strings.Join(exts, ",") + "}"
}
