package mock

import "github.com/fwojciec/wikifuse"

var _ wikifuse.Registry = (*Registry)(nil)

// Registry is a mock implementation of wikifuse.Registry.
type Registry struct {
	LoadFn        func(sourceKey string) (*wikifuse.SourceConfig, error)
	ResolveRuleFn func(sourceKey, field string) (*wikifuse.SelectorRule, error)
	ListFn        func() ([]string, error)
}

func (r *Registry) Load(sourceKey string) (*wikifuse.SourceConfig, error) {
	return r.LoadFn(sourceKey)
}

func (r *Registry) ResolveRule(sourceKey, field string) (*wikifuse.SelectorRule, error) {
	return r.ResolveRuleFn(sourceKey, field)
}

func (r *Registry) List() ([]string, error) {
	return r.ListFn()
}
