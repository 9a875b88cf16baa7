package archives

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Product is one raw payload fetched from a reference archive, before
// parsing and unit normalization.
type Product struct {
	Archive     string
	Target      string
	Query       map[string]string
	FileName    string
	Format      string
	Data        []byte
	RetrievedAt time.Time
}

// Fetcher retrieves reference spectra for a target from one archive.
type Fetcher interface {
	// Name identifies the archive ("mast", "sdss", ...).
	Name() string
	// Fetch retrieves the best product for a canonical target name.
	Fetch(ctx context.Context, target string) (*Product, error)
}

// ErrNoProduct reports that the archive has nothing for the target. It is
// distinct from transport failures so callers can treat it as a final answer.
var ErrNoProduct = errors.New("archive has no product for target")

// Registry holds the configured fetchers keyed by archive name.
type Registry struct {
	fetchers map[string]Fetcher
	order    []string
}

// NewRegistry builds a registry from the supplied fetchers, preserving
// order for listings.
func NewRegistry(fetchers ...Fetcher) *Registry {
	r := &Registry{fetchers: make(map[string]Fetcher)}
	for _, f := range fetchers {
		if f == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(f.Name()))
		if name == "" {
			continue
		}
		if _, exists := r.fetchers[name]; !exists {
			r.order = append(r.order, name)
		}
		r.fetchers[name] = f
	}
	return r
}

// Get returns the fetcher for an archive name.
func (r *Registry) Get(name string) (Fetcher, bool) {
	f, ok := r.fetchers[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Names lists the registered archives in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
