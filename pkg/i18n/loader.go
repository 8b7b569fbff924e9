package i18n

import (
	"context"
	"fmt"
	"sync"

	"github.com/fluxorio/mtp/pkg/navigation"
)

// Loader is a per-client translation table built from a growing set of
// parts. Parts are only loaded by Refresh.
type Loader struct {
	catalog *Catalog
	lang    string

	mu    sync.RWMutex
	parts []string
	table map[string]string
}

// NewLoader creates an empty loader for lang
func NewLoader(catalog *Catalog, lang string) *Loader {
	return &Loader{
		catalog: catalog,
		lang:    lang,
		table:   make(map[string]string),
	}
}

// Language returns the loader's language
func (l *Loader) Language() string {
	return l.lang
}

// AddPart adds a part to the set; adding a known part is a no-op
func (l *Loader) AddPart(part string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.parts = withParts(l.parts, part)
}

// Parts returns the part set in insertion order
func (l *Loader) Parts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.parts...)
}

// Refresh loads every part and swaps in the merged table. Later parts
// override earlier ones. On error the previous table is kept.
func (l *Loader) Refresh(ctx context.Context) error {
	parts := l.Parts()
	table, err := l.load(ctx, parts)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.table = table
	l.mu.Unlock()
	return nil
}

// Extend loads the current set plus parts. The parts join the set only
// when every part loads; on error both set and table are unchanged.
func (l *Loader) Extend(ctx context.Context, parts ...string) error {
	candidate := withParts(l.Parts(), parts...)
	table, err := l.load(ctx, candidate)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.parts = withParts(l.parts, candidate...)
	l.table = table
	l.mu.Unlock()
	return nil
}

func (l *Loader) load(ctx context.Context, parts []string) (map[string]string, error) {
	table := make(map[string]string)
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := l.catalog.Part(l.lang, part)
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			table[k] = v
		}
	}
	return table, nil
}

// withParts appends the parts not yet in set
func withParts(set []string, parts ...string) []string {
	out := append([]string(nil), set...)
next:
	for _, p := range parts {
		for _, q := range out {
			if p == q {
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}

// Translate returns the translation of key, or key itself when unknown
func (l *Loader) Translate(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if v, ok := l.table[key]; ok {
		return v
	}
	return key
}

// Resolver adds parts and refreshes before a state is entered
func (l *Loader) Resolver(parts ...string) navigation.Resolver {
	return func(ctx context.Context, _ *navigation.Transition) error {
		if err := l.Extend(ctx, parts...); err != nil {
			return fmt.Errorf("load translations %v: %w", parts, err)
		}
		return nil
	}
}
