// Package lexicon resolves words to lemmas and looks up their CEFR level
// and frequency score.
package lexicon

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/abhisek/eikengen/internal/store"
)

// Lexicon is a batch word-list lookup. Lemmas it does not know are omitted
// from the result.
type Lexicon interface {
	LookupLemmas(ctx context.Context, lemmas []string) ([]store.LexiconEntry, error)
}

//go:embed data/seed.csv
var seedCSV string

// Seed returns the built-in word list.
func Seed() ([]store.LexiconEntry, error) {
	return ReadCSV(strings.NewReader(seedCSV))
}

// Memory is an in-process Lexicon.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]store.LexiconEntry
}

// NewMemory builds a Memory lexicon from entries. Later duplicates win.
func NewMemory(entries ...store.LexiconEntry) *Memory {
	m := &Memory{entries: make(map[string]store.LexiconEntry, len(entries))}
	m.Add(entries...)
	return m
}

// Add inserts or replaces entries.
func (m *Memory) Add(entries ...store.LexiconEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[strings.ToLower(e.Lemma)] = e
	}
}

func (m *Memory) LookupLemmas(_ context.Context, lemmas []string) ([]store.LexiconEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []store.LexiconEntry
	for _, l := range lemmas {
		if e, ok := m.entries[l]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cached fronts a Lexicon with an LRU cache. Misses are cached too, so a
// word absent from the backing list costs one round trip.
type Cached struct {
	inner Lexicon
	cache *lru.Cache[string, cacheEntry]
}

type cacheEntry struct {
	entry store.LexiconEntry
	found bool
}

// NewCached wraps inner with a cache holding up to size lemmas.
func NewCached(inner Lexicon, size int) (*Cached, error) {
	c, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create lexicon cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) LookupLemmas(ctx context.Context, lemmas []string) ([]store.LexiconEntry, error) {
	var out []store.LexiconEntry
	var missing []string
	for _, l := range lemmas {
		if ce, ok := c.cache.Get(l); ok {
			if ce.found {
				out = append(out, ce.entry)
			}
			continue
		}
		missing = append(missing, l)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := c.inner.LookupLemmas(ctx, missing)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(fetched))
	for _, e := range fetched {
		c.cache.Add(e.Lemma, cacheEntry{entry: e, found: true})
		found[e.Lemma] = true
		out = append(out, e)
	}
	for _, l := range missing {
		if !found[l] {
			c.cache.Add(l, cacheEntry{})
		}
	}
	return out, nil
}
