// Package symbols indexes the declarations of a project and resolves the
// identifiers mentioned in a comment block to them.
package symbols

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/jellydator/ttlcache/v3"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/Paranoid-AF/codelet"
	"github.com/Paranoid-AF/codelet/gather"
)

const (
	maxIndexedFiles = 5000
	maxFileBytes    = 1 << 20
	maxResults      = 16
	minNameLen      = 3
	minPrefixLen    = 5
	maxPrefixNames  = 4
	resultCacheTTL  = 30 * time.Second

	// minSimilarity is the cosine similarity a fuzzy match must reach.
	minSimilarity = 0.7
)

// skipDirs are never descended into while indexing.
var skipDirs = map[string]bool{
	"node_modules": true, "vendor": true, "target": true, "build": true,
	"dist": true, "__pycache__": true,
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Index resolves identifiers to declarations. The zero value is not usable;
// construct with NewIndex.
type Index struct {
	mu    sync.RWMutex
	root  string
	gen   int
	names *patricia.Trie       // folded name -> []codelet.Symbol
	graph *hnsw.Graph[string] // folded name -> name vector

	results *ttlcache.Cache[string, []codelet.Symbol]

	logger *slog.Logger
}

var _ gather.SymbolProvider = (*Index)(nil)

// NewIndex returns an empty index. Call Close to release it.
func NewIndex() *Index {
	results := ttlcache.New[string, []codelet.Symbol](
		ttlcache.WithTTL[string, []codelet.Symbol](resultCacheTTL),
		ttlcache.WithCapacity[string, []codelet.Symbol](256),
	)
	go results.Start()
	return &Index{
		names:   patricia.NewTrie(),
		graph:   hnsw.NewGraph[string](),
		results: results,
		logger:  slog.Default(),
	}
}

// Close stops the result cache.
func (idx *Index) Close() {
	idx.results.Stop()
}

// Root returns the directory last indexed.
func (idx *Index) Root() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.root
}

// Len returns the number of distinct indexed names.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len()
}

// UpdateIndexRoot re-indexes root in the background. A later call supersedes
// an earlier build still in progress.
func (idx *Index) UpdateIndexRoot(root string) {
	idx.mu.Lock()
	idx.gen++
	gen := idx.gen
	idx.mu.Unlock()

	go func() {
		if err := idx.Build(context.Background(), root, gen); err != nil {
			idx.logger.Warn("symbol indexing failed", "root", root, "error", err)
		}
	}()
}

// Build indexes every recognised source file below root and swaps the result
// in, unless a newer build was requested meanwhile. gen 0 always swaps.
func (idx *Index) Build(ctx context.Context, root string, gen int) error {
	start := time.Now()
	b := newBuilder()
	files := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !gather.IsSource(path) {
			return nil
		}
		if files >= maxIndexedFiles {
			return filepath.SkipAll
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxFileBytes {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		files++
		b.add(Extract(path, src))
		return nil
	})
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if gen != 0 && gen != idx.gen {
		return nil
	}
	idx.root = root
	idx.names, idx.graph = b.names, b.graph
	idx.results.DeleteAll()
	idx.logger.Debug("symbols indexed", "root", root, "files", files, "names", b.graph.Len(), "took", time.Since(start))
	return nil
}

// UpdateFile replaces the symbols indexed for path with those declared in
// src. Names left without declarations keep their graph node; lookups skip
// them.
func (idx *Index) UpdateFile(path string, src []byte) {
	syms := Extract(path, src)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	type update struct {
		key  patricia.Prefix
		syms []codelet.Symbol
	}
	var updates []update
	idx.names.Visit(func(p patricia.Prefix, item patricia.Item) error {
		old := item.([]codelet.Symbol)
		kept := make([]codelet.Symbol, 0, len(old))
		for _, s := range old {
			if s.Path != path {
				kept = append(kept, s)
			}
		}
		if len(kept) != len(old) {
			updates = append(updates, update{key: append(patricia.Prefix(nil), p...), syms: kept})
		}
		return nil
	})
	for _, u := range updates {
		idx.names.Set(u.key, u.syms)
	}
	b := &builder{names: idx.names, graph: idx.graph}
	b.add(syms)
	idx.results.DeleteAll()
}

// Symbols returns the declarations named in text, best matches first.
// Exact (case and separator insensitive) matches come before prefix matches,
// which come before fuzzy ones.
func (idx *Index) Symbols(ctx context.Context, text, path string) ([]codelet.Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := path + "\x00" + text
	if item := idx.results.Get(key); item != nil {
		return item.Value(), nil
	}

	idx.mu.RLock()
	out := idx.lookup(identifiers(text))
	idx.mu.RUnlock()

	idx.results.Set(key, out, ttlcache.DefaultTTL)
	return out, nil
}

// lookup resolves each word. idx.mu must be held.
func (idx *Index) lookup(words []string) []codelet.Symbol {
	out := []codelet.Symbol{}
	seen := make(map[string]bool)
	take := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, idx.declared(name)...)
	}

	var partial []string
	for _, w := range words {
		if len(idx.declared(w)) > 0 {
			take(w)
		} else {
			partial = append(partial, w)
		}
	}
	var fuzzy []string
	for _, w := range partial {
		names := idx.prefixed(w)
		for _, n := range names {
			take(n)
		}
		if len(names) == 0 {
			fuzzy = append(fuzzy, w)
		}
	}
	if idx.graph.Len() > 0 {
		for _, w := range fuzzy {
			q := nameVector(w)
			for _, n := range idx.graph.Search(q, 1) {
				if similarity(q, n.Value) >= minSimilarity {
					take(n.Key)
				}
			}
		}
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// declared returns the symbols indexed under the folded name. idx.mu must be
// held.
func (idx *Index) declared(name string) []codelet.Symbol {
	if item := idx.names.Get(patricia.Prefix(name)); item != nil {
		return item.([]codelet.Symbol)
	}
	return nil
}

// prefixed returns up to maxPrefixNames indexed names that extend word, in
// trie order. idx.mu must be held.
func (idx *Index) prefixed(word string) []string {
	if len(word) < minPrefixLen {
		return nil
	}
	var out []string
	idx.names.VisitSubtree(patricia.Prefix(word), func(p patricia.Prefix, item patricia.Item) error {
		if len(item.([]codelet.Symbol)) == 0 {
			return nil
		}
		out = append(out, string(p))
		if len(out) == maxPrefixNames {
			return errVisitDone
		}
		return nil
	})
	return out
}

// errVisitDone stops a trie walk early.
var errVisitDone = errors.New("visit done")

// identifiers returns the distinct folded identifiers in text worth looking up.
func identifiers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range identRe.FindAllString(text, -1) {
		if len(w) < minNameLen || stopWords[strings.ToLower(w)] {
			continue
		}
		f := foldName(w)
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// stopWords are common comment words that are never looked up.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "this": true, "that": true,
	"with": true, "from": true, "into": true, "use": true, "uses": true,
	"todo": true, "fixme": true, "note": true, "returns": true, "return": true,
	"func": true, "function": true, "should": true, "when": true, "then": true,
	"call": true, "calls": true, "here": true, "are": true, "not": true,
}

// builder accumulates a trie and graph before they are published.
type builder struct {
	names *patricia.Trie
	graph *hnsw.Graph[string]
}

func newBuilder() *builder {
	return &builder{names: patricia.NewTrie(), graph: hnsw.NewGraph[string]()}
}

func (b *builder) add(syms []codelet.Symbol) {
	grouped := make(map[string][]codelet.Symbol)
	for _, s := range syms {
		if len(s.Name) < minNameLen {
			continue
		}
		f := foldName(s.Name)
		grouped[f] = append(grouped[f], s)
	}
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var nodes []hnsw.Node[string]
	for _, f := range keys {
		p := patricia.Prefix(f)
		if item := b.names.Get(p); item != nil {
			b.names.Set(p, append(item.([]codelet.Symbol), grouped[f]...))
			continue
		}
		b.names.Insert(p, grouped[f])
		nodes = append(nodes, hnsw.MakeNode(f, nameVector(f)))
	}
	if len(nodes) > 0 {
		b.graph.Add(nodes...)
	}
}
