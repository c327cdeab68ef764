package gather

import (
	"container/heap"
	"path/filepath"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	recentTTL      = 24 * time.Hour
	recentCapacity = 512
)

// sourceExts are the extensions RecentFiles records.
var sourceExts = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cxx": true,
	".h": true, ".hh": true, ".hpp": true, ".hxx": true,
	".go": true, ".py": true, ".js": true, ".ts": true,
	".java": true, ".rs": true, ".sh": true, ".bash": true, ".zsh": true,
}

// IsSource reports whether path has a recognised source extension.
func IsSource(path string) bool {
	return sourceExts[strings.ToLower(filepath.Ext(path))]
}

// RecentFiles remembers when source files were last focused.
// Entries expire after a day without a visit.
type RecentFiles struct {
	cache *ttlcache.Cache[string, time.Time]
	now   func() time.Time
}

// NewRecentFiles returns an empty tracker. Call Close to stop its expiry loop.
func NewRecentFiles() *RecentFiles {
	c := ttlcache.New[string, time.Time](
		ttlcache.WithTTL[string, time.Time](recentTTL),
		ttlcache.WithCapacity[string, time.Time](recentCapacity),
	)
	go c.Start()
	return &RecentFiles{cache: c, now: time.Now}
}

// Close stops the expiry loop.
func (r *RecentFiles) Close() {
	r.cache.Stop()
}

// Touch records a visit to path. It reports false for non-source files,
// which are not recorded.
func (r *RecentFiles) Touch(path string) bool {
	if path == "" || !IsSource(path) {
		return false
	}
	r.cache.Set(path, r.now(), ttlcache.DefaultTTL)
	return true
}

// Len returns the number of tracked files.
func (r *RecentFiles) Len() int {
	return r.cache.Len()
}

// Top returns up to k paths, most recent first, leaving out exclude.
func (r *RecentFiles) Top(k int, exclude string) []string {
	if k <= 0 {
		return []string{}
	}
	h := make(visitHeap, 0, k+1)
	for path, item := range r.cache.Items() {
		if path == exclude {
			continue
		}
		heap.Push(&h, visit{path: path, at: item.Value()})
		if h.Len() > k {
			heap.Pop(&h)
		}
	}

	out := make([]string, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(visit).path
	}
	return out
}

type visit struct {
	path string
	at   time.Time
}

// visitHeap is a min-heap on visit time; the oldest visit sits at the root.
type visitHeap []visit

func (h visitHeap) Len() int { return len(h) }

func (h visitHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].path > h[j].path
	}
	return h[i].at.Before(h[j].at)
}

func (h visitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *visitHeap) Push(x any) { *h = append(*h, x.(visit)) }

func (h *visitHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
