package gather

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const projectCacheTTL = 10 * time.Minute

// projectMarkers are the files whose presence makes a directory a project root.
var projectMarkers = []string{
	".git",
	"go.mod",
	"CMakeLists.txt",
	"Makefile",
	"package.json",
	"Cargo.toml",
}

// Projects resolves and caches the project root of source files.
type Projects struct {
	cache *ttlcache.Cache[string, string]
}

// NewProjects returns an empty resolver. Call Close to stop its expiry loop.
func NewProjects() *Projects {
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](projectCacheTTL),
	)
	go c.Start()
	return &Projects{cache: c}
}

// Close stops the expiry loop.
func (p *Projects) Close() {
	p.cache.Stop()
}

// Root returns the nearest ancestor directory of file holding a project
// marker, or "" when there is none.
func (p *Projects) Root(file string) string {
	if file == "" {
		return ""
	}
	dir := filepath.Dir(file)
	if item := p.cache.Get(dir); item != nil {
		return item.Value()
	}
	root := findRoot(dir)
	p.cache.Set(dir, root, ttlcache.DefaultTTL)
	return root
}

func findRoot(dir string) string {
	for {
		for _, m := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
