// Package discover implements the recursive descent over a modules root
// that yields parsed Module records.
package discover

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/zephyr-sh/zephyr/pkg/cache"
	"github.com/zephyr-sh/zephyr/pkg/logger"
	"github.com/zephyr-sh/zephyr/pkg/manifest"
)

var log = logger.New("discover")

// DefaultMaxDepth bounds recursive descent,
// re-exported here so callers don't need to import pkg/constants just to
// pass the default.
const DefaultMaxDepth = 10

// Skipped records a manifest that failed to parse during discovery.
// Malformed manifests are logged and skipped — discovery never fails the
// whole scan.
type Skipped struct {
	Path string
	Err  error
}

// Result is the output of a Discover call.
type Result struct {
	Modules []*manifest.Module
	Skipped []Skipped
}

// Discover walks root up to maxDepth looking for module.toml files, parsing
// each (through c, if non-nil) into a Module. Output is sorted by absolute
// path for deterministic ordering across invocations.
func Discover(root string, maxDepth int, c *cache.Cache) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var manifestPaths []string
	err = walk(absRoot, absRoot, maxDepth, &manifestPaths)
	if err != nil {
		return nil, err
	}
	sort.Strings(manifestPaths)

	result := &Result{}
	for _, dir := range manifestPaths {
		m, err := parseModule(dir, c)
		if err != nil {
			log.Printf("skipping malformed manifest at %s: %v", dir, err)
			result.Skipped = append(result.Skipped, Skipped{Path: dir, Err: err})
			continue
		}
		m.Path = dir
		result.Modules = append(result.Modules, m)
	}
	return result, nil
}

func parseModule(dir string, c *cache.Cache) (*manifest.Module, error) {
	if c == nil {
		return manifest.Parse(dir)
	}
	manifestPath := filepath.Join(dir, manifest.ManifestFileName)
	return c.Get(manifestPath, func(string) (*manifest.Module, error) {
		return manifest.Parse(dir)
	})
}

// walk appends the directory of every module.toml found at or below dir
// (relative to root, bounded by maxDepth) to out.
func walk(root, dir string, maxDepth int, out *[]string) error {
	depth := depthOf(root, dir)
	if depth > maxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("cannot read directory %s: %v", dir, err)
		return nil
	}

	hasManifest := false
	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, filepath.Join(dir, entry.Name()))
			continue
		}
		if entry.Name() == manifest.ManifestFileName {
			hasManifest = true
		}
	}
	if hasManifest {
		*out = append(*out, dir)
	}
	for _, sub := range subdirs {
		if err := walk(root, sub, maxDepth, out); err != nil {
			return err
		}
	}
	return nil
}

func depthOf(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return 0
	}
	depth := 1
	for _, c := range rel {
		if c == filepath.Separator {
			depth++
		}
	}
	return depth
}
