// Package corpus loads the fixed set of searchable files and reads their
// contents for the scanner.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/exp/slices"
)

// DefaultInclude matches every .txt file below the corpus root.
const DefaultInclude = "**/*.txt"

// Corpus is the ordered, immutable list of file paths loaded at startup.
// The zero value is an empty corpus.
type Corpus struct {
	files []string
}

// New returns a Corpus over files in the given order. The slice is copied.
func New(files []string) *Corpus {
	return &Corpus{files: slices.Clone(files)}
}

// Load globs root with the include patterns, drops paths matching any
// exclude pattern and returns the sorted, de-duplicated result as paths
// joined onto root. Patterns use doublestar syntax relative to root.
func Load(root string, includes, excludes []string) (*Corpus, error) {
	if len(includes) == 0 {
		includes = []string{DefaultInclude}
	}
	for _, p := range append(slices.Clone(includes), excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid corpus pattern %q", p)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range includes {
		err := doublestar.GlobWalk(fsys, pattern, func(rel string, d fs.DirEntry) error {
			if d.IsDir() || excluded(rel, excludes) {
				return nil
			}
			if _, dup := seen[rel]; dup {
				return nil
			}
			seen[rel] = struct{}{}
			files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
	}

	slices.Sort(files)
	return &Corpus{files: files}, nil
}

func excluded(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Files returns a copy of the corpus paths in corpus order.
func (c *Corpus) Files() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.files)
}

// Len returns the number of files in the corpus.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.files)
}

// Empty reports whether the corpus has no files.
func (c *Corpus) Empty() bool {
	return c.Len() == 0
}
