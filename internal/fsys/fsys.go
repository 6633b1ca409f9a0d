// Package fsys provides filesystem-backed implementations of the build
// engine's file capabilities.
package fsys

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/cartograph-dev/semamap/internal/build"
)

// skipDirs are directory names never descended into, independent of
// gitignore.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".semamap":     true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// Lister returns a FileLister rooted at rootPath. Patterns use glob
// syntax with '/' as the separator ("**/*.go"); matching is against
// slash-separated paths relative to the root. The root's .gitignore,
// when present, filters results.
func Lister(rootPath string) build.FileLister {
	matcher, err := build.LoadGitignoreMatcher(rootPath)
	if err != nil {
		matcher = nil
	}

	return func(pattern string) ([]string, error) {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		// "**/" requires at least one separator, so a second pattern
		// covers files directly under the root.
		var top glob.Glob
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			if top, err = glob.Compile(rest, '/'); err != nil {
				return nil, err
			}
		}

		var matches []string
		walkErr := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(rootPath, path)
			if relErr != nil || rel == "." {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				if ignored(matcher, rel, true) {
					return filepath.SkipDir
				}
				return nil
			}

			if ignored(matcher, rel, false) {
				return nil
			}
			if g.Match(rel) || (top != nil && top.Match(rel)) {
				matches = append(matches, rel)
			}
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
		sort.Strings(matches)
		return matches, nil
	}
}

// Reader returns a FileReader resolving paths relative to rootPath.
func Reader(rootPath string) build.FileReader {
	return func(path string) (string, error) {
		content, err := os.ReadFile(filepath.Join(rootPath, filepath.FromSlash(path)))
		if err != nil {
			return "", err
		}
		return string(content), nil
	}
}

func ignored(matcher gitignore.Matcher, rel string, isDir bool) bool {
	if matcher == nil {
		return false
	}
	return matcher.Match(strings.Split(rel, "/"), isDir)
}
