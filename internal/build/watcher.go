package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/cartograph-dev/semamap/internal/extract"
)

// debounceInterval batches bursts of filesystem events into one rebuild.
const debounceInterval = 2 * time.Second

// Watch monitors rootPath for changes to supported source files and
// triggers a full rebuild after each quiet period. Derivation phases
// are global, so a changed file invalidates relationships, clusters,
// layers, and concepts map-wide; rebuilding wholesale keeps them
// consistent. onRebuild runs after every successful rebuild. Blocks
// until the context is cancelled.
func Watch(ctx context.Context, rootPath string, b *Builder, onRebuild func()) error {
	matcher, err := LoadGitignoreMatcher(rootPath)
	if err != nil {
		matcher = nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if shouldSkipDir(info.Name(), path, rootPath, matcher) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	pending := 0
	debounce := time.NewTimer(debounceInterval)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watchable(event.Name, rootPath, matcher, b.cfg.Languages) {
				continue
			}
			// New directories must be added to the watch set.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			pending++
			debounce.Reset(debounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)

		case <-debounce.C:
			if pending == 0 {
				continue
			}
			pending = 0
			if _, err := b.Build(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
				continue
			}
			if onRebuild != nil {
				onRebuild()
			}
		}
	}
}

// watchable reports whether a changed path should trigger a rebuild: a
// supported source file that is not gitignored. Directories pass so
// creations can extend the watch set.
func watchable(path, rootPath string, matcher gitignore.Matcher, langs []extract.Language) bool {
	relPath, err := filepath.Rel(rootPath, path)
	if err != nil {
		return false
	}
	if matcher != nil {
		parts := strings.Split(relPath, string(filepath.Separator))
		if matcher.Match(parts, false) {
			return false
		}
	}
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		return true
	}
	return extract.Detect(path, langs) != extract.LangUnknown
}

// shouldSkipDir reports whether a directory subtree is never watched.
func shouldSkipDir(name, path, rootPath string, matcher gitignore.Matcher) bool {
	switch name {
	case ".git", "node_modules", "vendor", ".semamap", "__pycache__", ".venv", "venv", "dist", "build", "coverage":
		return true
	}
	if matcher != nil {
		relPath, err := filepath.Rel(rootPath, path)
		if err == nil {
			parts := strings.Split(relPath, string(filepath.Separator))
			return matcher.Match(parts, true)
		}
	}
	return false
}

// LoadGitignoreMatcher parses the repository root's .gitignore into a
// matcher. Returns a nil matcher when the file does not exist.
func LoadGitignoreMatcher(rootPath string) (gitignore.Matcher, error) {
	gitignorePath := filepath.Join(rootPath, ".gitignore")
	content, err := os.ReadFile(gitignorePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return gitignore.NewMatcher(patterns), nil
}
