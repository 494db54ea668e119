// Package files locates and reads C# scripts inside a Unity project.
package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

// ScriptExtension is the extension of the files the analyzer understands.
const ScriptExtension = ".cs"

// Explorer walks a project tree and skips generated and hidden folders.
type Explorer struct {
	ignoreDirs     map[string]bool
	ignorePrefixes []string
	ignoreGlobs    []string
}

// NewExplorer builds an explorer from directory names and name prefixes to skip.
func NewExplorer(ignoreDirs, ignorePrefixes []string) *Explorer {
	dirs := make(map[string]bool, len(ignoreDirs))
	for _, dir := range ignoreDirs {
		dirs[dir] = true
	}
	return &Explorer{ignoreDirs: dirs, ignorePrefixes: ignorePrefixes}
}

// WithIgnoreGlobs adds doublestar patterns matched against slash-separated
// paths relative to the walked root, e.g. "Assets/Plugins/**".
func (e *Explorer) WithIgnoreGlobs(globs []string) (*Explorer, error) {
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid ignore pattern %q", g)
		}
	}
	e.ignoreGlobs = globs
	return e, nil
}

func (e *Explorer) ignored(name, rel string) bool {
	if e.ignoreDirs[name] {
		return true
	}
	for _, prefix := range e.ignorePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, pattern := range e.ignoreGlobs {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// FindScripts returns every .cs file under root in lexical order.
// When root is itself a file it is returned as is.
func (e *Explorer) FindScripts(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access '%s': %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var scripts []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logrus.Warnf("Skipping '%s': %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if e.ignored(d.Name(), filepath.ToSlash(rel)) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ScriptExtension) {
			scripts = append(scripts, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk '%s': %w", root, err)
	}
	logrus.Debugf("Found %d scripts under %s", len(scripts), root)
	return scripts, nil
}
