package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDataSubdir is the scratch directory created under the base path.
const DefaultDataSubdir = ".smolmind"

// Context is the shared environment handed to every tool invocation.
// It is built once per session and never mutated by tools.
type Context struct {
	BasePath string
	DataDir  string
}

// NewContext resolves basePath (the working directory when empty) and
// creates the data directory beneath it.
func NewContext(basePath, dataSubdir string) (*Context, error) {
	if basePath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		basePath = wd
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolving base path %s: %w", basePath, err)
	}
	if dataSubdir == "" {
		dataSubdir = DefaultDataSubdir
	}

	dataDir := dataSubdir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(abs, dataSubdir)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	return &Context{BasePath: abs, DataDir: dataDir}, nil
}

// Resolve returns path unchanged when absolute, otherwise joined to BasePath.
func (c *Context) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BasePath, path)
}
