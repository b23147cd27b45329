// Package importer reads bank statement exports into candidate
// transactions. A Config maps the export's columns and formats; Pipeline
// applies it; Registry keeps named configs so each bank needs describing
// once.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultProfile is the name under which DefaultConfig is registered.
const DefaultProfile = "default"

// Registry holds named import configs. Lookups are case-insensitive.
type Registry struct {
	profiles map[string]Config
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty profile registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Config)}
}

// Add registers cfg under name after validating it.
func (r *Registry) Add(name string, cfg Config) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("profile name is empty")
	}
	if _, ok := r.profiles[key]; ok {
		return fmt.Errorf("duplicate import profile: %s", key)
	}
	cfg = cfg.WithDefaults()
	if _, err := cfg.validate(); err != nil {
		return fmt.Errorf("profile %s: %w", key, err)
	}
	r.profiles[key] = cfg
	return nil
}

// Register adds a built-in profile. Panics on duplicate or invalid config.
func (r *Registry) Register(name string, cfg Config) {
	if err := r.Add(name, cfg); err != nil {
		panic(err.Error())
	}
}

// Get returns the profile named name.
func (r *Registry) Get(name string) (Config, bool) {
	cfg, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	return cfg, ok
}

// Names returns the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in profiles.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(DefaultProfile, DefaultConfig())
	return r
}

// importDir is the subdirectory for import CSVs.
const importDir = "import"

// processedDir is the subdirectory for processed CSVs.
const processedDir = "import/processed"

// Scan returns CSV files in <root>/import/, sorted by name.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	src := filepath.Join(root, importDir, fileName)
	dstDir := filepath.Join(root, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
