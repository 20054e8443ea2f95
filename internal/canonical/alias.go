package canonical

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"lexpipe/internal/services"
)

// AliasMap is the curated table of known title variants mapped to one
// canonical display form. Loaded once per process and immutable afterwards,
// so it is safe to share across workers without locking.
type AliasMap struct {
	entries map[string]string
}

type aliasFile struct {
	Aliases map[string]string `toml:"aliases"`
}

// LoadAliasMap reads a TOML alias table. Keys are normalized on load so
// lookups match however the curator spelled the variant. An empty path
// yields an empty map; a missing or malformed file is a configuration
// error.
func LoadAliasMap(path string) (*AliasMap, error) {
	if path == "" {
		return &AliasMap{entries: map[string]string{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: alias map %s does not exist", services.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("%w: read alias map: %v", services.ErrConfiguration, err)
	}

	var file aliasFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse alias map %s: %v", services.ErrConfiguration, path, err)
	}

	entries := make(map[string]string, len(file.Aliases))
	for variant, canonical := range file.Aliases {
		normalized := NormalizeTitle(variant)
		if normalized == "" || canonical == "" {
			continue
		}
		entries[normalized] = canonical
	}
	return &AliasMap{entries: entries}, nil
}

// Lookup resolves a normalized variant to its canonical display title.
func (m *AliasMap) Lookup(normalized string) (string, bool) {
	if m == nil {
		return "", false
	}
	canonical, ok := m.entries[normalized]
	return canonical, ok
}

// Len reports the number of alias entries.
func (m *AliasMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// CatalogEntry is one reference work available for fuzzy matching.
type CatalogEntry struct {
	Display    string
	Normalized string
}

type catalogFile struct {
	Titles []string `toml:"titles"`
}

// LoadCatalog reads the TOML reference catalog used as the fuzzy-match
// search space. Entries are pre-normalized and sorted for deterministic
// iteration. An empty path yields an empty catalog.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: catalog %s does not exist", services.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("%w: read catalog: %v", services.ErrConfiguration, err)
	}

	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse catalog %s: %v", services.ErrConfiguration, path, err)
	}

	entries := make([]CatalogEntry, 0, len(file.Titles))
	seen := make(map[string]struct{}, len(file.Titles))
	for _, title := range file.Titles {
		normalized := NormalizeTitle(title)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		entries = append(entries, CatalogEntry{Display: title, Normalized: normalized})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Normalized < entries[j].Normalized
	})
	return entries, nil
}
