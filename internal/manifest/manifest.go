// Package manifest builds sha256 inventories over bundle artifacts so a
// report, its message and any companion files can be verified after transfer.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"example.com/siwegate/internal/common"
)

// Item describes one file in the bundle.
type Item struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

// Manifest is the bundle inventory written next to generated artifacts.
type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	ShaAlgo   string    `json:"shaAlgo"`
	Items     []Item    `json:"items"`
}

// Build hashes every path and classifies it by extension.
func Build(paths []string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), ShaAlgo: "sha256"}
	for _, p := range paths {
		hex, size, err := common.Sha256OfFile(p)
		if err != nil {
			return m, fmt.Errorf("hash %s: %w", p, err)
		}
		m.Items = append(m.Items, Item{Path: p, Size: size, Sha256: hex, Type: typeForPath(p)})
	}
	return m, nil
}

// BuildDir hashes the named files inside dir but records only the names, so
// the manifest stays valid when the whole directory moves. Verify with the
// directory's current location as baseDir.
func BuildDir(dir string, names []string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), ShaAlgo: "sha256"}
	for _, name := range names {
		hex, size, err := common.Sha256OfFile(filepath.Join(dir, name))
		if err != nil {
			return m, fmt.Errorf("hash %s: %w", name, err)
		}
		m.Items = append(m.Items, Item{Path: name, Size: size, Sha256: hex, Type: typeForPath(name)})
	}
	return m, nil
}

func typeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".siwe":
		return "message"
	case ".json":
		return "json"
	case ".pdf":
		return "pdf"
	case ".ndjson", ".jsonl":
		return "ndjson"
	case ".png":
		return "image"
	default:
		return "other"
	}
}

// Save writes the manifest as indented JSON.
func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}

// Load reads a manifest written by Save.
func Load(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Verify re-hashes every item relative to baseDir and reports the paths whose
// content changed or disappeared.
func Verify(m Manifest, baseDir string) ([]string, error) {
	var drifted []string
	for _, item := range m.Items {
		path := item.Path
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		hex, size, err := common.Sha256OfFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				drifted = append(drifted, item.Path)
				continue
			}
			return nil, fmt.Errorf("hash %s: %w", path, err)
		}
		if hex != item.Sha256 || size != item.Size {
			drifted = append(drifted, item.Path)
		}
	}
	return drifted, nil
}
