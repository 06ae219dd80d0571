package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	repoRulepacksDir = "rulepacks"
	repoConfigFile   = "config.json"
	rulePackFileName = "rulepack.json"
)

// Repository manages installation and discovery of rule packs on disk.
type Repository struct {
	root string
}

// RulePackRef identifies a rule pack by id and version. An empty version
// resolves to the newest installed one.
type RulePackRef struct {
	RulePackId string `json:"rulePackId"`
	Version    string `json:"version"`
}

// InstalledRulePack represents a rule pack stored in the repository.
type InstalledRulePack struct {
	RulePack RulePack
	Dir      string
	Path     string
}

type repoConfig struct {
	DefaultByProfile map[string]RulePackRef `json:"defaultByProfile"`
}

// DefaultRepository returns the repository rooted in ~/.siwegate/rules.
func DefaultRepository() (*Repository, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return OpenRepository(filepath.Join(home, ".siwegate", "rules"))
}

// OpenRepository creates a Repository rooted at path and ensures the required
// subdirectories exist.
func OpenRepository(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Join(path, repoRulepacksDir), 0o755); err != nil {
		return nil, fmt.Errorf("create rulepacks dir: %w", err)
	}
	return &Repository{root: path}, nil
}

// Root returns the root directory of the repository.
func (r *Repository) Root() string {
	if r == nil {
		return ""
	}
	return r.root
}

// InstallFile installs a JSON rule pack file into the repository under its
// own id and version.
func (r *Repository) InstallFile(path string) (InstalledRulePack, error) {
	var installed InstalledRulePack
	if r == nil {
		return installed, errors.New("nil repository")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return installed, fmt.Errorf("read rule pack: %w", err)
	}
	var rp RulePack
	if err := json.Unmarshal(data, &rp); err != nil {
		return installed, fmt.Errorf("parse rule pack: %w", err)
	}
	if err := rp.Validate(); err != nil {
		return installed, err
	}
	if err := validatePathComponent(rp.RulePackId); err != nil {
		return installed, fmt.Errorf("invalid rule pack id: %w", err)
	}
	if err := validatePathComponent(rp.Version); err != nil {
		return installed, fmt.Errorf("invalid rule pack version: %w", err)
	}

	dir := r.packageDir(rp.RulePackId, rp.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return installed, fmt.Errorf("create package dir: %w", err)
	}
	dst := filepath.Join(dir, rulePackFileName)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return installed, fmt.Errorf("write %s: %w", rulePackFileName, err)
	}
	installed = InstalledRulePack{RulePack: rp, Dir: dir, Path: dst}
	return installed, nil
}

// ListInstalled returns the rule packs currently installed in the repository,
// ordered by id and version.
func (r *Repository) ListInstalled() ([]InstalledRulePack, error) {
	if r == nil {
		return nil, errors.New("nil repository")
	}
	base := filepath.Join(r.root, repoRulepacksDir)
	entries, err := os.ReadDir(base)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var result []InstalledRulePack
	for _, idEntry := range entries {
		if !idEntry.IsDir() {
			continue
		}
		versionDir := filepath.Join(base, idEntry.Name())
		versEntries, err := os.ReadDir(versionDir)
		if err != nil {
			return nil, err
		}
		for _, vEntry := range versEntries {
			if !vEntry.IsDir() {
				continue
			}
			rpPath := filepath.Join(versionDir, vEntry.Name(), rulePackFileName)
			data, err := os.ReadFile(rpPath)
			if err != nil {
				continue
			}
			var rp RulePack
			if err := json.Unmarshal(data, &rp); err != nil {
				continue
			}
			result = append(result, InstalledRulePack{
				RulePack: rp,
				Dir:      filepath.Join(versionDir, vEntry.Name()),
				Path:     rpPath,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RulePack.RulePackId == result[j].RulePack.RulePackId {
			return compareVersions(result[i].RulePack.Version, result[j].RulePack.Version) < 0
		}
		return result[i].RulePack.RulePackId < result[j].RulePack.RulePackId
	})
	return result, nil
}

// Remove deletes a rule pack identified by id and version, dropping any
// profile defaults that pointed at it.
func (r *Repository) Remove(id, version string) error {
	if r == nil {
		return errors.New("nil repository")
	}
	if err := validatePathComponent(id); err != nil {
		return fmt.Errorf("invalid rule pack id: %w", err)
	}
	if err := validatePathComponent(version); err != nil {
		return fmt.Errorf("invalid rule pack version: %w", err)
	}
	dir := r.packageDir(id, version)
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	cfg, err := r.loadConfig()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	changed := false
	for profile, ref := range cfg.DefaultByProfile {
		if ref.RulePackId == id && ref.Version == version {
			delete(cfg.DefaultByProfile, profile)
			changed = true
		}
	}
	if changed {
		return r.saveConfig(cfg)
	}
	return nil
}

// Load returns the rule pack identified by id and version. An empty version
// selects the newest installed one.
func (r *Repository) Load(id, version string) (RulePack, error) {
	var rp RulePack
	if r == nil {
		return rp, errors.New("nil repository")
	}
	if err := validatePathComponent(id); err != nil {
		return rp, fmt.Errorf("invalid rule pack id: %w", err)
	}
	if version == "" {
		latest, err := r.latestVersionFor(id)
		if err != nil {
			return rp, err
		}
		if latest == "" {
			return rp, fmt.Errorf("rule pack %s is not installed", id)
		}
		version = latest
	}
	if err := validatePathComponent(version); err != nil {
		return rp, fmt.Errorf("invalid rule pack version: %w", err)
	}
	data, err := os.ReadFile(filepath.Join(r.packageDir(id, version), rulePackFileName))
	if err != nil {
		return rp, err
	}
	if err := json.Unmarshal(data, &rp); err != nil {
		return rp, fmt.Errorf("parse rule pack: %w", err)
	}
	if rp.RulePackId != id || rp.Version != version {
		return rp, errors.New("rule pack metadata does not match requested id/version")
	}
	return rp, nil
}

// ResolveForProfile loads the configured default pack for profile. The second
// return reports whether a default was configured at all.
func (r *Repository) ResolveForProfile(profile string) (RulePack, bool, error) {
	ref, ok, err := r.DefaultForProfile(profile)
	if err != nil || !ok {
		return RulePack{}, false, err
	}
	rp, err := r.Load(ref.RulePackId, ref.Version)
	if err != nil {
		return RulePack{}, true, err
	}
	return rp, true, nil
}

// DefaultForProfile returns the configured default rule pack for the profile.
func (r *Repository) DefaultForProfile(profile string) (RulePackRef, bool, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RulePackRef{}, false, nil
		}
		return RulePackRef{}, false, err
	}
	ref, ok := cfg.DefaultByProfile[profile]
	return ref, ok, nil
}

// SetDefaultForProfile updates the default rule pack for profile.
func (r *Repository) SetDefaultForProfile(profile string, ref RulePackRef) error {
	if r == nil {
		return errors.New("nil repository")
	}
	if err := validatePathComponent(ref.RulePackId); err != nil {
		return fmt.Errorf("invalid rule pack id: %w", err)
	}
	if ref.Version != "" {
		if err := validatePathComponent(ref.Version); err != nil {
			return fmt.Errorf("invalid rule pack version: %w", err)
		}
	}
	cfg, err := r.loadConfig()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if cfg.DefaultByProfile == nil {
		cfg.DefaultByProfile = make(map[string]RulePackRef)
	}
	cfg.DefaultByProfile[profile] = ref
	return r.saveConfig(cfg)
}

// Defaults returns a copy of the configured default mappings.
func (r *Repository) Defaults() (map[string]RulePackRef, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]RulePackRef{}, nil
		}
		return nil, err
	}
	out := make(map[string]RulePackRef, len(cfg.DefaultByProfile))
	for k, v := range cfg.DefaultByProfile {
		out[k] = v
	}
	return out, nil
}

func (r *Repository) latestVersionFor(id string) (string, error) {
	if err := validatePathComponent(id); err != nil {
		return "", fmt.Errorf("invalid rule pack id: %w", err)
	}
	dir := filepath.Join(r.root, repoRulepacksDir, id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	best := ""
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ver := e.Name()
		if best == "" || compareVersions(ver, best) > 0 {
			best = ver
		}
	}
	return best, nil
}

func (r *Repository) packageDir(id, version string) string {
	return filepath.Join(r.root, repoRulepacksDir, id, version)
}

func (r *Repository) loadConfig() (repoConfig, error) {
	var cfg repoConfig
	if r == nil {
		return cfg, errors.New("nil repository")
	}
	data, err := os.ReadFile(filepath.Join(r.root, repoConfigFile))
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (r *Repository) saveConfig(cfg repoConfig) error {
	if r == nil {
		return errors.New("nil repository")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.root, repoConfigFile), data, 0o644)
}

func validatePathComponent(s string) error {
	if s == "" {
		return errors.New("empty string")
	}
	if strings.Contains(s, string(os.PathSeparator)) || strings.Contains(s, "/") {
		return errors.New("contains path separator")
	}
	if s == "." || s == ".." {
		return errors.New("invalid component")
	}
	if strings.Contains(s, "..") {
		cleaned := filepath.Clean(s)
		if cleaned != s {
			return errors.New("invalid path component")
		}
	}
	return nil
}

func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	ap := parseVersionParts(a)
	bp := parseVersionParts(b)
	n := len(ap)
	if len(bp) > n {
		n = len(bp)
	}
	for i := 0; i < n; i++ {
		ai := 0
		if i < len(ap) {
			ai = ap[i]
		}
		bi := 0
		if i < len(bp) {
			bi = bp[i]
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}

func parseVersionParts(s string) []int {
	parts := strings.Split(s, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			out = append(out, 0)
			continue
		}
		if v, err := strconv.Atoi(p); err == nil {
			out = append(out, v)
		} else {
			return []int{0}
		}
	}
	return out
}
