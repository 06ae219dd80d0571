package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/siwegate/internal/rules"
)

const (
	// defaultMaxMessageBytes caps uploaded and inline message texts. SIWE
	// messages are a few hundred bytes; anything near the cap is garbage.
	defaultMaxMessageBytes = 64 << 10

	defaultCacheTTL  = 5 * time.Minute
	defaultRateLimit = 50.0
	defaultRateBurst = 100
)

// ProfilePack binds a rule pack file on disk to the profile name clients
// select. A configured pack shadows the built-in pack of the same profile.
type ProfilePack struct {
	Profile string `json:"profile" yaml:"profile"`
	Path    string `json:"path" yaml:"path"`
}

// Options configures server creation. Zero values fall back to defaults; a
// nil Logger disables request logging.
type Options struct {
	// StorageDir roots the temporary workspace for uploaded messages. Empty
	// uses the system temp directory.
	StorageDir string
	// ProfilePacks lists rule packs to load at startup. Load failures abort
	// server creation rather than surfacing per request.
	ProfilePacks []ProfilePack
	// MaxMessageBytes caps message uploads and inline message fields.
	MaxMessageBytes int64
	// CacheTTL bounds how long validation results are served from cache.
	CacheTTL time.Duration
	// RateLimit and RateBurst configure the per-host request limiter.
	RateLimit float64
	RateBurst int
	Logger    *zap.Logger
}

func (o Options) maxMessageBytes() int64 {
	if o.MaxMessageBytes > 0 {
		return o.MaxMessageBytes
	}
	return defaultMaxMessageBytes
}

func (o Options) cacheTTL() time.Duration {
	if o.CacheTTL > 0 {
		return o.CacheTTL
	}
	return defaultCacheTTL
}

func (o Options) rateLimit() float64 {
	if o.RateLimit > 0 {
		return o.RateLimit
	}
	return defaultRateLimit
}

func (o Options) rateBurst() int {
	if o.RateBurst > 0 {
		return o.RateBurst
	}
	return defaultRateBurst
}

// buildConfiguredPacks loads every configured rule pack and keys it by
// profile. An entry with no profile of its own adopts the pack's Profile
// field, so a pack file can carry its binding.
func buildConfiguredPacks(packs []ProfilePack) (map[string]rules.RulePack, error) {
	configured := make(map[string]rules.RulePack)
	for _, entry := range packs {
		profile := strings.TrimSpace(entry.Profile)
		path := strings.TrimSpace(entry.Path)
		if path == "" {
			return nil, errors.New("profile pack missing path")
		}
		rp, err := rules.LoadRulePack(path)
		if err != nil {
			return nil, fmt.Errorf("load rule pack %s: %w", path, err)
		}
		if profile == "" {
			profile = strings.TrimSpace(rp.Profile)
		}
		if profile == "" {
			return nil, fmt.Errorf("rule pack %s carries no profile", path)
		}
		if _, exists := configured[profile]; exists {
			return nil, fmt.Errorf("duplicate rule pack for profile %s", profile)
		}
		configured[profile] = rp
	}
	return configured, nil
}

// profileNames returns the built-in profiles followed by any extra configured
// ones, each listed once.
func profileNames(configured map[string]rules.RulePack) []string {
	names := rules.Profiles()
	builtin := make(map[string]bool, len(names))
	for _, name := range names {
		builtin[name] = true
	}
	var extra []string
	for name := range configured {
		if !builtin[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
