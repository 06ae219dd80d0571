package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"example.com/siwegate/internal/common"
	"example.com/siwegate/internal/rules"
	"example.com/siwegate/internal/siwe"
)

// Server coordinates HTTP handlers, stored message artifacts and the
// validation result cache.
type Server struct {
	logger          *zap.Logger
	artifacts       *ArtifactStore
	workDir         string
	uploadsDir      string
	configured      map[string]rules.RulePack
	cache           *gocache.Cache
	limiter         *hostLimiter
	maxMessageBytes int64
	started         time.Time
}

// NewServer constructs a Server rooted at a temporary workspace directory.
// Configured rule packs are loaded eagerly so a broken pack fails startup
// instead of the first request.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "siwed-")
	if err != nil {
		return nil, err
	}
	uploadsDir := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	configured, err := buildConfiguredPacks(opts.ProfilePacks)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.cacheTTL()
	s := &Server{
		logger:          logger,
		artifacts:       newArtifactStore(),
		workDir:         workDir,
		uploadsDir:      uploadsDir,
		configured:      configured,
		cache:           gocache.New(ttl, 2*ttl),
		limiter:         newHostLimiter(opts.rateLimit(), opts.rateBurst()),
		maxMessageBytes: opts.maxMessageBytes(),
		started:         time.Now(),
	}
	return s, nil
}

// Close removes any temporary state associated with the server.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

// resolvePack maps a request onto the rule pack to evaluate: an inline
// override wins, then a configured pack for the profile, then the built-in
// pack. The returned name is the effective profile.
func (s *Server) resolvePack(profile string, override *rules.RulePack) (rules.RulePack, string, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return rules.RulePack{}, "", fmt.Errorf("rule pack override: %w", err)
		}
		name := override.Profile
		if name == "" {
			name = "custom"
		}
		return *override, name, nil
	}
	if profile == "" {
		profile = rules.DefaultProfile
	}
	if rp, ok := s.configured[profile]; ok {
		return rp, profile, nil
	}
	rp, err := rules.BuiltinPack(profile)
	if err != nil {
		return rules.RulePack{}, "", err
	}
	return rp, profile, nil
}

// resolveMessage returns the text to validate from either an inline message
// or a previously uploaded artifact.
func (s *Server) resolveMessage(message, artifactId string) (string, error) {
	switch {
	case message != "" && artifactId != "":
		return "", errors.New("message and artifactId are mutually exclusive")
	case message != "":
		if int64(len(message)) > s.maxMessageBytes {
			return "", fmt.Errorf("message exceeds %d bytes", s.maxMessageBytes)
		}
		return message, nil
	case artifactId != "":
		return s.artifactText(artifactId)
	default:
		return "", errors.New("message or artifactId required")
	}
}

// jsonBodyLimit caps JSON request bodies. Escaped message texts inflate, so
// the limit sits well above the message cap.
func (s *Server) jsonBodyLimit() int64 {
	limit := 8 * s.maxMessageBytes
	if limit < 1<<20 {
		limit = 1 << 20
	}
	return limit
}

type validateResponse struct {
	Profile    string                 `json:"profile"`
	RulePackId string                 `json:"rulePackId"`
	Cached     bool                   `json:"cached,omitempty"`
	Result     rules.ValidationResult `json:"result"`
	Summary    rules.Summary          `json:"summary"`
}

type ndjsonSummary struct {
	Type       string        `json:"type"`
	Profile    string        `json:"profile"`
	RulePackId string        `json:"rulePackId"`
	IsValid    bool          `json:"isValid"`
	Summary    rules.Summary `json:"summary"`
}

func wantsNDJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/x-ndjson")
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Message    string          `json:"message"`
		ArtifactId string          `json:"artifactId"`
		Profile    string          `json:"profile"`
		RulePack   *rules.RulePack `json:"rulePack"`
	}
	body := http.MaxBytesReader(w, r.Body, s.jsonBodyLimit())
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	text, err := s.resolveMessage(req.Message, req.ArtifactId)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rp, profile, err := s.resolvePack(req.Profile, req.RulePack)
	if err != nil {
		http.Error(w, fmt.Sprintf("resolve profile: %v", err), http.StatusBadRequest)
		return
	}

	// Inline pack overrides bypass the cache; there is no stable identity to
	// key them by.
	cacheable := req.RulePack == nil
	key := common.Sha256OfText(text) + "|" + rp.RulePackId + "@" + rp.Version
	var resp validateResponse
	if cacheable {
		if v, ok := s.cache.Get(key); ok {
			resp = v.(validateResponse)
			resp.Cached = true
			s.writeValidateResponse(w, r, resp)
			return
		}
	}

	res, err := rules.Validate(text, rules.Options{Pack: &rp})
	if err != nil {
		http.Error(w, fmt.Sprintf("validate: %v", err), http.StatusInternalServerError)
		return
	}
	resp = validateResponse{
		Profile:    profile,
		RulePackId: rp.RulePackId,
		Result:     res,
		Summary:    rules.Summarize(res),
	}
	if cacheable {
		s.cache.SetDefault(key, resp)
	}
	s.writeValidateResponse(w, r, resp)
}

func (s *Server) writeValidateResponse(w http.ResponseWriter, r *http.Request, resp validateResponse) {
	if !wantsNDJSON(r) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	writer := NewNDJSONWriter(w)
	for _, d := range resp.Result.All() {
		if err := writer.WriteDiagnostic(d); err != nil {
			return
		}
	}
	_ = writer.WriteObject(ndjsonSummary{
		Type:       "summary",
		Profile:    resp.Profile,
		RulePackId: resp.RulePackId,
		IsValid:    resp.Result.IsValid,
		Summary:    resp.Summary,
	})
}

func (s *Server) handleAutoFix(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Message    string   `json:"message"`
		ArtifactId string   `json:"artifactId"`
		Profile    string   `json:"profile"`
		Codes      []string `json:"codes"`
		DryRun     bool     `json:"dryRun"`
	}
	body := http.MaxBytesReader(w, r.Body, s.jsonBodyLimit())
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	text, err := s.resolveMessage(req.Message, req.ArtifactId)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rp, _, err := s.resolvePack(req.Profile, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("resolve profile: %v", err), http.StatusBadRequest)
		return
	}
	out, applied, final, err := rules.AutoFix(text, rules.AutoFixOptions{
		Options: rules.Options{Pack: &rp},
		Codes:   req.Codes,
		DryRun:  req.DryRun,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("auto-fix: %v", err), http.StatusInternalServerError)
		return
	}
	if applied == nil {
		applied = []rules.AppliedFix{}
	}
	resp := struct {
		Message string                 `json:"message"`
		DryRun  bool                   `json:"dryRun,omitempty"`
		Applied []rules.AppliedFix     `json:"applied"`
		Result  rules.ValidationResult `json:"result"`
	}{
		Message: out,
		DryRun:  req.DryRun,
		Applied: applied,
		Result:  final,
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProfileInfo describes one selectable profile and the rule pack behind it.
type ProfileInfo struct {
	Profile    string `json:"profile"`
	RulePackId string `json:"rulePackId"`
	Version    string `json:"version"`
	Rules      int    `json:"rules"`
	Source     string `json:"source"`
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var infos []ProfileInfo
	for _, name := range profileNames(s.configured) {
		rp, ok := s.configured[name]
		source := "configured"
		if !ok {
			builtin, err := rules.BuiltinPack(name)
			if err != nil {
				continue
			}
			rp = builtin
			source = "builtin"
		}
		infos = append(infos, ProfileInfo{
			Profile:    name,
			RulePackId: rp.RulePackId,
			Version:    rp.Version,
			Rules:      len(rp.Rules),
			Source:     source,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type sampleInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Text        string `json:"text"`
	}
	samples := siwe.Samples()
	out := make([]sampleInfo, 0, len(samples))
	for _, smp := range samples {
		out = append(out, sampleInfo{Name: smp.Name, Description: smp.Description, Text: smp.Text})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := struct {
		Status        string `json:"status"`
		UptimeSeconds int64  `json:"uptimeSeconds"`
	}{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
