package report

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"example.com/siwegate/internal/common"
	"example.com/siwegate/internal/dict"
	"example.com/siwegate/internal/rules"
	"example.com/siwegate/internal/siwe"
)

// Report is the persisted outcome of validating one message: where the
// message came from, which profile judged it, and every finding. The JSON
// shape is the exchange format for the daemon and the CLI alike.
type Report struct {
	Input       string             `json:"input"`
	Profile     string             `json:"profile"`
	RulePackId  string             `json:"rulePackId,omitempty"`
	GeneratedAt time.Time          `json:"generatedAt"`
	ChainId     string             `json:"chainId,omitempty"`
	Network     string             `json:"network,omitempty"`
	IsValid     bool               `json:"isValid"`
	Summary     rules.Summary      `json:"summary"`
	Diagnostics []rules.Diagnostic `json:"diagnostics"`
}

// Build assembles a report from a validation result. The chain id is lifted
// from the message and resolved against the network registry so the report
// names the network instead of a bare number.
func Build(input, profile, rulePackId string, res rules.ValidationResult, chains *dict.Store) Report {
	rep := Report{
		Input:       input,
		Profile:     profile,
		RulePackId:  rulePackId,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		IsValid:     res.IsValid,
		Summary:     rules.Summarize(res),
		Diagnostics: res.All(),
	}
	if rep.Diagnostics == nil {
		rep.Diagnostics = []rules.Diagnostic{}
	}
	parsed := siwe.Parse(res.OriginalMessage)
	rep.ChainId = parsed.Fields.ChainID
	if chains == nil {
		chains = dict.Builtin()
	}
	if id, err := strconv.ParseUint(rep.ChainId, 10, 64); err == nil {
		if entry, ok := chains.Lookup(id); ok {
			rep.Network = entry.Name
		}
	}
	return rep
}

// SaveJSON writes the report as indented JSON.
func SaveJSON(rep Report, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

// LoadJSON reads a report written by SaveJSON.
func LoadJSON(path string) (Report, error) {
	var rep Report
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}

// Digest returns the content address of the report in "sha256:<hex>" form,
// computed over the compact JSON encoding.
func Digest(rep Report) (string, error) {
	b, err := json.Marshal(rep)
	if err != nil {
		return "", err
	}
	return "sha256:" + common.Sha256OfText(string(b)), nil
}
