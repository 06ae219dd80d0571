package rules

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"example.com/siwegate/internal/dict"
	"example.com/siwegate/internal/siwe"
)

type Severity string

const (
	ERROR Severity = "error"
	WARN  Severity = "warning"
	INFO  Severity = "info"
)

type Category string

const (
	CategoryFormat     Category = "format"
	CategorySecurity   Category = "security"
	CategoryCompliance Category = "compliance"
)

// Rule binds a diagnostic code to a registered check and, when the finding is
// repairable, a registered fix. Rules are plain data so packs can be shipped
// as JSON; Field carries the target field for checks shared across fields.
type Rule struct {
	Code      string         `json:"code"`
	Name      string         `json:"name,omitempty"`
	Category  Category       `json:"category"`
	Field     string         `json:"field,omitempty"`
	Severity  Severity       `json:"severity"`
	Fixable   bool           `json:"fixable"`
	CheckFunc string         `json:"checkFunction"`
	FixFunc   string         `json:"fixFunction,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Message   string         `json:"message,omitempty"`
}

type RulePack struct {
	RulePackId string `json:"rulePackId"`
	Version    string `json:"version"`
	Profile    string `json:"profile"`
	Rules      []Rule `json:"rules"`
}

// Validate checks the structural integrity of a pack before it is installed
// or evaluated.
func (rp RulePack) Validate() error {
	if rp.RulePackId == "" {
		return errors.New("rule pack missing rulePackId")
	}
	if rp.Version == "" {
		return errors.New("rule pack missing version")
	}
	for i, r := range rp.Rules {
		if r.Code == "" {
			return fmt.Errorf("rule %d missing code", i)
		}
		if r.CheckFunc == "" {
			return fmt.Errorf("rule %s missing checkFunction", r.Code)
		}
	}
	return nil
}

// Diagnostic is one finding about a message. Line and Column are 1-based;
// zero means the finding has no anchored position (an absent field, for
// example). Code identifies the finding kind and is stable across releases.
type Diagnostic struct {
	Category   Category `json:"category"`
	Field      string   `json:"field,omitempty"`
	Line       int      `json:"line,omitempty"`
	Column     int      `json:"column,omitempty"`
	Code       string   `json:"code"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Fixable    bool     `json:"fixable"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ValidationResult buckets diagnostics by severity. IsValid holds exactly
// when Errors is empty; warnings and suggestions never fail a message.
type ValidationResult struct {
	IsValid         bool         `json:"isValid"`
	Errors          []Diagnostic `json:"errors"`
	Warnings        []Diagnostic `json:"warnings"`
	Suggestions     []Diagnostic `json:"suggestions"`
	OriginalMessage string       `json:"originalMessage"`
}

// All returns errors, warnings and suggestions as one slice, in that order.
func (r ValidationResult) All() []Diagnostic {
	out := make([]Diagnostic, 0, len(r.Errors)+len(r.Warnings)+len(r.Suggestions))
	out = append(out, r.Errors...)
	out = append(out, r.Warnings...)
	out = append(out, r.Suggestions...)
	return out
}

// Summary condenses a result into the counts reports and exit codes are built
// from. Pass mirrors IsValid.
type Summary struct {
	Total       int  `json:"total"`
	Errors      int  `json:"errors"`
	Warnings    int  `json:"warnings"`
	Suggestions int  `json:"suggestions"`
	Pass        bool `json:"pass"`
}

func Summarize(r ValidationResult) Summary {
	return Summary{
		Total:       len(r.Errors) + len(r.Warnings) + len(r.Suggestions),
		Errors:      len(r.Errors),
		Warnings:    len(r.Warnings),
		Suggestions: len(r.Suggestions),
		Pass:        r.IsValid,
	}
}

// Context carries one message through checks and fixes. Parsed and Structure
// are derived lazily from Text and must be refreshed (NewContext) after any
// edit; checks treat the context as read-only.
type Context struct {
	Text      string
	Parsed    *siwe.ParsedMessage
	Structure *siwe.Structure

	// Chains resolves chain ids to known networks; nil falls back to the
	// builtin registry.
	Chains *dict.Store

	// Now supplies the clock for fixes that synthesize timestamps; nil
	// falls back to time.Now.
	Now func() time.Time
}

func NewContext(text string) *Context {
	return &Context{Text: text}
}

// EnsureParsed parses the text and scans its anchors once. Parsing is total,
// so the only failure mode is a nil receiver.
func (ctx *Context) EnsureParsed() error {
	if ctx == nil {
		return errors.New("nil context")
	}
	if ctx.Parsed != nil && ctx.Structure != nil {
		return nil
	}
	parsed := siwe.Parse(ctx.Text)
	st := siwe.ScanStructure([]string(parsed.Raw))
	ctx.Parsed = &parsed
	ctx.Structure = &st
	return nil
}

func (ctx *Context) chains() *dict.Store {
	if ctx != nil && ctx.Chains != nil {
		return ctx.Chains
	}
	return dict.Builtin()
}

func (ctx *Context) now() time.Time {
	if ctx != nil && ctx.Now != nil {
		return ctx.Now()
	}
	return time.Now()
}

// CheckFunc evaluates one rule against the message and returns its findings.
// Bad message content is reported through diagnostics; the error return is
// reserved for engine faults.
type CheckFunc func(ctx *Context, rule Rule) ([]Diagnostic, error)

// FixFunc rewrites the message text for one diagnostic. It returns the new
// text and whether anything was applied; an unapplied fix must hand back the
// input unchanged.
type FixFunc func(ctx *Context, diag Diagnostic) (string, bool, error)

type Engine struct {
	rulePack    RulePack
	checks      map[string]CheckFunc
	fixes       map[string]FixFunc
	diagnostics []Diagnostic
}

func NewEngine(rp RulePack) *Engine {
	return &Engine{
		rulePack: rp,
		checks:   make(map[string]CheckFunc),
		fixes:    make(map[string]FixFunc),
	}
}

func (e *Engine) RegisterCheck(name string, f CheckFunc) {
	e.checks[name] = f
}

func (e *Engine) RegisterFix(name string, f FixFunc) {
	e.fixes[name] = f
}

// RulePack returns the pack the engine was built from.
func (e *Engine) RulePack() RulePack {
	return e.rulePack
}

// Eval runs every rule of the pack in order and returns the merged findings.
// A rule naming an unregistered check degrades to a warning diagnostic so a
// stale pack cannot silently disable validation.
func (e *Engine) Eval(ctx *Context) ([]Diagnostic, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	var diags []Diagnostic
	for _, r := range e.rulePack.Rules {
		fn, ok := e.checks[r.CheckFunc]
		if !ok {
			diags = append(diags, Diagnostic{
				Category: r.Category,
				Code:     r.Code,
				Severity: WARN,
				Message:  fmt.Sprintf("no check registered for rule %s", r.Code),
			})
			continue
		}
		found, err := fn(ctx, r)
		if err != nil {
			diags = append(diags, Diagnostic{
				Category: r.Category,
				Code:     CodeValidationError,
				Severity: ERROR,
				Message:  fmt.Sprintf("%s check failed: %v", r.Code, err),
			})
			continue
		}
		diags = append(diags, found...)
	}
	e.diagnostics = diags
	return diags, nil
}

// Diagnostics returns the findings of the most recent Eval.
func (e *Engine) Diagnostics() []Diagnostic {
	return e.diagnostics
}

// ApplyFix resolves and runs the fix for diag. Unknown or unfixable codes are
// a no-op: the text comes back unchanged with applied=false.
func (e *Engine) ApplyFix(ctx *Context, diag Diagnostic) (string, bool, error) {
	if ctx == nil {
		return "", false, errors.New("nil context")
	}
	name := e.fixNameFor(diag.Code)
	if name == "" {
		return ctx.Text, false, nil
	}
	fn, ok := e.fixes[name]
	if !ok {
		return ctx.Text, false, nil
	}
	return fn(ctx, diag)
}

// fixNameFor prefers the pack's explicit binding for the code and falls back
// to the builtin mapping, which also covers diagnostic codes that several
// rules emit indirectly (grammar and line-break findings).
func (e *Engine) fixNameFor(code string) string {
	for _, r := range e.rulePack.Rules {
		if r.Code == code && r.FixFunc != "" {
			return r.FixFunc
		}
	}
	return DefaultFixName(code)
}

// WriteNDJSON streams diagnostics as one JSON object per line.
func WriteNDJSON(w io.Writer, diags []Diagnostic) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, d := range diags {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteDiagnosticsNDJSON writes the findings of the most recent Eval to path.
func (e *Engine) WriteDiagnosticsNDJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteNDJSON(f, e.diagnostics)
}

// LoadRulePack reads and validates a JSON rule pack from disk.
func LoadRulePack(path string) (RulePack, error) {
	var rp RulePack
	b, err := os.ReadFile(path)
	if err != nil {
		return rp, err
	}
	if err := json.Unmarshal(b, &rp); err != nil {
		return rp, fmt.Errorf("parse rule pack: %w", err)
	}
	if err := rp.Validate(); err != nil {
		return rp, err
	}
	return rp, nil
}
