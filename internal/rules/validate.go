package rules

import (
	"fmt"
	"time"

	"example.com/siwegate/internal/dict"
	"example.com/siwegate/internal/siwe"
)

// Options selects the rule pack and ambient collaborators for a validation
// run. The zero value validates under the default profile with the builtin
// chain registry and wall clock.
type Options struct {
	// Profile names a built-in pack; ignored when Pack is set.
	Profile string
	// Pack overrides the built-in pack entirely.
	Pack   *RulePack
	Chains *dict.Store
	Now    func() time.Time
}

func resolvePack(opts Options) (RulePack, error) {
	if opts.Pack != nil {
		if err := opts.Pack.Validate(); err != nil {
			return RulePack{}, err
		}
		return *opts.Pack, nil
	}
	return BuiltinPack(opts.Profile)
}

func newContext(text string, opts Options) *Context {
	ctx := NewContext(text)
	ctx.Chains = opts.Chains
	ctx.Now = opts.Now
	return ctx
}

// Validate runs the full pipeline over one message: parse once, evaluate the
// pack's checks, drop missing-field parse findings that the blank-line
// analysis explains, and bucket everything by severity. The error return is
// reserved for configuration faults (an unknown profile, a broken pack);
// message defects always come back as diagnostics, and an internal panic
// degrades to a single VALIDATION_ERROR finding.
func Validate(text string, opts Options) (ValidationResult, error) {
	pack, err := resolvePack(opts)
	if err != nil {
		return ValidationResult{}, err
	}
	e := NewEngine(pack)
	e.RegisterBuiltins()
	return validateWith(e, text, opts)
}

func validateWith(e *Engine, text string, opts Options) (result ValidationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = ValidationResult{
				OriginalMessage: text,
				Errors: []Diagnostic{{
					Category: CategoryFormat,
					Code:     CodeValidationError,
					Severity: ERROR,
					Message:  fmt.Sprintf("internal validation failure: %v", r),
				}},
			}
			err = nil
		}
	}()

	ctx := newContext(text, opts)
	diags, evalErr := e.Eval(ctx)
	if evalErr != nil {
		return ValidationResult{}, evalErr
	}
	diags = suppressExplainedMissing(diags, ctx.Structure)

	var errs, warns, suggs []Diagnostic
	for _, d := range diags {
		switch d.Severity {
		case ERROR:
			errs = append(errs, d)
		case WARN:
			warns = append(warns, d)
		default:
			suggs = append(suggs, d)
		}
	}
	return ValidationResult{
		IsValid:         len(errs) == 0,
		Errors:          structuralFirst(errs),
		Warnings:        warns,
		Suggestions:     suggs,
		OriginalMessage: text,
	}, nil
}

// suppressExplainedMissing removes MISSING_<FIELD> parse findings whose field
// anchor does exist in the raw lines. The field is then not missing, the
// positional cursor was merely thrown off, and the structural finding that
// explains the displacement takes its place.
func suppressExplainedMissing(diags []Diagnostic, st *siwe.Structure) []Diagnostic {
	if st == nil {
		return diags
	}
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if anchorPresentFor(d.Code, st) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func anchorPresentFor(code string, st *siwe.Structure) bool {
	if code == siwe.CodeMissingAddress {
		return st.Address >= 0
	}
	for _, fl := range siwe.RequiredFieldLines {
		if code == siwe.MissingFieldCode(fl.Field) {
			return st.FieldLineIndex(fl.Field) >= 0
		}
	}
	return false
}

// structuralFirst moves blank-line boundary findings to the front, keeping
// relative order within both groups.
func structuralFirst(diags []Diagnostic) []Diagnostic {
	if len(diags) < 2 {
		return diags
	}
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if siwe.IsStructureCode(d.Code) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return diags
	}
	for _, d := range diags {
		if !siwe.IsStructureCode(d.Code) {
			out = append(out, d)
		}
	}
	return out
}

// QuickValidate is a cheap pass/fail screen: grammar issues or blank-line
// boundary violations fail, nothing else is inspected.
func QuickValidate(text string) bool {
	parsed := siwe.Parse(text)
	if len(parsed.Issues) > 0 {
		return false
	}
	for _, issue := range siwe.ValidateLineBreaks([]string(parsed.Raw)) {
		if siwe.IsStructureCode(issue.Code) {
			return false
		}
	}
	return true
}

// ApplyFix runs the repair for one diagnostic under the given options. The
// input comes back unchanged when the code has no registered fix.
func ApplyFix(text string, diag Diagnostic, opts Options) (string, bool, error) {
	pack, err := resolvePack(opts)
	if err != nil {
		return text, false, err
	}
	e := NewEngine(pack)
	e.RegisterBuiltins()
	return e.ApplyFix(newContext(text, opts), diag)
}

// ApplyFieldFix is the single-diagnostic repair entry point: it returns the
// repaired text, or the input unchanged for unknown and unfixable codes.
func ApplyFieldFix(text string, diag Diagnostic) string {
	out, _, err := ApplyFix(text, diag, Options{})
	if err != nil {
		return text
	}
	return out
}

// AutoFixOptions extends Options with fix selection. An empty Codes list
// permits every fixable finding; DryRun reports the plan without rewriting.
type AutoFixOptions struct {
	Options
	Codes  []string
	DryRun bool
}

// AppliedFix records one applied (or, under dry-run, planned) repair. Before
// and After hold full text snapshots for audit logging and are not part of
// the wire format.
type AppliedFix struct {
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
	Line  int    `json:"line,omitempty"`

	Before string `json:"-"`
	After  string `json:"-"`
}

// autoFixPassLimit bounds the repair loop. Each pass applies at most one fix
// and re-validates, so the limit is only reached when fixes stop converging.
const autoFixPassLimit = 16

// AutoFix repeatedly repairs the first permitted fixable finding until the
// message has none left, re-validating after every rewrite so later fixes see
// fresh positions. It returns the final text, the applied fixes in order, and
// the validation result of the returned text.
func AutoFix(text string, opts AutoFixOptions) (string, []AppliedFix, ValidationResult, error) {
	pack, err := resolvePack(opts.Options)
	if err != nil {
		return text, nil, ValidationResult{}, err
	}
	e := NewEngine(pack)
	e.RegisterBuiltins()

	allowed := make(map[string]bool, len(opts.Codes))
	for _, c := range opts.Codes {
		allowed[c] = true
	}
	permitted := func(d Diagnostic) bool {
		return d.Fixable && (len(allowed) == 0 || allowed[d.Code])
	}

	current := text
	res, err := validateWith(e, current, opts.Options)
	if err != nil {
		return text, nil, ValidationResult{}, err
	}

	if opts.DryRun {
		var planned []AppliedFix
		for _, d := range res.All() {
			if permitted(d) {
				planned = append(planned, AppliedFix{Code: d.Code, Field: d.Field, Line: d.Line})
			}
		}
		return text, planned, res, nil
	}

	var applied []AppliedFix
	for pass := 0; pass < autoFixPassLimit; pass++ {
		progressed := false
		for _, d := range res.All() {
			if !permitted(d) {
				continue
			}
			out, ok, err := e.ApplyFix(newContext(current, opts.Options), d)
			if err != nil {
				return current, applied, res, err
			}
			if !ok || out == current {
				continue
			}
			applied = append(applied, AppliedFix{
				Code:   d.Code,
				Field:  d.Field,
				Line:   d.Line,
				Before: current,
				After:  out,
			})
			current = out
			progressed = true
			break
		}
		if !progressed {
			break
		}
		res, err = validateWith(e, current, opts.Options)
		if err != nil {
			return current, applied, res, err
		}
	}
	return current, applied, res, nil
}
