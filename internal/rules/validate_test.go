package rules

import (
	"regexp"
	"strings"
	"testing"

	"example.com/siwegate/internal/siwe"
)

func mustValidate(t *testing.T, text string, opts Options) ValidationResult {
	t.Helper()
	res, err := Validate(text, opts)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return res
}

func TestValidateCleanStrict(t *testing.T) {
	text := mustSample(t, "clean")
	res := mustValidate(t, text, Options{Profile: ProfileStrict})
	if !res.IsValid {
		t.Fatalf("clean message invalid: %+v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	if res.OriginalMessage != text {
		t.Fatal("original message not preserved")
	}
	if !hasCode(res.Warnings, CodeExpirationTimeMissing) {
		t.Fatalf("expiration warning missing: %+v", res.Warnings)
	}
}

func TestValidateProfiles(t *testing.T) {
	text := mustSample(t, "weak_nonce")

	strict := mustValidate(t, text, Options{Profile: ProfileStrict})
	if strict.IsValid {
		t.Fatal("weak nonce passes strict profile")
	}
	if len(strict.Errors) != 1 || strict.Errors[0].Code != CodeNonceWeakEntropy {
		t.Fatalf("strict errors: %+v", strict.Errors)
	}
	if !strict.Errors[0].Fixable {
		t.Fatal("weak nonce finding must be fixable")
	}

	basic := mustValidate(t, text, Options{Profile: ProfileBasic})
	if !basic.IsValid {
		t.Fatalf("weak nonce fails basic profile: %+v", basic.Errors)
	}
	if !hasCode(basic.Warnings, CodeNonceWeakEntropy) {
		t.Fatalf("basic warnings: %+v", basic.Warnings)
	}

	dev := mustValidate(t, text, Options{Profile: ProfileDevelopment})
	if !dev.IsValid {
		t.Fatalf("weak nonce fails development profile: %+v", dev.Errors)
	}
	if hasCode(dev.All(), CodeNonceWeakEntropy) || hasCode(dev.All(), CodeExpirationTimeMissing) {
		t.Fatalf("development profile ran security checks: %+v", dev.All())
	}
}

func TestValidateUnknownProfile(t *testing.T) {
	if _, err := Validate(mustSample(t, "clean"), Options{Profile: "paranoid"}); err == nil {
		t.Fatal("unknown profile accepted")
	}
}

func TestValidatePackOverride(t *testing.T) {
	pack := RulePack{
		RulePackId: "grammar-only",
		Version:    "1.0.0",
		Rules: []Rule{
			{Code: RuleCodeGrammar, Category: CategoryFormat, Severity: ERROR, CheckFunc: "CheckGrammar"},
		},
	}
	res := mustValidate(t, mustSample(t, "weak_nonce"), Options{Pack: &pack})
	if !res.IsValid || len(res.All()) != 0 {
		t.Fatalf("grammar-only pack produced findings: %+v", res.All())
	}

	broken := RulePack{RulePackId: "broken"}
	if _, err := Validate("x", Options{Pack: &broken}); err == nil {
		t.Fatal("invalid pack override accepted")
	}
}

func TestValidateInsecureURI(t *testing.T) {
	res := mustValidate(t, mustSample(t, "http_uri"), Options{})
	if !res.IsValid {
		t.Fatalf("http uri message invalid: %+v", res.Errors)
	}
	d := findCode(t, res.Warnings, CodeURIInsecureScheme)
	if d.Fixable {
		t.Fatal("scheme downgrade warning must not claim a repair")
	}
}

func TestValidateSuppressesExplainedMissing(t *testing.T) {
	lines := strings.Split(mustSample(t, "clean"), "\n")
	text := strings.Join(append([]string{lines[0], ""}, lines[1:]...), "\n")

	res := mustValidate(t, text, Options{Profile: ProfileStrict})
	if res.IsValid {
		t.Fatal("misplaced blank line passed validation")
	}
	if len(res.Errors) != 1 || res.Errors[0].Code != siwe.CodeExtraLineBreakHeaderAddress {
		t.Fatalf("errors: %+v", res.Errors)
	}
	for _, d := range res.All() {
		if strings.HasPrefix(d.Code, "MISSING_") {
			t.Fatalf("redundant %s survived suppression", d.Code)
		}
	}
}

func TestValidateKeepsUnexplainedMissing(t *testing.T) {
	var kept []string
	for _, ln := range strings.Split(mustSample(t, "clean"), "\n") {
		if strings.HasPrefix(ln, "Nonce: ") {
			continue
		}
		kept = append(kept, ln)
	}
	text := strings.Join(append([]string{kept[0], ""}, kept[1:]...), "\n")

	res := mustValidate(t, text, Options{Profile: ProfileStrict})
	if len(res.Errors) != 2 {
		t.Fatalf("errors: %+v", res.Errors)
	}
	// Structural findings lead so a reader sees the explanation before the
	// fields the desync hid.
	if res.Errors[0].Code != siwe.CodeExtraLineBreakHeaderAddress {
		t.Fatalf("first error = %s, want %s", res.Errors[0].Code, siwe.CodeExtraLineBreakHeaderAddress)
	}
	if res.Errors[1].Code != siwe.CodeMissingNonce {
		t.Fatalf("second error = %s, want %s", res.Errors[1].Code, siwe.CodeMissingNonce)
	}
	if hasCode(res.All(), siwe.CodeMissingAddress) {
		t.Fatal("explained MISSING_ADDRESS survived suppression")
	}
}

func TestValidateMultilineStatement(t *testing.T) {
	text := strings.Replace(mustSample(t, "clean"),
		"Sign in to our Web3 application.", "Sign in to our\nWeb3 application.", 1)

	res := mustValidate(t, text, Options{Profile: ProfileStrict})
	if !res.IsValid {
		t.Fatalf("multi-line statement produced errors: %+v", res.Errors)
	}
	for _, d := range res.All() {
		if strings.HasPrefix(d.Code, "MISSING_") {
			t.Fatalf("redundant %s survived suppression", d.Code)
		}
	}
	d := findCode(t, res.Warnings, CodeStatementLineBreaks)
	if d.Suggestion != "Sign in to our Web3 application." {
		t.Fatalf("suggestion = %q", d.Suggestion)
	}
}

func TestValidateNoStatementSpacing(t *testing.T) {
	text := mustSample(t, "no_statement_spacing")

	res := mustValidate(t, text, Options{Profile: ProfileStrict})
	if len(res.Errors) != 1 || res.Errors[0].Code != siwe.CodeMissingLineBreakNoStatement {
		t.Fatalf("errors: %+v", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Message, "expected 2") {
		t.Fatalf("message %q does not state the reserved slot", res.Errors[0].Message)
	}

	// Three blank lines overshoot the reserved slot the other way.
	three := strings.Replace(text, "\n\nURI:", "\n\n\n\nURI:", 1)
	res = mustValidate(t, three, Options{Profile: ProfileStrict})
	if len(res.Errors) != 1 || res.Errors[0].Code != siwe.CodeExtraLineBreaksBeforeURI {
		t.Fatalf("errors: %+v", res.Errors)
	}

	// Exactly two is the canonical spacing for an omitted statement.
	two := strings.Replace(text, "\n\nURI:", "\n\n\nURI:", 1)
	res = mustValidate(t, two, Options{Profile: ProfileStrict})
	if !res.IsValid {
		t.Fatalf("canonical spacing rejected: %+v", res.Errors)
	}

	fixed := siwe.FixLineBreaks(text)
	if fixed != two {
		t.Fatalf("repair:\n%s\nwant:\n%s", fixed, two)
	}
}

func TestValidateBlankBeforeOptionalField(t *testing.T) {
	text := mustSample(t, "with_resources")
	broken := strings.Replace(text, "\nExpiration Time:", "\n\nExpiration Time:", 1)

	res := mustValidate(t, broken, Options{Profile: ProfileStrict})
	if len(res.Errors) != 1 || res.Errors[0].Code != siwe.CodeExtraLineBreaksBeforeOptionalField {
		t.Fatalf("errors: %+v", res.Errors)
	}

	if fixed := siwe.FixLineBreaks(broken); fixed != text {
		t.Fatalf("repair did not restore the original:\n%s", fixed)
	}
}

func TestApplyFixMonotonic(t *testing.T) {
	text := mustSample(t, "missing_0x_prefix")
	res := mustValidate(t, text, Options{Profile: ProfileStrict})
	if len(res.Errors) != 1 || res.Errors[0].Code != CodeAddressInvalidFormat {
		t.Fatalf("errors: %+v", res.Errors)
	}

	out, ok, err := ApplyFix(text, res.Errors[0], Options{Profile: ProfileStrict})
	if err != nil {
		t.Fatalf("ApplyFix: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	if changed := changedLines(t, text, out); len(changed) != 1 || changed[0] != 2 {
		t.Fatalf("changed lines %v, want [2]", changed)
	}

	after := mustValidate(t, out, Options{Profile: ProfileStrict})
	if !after.IsValid {
		t.Fatalf("repaired message still invalid: %+v", after.Errors)
	}
	if hasCode(after.All(), CodeAddressInvalidFormat) || hasCode(after.All(), CodeAddressChecksumMismatch) {
		t.Fatalf("address finding recurred: %+v", after.All())
	}
}

func TestApplyFieldFixUnknownCode(t *testing.T) {
	text := mustSample(t, "clean")
	if got := ApplyFieldFix(text, Diagnostic{Code: "NO_SUCH_CODE"}); got != text {
		t.Fatal("unknown code rewrote the message")
	}
}

func TestAutoFixNonceOnly(t *testing.T) {
	text := mustSample(t, "weak_nonce")
	out, applied, final, err := AutoFix(text, AutoFixOptions{
		Options: Options{Profile: ProfileStrict},
		Codes:   []string{CodeNonceWeakEntropy},
	})
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	if len(applied) != 1 || applied[0].Code != CodeNonceWeakEntropy {
		t.Fatalf("applied: %+v", applied)
	}
	if applied[0].Before != text || applied[0].After != out {
		t.Fatal("fix log snapshots do not bracket the rewrite")
	}
	changed := changedLines(t, text, out)
	if len(changed) != 1 || changed[0] != 9 {
		t.Fatalf("changed lines %v, want [9]", changed)
	}
	if !regexp.MustCompile(`^Nonce: [a-zA-Z0-9]{8,}$`).MatchString(strings.Split(out, "\n")[8]) {
		t.Fatalf("nonce line %q not in repaired shape", strings.Split(out, "\n")[8])
	}
	if !final.IsValid {
		t.Fatalf("final result invalid: %+v", final.Errors)
	}
	// The code filter leaves the fixable expiration warning alone.
	if !hasCode(final.Warnings, CodeExpirationTimeMissing) {
		t.Fatalf("final warnings: %+v", final.Warnings)
	}
}

func TestAutoFixConverges(t *testing.T) {
	text := mustSample(t, "extra_blank_lines")
	out, applied, final, err := AutoFix(text, AutoFixOptions{Options: Options{Profile: ProfileStrict}})
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	if len(applied) < 2 {
		t.Fatalf("applied: %+v", applied)
	}
	if applied[0].Code != siwe.CodeExtraLineBreakHeaderAddress {
		t.Fatalf("first fix = %s", applied[0].Code)
	}
	if applied[0].Before != text || applied[0].After != siwe.FixLineBreaks(text) {
		t.Fatal("structural repair snapshots wrong")
	}
	if !final.IsValid {
		t.Fatalf("final result invalid: %+v", final.Errors)
	}
	for _, d := range final.All() {
		if d.Fixable {
			t.Fatalf("fixable finding %s survived auto-fix", d.Code)
		}
	}
	if !strings.Contains(out, "\nExpiration Time: ") {
		t.Fatal("expiration line was not inserted")
	}
}

func TestAutoFixDryRun(t *testing.T) {
	text := mustSample(t, "weak_nonce")
	out, planned, res, err := AutoFix(text, AutoFixOptions{
		Options: Options{Profile: ProfileStrict},
		DryRun:  true,
	})
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	if out != text {
		t.Fatal("dry run rewrote the message")
	}
	if len(planned) != 2 ||
		planned[0].Code != CodeNonceWeakEntropy ||
		planned[1].Code != CodeExpirationTimeMissing {
		t.Fatalf("planned: %+v", planned)
	}
	if planned[0].Before != "" || planned[0].After != "" {
		t.Fatal("dry run must not capture snapshots")
	}
	if res.IsValid {
		t.Fatal("dry run result reflects the unrepaired message")
	}
}

func TestQuickValidate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"clean sample", mustSample(t, "clean"), true},
		{"weak nonce parses fine", mustSample(t, "weak_nonce"), true},
		{"extra blank lines", mustSample(t, "extra_blank_lines"), false},
		{"garbage", "hello world", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := QuickValidate(tc.text); got != tc.want {
				t.Fatalf("QuickValidate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateSurvivesPanickingCheck(t *testing.T) {
	pack := RulePack{
		RulePackId: "panic-pack",
		Version:    "1.0.0",
		Rules: []Rule{
			{Code: "EXPLOSIVE", Category: CategoryFormat, Severity: ERROR, CheckFunc: "Panics"},
		},
	}
	e := NewEngine(pack)
	e.RegisterCheck("Panics", func(ctx *Context, rule Rule) ([]Diagnostic, error) {
		panic("kaboom")
	})
	res, err := validateWith(e, mustSample(t, "clean"), Options{})
	if err != nil {
		t.Fatalf("validateWith: %v", err)
	}
	if res.IsValid || len(res.Errors) != 1 {
		t.Fatalf("result: %+v", res)
	}
	d := res.Errors[0]
	if d.Code != CodeValidationError || !strings.Contains(d.Message, "internal validation failure") {
		t.Fatalf("diagnostic %+v", d)
	}
	if !strings.Contains(d.Message, "kaboom") {
		t.Fatalf("panic value lost: %q", d.Message)
	}
}

func TestValidateDegenerateInput(t *testing.T) {
	for _, text := range []string{"", "\x00\x01\x02", "\n\n\n"} {
		res, err := Validate(text, Options{Profile: ProfileStrict})
		if err != nil {
			t.Fatalf("Validate(%q): %v", text, err)
		}
		if res.IsValid {
			t.Fatalf("degenerate input %q validated", text)
		}
		if len(res.Errors) == 0 {
			t.Fatalf("degenerate input %q produced no errors", text)
		}
	}
}
