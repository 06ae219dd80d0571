package rules

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"example.com/siwegate/internal/eth"
	"example.com/siwegate/internal/siwe"
)

const (
	// nonceFormatMinLen is the floor EIP-4361 itself imposes; the security
	// check applies the stricter securityNonceMinLen on top of it.
	nonceFormatMinLen   = 8
	securityNonceMinLen = 12
	generatedNonceLen   = 16

	expirationGrace = 10 * time.Minute
)

// RegisterBuiltins wires every built-in check and fix into the engine's
// registries under the names the built-in packs reference.
func (e *Engine) RegisterBuiltins() {
	e.RegisterCheck("CheckGrammar", CheckGrammar)
	e.RegisterCheck("CheckLineBreaks", CheckLineBreaks)
	e.RegisterCheck("CheckDomain", CheckDomain)
	e.RegisterCheck("CheckAddress", CheckAddress)
	e.RegisterCheck("CheckAddressChecksum", CheckAddressChecksum)
	e.RegisterCheck("CheckURI", CheckURI)
	e.RegisterCheck("CheckVersion", CheckVersion)
	e.RegisterCheck("CheckChainID", CheckChainID)
	e.RegisterCheck("CheckNonceFormat", CheckNonceFormat)
	e.RegisterCheck("CheckTimestampFormat", CheckTimestampFormat)
	e.RegisterCheck("CheckKnownChain", CheckKnownChain)
	e.RegisterCheck("CheckNonceEntropy", CheckNonceEntropy)
	e.RegisterCheck("CheckExpirationPresent", CheckExpirationPresent)
	e.RegisterCheck("CheckURIScheme", CheckURIScheme)
	e.RegisterCheck("CheckStatementHygiene", CheckStatementHygiene)

	e.RegisterFix("FixLineBreaks", FixLineBreaks)
	e.RegisterFix("FixAddress", FixAddress)
	e.RegisterFix("FixNonce", FixNonce)
	e.RegisterFix("FixTimestamp", FixTimestamp)
	e.RegisterFix("FixMissingExpiration", FixMissingExpiration)
	e.RegisterFix("FixURI", FixURI)
	e.RegisterFix("FixStatement", FixStatement)
}

// DefaultFixName maps a diagnostic code to the name of the built-in fix that
// repairs it. Codes without a repair map to "".
func DefaultFixName(code string) string {
	if siwe.IsStructureCode(code) ||
		code == siwe.CodeTrailingWhitespace ||
		code == siwe.CodeTooManyConsecutiveEmptyLines {
		return "FixLineBreaks"
	}
	switch code {
	case CodeAddressInvalidFormat, CodeAddressChecksumMismatch:
		return "FixAddress"
	case CodeNonceInvalidFormat, CodeNonceWeakEntropy:
		return "FixNonce"
	case CodeIssuedAtInvalidFormat, CodeExpirationTimeInvalidFormat, CodeNotBeforeInvalidFormat:
		return "FixTimestamp"
	case CodeExpirationTimeMissing:
		return "FixMissingExpiration"
	case CodeURIInvalidFormat:
		return "FixURI"
	case CodeStatementLineBreaks:
		return "FixStatement"
	}
	return ""
}

var (
	// domainPattern accepts an RFC 3986 host of dot-separated labels with an
	// optional port, the shape EIP-4361 calls the authority.
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?` +
		`(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*(:[0-9]{1,5})?$`)

	// uriSchemePattern matches the mandatory "scheme:" opening of an RFC 3986
	// URI reference.
	uriSchemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

	chainIDPattern = regexp.MustCompile(`^[1-9][0-9]*$`)
)

// fieldDiag builds a diagnostic anchored at the field's line when the anchor
// scan located one. Column points at the start of the value.
func fieldDiag(ctx *Context, rule Rule, f siwe.Field, msg string) Diagnostic {
	d := Diagnostic{
		Category: rule.Category,
		Field:    string(f),
		Code:     rule.Code,
		Severity: rule.Severity,
		Fixable:  rule.Fixable,
		Message:  msg,
	}
	st := ctx.Structure
	if st == nil {
		return d
	}
	switch f {
	case siwe.FieldDomain:
		if st.Header >= 0 {
			d.Line = st.Header + 1
			d.Column = 1
		}
	case siwe.FieldAddress:
		if st.Address >= 0 {
			d.Line = st.Address + 1
			d.Column = 1
		}
	case siwe.FieldStatement:
		if st.Statement >= 0 {
			d.Line = st.Statement + 1
			d.Column = 1
		}
	default:
		if idx := st.FieldLineIndex(f); idx >= 0 {
			d.Line = idx + 1
			d.Column = len(siwe.PrefixFor(f)) + 1
		}
	}
	return d
}

// CheckGrammar lifts the parser's issues into diagnostics. The findings keep
// the parser's codes (INVALID_HEADER, MISSING_*) and positions.
func CheckGrammar(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	var diags []Diagnostic
	for _, issue := range ctx.Parsed.Issues {
		diags = append(diags, Diagnostic{
			Category: rule.Category,
			Field:    string(issue.Field),
			Line:     issue.Line,
			Column:   issue.Column,
			Code:     issue.Code,
			Severity: rule.Severity,
			Message:  issue.Message,
		})
	}
	return diags, nil
}

// CheckLineBreaks lifts the blank-line analyzer's findings into diagnostics.
// Boundary violations carry the rule's severity; trailing whitespace and long
// blank runs are always warnings.
func CheckLineBreaks(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	var diags []Diagnostic
	for _, issue := range siwe.ValidateLineBreaks([]string(ctx.Parsed.Raw)) {
		sev := rule.Severity
		field := "structure"
		if issue.Code == siwe.CodeTrailingWhitespace || issue.Code == siwe.CodeTooManyConsecutiveEmptyLines {
			sev = WARN
			field = "whitespace"
		}
		diags = append(diags, Diagnostic{
			Category: rule.Category,
			Field:    field,
			Line:     issue.Line,
			Column:   issue.Column,
			Code:     issue.Code,
			Severity: sev,
			Message:  issue.Message,
			Fixable:  true,
		})
	}
	return diags, nil
}

func CheckDomain(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	domain := ctx.Parsed.Fields.Domain
	if domain == "" || domainPattern.MatchString(domain) {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldDomain,
		fmt.Sprintf("domain %q is not a valid RFC 3986 authority", domain))
	return []Diagnostic{d}, nil
}

func CheckAddress(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	addr := ctx.Parsed.Fields.Address
	if addr == "" || eth.IsHexAddress(addr) {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldAddress,
		"address must be 0x followed by 40 hexadecimal characters")
	if eth.IsBareHexAddress(addr) {
		d.Message = "address is missing the 0x prefix"
		d.Suggestion = "0x" + addr
	} else {
		// Only the bare-hex shape has a lossless repair.
		d.Fixable = false
	}
	return []Diagnostic{d}, nil
}

func CheckAddressChecksum(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	addr := ctx.Parsed.Fields.Address
	if !eth.IsHexAddress(addr) || eth.IsChecksumAddress(addr) {
		return nil, nil
	}
	sum, err := eth.ChecksumAddress(addr)
	if err != nil {
		return nil, err
	}
	d := fieldDiag(ctx, rule, siwe.FieldAddress,
		"address does not match its EIP-55 checksum form")
	d.Suggestion = sum
	return []Diagnostic{d}, nil
}

func CheckURI(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	uri := ctx.Parsed.Fields.URI
	if uri == "" || uriSchemePattern.MatchString(uri) {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldURI,
		fmt.Sprintf("uri %q has no scheme", uri))
	d.Suggestion = withHTTPSScheme(uri)
	return []Diagnostic{d}, nil
}

func CheckVersion(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	v := ctx.Parsed.Fields.Version
	if v == "" || v == "1" {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldVersion,
		fmt.Sprintf("version must be \"1\", got %q", v))
	return []Diagnostic{d}, nil
}

func CheckChainID(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	id := ctx.Parsed.Fields.ChainID
	if id == "" || chainIDPattern.MatchString(id) {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldChainID,
		fmt.Sprintf("chain id %q is not a positive integer", id))
	return []Diagnostic{d}, nil
}

func CheckNonceFormat(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	nonce := ctx.Parsed.Fields.Nonce
	if nonce == "" {
		return nil, nil
	}
	var msg string
	switch {
	case !isAlphanumeric(nonce):
		msg = "nonce contains non-alphanumeric characters"
	case len(nonce) < nonceFormatMinLen:
		msg = fmt.Sprintf("nonce has %d characters, at least %d required", len(nonce), nonceFormatMinLen)
	default:
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldNonce, msg)
	return []Diagnostic{d}, nil
}

// CheckTimestampFormat validates the RFC 3339 field named by rule.Field. The
// finding is fixable only when the value parses under a known loose layout,
// so the repair stays deterministic.
func CheckTimestampFormat(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	f := siwe.Field(rule.Field)
	v := ctx.Parsed.Fields.Value(f)
	if v == "" {
		return nil, nil
	}
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, f,
		fmt.Sprintf("%s %q is not an RFC 3339 timestamp", rule.Field, v))
	if t, ok := parseLooseTimestamp(v); ok {
		d.Suggestion = t.Format(time.RFC3339)
	} else {
		d.Fixable = false
	}
	return []Diagnostic{d}, nil
}

// CheckKnownChain reports well-formed chain ids that no known network uses.
func CheckKnownChain(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	raw := ctx.Parsed.Fields.ChainID
	if !chainIDPattern.MatchString(raw) {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, nil
	}
	if _, ok := ctx.chains().Lookup(id); ok {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldChainID,
		fmt.Sprintf("chain id %d does not match any known network", id))
	return []Diagnostic{d}, nil
}

func CheckNonceEntropy(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	nonce := ctx.Parsed.Fields.Nonce
	if nonce == "" || !isAlphanumeric(nonce) {
		return nil, nil
	}
	reason := weakNonceReason(nonce)
	if reason == "" {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldNonce, reason)
	return []Diagnostic{d}, nil
}

func CheckExpirationPresent(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	if ctx.Parsed.Fields.ExpirationTime != "" {
		return nil, nil
	}
	d := Diagnostic{
		Category: rule.Category,
		Field:    string(siwe.FieldExpirationTime),
		Code:     rule.Code,
		Severity: rule.Severity,
		Fixable:  rule.Fixable,
		Message:  "message has no expiration time",
	}
	return []Diagnostic{d}, nil
}

func CheckURIScheme(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	uri := ctx.Parsed.Fields.URI
	if !strings.HasPrefix(strings.ToLower(uri), "http:") {
		return nil, nil
	}
	d := fieldDiag(ctx, rule, siwe.FieldURI,
		"uri uses the insecure http scheme")
	return []Diagnostic{d}, nil
}

// CheckStatementHygiene flags a statement broken across multiple lines. The
// blank-line analyzer treats the contiguous run as one block, so the span is
// taken from the anchor scan rather than the parsed field.
func CheckStatementHygiene(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return nil, err
	}
	st := ctx.Structure
	if st == nil || st.Statement < 0 || st.StatementEnd <= st.Statement {
		return nil, nil
	}
	span := st.StatementEnd - st.Statement + 1
	d := fieldDiag(ctx, rule, siwe.FieldStatement,
		fmt.Sprintf("statement spans %d lines, expected 1", span))
	d.Suggestion = collapseWhitespace(strings.Join([]string(ctx.Parsed.Raw)[st.Statement:st.StatementEnd+1], " "))
	return []Diagnostic{d}, nil
}

// FixLineBreaks rebuilds canonical blank-line placement for any structural or
// whitespace finding.
func FixLineBreaks(ctx *Context, diag Diagnostic) (string, bool, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return "", false, err
	}
	out := siwe.FixLineBreaks(ctx.Text)
	return out, out != ctx.Text, nil
}

// FixAddress prepends the 0x prefix to a bare 40-hex address, or rewrites a
// prefixed address into its EIP-55 checksum form. Only the address line
// changes.
func FixAddress(ctx *Context, diag Diagnostic) (string, bool, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return "", false, err
	}
	addr := ctx.Parsed.Fields.Address
	var repaired string
	switch {
	case eth.IsBareHexAddress(addr):
		repaired = "0x" + addr
	case eth.IsHexAddress(addr):
		sum, err := eth.ChecksumAddress(addr)
		if err != nil {
			return ctx.Text, false, err
		}
		repaired = sum
	default:
		return ctx.Text, false, nil
	}
	if repaired == addr {
		return ctx.Text, false, nil
	}
	out, ok := siwe.ReplaceFieldValue(ctx.Text, siwe.FieldAddress, repaired)
	return out, ok, nil
}

// FixNonce replaces the nonce with a freshly generated random value.
func FixNonce(ctx *Context, diag Diagnostic) (string, bool, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return "", false, err
	}
	nonce, err := randomNonce(generatedNonceLen)
	if err != nil {
		return ctx.Text, false, err
	}
	out, ok := siwe.ReplaceFieldValue(ctx.Text, siwe.FieldNonce, nonce)
	return out, ok, nil
}

// FixTimestamp reformats a loosely formatted timestamp into RFC 3339. Values
// that parse under no known layout are left alone.
func FixTimestamp(ctx *Context, diag Diagnostic) (string, bool, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return "", false, err
	}
	f := siwe.Field(diag.Field)
	v := ctx.Parsed.Fields.Value(f)
	if v == "" {
		return ctx.Text, false, nil
	}
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return ctx.Text, false, nil
	}
	t, ok := parseLooseTimestamp(v)
	if !ok {
		return ctx.Text, false, nil
	}
	out, ok := siwe.ReplaceFieldValue(ctx.Text, f, t.Format(time.RFC3339))
	return out, ok, nil
}

// FixMissingExpiration inserts an Expiration Time line ten minutes after
// Issued At, or after the current time when Issued At is unusable.
func FixMissingExpiration(ctx *Context, diag Diagnostic) (string, bool, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return "", false, err
	}
	if ctx.Parsed.Fields.ExpirationTime != "" {
		return ctx.Text, false, nil
	}
	base, err := time.Parse(time.RFC3339, ctx.Parsed.Fields.IssuedAt)
	if err != nil {
		base = ctx.now().UTC().Truncate(time.Second)
	}
	exp := base.Add(expirationGrace).Format(time.RFC3339)
	out, ok := siwe.InsertFieldLine(ctx.Text, siwe.FieldExpirationTime, exp)
	return out, ok, nil
}

// FixURI prepends the https scheme to a scheme-less URI.
func FixURI(ctx *Context, diag Diagnostic) (string, bool, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return "", false, err
	}
	uri := ctx.Parsed.Fields.URI
	if uri == "" || uriSchemePattern.MatchString(uri) {
		return ctx.Text, false, nil
	}
	out, ok := siwe.ReplaceFieldValue(ctx.Text, siwe.FieldURI, withHTTPSScheme(uri))
	return out, ok, nil
}

// FixStatement collapses a multi-line statement into a single line with
// single-space separators.
func FixStatement(ctx *Context, diag Diagnostic) (string, bool, error) {
	if err := ctx.EnsureParsed(); err != nil {
		return "", false, err
	}
	st := ctx.Structure
	if st == nil || st.Statement < 0 || st.StatementEnd <= st.Statement {
		return ctx.Text, false, nil
	}
	lines := []string(ctx.Parsed.Raw)
	collapsed := collapseWhitespace(strings.Join(lines[st.Statement:st.StatementEnd+1], " "))
	out, ok := siwe.ReplaceFieldValue(ctx.Text, siwe.FieldStatement, collapsed)
	return out, ok, nil
}

func withHTTPSScheme(uri string) string {
	if strings.HasPrefix(uri, "//") {
		return "https:" + uri
	}
	return "https://" + uri
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return len(s) > 0
}

// weakNonceReason reports why an alphanumeric nonce is considered guessable,
// or "" when it passes: below the security length floor, an obvious
// sequential run, or drawn from a single character class.
func weakNonceReason(nonce string) string {
	if len(nonce) < securityNonceMinLen {
		return fmt.Sprintf("nonce length %d is below the security floor of %d", len(nonce), securityNonceMinLen)
	}
	if isSequentialRun(nonce) {
		return "nonce is a sequential character run"
	}
	if characterClasses(nonce) < 2 {
		return "nonce draws on a single character class"
	}
	return ""
}

func characterClasses(s string) int {
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	n := 0
	for _, b := range []bool{lower, upper, digit} {
		if b {
			n++
		}
	}
	return n
}

func isSequentialRun(s string) bool {
	if len(s) < 2 {
		return false
	}
	asc, desc := true, true
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1]+1 {
			asc = false
		}
		if s[i] != s[i-1]-1 {
			desc = false
		}
	}
	return asc || desc
}

const nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomNonce(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = nonceAlphabet[int(b)%len(nonceAlphabet)]
	}
	return string(out), nil
}

// looseTimestampLayouts are the shapes FixTimestamp can repair. Layouts
// without a zone are interpreted as UTC.
var looseTimestampLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func parseLooseTimestamp(v string) (time.Time, bool) {
	for _, layout := range looseTimestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
