package rules

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"example.com/siwegate/internal/siwe"
)

func TestFixAddressPrefix(t *testing.T) {
	text := mustSample(t, "missing_0x_prefix")
	out, ok, err := FixAddress(NewContext(text), Diagnostic{Code: CodeAddressInvalidFormat})
	if err != nil {
		t.Fatalf("FixAddress: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	if changed := changedLines(t, text, out); len(changed) != 1 || changed[0] != 2 {
		t.Fatalf("changed lines %v, want [2]", changed)
	}
	if got := strings.Split(out, "\n")[1]; got != checksumAddr {
		t.Fatalf("address line = %q, want %q", got, checksumAddr)
	}
}

func TestFixAddressChecksum(t *testing.T) {
	text := messageWith(func(fm *siwe.FieldMap) { fm.Address = strings.ToLower(checksumAddr) })
	out, ok, err := FixAddress(NewContext(text), Diagnostic{Code: CodeAddressChecksumMismatch})
	if err != nil {
		t.Fatalf("FixAddress: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	if changed := changedLines(t, text, out); len(changed) != 1 || changed[0] != 2 {
		t.Fatalf("changed lines %v, want [2]", changed)
	}
	if got := strings.Split(out, "\n")[1]; got != checksumAddr {
		t.Fatalf("address line = %q, want %q", got, checksumAddr)
	}
}

func TestFixAddressNoRepair(t *testing.T) {
	text := messageWith(func(fm *siwe.FieldMap) { fm.Address = "not-an-address" })
	out, ok, err := FixAddress(NewContext(text), Diagnostic{Code: CodeAddressInvalidFormat})
	if err != nil {
		t.Fatalf("FixAddress: %v", err)
	}
	if ok || out != text {
		t.Fatal("unrepairable address must come back unchanged")
	}
}

func TestFixNonce(t *testing.T) {
	text := mustSample(t, "weak_nonce")
	out, ok, err := FixNonce(NewContext(text), Diagnostic{Code: CodeNonceWeakEntropy})
	if err != nil {
		t.Fatalf("FixNonce: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	changed := changedLines(t, text, out)
	if len(changed) != 1 || changed[0] != 9 {
		t.Fatalf("changed lines %v, want [9]", changed)
	}
	nonceLine := strings.Split(out, "\n")[8]
	if !regexp.MustCompile(`^Nonce: [a-zA-Z0-9]{8,}$`).MatchString(nonceLine) {
		t.Fatalf("nonce line %q not in repaired shape", nonceLine)
	}
	if nonceLine == "Nonce: 12345678" {
		t.Fatal("nonce was not regenerated")
	}
	if got := len(strings.TrimPrefix(nonceLine, "Nonce: ")); got != generatedNonceLen {
		t.Fatalf("generated nonce length = %d, want %d", got, generatedNonceLen)
	}
}

func TestFixTimestamp(t *testing.T) {
	text := strings.Replace(mustSample(t, "weak_nonce"),
		"Issued At: 2025-03-02T11:30:00Z", "Issued At: 2025-03-02 11:30:00Z", 1)
	out, ok, err := FixTimestamp(NewContext(text), Diagnostic{
		Code:  CodeIssuedAtInvalidFormat,
		Field: string(siwe.FieldIssuedAt),
	})
	if err != nil {
		t.Fatalf("FixTimestamp: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	if changed := changedLines(t, text, out); len(changed) != 1 || changed[0] != 10 {
		t.Fatalf("changed lines %v, want [10]", changed)
	}
	if got := strings.Split(out, "\n")[9]; got != "Issued At: 2025-03-02T11:30:00Z" {
		t.Fatalf("issued at line = %q", got)
	}
}

func TestFixTimestampUnparsable(t *testing.T) {
	text := messageWith(func(fm *siwe.FieldMap) { fm.IssuedAt = "whenever" })
	out, ok, err := FixTimestamp(NewContext(text), Diagnostic{
		Code:  CodeIssuedAtInvalidFormat,
		Field: string(siwe.FieldIssuedAt),
	})
	if err != nil {
		t.Fatalf("FixTimestamp: %v", err)
	}
	if ok || out != text {
		t.Fatal("unparsable timestamp must come back unchanged")
	}
}

func TestFixMissingExpiration(t *testing.T) {
	text := mustSample(t, "clean")
	out, ok, err := FixMissingExpiration(NewContext(text), Diagnostic{Code: CodeExpirationTimeMissing})
	if err != nil {
		t.Fatalf("FixMissingExpiration: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	want := text + "\nExpiration Time: 2023-10-31T16:35:24Z"
	if out != want {
		t.Fatalf("repaired text:\n%s\nwant:\n%s", out, want)
	}
}

func TestFixMissingExpirationClockFallback(t *testing.T) {
	text := messageWith(func(fm *siwe.FieldMap) { fm.IssuedAt = "whenever" })
	ctx := NewContext(text)
	ctx.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	out, ok, err := FixMissingExpiration(ctx, Diagnostic{Code: CodeExpirationTimeMissing})
	if err != nil {
		t.Fatalf("FixMissingExpiration: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	if !strings.Contains(out, "Expiration Time: 2026-01-02T03:14:05Z") {
		t.Fatalf("expiration not derived from the injected clock:\n%s", out)
	}
}

func TestFixMissingExpirationAlreadyPresent(t *testing.T) {
	text := mustSample(t, "with_resources")
	out, ok, err := FixMissingExpiration(NewContext(text), Diagnostic{Code: CodeExpirationTimeMissing})
	if err != nil {
		t.Fatalf("FixMissingExpiration: %v", err)
	}
	if ok || out != text {
		t.Fatal("present expiration must not be rewritten")
	}
}

func TestFixURI(t *testing.T) {
	text := messageWith(func(fm *siwe.FieldMap) { fm.URI = "example.com/app" })
	out, ok, err := FixURI(NewContext(text), Diagnostic{Code: CodeURIInvalidFormat})
	if err != nil {
		t.Fatalf("FixURI: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	if changed := changedLines(t, text, out); len(changed) != 1 || changed[0] != 6 {
		t.Fatalf("changed lines %v, want [6]", changed)
	}
	if got := strings.Split(out, "\n")[5]; got != "URI: https://example.com/app" {
		t.Fatalf("uri line = %q", got)
	}
}

func TestFixURIProtocolRelative(t *testing.T) {
	text := messageWith(func(fm *siwe.FieldMap) { fm.URI = "//cdn.example.com/app" })
	out, _, err := FixURI(NewContext(text), Diagnostic{Code: CodeURIInvalidFormat})
	if err != nil {
		t.Fatalf("FixURI: %v", err)
	}
	if !strings.Contains(out, "URI: https://cdn.example.com/app") {
		t.Fatalf("protocol-relative uri not repaired:\n%s", out)
	}
}

func TestFixStatement(t *testing.T) {
	text := messageWith(func(fm *siwe.FieldMap) { fm.Statement = "Sign in to our\nWeb3 application." })
	out, ok, err := FixStatement(NewContext(text), Diagnostic{Code: CodeStatementLineBreaks})
	if err != nil {
		t.Fatalf("FixStatement: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	want := messageWith(func(fm *siwe.FieldMap) { fm.Statement = "Sign in to our Web3 application." })
	if out != want {
		t.Fatalf("repaired text:\n%s\nwant:\n%s", out, want)
	}
}

func TestFixLineBreaksDelegates(t *testing.T) {
	text := mustSample(t, "extra_blank_lines")
	out, ok, err := FixLineBreaks(NewContext(text), Diagnostic{Code: siwe.CodeExtraLineBreakHeaderAddress})
	if err != nil {
		t.Fatalf("FixLineBreaks: %v", err)
	}
	if !ok {
		t.Fatal("fix not applied")
	}
	if want := siwe.FixLineBreaks(text); out != want {
		t.Fatalf("repaired text:\n%s\nwant:\n%s", out, want)
	}

	again, ok, err := FixLineBreaks(NewContext(out), Diagnostic{Code: siwe.CodeExtraLineBreakHeaderAddress})
	if err != nil {
		t.Fatalf("FixLineBreaks: %v", err)
	}
	if ok || again != out {
		t.Fatal("canonical text must pass through unchanged")
	}
}
