package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/siwegate/internal/rules"
	"example.com/siwegate/internal/siwe"
)

func validateSample(t *testing.T, name string) rules.ValidationResult {
	t.Helper()
	s, ok := siwe.SampleByName(name)
	if !ok {
		t.Fatalf("sample %q not found", name)
	}
	res, err := rules.Validate(s.Text, rules.Options{Profile: rules.ProfileStrict})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return res
}

func TestBuildAndRoundTrip(t *testing.T) {
	res := validateSample(t, "clean")
	rep := Build("clean.txt", rules.ProfileStrict, "siwegate-builtin-strict", res, nil)

	if !rep.IsValid {
		t.Fatalf("clean sample reported invalid: %+v", rep.Diagnostics)
	}
	if rep.ChainId != "1" || rep.Network != "Ethereum Mainnet" {
		t.Fatalf("chain resolution: id=%q network=%q", rep.ChainId, rep.Network)
	}
	if rep.Summary.Errors != 0 || rep.Summary.Total != len(rep.Diagnostics) {
		t.Fatalf("summary %+v does not match %d diagnostics", rep.Summary, len(rep.Diagnostics))
	}
	if rep.GeneratedAt.IsZero() {
		t.Fatal("generatedAt not stamped")
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := SaveJSON(rep, path); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	loaded, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if loaded.Input != rep.Input || loaded.Profile != rep.Profile || loaded.RulePackId != rep.RulePackId {
		t.Fatalf("loaded %+v", loaded)
	}
	if !loaded.GeneratedAt.Equal(rep.GeneratedAt) {
		t.Fatalf("generatedAt drifted: %s vs %s", loaded.GeneratedAt, rep.GeneratedAt)
	}
	if len(loaded.Diagnostics) != len(rep.Diagnostics) {
		t.Fatalf("diagnostics did not round-trip: %d vs %d", len(loaded.Diagnostics), len(rep.Diagnostics))
	}
}

func TestBuildUnknownChain(t *testing.T) {
	text := siwe.GenerateMessage(siwe.FieldMap{
		Domain:   "example.com",
		Address:  "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		URI:      "https://example.com",
		Version:  "1",
		ChainID:  "424242",
		Nonce:    "a1B2c3D4e5F6g7H8",
		IssuedAt: "2025-03-02T11:30:00Z",
	})
	res, err := rules.Validate(text, rules.Options{Profile: rules.ProfileStrict})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rep := Build("stdin", rules.ProfileStrict, "", res, nil)
	if rep.ChainId != "424242" {
		t.Fatalf("chainId = %q", rep.ChainId)
	}
	if rep.Network != "" {
		t.Fatalf("unknown chain resolved to %q", rep.Network)
	}
}

func TestDigest(t *testing.T) {
	res := validateSample(t, "weak_nonce")
	rep := Build("weak_nonce.txt", rules.ProfileStrict, "", res, nil)

	d1, err := Digest(rep)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	d2, err := Digest(rep)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest unstable: %s vs %s", d1, d2)
	}
	if !digestPattern.MatchString(d1) {
		t.Fatalf("digest %q not in sha256:<hex> form", d1)
	}

	other := rep
	other.Input = "renamed.txt"
	d3, err := Digest(other)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d3 == d1 {
		t.Fatal("digest ignores report content")
	}
}

func TestDigestQR(t *testing.T) {
	res := validateSample(t, "clean")
	rep := Build("clean.txt", rules.ProfileStrict, "", res, nil)

	png, err := DigestQR(rep, 0)
	if err != nil {
		t.Fatalf("DigestQR: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("output is not a PNG")
	}

	path := filepath.Join(t.TempDir(), "digest.png")
	if err := SaveDigestQR(rep, path, 128); err != nil {
		t.Fatalf("SaveDigestQR: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("qr file missing or empty: %v", err)
	}
}

func TestSavePDF(t *testing.T) {
	res := validateSample(t, "weak_nonce")
	rep := Build("weak_nonce.txt", rules.ProfileStrict, "siwegate-builtin-strict", res, nil)

	for _, lang := range []Language{LangEnglish, LangTurkish} {
		path := filepath.Join(t.TempDir(), string(lang)+".pdf")
		if err := SavePDF(rep, path, lang); err != nil {
			t.Fatalf("SavePDF(%s): %v", lang, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Fatalf("output for %s is not a PDF", lang)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"", LangEnglish, false},
		{"en", LangEnglish, false},
		{"EN-US", LangEnglish, false},
		{"tr", LangTurkish, false},
		{"Turkish", LangTurkish, false},
		{"xx", LangEnglish, true},
	}
	for _, tc := range tests {
		got, err := ParseLanguage(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLanguage(%q) err = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLanguage(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestTranslatorFallback(t *testing.T) {
	tr := NewTranslator(Language("de"))
	if tr.Lang() != LangEnglish {
		t.Fatalf("unsupported language resolved to %s", tr.Lang())
	}
	if got := tr.T("report.title"); got != "Message Validation Report" {
		t.Fatalf("T(report.title) = %q", got)
	}

	turkish := NewTranslator(LangTurkish)
	if got := turkish.T("summary.pass"); got != "GEÇTİ" {
		t.Fatalf("T(summary.pass) = %q", got)
	}
	if got := turkish.T("no.such.key"); got != "no.such.key" {
		t.Fatalf("missing key resolved to %q", got)
	}
	if !strings.Contains(turkish.Format("summary.total"), "Toplam") {
		t.Fatalf("Format lost localization")
	}
}
