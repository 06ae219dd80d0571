// Package smoke exercises the full pipeline across package seams: corpus
// message in, repaired text out, rendered artifacts inventoried and
// verified. Anything this catches is an integration fault the per-package
// suites cannot see.
package smoke

import (
	"os"
	"path/filepath"
	"testing"

	"example.com/siwegate/internal/manifest"
	"example.com/siwegate/internal/report"
	"example.com/siwegate/internal/rules"
	"example.com/siwegate/internal/siwe"
)

func TestRepairReportBundleVerify(t *testing.T) {
	dir := t.TempDir()
	s, ok := siwe.SampleByName("missing_0x_prefix")
	if !ok {
		t.Fatal("missing_0x_prefix sample missing")
	}

	fixed, applied, res, err := rules.AutoFix(s.Text, rules.AutoFixOptions{})
	if err != nil {
		t.Fatalf("AutoFix: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected at least one applied fix")
	}
	if !res.IsValid {
		t.Fatalf("repaired message still invalid: %+v", res.Errors)
	}

	rep := report.Build("missing_0x_prefix", rules.DefaultProfile, "", res, nil)
	if err := os.WriteFile(filepath.Join(dir, "message.txt"), []byte(fixed), 0o644); err != nil {
		t.Fatalf("write message: %v", err)
	}
	if err := report.SaveJSON(rep, filepath.Join(dir, "report.json")); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	if err := report.SavePDF(rep, filepath.Join(dir, "report.pdf"), report.LangEnglish); err != nil {
		t.Fatalf("SavePDF: %v", err)
	}
	if err := report.SaveDigestQR(rep, filepath.Join(dir, "digest.png"), 256); err != nil {
		t.Fatalf("SaveDigestQR: %v", err)
	}

	names := []string{"message.txt", "report.json", "report.pdf", "digest.png"}
	m, err := manifest.BuildDir(dir, names)
	if err != nil {
		t.Fatalf("BuildDir: %v", err)
	}
	if err := manifest.Save(m, filepath.Join(dir, "manifest.json")); err != nil {
		t.Fatalf("manifest.Save: %v", err)
	}

	loaded, err := manifest.Load(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatalf("manifest.Load: %v", err)
	}
	drifted, err := manifest.Verify(loaded, dir)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(drifted) != 0 {
		t.Fatalf("fresh bundle reports drift: %v", drifted)
	}

	if err := os.WriteFile(filepath.Join(dir, "message.txt"), []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	drifted, err = manifest.Verify(loaded, dir)
	if err != nil {
		t.Fatalf("Verify after tamper: %v", err)
	}
	if len(drifted) != 1 || drifted[0] != "message.txt" {
		t.Fatalf("expected message.txt to drift, got %v", drifted)
	}
}

func TestCorpusAcrossProfiles(t *testing.T) {
	for _, profile := range rules.Profiles() {
		for _, s := range siwe.Samples() {
			res, err := rules.Validate(s.Text, rules.Options{Profile: profile})
			if err != nil {
				t.Fatalf("Validate %s under %s: %v", s.Name, profile, err)
			}
			if s.Name == "clean" || s.Name == "with_resources" {
				if !res.IsValid {
					t.Fatalf("%s should pass %s: %+v", s.Name, profile, res.Errors)
				}
			}
		}
	}
}
