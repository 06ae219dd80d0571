package siwe

import "testing"

func TestSamplesHaveDistinctNames(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range Samples() {
		if s.Name == "" || s.Text == "" {
			t.Fatalf("sample %q is incomplete", s.Name)
		}
		if seen[s.Name] {
			t.Fatalf("duplicate sample name %q", s.Name)
		}
		seen[s.Name] = true
	}
}

// Most defect samples still parse positionally; only the spacing-mangled one
// throws the parser off. The distinction matters because rule checks rely on
// the parsed fields being available for the value-level samples.
func TestSamplesParseBehavior(t *testing.T) {
	wantValid := map[string]bool{
		"clean":                true,
		"missing_blank_line":   true,
		"no_statement_spacing": true,
		"weak_nonce":           true,
		"missing_0x_prefix":    true,
		"http_uri":             true,
		"extra_blank_lines":    false,
		"with_resources":       true,
	}
	for _, s := range Samples() {
		want, ok := wantValid[s.Name]
		if !ok {
			t.Fatalf("sample %q has no expectation; update this test", s.Name)
		}
		if got := Parse(s.Text).Valid; got != want {
			t.Errorf("sample %q: parse valid = %v, want %v", s.Name, got, want)
		}
	}
}
