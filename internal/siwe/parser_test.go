package siwe

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCleanMessage(t *testing.T) {
	sample, ok := SampleByName("clean")
	if !ok {
		t.Fatalf("clean sample not found")
	}
	pm := Parse(sample.Text)
	if !pm.Valid {
		t.Fatalf("expected valid parse, got issues: %+v", pm.Issues)
	}
	want := FieldMap{
		Domain:    "example.com",
		Address:   "0x742d35Cc6C4C1Ca5d428d9eE0e9B1E1234567890",
		Statement: "Sign in to our Web3 application.",
		URI:       "https://example.com",
		Version:   "1",
		ChainID:   "1",
		Nonce:     "a1B2c3D4e5F6g7H8",
		IssuedAt:  "2023-10-31T16:25:24Z",
	}
	if diff := cmp.Diff(want, pm.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGenerateRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		fields FieldMap
	}{
		{
			name: "with statement",
			fields: FieldMap{
				Domain:    "example.com",
				Address:   "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
				Statement: "Sign in to continue.",
				URI:       "https://example.com",
				Version:   "1",
				ChainID:   "1",
				Nonce:     "a1B2c3D4e5F6g7H8",
				IssuedAt:  "2025-03-02T09:15:00Z",
			},
		},
		{
			name: "without statement",
			fields: FieldMap{
				Domain:   "app.example.net",
				Address:  "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
				URI:      "https://app.example.net",
				Version:  "1",
				ChainID:  "10",
				Nonce:    "qW3eRt5yUi7oPa9S",
				IssuedAt: "2025-03-02T10:00:00Z",
			},
		},
		{
			name: "all optional fields and resources",
			fields: FieldMap{
				Domain:         "forum.example.org",
				Address:        "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
				Statement:      "Post and vote on community proposals.",
				URI:            "https://forum.example.org",
				Version:        "1",
				ChainID:        "8453",
				Nonce:          "Kp4mXz8cVb2nQw6J",
				IssuedAt:       "2025-03-02T14:00:00Z",
				ExpirationTime: "2025-03-02T14:10:00Z",
				NotBefore:      "2025-03-02T14:00:00Z",
				RequestID:      "7f3d9a2e",
				Resources: []string{
					"https://forum.example.org/proposals",
					"ipfs://QmXoypizjW3WknFiJnKLwHCnL72vedxjQkDDP1mXWo6uco",
				},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := GenerateMessage(tc.fields)
			pm := Parse(text)
			if !pm.Valid {
				t.Fatalf("generated message did not parse cleanly: %+v", pm.Issues)
			}
			if diff := cmp.Diff(tc.fields, pm.Fields); diff != "" {
				t.Fatalf("round trip changed fields (-want +got):\n%s", diff)
			}
			// A second generation from the parsed fields must reproduce the text.
			if again := GenerateMessage(pm.Fields); again != text {
				t.Fatalf("second generation differs:\n%q\nvs\n%q", again, text)
			}
		})
	}
}

func TestGenerateMessageReservesStatementSlot(t *testing.T) {
	fields := FieldMap{
		Domain:   "app.example.net",
		Address:  "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		URI:      "https://app.example.net",
		Version:  "1",
		ChainID:  "10",
		Nonce:    "qW3eRt5yUi7oPa9S",
		IssuedAt: "2025-03-02T10:00:00Z",
	}
	lines := strings.Split(GenerateMessage(fields), "\n")
	if lines[2] != "" || lines[3] != "" {
		t.Fatalf("expected two blank lines after the address, got %q and %q", lines[2], lines[3])
	}
	if !strings.HasPrefix(lines[4], "URI: ") {
		t.Fatalf("expected URI line after the reserved statement slot, got %q", lines[4])
	}
}

func TestParseInvalidHeader(t *testing.T) {
	pm := Parse("not a sign-in message\n0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	if pm.Valid {
		t.Fatalf("expected invalid parse")
	}
	issue, ok := findIssue(pm.Issues, CodeInvalidHeader)
	if !ok {
		t.Fatalf("missing %s issue, got %+v", CodeInvalidHeader, pm.Issues)
	}
	if issue.Line != 1 || issue.Column != 1 {
		t.Fatalf("header issue at %d:%d, want 1:1", issue.Line, issue.Column)
	}
}

func TestParseMissingURILine(t *testing.T) {
	text := strings.Join([]string{
		"example.com wants you to sign in with your Ethereum account:",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"",
		"Sign in.",
		"",
		"Version: 1",
		"Chain ID: 1",
		"Nonce: abcdefgh12345678",
		"Issued At: 2025-01-01T00:00:00Z",
	}, "\n")
	pm := Parse(text)
	if pm.Valid {
		t.Fatalf("expected invalid parse")
	}
	if len(pm.Issues) != 1 {
		t.Fatalf("expected exactly one issue, got %+v", pm.Issues)
	}
	issue := pm.Issues[0]
	if issue.Code != CodeMissingURI || issue.Line != 6 {
		t.Fatalf("got %s at line %d, want %s at line 6", issue.Code, issue.Line, CodeMissingURI)
	}
	// The later lines must still have been captured positionally.
	if pm.Fields.Version != "1" || pm.Fields.IssuedAt != "2025-01-01T00:00:00Z" {
		t.Fatalf("later fields lost after missing line: %+v", pm.Fields)
	}
	if got := pm.Fields.MissingRequired(); len(got) != 1 || got[0] != FieldURI {
		t.Fatalf("MissingRequired = %v, want [uri]", got)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	pm := Parse("example.com wants you to sign in with your Ethereum account:")
	if pm.Valid {
		t.Fatalf("expected invalid parse")
	}
	if len(pm.Issues) != 6 {
		t.Fatalf("expected address plus five required-field issues, got %+v", pm.Issues)
	}
	if pm.Issues[0].Code != CodeMissingAddress || pm.Issues[0].Line != 2 {
		t.Fatalf("first issue = %+v, want %s at line 2", pm.Issues[0], CodeMissingAddress)
	}
}

func TestParseStatementPrefixAmbiguity(t *testing.T) {
	// A statement that begins with the URI prefix is indistinguishable from
	// the field line and must parse as the field.
	text := strings.Join([]string{
		"example.com wants you to sign in with your Ethereum account:",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"",
		"URI: https://example.com",
		"Version: 1",
		"Chain ID: 1",
		"Nonce: abcdefgh12345678",
		"Issued At: 2025-01-01T00:00:00Z",
	}, "\n")
	pm := Parse(text)
	if !pm.Valid {
		t.Fatalf("expected valid parse, got %+v", pm.Issues)
	}
	if pm.Fields.Statement != "" {
		t.Fatalf("line was captured as statement %q, want URI field", pm.Fields.Statement)
	}
	if pm.Fields.URI != "https://example.com" {
		t.Fatalf("URI = %q", pm.Fields.URI)
	}
}

func TestParseToleratesBlankRunsBetweenFields(t *testing.T) {
	text := strings.Join([]string{
		"example.com wants you to sign in with your Ethereum account:",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"",
		"Sign in.",
		"",
		"URI: https://example.com",
		"Version: 1",
		"",
		"Chain ID: 1",
		"Nonce: abcdefgh12345678",
		"Issued At: 2025-01-01T00:00:00Z",
	}, "\n")
	pm := Parse(text)
	if !pm.Valid {
		t.Fatalf("stray blank line broke field capture: %+v", pm.Issues)
	}
	if pm.Fields.ChainID != "1" {
		t.Fatalf("ChainID = %q", pm.Fields.ChainID)
	}
}

func TestParseResources(t *testing.T) {
	sample, ok := SampleByName("with_resources")
	if !ok {
		t.Fatalf("with_resources sample not found")
	}
	pm := Parse(sample.Text)
	if !pm.Valid {
		t.Fatalf("expected valid parse, got %+v", pm.Issues)
	}
	if pm.Fields.ExpirationTime == "" || pm.Fields.NotBefore == "" || pm.Fields.RequestID == "" {
		t.Fatalf("optional fields not captured: %+v", pm.Fields)
	}
	want := []string{
		"https://forum.example.org/proposals",
		"ipfs://QmXoypizjW3WknFiJnKLwHCnL72vedxjQkDDP1mXWo6uco",
	}
	if diff := cmp.Diff(want, pm.Fields.Resources); diff != "" {
		t.Fatalf("resources mismatch (-want +got):\n%s", diff)
	}
}

func findIssue(issues []ParseIssue, code string) (ParseIssue, bool) {
	for _, issue := range issues {
		if issue.Code == code {
			return issue, true
		}
	}
	return ParseIssue{}, false
}
