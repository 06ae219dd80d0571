package siwe

import (
	"fmt"
	"regexp"
	"strings"
)

// addressLinePattern recognizes a line whose content looks like an Ethereum
// address, with or without the 0x prefix. Surrounding whitespace is tolerated
// so a trailing-space defect does not hide the anchor.
var addressLinePattern = regexp.MustCompile(`^\s*(0x)?[0-9a-fA-F]{40}\s*$`)

// Structure records the line index of every structural anchor, or -1 when the
// anchor is absent. Indices are 0-based. Structure is derived state and must
// be recomputed whenever the text may have changed; do not cache it across
// edits.
type Structure struct {
	Header       int
	Address      int
	Statement    int
	StatementEnd int
	Fields       map[Field]int
	Resources    int
}

// FieldLineIndex returns the anchor line of f, or -1.
func (st Structure) FieldLineIndex(f Field) int {
	if idx, ok := st.Fields[f]; ok {
		return idx
	}
	return -1
}

// ScanStructure locates every anchor by pattern in a single pass over the
// lines. Unlike the parser it is position-independent: a field line is found
// wherever it sits, which is exactly what makes spacing defects diagnosable
// after positional parsing has already been thrown off.
//
// The statement anchor is the first non-empty, non-anchor line after the
// address (or header, when no address is recognizable) and before the first
// field line; StatementEnd extends it over the contiguous non-empty run so a
// statement broken across lines is still treated as one block.
func ScanStructure(lines []string) Structure {
	st := Structure{
		Header:       -1,
		Address:      -1,
		Statement:    -1,
		StatementEnd: -1,
		Resources:    -1,
		Fields:       make(map[Field]int, len(RequiredFieldLines)+len(OptionalFieldLines)),
	}
	for _, fl := range AllFieldLines() {
		st.Fields[fl.Field] = -1
	}
	for idx, line := range lines {
		if st.Header < 0 && strings.HasSuffix(line, HeaderSuffix) {
			st.Header = idx
			continue
		}
		if st.Resources < 0 && strings.TrimRight(line, " \t") == ResourcesHeader {
			st.Resources = idx
			continue
		}
		if fl, ok := fieldLineFor(line); ok {
			if st.Fields[fl.Field] < 0 {
				st.Fields[fl.Field] = idx
			}
			continue
		}
		if st.Address < 0 && idx > st.Header && addressLinePattern.MatchString(line) {
			st.Address = idx
		}
	}

	firstField := len(lines)
	for _, fl := range AllFieldLines() {
		if p := st.Fields[fl.Field]; p >= 0 && p < firstField {
			firstField = p
		}
	}
	if st.Resources >= 0 && st.Resources < firstField {
		firstField = st.Resources
	}
	start := st.Header
	if st.Address > start {
		start = st.Address
	}
	for idx := start + 1; idx < firstField; idx++ {
		if blankLine(lines[idx]) {
			if st.Statement >= 0 {
				break
			}
			continue
		}
		if st.Statement < 0 {
			st.Statement = idx
		}
		st.StatementEnd = idx
	}
	return st
}

// StructureIssue describes one blank-line or whitespace defect. Line and
// Column are 1-based.
type StructureIssue struct {
	Code    string
	Line    int
	Column  int
	Message string
}

// ValidateLineBreaks checks the blank-line grammar against freshly scanned
// anchors and reports every violation. Boundary checks only run when both
// anchors of a boundary were found; whitespace checks always run.
func ValidateLineBreaks(lines []string) []StructureIssue {
	st := ScanStructure(lines)
	var issues []StructureIssue

	// No blank lines between header and address.
	if st.Header >= 0 && st.Address > st.Header {
		if idxs := blankIndices(lines, st.Header, st.Address); len(idxs) > 0 {
			issues = append(issues, StructureIssue{
				Code:    CodeExtraLineBreakHeaderAddress,
				Line:    idxs[0] + 1,
				Column:  1,
				Message: fmt.Sprintf("%d blank line(s) between header and address, expected 0", len(idxs)),
			})
		}
	}

	// Exactly one blank line between address and statement.
	if st.Statement >= 0 {
		prev := st.Address
		if prev < 0 {
			prev = st.Header
		}
		if prev >= 0 && st.Statement > prev {
			if len(blankIndices(lines, prev, st.Statement)) == 0 {
				issues = append(issues, StructureIssue{
					Code:    CodeMissingLineBreakAddressStatement,
					Line:    st.Statement + 1,
					Column:  1,
					Message: "no blank line between address and statement, expected 1",
				})
			}
		}
	}

	// One blank line between statement and the URI field, or two between the
	// address and the URI field when no statement is present: the grammar
	// reserves the statement slot even when the statement is omitted.
	if uri := st.FieldLineIndex(FieldURI); uri >= 0 {
		last := st.StatementEnd
		expected := 1
		if last < 0 {
			last = st.Address
			if last < 0 {
				last = st.Header
			}
			expected = 2
		}
		if last >= 0 && uri > last {
			idxs := blankIndices(lines, last, uri)
			switch n := len(idxs); {
			case n < expected && expected == 2:
				issues = append(issues, StructureIssue{
					Code:    CodeMissingLineBreakNoStatement,
					Line:    uri + 1,
					Column:  1,
					Message: fmt.Sprintf("%d blank line(s) before the URI field, expected 2 when no statement is present", n),
				})
			case n < expected:
				issues = append(issues, StructureIssue{
					Code:    CodeMissingLineBreakStatementURI,
					Line:    uri + 1,
					Column:  1,
					Message: fmt.Sprintf("%d blank line(s) between statement and URI field, expected 1", n),
				})
			case n > expected:
				issues = append(issues, StructureIssue{
					Code:    CodeExtraLineBreaksBeforeURI,
					Line:    idxs[expected] + 1,
					Column:  1,
					Message: fmt.Sprintf("%d blank lines before the URI field, expected %d", n, expected),
				})
			}
		}
	}

	// No blank lines between consecutive required fields. Pairs advance over
	// absent anchors so a single missing line does not mask a spacing defect
	// between its neighbors.
	found := foundInOrder(st, RequiredFieldLines)
	for k := 0; k+1 < len(found); k++ {
		a, b := found[k], found[k+1]
		if idxs := blankIndices(lines, st.Fields[a.Field], st.Fields[b.Field]); len(idxs) > 0 {
			issues = append(issues, StructureIssue{
				Code:    CodeExtraLineBreaksBetweenFields,
				Line:    idxs[0] + 1,
				Column:  1,
				Message: fmt.Sprintf("%d blank line(s) between %s and %s fields, expected 0", len(idxs), fieldLabel(a), fieldLabel(b)),
			})
		}
	}

	// No blank lines before an optional field that directly follows another
	// field line.
	for _, fl := range OptionalFieldLines {
		b := st.FieldLineIndex(fl.Field)
		if b < 0 {
			continue
		}
		prev := -1
		for _, other := range AllFieldLines() {
			if p := st.Fields[other.Field]; p >= 0 && p < b && p > prev {
				prev = p
			}
		}
		if prev < 0 {
			continue
		}
		idxs := blankIndices(lines, prev, b)
		if len(idxs) > 0 && len(idxs) == b-prev-1 {
			issues = append(issues, StructureIssue{
				Code:    CodeExtraLineBreaksBeforeOptionalField,
				Line:    idxs[0] + 1,
				Column:  1,
				Message: fmt.Sprintf("%d blank line(s) before optional %s field, expected 0", len(idxs), fieldLabel(fl)),
			})
		}
	}

	// Trailing whitespace on any line.
	for idx, line := range lines {
		if trimmed := strings.TrimRight(line, " \t"); trimmed != line {
			issues = append(issues, StructureIssue{
				Code:    CodeTrailingWhitespace,
				Line:    idx + 1,
				Column:  len(trimmed) + 1,
				Message: "line has trailing whitespace",
			})
		}
	}

	// Runs of more than two blank lines, one issue per run.
	run := 0
	for idx := 0; idx <= len(lines); idx++ {
		if idx < len(lines) && blankLine(lines[idx]) {
			run++
			continue
		}
		if run > 2 {
			issues = append(issues, StructureIssue{
				Code:    CodeTooManyConsecutiveEmptyLines,
				Line:    idx - run + 1,
				Column:  1,
				Message: fmt.Sprintf("%d consecutive blank lines, at most 2 allowed", run),
			})
		}
		run = 0
	}
	return issues
}

// FixLineBreaks rebuilds the message with canonical blank-line placement:
// trailing whitespace is stripped from every line, blank runs at recognized
// anchor boundaries are replaced by the exact required count, and any other
// blank run collapses to at most two lines. Content lines keep their original
// relative order and bytes. The transformation is idempotent.
func FixLineBreaks(text string) string {
	lines := []string(SplitMessage(text))
	stripped := make([]string, len(lines))
	for i, line := range lines {
		stripped[i] = strings.TrimRight(line, " \t")
	}
	st := ScanStructure(stripped)

	var out []string
	pending := 0
	prev := -1
	for idx, line := range stripped {
		if blankLine(line) {
			pending++
			continue
		}
		n := min(pending, 2)
		if prev >= 0 {
			if want, boundary := boundaryBlanks(prev, idx, st); boundary {
				n = want
			}
		}
		for k := 0; k < n; k++ {
			out = append(out, "")
		}
		out = append(out, line)
		prev = idx
		pending = 0
	}
	// Trailing blank lines are dropped; generated messages carry none.
	return strings.Join(out, "\n")
}

// boundaryBlanks reports the required blank count between two consecutive
// content lines when they form a recognized anchor boundary.
func boundaryBlanks(a, b int, st Structure) (int, bool) {
	if a == st.Header && b == st.Address {
		return 0, true
	}
	if a == st.Address && b == st.Statement {
		return 1, true
	}
	if uri := st.FieldLineIndex(FieldURI); uri >= 0 && b == uri {
		if st.StatementEnd >= 0 && a == st.StatementEnd {
			return 1, true
		}
		if st.StatementEnd < 0 && (a == st.Address || (st.Address < 0 && a == st.Header)) {
			return 2, true
		}
	}
	if isFieldAnchor(a, st) && isFieldAnchor(b, st) {
		return 0, true
	}
	return 0, false
}

func isFieldAnchor(idx int, st Structure) bool {
	if idx < 0 {
		return false
	}
	for _, fl := range AllFieldLines() {
		if st.Fields[fl.Field] == idx {
			return true
		}
	}
	return false
}

// ReplaceFieldValue rewrites the one line (or, for the statement, the one
// contiguous span) owned by field f, leaving every other line byte-for-byte
// untouched. It reports false when the field's line cannot be located, in
// which case the text comes back unchanged.
func ReplaceFieldValue(text string, f Field, value string) (string, bool) {
	lines := []string(SplitMessage(text))
	st := ScanStructure(lines)
	switch f {
	case FieldDomain:
		if st.Header < 0 {
			return text, false
		}
		return RawMessage(lines).WithLine(st.Header, value+HeaderSuffix).String(), true
	case FieldAddress:
		if st.Address < 0 {
			return text, false
		}
		return RawMessage(lines).WithLine(st.Address, value).String(), true
	case FieldStatement:
		if st.Statement < 0 {
			return text, false
		}
		out := make([]string, 0, len(lines))
		out = append(out, lines[:st.Statement]...)
		out = append(out, value)
		out = append(out, lines[st.StatementEnd+1:]...)
		return strings.Join(out, "\n"), true
	}
	prefix := PrefixFor(f)
	if prefix == "" {
		return text, false
	}
	idx := st.FieldLineIndex(f)
	if idx < 0 {
		return text, false
	}
	return RawMessage(lines).WithLine(idx, prefix+value).String(), true
}

// InsertFieldLine adds a "Key: value" line for an absent field directly after
// the nearest preceding field anchor, keeping canonical field order. When the
// field already has a line the call behaves like ReplaceFieldValue.
func InsertFieldLine(text string, f Field, value string) (string, bool) {
	prefix := PrefixFor(f)
	if prefix == "" {
		return text, false
	}
	lines := []string(SplitMessage(text))
	st := ScanStructure(lines)
	if st.FieldLineIndex(f) >= 0 {
		return ReplaceFieldValue(text, f, value)
	}
	anchor := -1
	for _, fl := range AllFieldLines() {
		if fl.Field == f {
			break
		}
		if p := st.Fields[fl.Field]; p > anchor {
			anchor = p
		}
	}
	if anchor < 0 {
		return text, false
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:anchor+1]...)
	out = append(out, prefix+value)
	out = append(out, lines[anchor+1:]...)
	return strings.Join(out, "\n"), true
}

// blankIndices returns the indices of blank lines strictly between a and b.
func blankIndices(lines []string, a, b int) []int {
	var idxs []int
	for i := a + 1; i < b && i < len(lines); i++ {
		if i >= 0 && blankLine(lines[i]) {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func foundInOrder(st Structure, table []FieldLine) []FieldLine {
	var found []FieldLine
	last := -1
	for _, fl := range table {
		p := st.Fields[fl.Field]
		if p < 0 || p <= last {
			continue
		}
		found = append(found, fl)
		last = p
	}
	return found
}

func fieldLineFor(line string) (FieldLine, bool) {
	for _, fl := range AllFieldLines() {
		if strings.HasPrefix(line, fl.Prefix) {
			return fl, true
		}
	}
	return FieldLine{}, false
}

func fieldLabel(fl FieldLine) string {
	return strings.TrimSuffix(fl.Prefix, ": ")
}
