package siwe

import (
	"fmt"
	"strings"
)

// Parse decodes message text into a ParsedMessage. It never fails outright:
// malformed input degrades to ParseIssue entries while the cursor keeps moving
// forward, so partially broken messages still yield every field that can be
// recognized positionally.
//
// The pass is a single forward walk over the lines with no backtracking. Blank
// runs in front of a key:value line are tolerated so that spacing mistakes are
// reported by the line-break analyzer instead of cascading into spurious
// missing-field issues here.
func Parse(text string) ParsedMessage {
	raw := SplitMessage(text)
	lines := []string(raw)
	var (
		fields FieldMap
		issues []ParseIssue
	)
	i := 0

	// Header line: "<domain> wants you to sign in with your Ethereum account:".
	if i < len(lines) && strings.HasSuffix(lines[i], HeaderSuffix) {
		fields.Domain = strings.TrimSuffix(lines[i], HeaderSuffix)
	} else {
		issues = append(issues, ParseIssue{
			Code:    CodeInvalidHeader,
			Field:   FieldDomain,
			Line:    1,
			Column:  1,
			Message: fmt.Sprintf("first line must end with %q", HeaderSuffix),
		})
	}
	if i < len(lines) {
		i++
	}

	// Address line. The value is captured verbatim; shape checks belong to the
	// field validators.
	if i < len(lines) && !blankLine(lines[i]) {
		fields.Address = lines[i]
		i++
	} else {
		issues = append(issues, ParseIssue{
			Code:    CodeMissingAddress,
			Field:   FieldAddress,
			Line:    i + 1,
			Column:  1,
			Message: "expected an Ethereum address on the line after the header",
		})
	}

	// One separator blank line.
	if i < len(lines) && blankLine(lines[i]) {
		i++
	}

	// Optional statement: the first non-empty line that does not open the URI
	// field. A statement that itself begins with "URI: " is indistinguishable
	// from the field line and parses as the field; see the grammar notes in
	// structure.go.
	if i < len(lines) && !blankLine(lines[i]) && !strings.HasPrefix(lines[i], RequiredFieldLines[0].Prefix) {
		fields.Statement = lines[i]
		i++
		if i < len(lines) && blankLine(lines[i]) {
			i++
		}
	}

	// Required key:value lines in fixed order. A prefix mismatch records the
	// missing field and leaves the cursor where it is, so a single absent line
	// does not desynchronize the rest of the block.
	for _, fl := range RequiredFieldLines {
		for i < len(lines) && blankLine(lines[i]) {
			i++
		}
		if i < len(lines) && strings.HasPrefix(lines[i], fl.Prefix) {
			fields.SetValue(fl.Field, lines[i][len(fl.Prefix):])
			i++
			continue
		}
		issues = append(issues, ParseIssue{
			Code:    MissingFieldCode(fl.Field),
			Field:   fl.Field,
			Line:    i + 1,
			Column:  1,
			Message: fmt.Sprintf("required line %q not found", strings.TrimSuffix(fl.Prefix, " ")),
		})
	}

	// Optional key:value lines, skipped silently when absent.
	for _, fl := range OptionalFieldLines {
		for i < len(lines) && blankLine(lines[i]) {
			i++
		}
		if i < len(lines) && strings.HasPrefix(lines[i], fl.Prefix) {
			fields.SetValue(fl.Field, lines[i][len(fl.Prefix):])
			i++
		}
	}

	// Resource list.
	for i < len(lines) && blankLine(lines[i]) {
		i++
	}
	if i < len(lines) && lines[i] == ResourcesHeader {
		i++
		for i < len(lines) && strings.HasPrefix(lines[i], ResourceItemPrefix) {
			fields.Resources = append(fields.Resources, lines[i][len(ResourceItemPrefix):])
			i++
		}
	}

	return ParsedMessage{
		Fields: fields,
		Raw:    raw,
		Issues: issues,
		Valid:  len(issues) == 0,
	}
}

// GenerateMessage renders a FieldMap back into canonical message text. The
// output carries no trailing newline and re-parses to an equal FieldMap.
//
// When the statement is empty the grammar still reserves its slot, so the
// address block is followed by two blank lines instead of one.
func GenerateMessage(fields FieldMap) string {
	lines := []string{
		fields.Domain + HeaderSuffix,
		fields.Address,
		"",
	}
	if fields.Statement != "" {
		lines = append(lines, fields.Statement, "")
	} else {
		lines = append(lines, "")
	}
	for _, fl := range RequiredFieldLines {
		lines = append(lines, fl.Prefix+fields.Value(fl.Field))
	}
	for _, fl := range OptionalFieldLines {
		if v := fields.Value(fl.Field); v != "" {
			lines = append(lines, fl.Prefix+v)
		}
	}
	if len(fields.Resources) > 0 {
		lines = append(lines, ResourcesHeader)
		for _, r := range fields.Resources {
			lines = append(lines, ResourceItemPrefix+r)
		}
	}
	return strings.Join(lines, "\n")
}

func blankLine(line string) bool {
	return strings.TrimSpace(line) == ""
}
