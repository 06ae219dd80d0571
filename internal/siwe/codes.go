package siwe

// Diagnostic codes produced at the grammar layer. Codes are the stable
// machine-readable contract; message text may change between releases, codes
// may not.
const (
	CodeInvalidHeader   = "INVALID_HEADER"
	CodeMissingAddress  = "MISSING_ADDRESS"
	CodeMissingURI      = "MISSING_URI"
	CodeMissingVersion  = "MISSING_VERSION"
	CodeMissingChainID  = "MISSING_CHAIN_ID"
	CodeMissingNonce    = "MISSING_NONCE"
	CodeMissingIssuedAt = "MISSING_ISSUED_AT"
)

// Diagnostic codes produced by the line-break analyzer.
const (
	CodeExtraLineBreakHeaderAddress        = "EXTRA_LINE_BREAK_HEADER_ADDRESS"
	CodeMissingLineBreakAddressStatement   = "MISSING_LINE_BREAK_ADDRESS_STATEMENT"
	CodeMissingLineBreakStatementURI       = "MISSING_LINE_BREAK_STATEMENT_URI"
	CodeMissingLineBreakNoStatement        = "MISSING_LINE_BREAK_NO_STATEMENT"
	CodeExtraLineBreaksBeforeURI           = "EXTRA_LINE_BREAKS_BEFORE_URI"
	CodeExtraLineBreaksBetweenFields       = "EXTRA_LINE_BREAKS_BETWEEN_FIELDS"
	CodeExtraLineBreaksBeforeOptionalField = "EXTRA_LINE_BREAKS_BEFORE_OPTIONAL_FIELD"
	CodeTrailingWhitespace                 = "TRAILING_WHITESPACE"
	CodeTooManyConsecutiveEmptyLines       = "TOO_MANY_CONSECUTIVE_EMPTY_LINES"
)

// StructureCodes lists the codes that indicate blank lines are missing or
// surplus at a grammar boundary. A diagnostic with one of these codes explains
// why positional parsing may have missed fields that are in fact present.
var StructureCodes = []string{
	CodeExtraLineBreakHeaderAddress,
	CodeMissingLineBreakAddressStatement,
	CodeMissingLineBreakStatementURI,
	CodeMissingLineBreakNoStatement,
	CodeExtraLineBreaksBeforeURI,
	CodeExtraLineBreaksBetweenFields,
	CodeExtraLineBreaksBeforeOptionalField,
}

// IsStructureCode reports whether code names a blank-line boundary violation.
func IsStructureCode(code string) bool {
	for _, c := range StructureCodes {
		if c == code {
			return true
		}
	}
	return false
}
