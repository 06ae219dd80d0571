package siwe

import "strings"

// Field identifies one logical slot of an EIP-4361 message.
type Field string

const (
	FieldDomain         Field = "domain"
	FieldAddress        Field = "address"
	FieldStatement      Field = "statement"
	FieldURI            Field = "uri"
	FieldVersion        Field = "version"
	FieldChainID        Field = "chainId"
	FieldNonce          Field = "nonce"
	FieldIssuedAt       Field = "issuedAt"
	FieldExpirationTime Field = "expirationTime"
	FieldNotBefore      Field = "notBefore"
	FieldRequestID      Field = "requestId"
	FieldResources      Field = "resources"
)

// HeaderSuffix is the fixed tail of the first message line; everything before
// it is the domain, captured verbatim.
const HeaderSuffix = " wants you to sign in with your Ethereum account:"

// ResourcesHeader introduces the resource list; each entry follows on its own
// line prefixed with ResourceItemPrefix.
const (
	ResourcesHeader    = "Resources:"
	ResourceItemPrefix = "- "
)

// FieldLine couples a key:value line prefix with the field it populates. The
// parser and the line-break analyzer both consume the same ordered tables so
// their notion of the grammar cannot drift apart.
type FieldLine struct {
	Prefix   string
	Field    Field
	Required bool
}

// RequiredFieldLines lists the five mandatory key:value lines in the exact
// order EIP-4361 prescribes.
var RequiredFieldLines = []FieldLine{
	{Prefix: "URI: ", Field: FieldURI, Required: true},
	{Prefix: "Version: ", Field: FieldVersion, Required: true},
	{Prefix: "Chain ID: ", Field: FieldChainID, Required: true},
	{Prefix: "Nonce: ", Field: FieldNonce, Required: true},
	{Prefix: "Issued At: ", Field: FieldIssuedAt, Required: true},
}

// OptionalFieldLines lists the optional key:value lines in canonical order.
var OptionalFieldLines = []FieldLine{
	{Prefix: "Expiration Time: ", Field: FieldExpirationTime},
	{Prefix: "Not Before: ", Field: FieldNotBefore},
	{Prefix: "Request ID: ", Field: FieldRequestID},
}

// AllFieldLines returns required followed by optional field lines.
func AllFieldLines() []FieldLine {
	out := make([]FieldLine, 0, len(RequiredFieldLines)+len(OptionalFieldLines))
	out = append(out, RequiredFieldLines...)
	out = append(out, OptionalFieldLines...)
	return out
}

// RequiredFields enumerates the seven fields a complete message must carry.
var RequiredFields = []Field{
	FieldDomain,
	FieldAddress,
	FieldURI,
	FieldVersion,
	FieldChainID,
	FieldNonce,
	FieldIssuedAt,
}

// PrefixFor returns the key:value prefix owned by the field, or "" when the
// field is positional (domain, address, statement) or list-valued.
func PrefixFor(f Field) string {
	for _, fl := range AllFieldLines() {
		if fl.Field == f {
			return fl.Prefix
		}
	}
	return ""
}

// MissingFieldCode maps a required key:value field to the diagnostic code the
// parser emits when the line is absent.
func MissingFieldCode(f Field) string {
	switch f {
	case FieldURI:
		return CodeMissingURI
	case FieldVersion:
		return CodeMissingVersion
	case FieldChainID:
		return CodeMissingChainID
	case FieldNonce:
		return CodeMissingNonce
	case FieldIssuedAt:
		return CodeMissingIssuedAt
	}
	return ""
}

// RawMessage is an ordered sequence of message lines. Transformations always
// build a fresh RawMessage; existing values are never mutated in place.
type RawMessage []string

// SplitMessage breaks text into lines on line-feed. Carriage returns are kept
// as part of the line so the original bytes survive a round trip.
func SplitMessage(text string) RawMessage {
	return RawMessage(strings.Split(text, "\n"))
}

// String joins the lines back into message text without a trailing newline.
func (m RawMessage) String() string {
	return strings.Join([]string(m), "\n")
}

// Clone returns an independent copy of the lines.
func (m RawMessage) Clone() RawMessage {
	out := make(RawMessage, len(m))
	copy(out, m)
	return out
}

// WithLine returns a copy of the message with line idx replaced.
func (m RawMessage) WithLine(idx int, line string) RawMessage {
	out := m.Clone()
	if idx >= 0 && idx < len(out) {
		out[idx] = line
	}
	return out
}

// FieldMap holds the decoded value of every message field. Absent optional
// fields are empty strings; resources is an ordered list.
type FieldMap struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	Version        string
	ChainID        string
	Nonce          string
	IssuedAt       string
	ExpirationTime string
	NotBefore      string
	RequestID      string
	Resources      []string
}

// Value returns the scalar value stored under f. Resources is list-valued and
// always reports "".
func (fm FieldMap) Value(f Field) string {
	switch f {
	case FieldDomain:
		return fm.Domain
	case FieldAddress:
		return fm.Address
	case FieldStatement:
		return fm.Statement
	case FieldURI:
		return fm.URI
	case FieldVersion:
		return fm.Version
	case FieldChainID:
		return fm.ChainID
	case FieldNonce:
		return fm.Nonce
	case FieldIssuedAt:
		return fm.IssuedAt
	case FieldExpirationTime:
		return fm.ExpirationTime
	case FieldNotBefore:
		return fm.NotBefore
	case FieldRequestID:
		return fm.RequestID
	}
	return ""
}

// SetValue stores a scalar value under f. Resources is ignored; callers append
// to the slice directly.
func (fm *FieldMap) SetValue(f Field, v string) {
	switch f {
	case FieldDomain:
		fm.Domain = v
	case FieldAddress:
		fm.Address = v
	case FieldStatement:
		fm.Statement = v
	case FieldURI:
		fm.URI = v
	case FieldVersion:
		fm.Version = v
	case FieldChainID:
		fm.ChainID = v
	case FieldNonce:
		fm.Nonce = v
	case FieldIssuedAt:
		fm.IssuedAt = v
	case FieldExpirationTime:
		fm.ExpirationTime = v
	case FieldNotBefore:
		fm.NotBefore = v
	case FieldRequestID:
		fm.RequestID = v
	}
}

// MissingRequired reports the required fields that are absent or empty.
func (fm FieldMap) MissingRequired() []Field {
	var missing []Field
	for _, f := range RequiredFields {
		if fm.Value(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every required field is present and non-empty.
func (fm FieldMap) Complete() bool {
	return len(fm.MissingRequired()) == 0
}

// ParseIssue records one grammar-level failure discovered while parsing.
// Line and Column are 1-based.
type ParseIssue struct {
	Code    string
	Field   Field
	Line    int
	Column  int
	Message string
}

// ParsedMessage is the parser's complete output: the decoded fields, the
// original lines, and any grammar issues. Valid holds iff no issues were
// recorded.
type ParsedMessage struct {
	Fields FieldMap
	Raw    RawMessage
	Issues []ParseIssue
	Valid  bool
}
