package rules

// Field validation codes (format category). Codes are the stable contract;
// consumers branch on them, never on message text.
const (
	CodeDomainInvalidFormat         = "DOMAIN_INVALID_FORMAT"
	CodeAddressInvalidFormat        = "ADDRESS_INVALID_FORMAT"
	CodeAddressChecksumMismatch     = "ADDRESS_CHECKSUM_MISMATCH"
	CodeURIInvalidFormat            = "URI_INVALID_FORMAT"
	CodeVersionNotSupported         = "VERSION_NOT_SUPPORTED"
	CodeChainIDInvalidFormat        = "CHAIN_ID_INVALID_FORMAT"
	CodeNonceInvalidFormat          = "NONCE_INVALID_FORMAT"
	CodeIssuedAtInvalidFormat       = "ISSUED_AT_INVALID_FORMAT"
	CodeExpirationTimeInvalidFormat = "EXPIRATION_TIME_INVALID_FORMAT"
	CodeNotBeforeInvalidFormat      = "NOT_BEFORE_INVALID_FORMAT"
)

// Security validation codes.
const (
	CodeNonceWeakEntropy      = "NONCE_WEAK_ENTROPY"
	CodeExpirationTimeMissing = "EXPIRATION_TIME_MISSING"
	CodeURIInsecureScheme     = "URI_INSECURE_SCHEME"
	CodeStatementLineBreaks   = "STATEMENT_CONTAINS_LINE_BREAKS"
)

// Compliance and engine-level codes.
const (
	CodeChainIDUnknown  = "CHAIN_ID_UNKNOWN"
	CodeValidationError = "VALIDATION_ERROR"
)

// Rule codes for checks that emit diagnostics under more specific codes of
// their own (grammar issues and blank-line analysis).
const (
	RuleCodeGrammar    = "MESSAGE_GRAMMAR"
	RuleCodeLineBreaks = "LINE_BREAKS"
)
