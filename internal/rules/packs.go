package rules

import "fmt"

const (
	ProfileStrict      = "strict"
	ProfileBasic       = "basic"
	ProfileDevelopment = "development"

	// DefaultProfile applies when a caller leaves the profile unset.
	DefaultProfile = ProfileStrict

	builtinPackVersion = "1.0.0"
)

// Profiles lists the built-in profiles in preference order.
func Profiles() []string {
	return []string{ProfileStrict, ProfileBasic, ProfileDevelopment}
}

// KnownProfile reports whether name is one of the built-in profiles.
func KnownProfile(name string) bool {
	for _, p := range Profiles() {
		if p == name {
			return true
		}
	}
	return false
}

// BuiltinPack constructs the rule pack for a profile. The three built-ins
// differ only in which rule groups are present and how severe the security
// findings are:
//
//	strict       every check, weak nonces are errors
//	basic        every check, security findings downgraded to warnings
//	development  format and structure only, security checks disabled
//
// An empty profile selects DefaultProfile.
func BuiltinPack(profile string) (RulePack, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if !KnownProfile(profile) {
		return RulePack{}, fmt.Errorf("unknown profile %q", profile)
	}
	rules := formatRules()
	if profile != ProfileDevelopment {
		rules = append(rules, complianceRules()...)
		rules = append(rules, securityRules(profile)...)
	}
	return RulePack{
		RulePackId: "siwegate-builtin-" + profile,
		Version:    builtinPackVersion,
		Profile:    profile,
		Rules:      rules,
	}, nil
}

func formatRules() []Rule {
	return []Rule{
		{
			Code:      RuleCodeGrammar,
			Name:      "message grammar",
			Category:  CategoryFormat,
			Severity:  ERROR,
			CheckFunc: "CheckGrammar",
		},
		{
			Code:      RuleCodeLineBreaks,
			Name:      "blank-line structure",
			Category:  CategoryFormat,
			Severity:  ERROR,
			Fixable:   true,
			CheckFunc: "CheckLineBreaks",
			FixFunc:   "FixLineBreaks",
		},
		{
			Code:      CodeDomainInvalidFormat,
			Name:      "domain authority",
			Category:  CategoryFormat,
			Field:     "domain",
			Severity:  ERROR,
			CheckFunc: "CheckDomain",
		},
		{
			Code:      CodeAddressInvalidFormat,
			Name:      "address shape",
			Category:  CategoryFormat,
			Field:     "address",
			Severity:  ERROR,
			Fixable:   true,
			CheckFunc: "CheckAddress",
			FixFunc:   "FixAddress",
		},
		{
			Code:      CodeAddressChecksumMismatch,
			Name:      "address checksum",
			Category:  CategoryFormat,
			Field:     "address",
			Severity:  WARN,
			Fixable:   true,
			CheckFunc: "CheckAddressChecksum",
			FixFunc:   "FixAddress",
		},
		{
			Code:      CodeURIInvalidFormat,
			Name:      "uri scheme presence",
			Category:  CategoryFormat,
			Field:     "uri",
			Severity:  ERROR,
			Fixable:   true,
			CheckFunc: "CheckURI",
			FixFunc:   "FixURI",
		},
		{
			Code:      CodeVersionNotSupported,
			Name:      "version literal",
			Category:  CategoryFormat,
			Field:     "version",
			Severity:  ERROR,
			CheckFunc: "CheckVersion",
		},
		{
			Code:      CodeChainIDInvalidFormat,
			Name:      "chain id shape",
			Category:  CategoryFormat,
			Field:     "chainId",
			Severity:  ERROR,
			CheckFunc: "CheckChainID",
		},
		{
			Code:      CodeNonceInvalidFormat,
			Name:      "nonce floor",
			Category:  CategoryFormat,
			Field:     "nonce",
			Severity:  ERROR,
			Fixable:   true,
			CheckFunc: "CheckNonceFormat",
			FixFunc:   "FixNonce",
		},
		{
			Code:      CodeIssuedAtInvalidFormat,
			Name:      "issued-at timestamp",
			Category:  CategoryFormat,
			Field:     "issuedAt",
			Severity:  ERROR,
			Fixable:   true,
			CheckFunc: "CheckTimestampFormat",
			FixFunc:   "FixTimestamp",
		},
		{
			Code:      CodeExpirationTimeInvalidFormat,
			Name:      "expiration timestamp",
			Category:  CategoryFormat,
			Field:     "expirationTime",
			Severity:  ERROR,
			Fixable:   true,
			CheckFunc: "CheckTimestampFormat",
			FixFunc:   "FixTimestamp",
		},
		{
			Code:      CodeNotBeforeInvalidFormat,
			Name:      "not-before timestamp",
			Category:  CategoryFormat,
			Field:     "notBefore",
			Severity:  ERROR,
			Fixable:   true,
			CheckFunc: "CheckTimestampFormat",
			FixFunc:   "FixTimestamp",
		},
	}
}

func complianceRules() []Rule {
	return []Rule{
		{
			Code:      CodeChainIDUnknown,
			Name:      "known network",
			Category:  CategoryCompliance,
			Field:     "chainId",
			Severity:  INFO,
			CheckFunc: "CheckKnownChain",
		},
	}
}

func securityRules(profile string) []Rule {
	nonceSeverity := ERROR
	if profile != ProfileStrict {
		nonceSeverity = WARN
	}
	return []Rule{
		{
			Code:      CodeNonceWeakEntropy,
			Name:      "nonce entropy",
			Category:  CategorySecurity,
			Field:     "nonce",
			Severity:  nonceSeverity,
			Fixable:   true,
			CheckFunc: "CheckNonceEntropy",
			FixFunc:   "FixNonce",
		},
		{
			Code:      CodeExpirationTimeMissing,
			Name:      "expiration presence",
			Category:  CategorySecurity,
			Field:     "expirationTime",
			Severity:  WARN,
			Fixable:   true,
			CheckFunc: "CheckExpirationPresent",
			FixFunc:   "FixMissingExpiration",
		},
		{
			Code:      CodeURIInsecureScheme,
			Name:      "transport security",
			Category:  CategorySecurity,
			Field:     "uri",
			Severity:  WARN,
			CheckFunc: "CheckURIScheme",
		},
		{
			Code:      CodeStatementLineBreaks,
			Name:      "statement hygiene",
			Category:  CategorySecurity,
			Field:     "statement",
			Severity:  WARN,
			Fixable:   true,
			CheckFunc: "CheckStatementHygiene",
			FixFunc:   "FixStatement",
		},
	}
}
