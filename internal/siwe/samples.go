package siwe

import "strings"

// Sample is a named example message used by the sample generator, the daemon
// samples endpoint, and tests.
type Sample struct {
	Name        string
	Description string
	Text        string
}

// Samples returns the built-in corpus: one well-formed message plus one
// message per common defect family. Texts are byte-exact; tests depend on
// them.
func Samples() []Sample {
	return []Sample{
		{
			Name:        "clean",
			Description: "well-formed message with a statement, passes validation",
			Text: `example.com wants you to sign in with your Ethereum account:
0x742d35Cc6C4C1Ca5d428d9eE0e9B1E1234567890

Sign in to our Web3 application.

URI: https://example.com
Version: 1
Chain ID: 1
Nonce: a1B2c3D4e5F6g7H8
Issued At: 2023-10-31T16:25:24Z`,
		},
		{
			Name:        "missing_blank_line",
			Description: "statement runs directly into the URI field without a separating blank line",
			Text: `service.org wants you to sign in with your Ethereum account:
0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359

Review and accept the terms of service.
URI: https://service.org/login
Version: 1
Chain ID: 1
Nonce: Zx9An3pQ7sKd41Vu
Issued At: 2025-03-02T09:15:00Z`,
		},
		{
			Name:        "no_statement_spacing",
			Description: "omitted statement with only one blank line where the grammar reserves two",
			Text: `app.example.net wants you to sign in with your Ethereum account:
0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB

URI: https://app.example.net
Version: 1
Chain ID: 10
Nonce: qW3eRt5yUi7oPa9S
Issued At: 2025-03-02T10:00:00Z`,
		},
		{
			Name:        "weak_nonce",
			Description: "short, all-digit nonce that is trivial to guess",
			Text: `example.com wants you to sign in with your Ethereum account:
0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359

Sign in to continue.

URI: https://example.com
Version: 1
Chain ID: 1
Nonce: 12345678
Issued At: 2025-03-02T11:30:00Z`,
		},
		{
			Name:        "missing_0x_prefix",
			Description: "Ethereum address without the 0x prefix",
			Text: `wallet.example.com wants you to sign in with your Ethereum account:
fB6916095ca1df60bB79Ce92cE3Ea74c37c5d359

Connect your wallet.

URI: https://wallet.example.com/connect
Version: 1
Chain ID: 1
Nonce: Hs82KdLqPw34ZnRv
Issued At: 2025-03-02T12:00:00Z`,
		},
		{
			Name:        "http_uri",
			Description: "plain-HTTP URI and no expiration time",
			Text: `portal.example.com wants you to sign in with your Ethereum account:
0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb

Access the analytics portal.

URI: http://portal.example.com/dashboard
Version: 1
Chain ID: 137
Nonce: Tt5rEw2qYu8iOp1M
Issued At: 2025-03-02T13:45:00Z`,
		},
		{
			Name:        "extra_blank_lines",
			Description: "stray blank lines around the address and between fields, plus trailing whitespace",
			Text: strings.Join([]string{
				"example.com wants you to sign in with your Ethereum account:",
				"",
				"0x742d35Cc6C4C1Ca5d428d9eE0e9B1E1234567890",
				"",
				"Sign in to our Web3 application.",
				"",
				"URI: https://example.com",
				"Version: 1",
				"",
				"Chain ID: 1",
				"Nonce: a1B2c3D4e5F6g7H8  ",
				"Issued At: 2023-10-31T16:25:24Z",
			}, "\n"),
		},
		{
			Name:        "with_resources",
			Description: "every optional field populated and two resource entries",
			Text: `forum.example.org wants you to sign in with your Ethereum account:
0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359

Post and vote on community proposals.

URI: https://forum.example.org
Version: 1
Chain ID: 8453
Nonce: Kp4mXz8cVb2nQw6J
Issued At: 2025-03-02T14:00:00Z
Expiration Time: 2025-03-02T14:10:00Z
Not Before: 2025-03-02T14:00:00Z
Request ID: 7f3d9a2e
Resources:
- https://forum.example.org/proposals
- ipfs://QmXoypizjW3WknFiJnKLwHCnL72vedxjQkDDP1mXWo6uco`,
		},
	}
}

// SampleByName returns the sample with the given name.
func SampleByName(name string) (Sample, bool) {
	for _, s := range Samples() {
		if s.Name == name {
			return s, true
		}
	}
	return Sample{}, false
}
