package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/siwegate/internal/dict"
	"example.com/siwegate/internal/report"
	"example.com/siwegate/internal/rules"
)

var (
	validateProfile string
	validateRules   string
	validateChains  string
	validateJSON    string
	validateNDJSON  string
	validateQuick   bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a message against a profile's rule pack",
	Long: `Validate parses one EIP-4361 message and evaluates every rule in the
selected pack. Findings print one row per diagnostic followed by a
summary line, and the command exits non-zero while any error-severity
finding remains.

Use "-" to read the message from stdin. --json and --ndjson write the
report and the raw diagnostic stream to files, or to stdout with "-".

Example:
  siwectl validate login.txt
  siwectl validate login.txt --profile basic --json report.json
  cat login.txt | siwectl validate - --ndjson -`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateProfile, "profile", "", "profile to validate under (strict, basic, development)")
	validateCmd.Flags().StringVar(&validateRules, "rules", "", "rule pack JSON file overriding the profile pack")
	validateCmd.Flags().StringVar(&validateChains, "chains", "", "chain registry JSON overlay")
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "write the validation report as JSON (\"-\" for stdout)")
	validateCmd.Flags().StringVar(&validateNDJSON, "ndjson", "", "write diagnostics as NDJSON (\"-\" for stdout)")
	validateCmd.Flags().BoolVar(&validateQuick, "quick", false, "structural pass/fail screen only, no rule evaluation")
}

func runValidate(cmd *cobra.Command, args []string) error {
	text, err := readMessageFile(args[0])
	if err != nil {
		return err
	}

	if validateQuick {
		if rules.QuickValidate(text) {
			fmt.Println("PASS")
			return nil
		}
		fmt.Println("FAIL")
		return errors.New("quick check failed")
	}

	rp, installed, err := resolveRulePack(validateProfile, validateRules)
	if err != nil {
		return err
	}
	if installed {
		fmt.Printf("Using rule pack %s@%s (profile %s)\n", rp.RulePackId, rp.Version, rp.Profile)
	}

	opts := rules.Options{Pack: &rp}
	if validateChains != "" {
		chains, err := dict.Load(validateChains)
		if err != nil {
			return fmt.Errorf("load chain registry: %w", err)
		}
		opts.Chains = chains
	}

	res, err := rules.Validate(text, opts)
	if err != nil {
		return err
	}
	sum := rules.Summarize(res)

	if validateNDJSON != "" {
		if err := writeNDJSONFile(validateNDJSON, res.All()); err != nil {
			return err
		}
	}
	if validateJSON != "" {
		rep := report.Build(displayName(args[0]), rp.Profile, rp.RulePackId, res, opts.Chains)
		if err := writeReportJSON(rep, validateJSON); err != nil {
			return err
		}
	}

	machineStdout := validateJSON == "-" || validateNDJSON == "-"
	if !machineStdout {
		if validateJSON == "" && validateNDJSON == "" {
			printDiagnostics(os.Stdout, res.All())
		}
		printResultSummary(os.Stdout, sum)
	}
	if !res.IsValid {
		return fmt.Errorf("validation failed: %d error(s)", sum.Errors)
	}
	return nil
}

func writeNDJSONFile(path string, diags []rules.Diagnostic) error {
	if path == "-" {
		return rules.WriteNDJSON(os.Stdout, diags)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return rules.WriteNDJSON(f, diags)
}

func writeReportJSON(rep report.Report, path string) error {
	if path == "-" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return report.SaveJSON(rep, path)
}
