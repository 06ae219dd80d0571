package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"example.com/siwegate/internal/common"
	"example.com/siwegate/internal/rules"
)

var (
	autofixProfile string
	autofixRules   string
	autofixCodes   []string
	autofixOut     string
	autofixDryRun  bool
)

// autofixCmd represents the autofix command
var autofixCmd = &cobra.Command{
	Use:   "autofix <file>",
	Short: "Apply automatic repairs to a message",
	Long: `Autofix repeatedly repairs the first fixable finding and re-validates
until none remain. Every applied fix is appended to the fix audit log
under the storage directory, so the rewrite can be undone later.

The repaired text overwrites the input file unless --out names another
destination ("-" for stdout). Messages read from stdin print to stdout.

Example:
  siwectl autofix login.txt
  siwectl autofix login.txt --dry-run
  siwectl autofix login.txt --codes ADDRESS_INVALID_FORMAT --out fixed.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runAutofix,
}

func init() {
	rootCmd.AddCommand(autofixCmd)

	autofixCmd.Flags().StringVar(&autofixProfile, "profile", "", "profile to validate under (strict, basic, development)")
	autofixCmd.Flags().StringVar(&autofixRules, "rules", "", "rule pack JSON file overriding the profile pack")
	autofixCmd.Flags().StringSliceVar(&autofixCodes, "codes", nil, "only apply fixes for these diagnostic codes")
	autofixCmd.Flags().StringVar(&autofixOut, "out", "", "write repaired text here instead of overwriting the input")
	autofixCmd.Flags().BoolVar(&autofixDryRun, "dry-run", false, "report which fixes would apply without rewriting")
}

func runAutofix(cmd *cobra.Command, args []string) error {
	in := args[0]
	text, err := readMessageFile(in)
	if err != nil {
		return err
	}
	rp, installed, err := resolveRulePack(autofixProfile, autofixRules)
	if err != nil {
		return err
	}
	if installed {
		fmt.Printf("Using rule pack %s@%s (profile %s)\n", rp.RulePackId, rp.Version, rp.Profile)
	}

	fixed, applied, res, err := rules.AutoFix(text, rules.AutoFixOptions{
		Options: rules.Options{Pack: &rp},
		Codes:   autofixCodes,
		DryRun:  autofixDryRun,
	})
	if err != nil {
		return err
	}

	if autofixDryRun {
		if len(applied) == 0 {
			fmt.Println("No fixable findings")
			return nil
		}
		for _, fix := range applied {
			fmt.Printf("%s: would fix %s\n", fix.Code, describeFix(fix))
		}
		return nil
	}

	if len(applied) == 0 {
		fmt.Println("No fixes applied")
		return nil
	}

	// Status goes to stderr when the repaired text itself claims stdout.
	statusW := io.Writer(os.Stdout)
	if autofixOut == "-" || (autofixOut == "" && in == "-") {
		statusW = os.Stderr
	}

	name := displayName(in)
	log := common.NewFixLog(fixLogPath(name))
	for _, fix := range applied {
		entry := common.FixEntry{
			File:   name,
			Code:   fix.Code,
			Field:  fix.Field,
			Line:   fix.Line,
			Before: fix.Before,
			After:  fix.After,
		}
		if err := log.Append(entry); err != nil {
			return fmt.Errorf("append fix log: %w", err)
		}
		fmt.Fprintf(statusW, "%s: fixed %s\n", fix.Code, describeFix(fix))
	}

	if err := writeFixedText(in, autofixOut, fixed); err != nil {
		return err
	}

	fmt.Fprintf(statusW, "Audit log: %s\n", log.Path())
	printResultSummary(statusW, rules.Summarize(res))
	return nil
}

func describeFix(fix rules.AppliedFix) string {
	target := fix.Field
	if target == "" {
		target = "message"
	}
	if fix.Line > 0 {
		return fmt.Sprintf("%s (line %d)", target, fix.Line)
	}
	return target
}

func writeFixedText(in, out, text string) error {
	switch {
	case out == "-":
		_, err := io.WriteString(os.Stdout, text)
		return err
	case out != "":
		return os.WriteFile(out, []byte(text), 0o644)
	case in == "-":
		_, err := io.WriteString(os.Stdout, text)
		return err
	default:
		return os.WriteFile(in, []byte(text), 0o644)
	}
}
