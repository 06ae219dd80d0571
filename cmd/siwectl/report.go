package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"example.com/siwegate/internal/dict"
	"example.com/siwegate/internal/manifest"
	"example.com/siwegate/internal/report"
	"example.com/siwegate/internal/rules"
)

var (
	reportProfile string
	reportRules   string
	reportChains  string
	reportJSON    string
	reportPDF     string
	reportLang    string
	reportBundle  string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Validate a message and render report artifacts",
	Long: `Report validates one message and writes the outcome as a JSON report,
optionally rendered to PDF with localized labels (--lang en|tr). The
report digest is printed and embedded as a QR stamp in the PDF.

--bundle collects message, report, PDF and QR stamp in a directory and
records them in a sha256 manifest so the set can be verified later.

Example:
  siwectl report login.txt
  siwectl report login.txt --pdf report.pdf --lang tr
  siwectl report login.txt --bundle out/`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportProfile, "profile", "", "profile to validate under (strict, basic, development)")
	reportCmd.Flags().StringVar(&reportRules, "rules", "", "rule pack JSON file overriding the profile pack")
	reportCmd.Flags().StringVar(&reportChains, "chains", "", "chain registry JSON overlay")
	reportCmd.Flags().StringVar(&reportJSON, "json", "", "report JSON path (default: <file>.report.json)")
	reportCmd.Flags().StringVar(&reportPDF, "pdf", "", "render the report as PDF here")
	reportCmd.Flags().StringVar(&reportLang, "lang", "en", "report language (en, tr)")
	reportCmd.Flags().StringVar(&reportBundle, "bundle", "", "write message, report, PDF and manifest into this directory")
}

func runReport(cmd *cobra.Command, args []string) error {
	in := args[0]
	text, err := readMessageFile(in)
	if err != nil {
		return err
	}
	lang, err := report.ParseLanguage(reportLang)
	if err != nil {
		return err
	}
	rp, installed, err := resolveRulePack(reportProfile, reportRules)
	if err != nil {
		return err
	}
	if installed {
		fmt.Printf("Using rule pack %s@%s (profile %s)\n", rp.RulePackId, rp.Version, rp.Profile)
	}

	opts := rules.Options{Pack: &rp}
	if reportChains != "" {
		chains, err := dict.Load(reportChains)
		if err != nil {
			return fmt.Errorf("load chain registry: %w", err)
		}
		opts.Chains = chains
	}

	res, err := rules.Validate(text, opts)
	if err != nil {
		return err
	}
	rep := report.Build(displayName(in), rp.Profile, rp.RulePackId, res, opts.Chains)

	if reportBundle != "" {
		return writeBundle(reportBundle, text, rep, lang)
	}

	jsonPath := reportJSON
	if jsonPath == "" {
		jsonPath = displayName(in) + ".report.json"
	}
	if err := writeReportJSON(rep, jsonPath); err != nil {
		return err
	}
	if jsonPath != "-" {
		fmt.Println("Wrote", jsonPath)
	}
	if reportPDF != "" {
		if err := report.SavePDF(rep, reportPDF, lang); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		fmt.Println("Wrote PDF:", reportPDF)
	}
	digest, err := report.Digest(rep)
	if err != nil {
		return err
	}
	fmt.Println("Digest:", digest)
	return nil
}

// writeBundle lays out the message and its report artifacts in dir and
// inventories them in manifest.json.
func writeBundle(dir, text string, rep report.Report, lang report.Language) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "message.txt"), []byte(text), 0o644); err != nil {
		return err
	}
	if err := report.SaveJSON(rep, filepath.Join(dir, "report.json")); err != nil {
		return err
	}
	if err := report.SavePDF(rep, filepath.Join(dir, "report.pdf"), lang); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	if err := report.SaveDigestQR(rep, filepath.Join(dir, "digest.png"), 256); err != nil {
		return fmt.Errorf("write qr: %w", err)
	}

	names := []string{"message.txt", "report.json", "report.pdf", "digest.png"}
	m, err := manifest.BuildDir(dir, names)
	if err != nil {
		return fmt.Errorf("manifest build: %w", err)
	}
	if err := manifest.Save(m, filepath.Join(dir, "manifest.json")); err != nil {
		return fmt.Errorf("manifest save: %w", err)
	}
	fmt.Println("Wrote bundle:", dir)
	return nil
}
