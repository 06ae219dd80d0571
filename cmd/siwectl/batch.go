package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"example.com/siwegate/internal/common"
	"example.com/siwegate/internal/dict"
	"example.com/siwegate/internal/report"
	"example.com/siwegate/internal/rules"
)

var (
	batchProfile  string
	batchRules    string
	batchChains   string
	batchOutDir   string
	batchMetrics  bool
	batchProgress bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <path>...",
	Short: "Validate many messages in one run",
	Long: `Batch validates every named message file sequentially and prints one
verdict line per file. Directory arguments contribute their *.txt and
*.siwe entries. The command exits non-zero when any message fails.

Example:
  siwectl batch messages/
  siwectl batch messages/ --out-dir reports/ --progress
  siwectl batch a.txt b.txt --profile basic --metrics`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchProfile, "profile", "", "profile to validate under (strict, basic, development)")
	batchCmd.Flags().StringVar(&batchRules, "rules", "", "rule pack JSON file overriding the profile pack")
	batchCmd.Flags().StringVar(&batchChains, "chains", "", "chain registry JSON overlay")
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "write a JSON report per message into this directory")
	batchCmd.Flags().BoolVar(&batchMetrics, "metrics", false, "print validation throughput metrics")
	batchCmd.Flags().BoolVar(&batchProgress, "progress", false, "display progress updates")
}

func runBatch(cmd *cobra.Command, args []string) error {
	files, err := collectMessageFiles(args)
	if err != nil {
		return err
	}

	rp, installed, err := resolveRulePack(batchProfile, batchRules)
	if err != nil {
		return err
	}
	if installed {
		fmt.Printf("Using rule pack %s@%s (profile %s)\n", rp.RulePackId, rp.Version, rp.Profile)
	}
	opts := rules.Options{Pack: &rp}
	if batchChains != "" {
		chains, err := dict.Load(batchChains)
		if err != nil {
			return fmt.Errorf("load chain registry: %w", err)
		}
		opts.Chains = chains
	}

	if batchOutDir != "" {
		if err := os.MkdirAll(batchOutDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	metrics := common.NewMetrics()
	var total int64
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			total += info.Size()
		}
	}
	metrics.SetTotalBytes(total)
	metrics.Start()
	var stopProgress func()
	if batchProgress {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}

	invalid := 0
	unreadable := 0
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			unreadable++
			fmt.Printf("%s: %v\n", f, err)
			continue
		}
		res, err := rules.Validate(string(data), opts)
		if err != nil {
			if stopProgress != nil {
				stopProgress()
			}
			return fmt.Errorf("validate %s: %w", f, err)
		}
		metrics.AddMessage(int64(len(data)))
		sum := rules.Summarize(res)
		verdict := "PASS"
		if !res.IsValid {
			verdict = "FAIL"
			invalid++
		}
		fmt.Printf("%s: %s errors=%d warnings=%d\n", f, verdict, sum.Errors, sum.Warnings)

		if batchOutDir != "" {
			rep := report.Build(f, rp.Profile, rp.RulePackId, res, opts.Chains)
			out := filepath.Join(batchOutDir, filepath.Base(f)+".report.json")
			if err := report.SaveJSON(rep, out); err != nil {
				if stopProgress != nil {
					stopProgress()
				}
				return fmt.Errorf("write report %s: %w", out, err)
			}
		}
	}
	if stopProgress != nil {
		stopProgress()
	}
	metrics.Stop()

	passed := len(files) - invalid - unreadable
	fmt.Printf("Checked %d message(s): %d passed, %d failed, %d unreadable\n",
		len(files), passed, invalid, unreadable)
	if batchMetrics {
		snap := metrics.Snapshot()
		fmt.Printf("Metrics: duration=%s messages=%d processed=%s throughput=%.1f KB/s\n",
			snap.Duration.Round(time.Millisecond),
			snap.Messages,
			common.FormatBytes(snap.Bytes),
			snap.ThroughputBytesPerSecond()/1024,
		)
	}
	if invalid > 0 || unreadable > 0 {
		return fmt.Errorf("%d of %d message(s) failed", invalid+unreadable, len(files))
	}
	return nil
}

// collectMessageFiles expands the arguments into a flat list of message
// files, keeping argument order. Directories contribute their *.txt and
// *.siwe entries in name order.
func collectMessageFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".txt", ".siwe":
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no message files found")
	}
	return files, nil
}
