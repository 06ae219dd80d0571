package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"example.com/siwegate/internal/rules"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

var (
	cfgFile     string
	storageRoot string
	verbose     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "siwectl",
	Short: "Validate and repair Sign in with Ethereum (EIP-4361) messages",
	Long: `siwectl checks Sign in with Ethereum (EIP-4361) messages against
profile-driven rule packs, applies automatic repairs, and renders
reports with localized PDF output.

Profiles: strict (default), basic, development. Rule packs are plain
data; install, list and select them per profile with the rulepack
commands.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("siwectl %s (built %s)\n", version, buildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.siwegate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storageRoot, "storage", "", "storage directory for fix logs and rule packs (default: $HOME/.siwegate)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("storage", rootCmd.PersistentFlags().Lookup("storage"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".siwegate"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match SIWEGATE_*
	viper.SetEnvPrefix("SIWEGATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// storageDir resolves the storage root: flag, then config/env, then
// $HOME/.siwegate.
func storageDir() string {
	if s := viper.GetString("storage"); s != "" {
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".siwegate"
	}
	return filepath.Join(home, ".siwegate")
}

func openRepository() (*rules.Repository, error) {
	return rules.OpenRepository(filepath.Join(storageDir(), "rules"))
}

// fixLogPath places the audit log for one input under <storage>/fixlog.
func fixLogPath(name string) string {
	return filepath.Join(storageDir(), "fixlog", filepath.Base(name)+".fixlog.jsonl")
}

// readMessageFile loads the message text from path, or from stdin when
// path is "-".
func readMessageFile(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

// resolveRulePack picks the pack for a run: an explicit --rules file wins,
// then the installed default for the profile, then the builtin pack. The
// second return reports whether the pack came from the repository.
func resolveRulePack(profile, rulesPath string) (rules.RulePack, bool, error) {
	if profile == "" {
		profile = rules.DefaultProfile
	}
	if rulesPath != "" {
		rp, err := rules.LoadRulePack(rulesPath)
		if err != nil {
			return rules.RulePack{}, false, fmt.Errorf("load rule pack %s: %w", rulesPath, err)
		}
		return rp, false, nil
	}
	repo, err := openRepository()
	if err != nil {
		return rules.RulePack{}, false, err
	}
	rp, ok, err := repo.ResolveForProfile(profile)
	if err != nil {
		return rules.RulePack{}, false, fmt.Errorf("resolve default rule pack: %w", err)
	}
	if ok {
		return rp, true, nil
	}
	rp, err = rules.BuiltinPack(profile)
	if err != nil {
		return rules.RulePack{}, false, err
	}
	return rp, false, nil
}

func printDiagnostics(w io.Writer, diags []rules.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range diags {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Severity, diagLocation(d), d.Code, d.Message)
	}
	tw.Flush()
}

func diagLocation(d rules.Diagnostic) string {
	if d.Line <= 0 {
		return "-"
	}
	if d.Column > 0 {
		return fmt.Sprintf("%d:%d", d.Line, d.Column)
	}
	return strconv.Itoa(d.Line)
}

func printResultSummary(w io.Writer, sum rules.Summary) {
	fmt.Fprintf(w, "PASS=%v, errors=%d, warnings=%d, suggestions=%d\n",
		sum.Pass, sum.Errors, sum.Warnings, sum.Suggestions)
}
