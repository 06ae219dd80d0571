package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"example.com/siwegate/internal/rules"
)

// rulepackCmd represents the rulepack command group
var rulepackCmd = &cobra.Command{
	Use:   "rulepack",
	Short: "Manage installed rule packs",
	Long: `Rulepack manages the JSON rule packs installed under the storage
directory. An installed pack can be pinned as the default for a
profile, which validate, autofix, report and batch then pick up
automatically.

Example:
  siwectl rulepack install acme-rules.json
  siwectl rulepack use strict acme-rules
  siwectl rulepack list`,
}

var rulepackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed rule packs",
	Args:  cobra.NoArgs,
	RunE:  runRulepackList,
}

var rulepackInstallCmd = &cobra.Command{
	Use:   "install <file>",
	Short: "Install a rule pack JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulepackInstall,
}

var rulepackRemoveCmd = &cobra.Command{
	Use:   "remove <id> <version>",
	Short: "Remove an installed rule pack",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulepackRemove,
}

var rulepackUseCmd = &cobra.Command{
	Use:   "use <profile> <id> [version]",
	Short: "Set the default rule pack for a profile",
	Long: `Use pins an installed rule pack as the default for a profile. Without
an explicit version the newest installed one is pinned.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runRulepackUse,
}

func init() {
	rootCmd.AddCommand(rulepackCmd)

	rulepackCmd.AddCommand(rulepackListCmd)
	rulepackCmd.AddCommand(rulepackInstallCmd)
	rulepackCmd.AddCommand(rulepackRemoveCmd)
	rulepackCmd.AddCommand(rulepackUseCmd)
}

func runRulepackList(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	entries, err := repo.ListInstalled()
	if err != nil {
		return fmt.Errorf("list rule packs: %w", err)
	}
	defaults, err := repo.Defaults()
	if err != nil {
		return fmt.Errorf("load defaults: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No rule packs installed")
		return nil
	}
	byKey := make(map[string][]string)
	for profile, ref := range defaults {
		key := ref.RulePackId + "@" + ref.Version
		byKey[key] = append(byKey[key], profile)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tPROFILE\tRULES\tDEFAULT FOR")
	for _, entry := range entries {
		key := entry.RulePack.RulePackId + "@" + entry.RulePack.Version
		profiles := byKey[key]
		sort.Strings(profiles)
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			entry.RulePack.RulePackId,
			entry.RulePack.Version,
			entry.RulePack.Profile,
			len(entry.RulePack.Rules),
			strings.Join(profiles, ","),
		)
	}
	return w.Flush()
}

func runRulepackInstall(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	installed, err := repo.InstallFile(args[0])
	if err != nil {
		return fmt.Errorf("install rule pack: %w", err)
	}
	fmt.Printf("Installed %s@%s (profile %s)\n",
		installed.RulePack.RulePackId, installed.RulePack.Version, installed.RulePack.Profile)
	return nil
}

func runRulepackRemove(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	id, version := args[0], args[1]
	if err := repo.Remove(id, version); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rule pack %s@%s is not installed", id, version)
		}
		return fmt.Errorf("remove rule pack: %w", err)
	}
	fmt.Printf("Removed %s@%s\n", id, version)
	return nil
}

func runRulepackUse(cmd *cobra.Command, args []string) error {
	profile, id := args[0], args[1]
	version := ""
	if len(args) == 3 {
		version = args[2]
	}
	repo, err := openRepository()
	if err != nil {
		return err
	}
	rp, err := repo.Load(id, version)
	if err != nil {
		return fmt.Errorf("load rule pack: %w", err)
	}
	if rp.Profile != "" && rp.Profile != profile {
		fmt.Printf("Warning: rule pack profile is %s\n", rp.Profile)
	}
	ref := rules.RulePackRef{RulePackId: rp.RulePackId, Version: rp.Version}
	if err := repo.SetDefaultForProfile(profile, ref); err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	fmt.Printf("Default for profile %s set to %s@%s\n", profile, ref.RulePackId, ref.Version)
	return nil
}
