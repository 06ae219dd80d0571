package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"example.com/siwegate/internal/siwe"
)

var samplesWrite string

// samplesCmd represents the samples command
var samplesCmd = &cobra.Command{
	Use:   "samples [name]",
	Short: "List or print the built-in sample messages",
	Long: `Samples lists the built-in message corpus, prints one sample by name,
or writes every sample to a directory as <name>.txt. Sample texts are
byte-exact, so written files validate the same as the corpus itself.

Example:
  siwectl samples
  siwectl samples weak_nonce | siwectl validate -
  siwectl samples --write testdata/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSamples,
}

func init() {
	rootCmd.AddCommand(samplesCmd)

	samplesCmd.Flags().StringVar(&samplesWrite, "write", "", "write every sample into this directory")
}

func runSamples(cmd *cobra.Command, args []string) error {
	if samplesWrite != "" {
		if err := os.MkdirAll(samplesWrite, 0o755); err != nil {
			return err
		}
		for _, s := range siwe.Samples() {
			out := filepath.Join(samplesWrite, s.Name+".txt")
			if err := os.WriteFile(out, []byte(s.Text), 0o644); err != nil {
				return err
			}
			fmt.Println("Wrote", out)
		}
		return nil
	}

	if len(args) == 1 {
		s, ok := siwe.SampleByName(args[0])
		if !ok {
			return fmt.Errorf("unknown sample %q", args[0])
		}
		fmt.Println(s.Text)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, s := range siwe.Samples() {
		fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
	}
	return w.Flush()
}
