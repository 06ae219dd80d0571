package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"example.com/siwegate/internal/common"
)

var (
	undoAudit string
	undoOut   string
)

// undoCmd represents the undo command
var undoCmd = &cobra.Command{
	Use:   "undo <file>",
	Short: "Revert fixes recorded in the fix audit log",
	Long: `Undo replays the fix audit log for a file in reverse, restoring the
text each fix started from. Before reverting an entry the current text
must match the entry's recorded result; undo refuses when the file
changed outside the log.

The log is looked up under the storage directory by the file's base
name; --audit selects another log explicitly.

Example:
  siwectl undo login.txt
  siwectl undo login.txt --out restored.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runUndo,
}

func init() {
	rootCmd.AddCommand(undoCmd)

	undoCmd.Flags().StringVar(&undoAudit, "audit", "", "fix audit log to replay (default: storage fixlog for the file)")
	undoCmd.Flags().StringVar(&undoOut, "out", "", "write restored text here instead of overwriting the input")
}

func runUndo(cmd *cobra.Command, args []string) error {
	in := args[0]
	if in == "-" {
		return errors.New("undo requires a file path")
	}

	auditPath := undoAudit
	if auditPath == "" {
		auditPath = fixLogPath(in)
	}
	entries, err := common.ReadFixLog(auditPath)
	if err != nil {
		return fmt.Errorf("read fix log: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("fix log %s is empty", auditPath)
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	current := string(data)

	restored := current
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if restored != entry.After {
			return fmt.Errorf("refusing to undo %s (entry %d): current text does not match the recorded fix result; the file changed since the log was written", entry.Code, i+1)
		}
		restored = entry.Before
	}

	out := undoOut
	if out == "" {
		out = in
	}
	if err := os.WriteFile(out, []byte(restored), 0o644); err != nil {
		return err
	}

	fmt.Printf("Restored %d fix(es) to %s\n", len(entries), out)
	fmt.Printf("Fixed SHA256: %s\n", common.Sha256OfText(current))
	fmt.Printf("Restored SHA256: %s\n", common.Sha256OfText(restored))
	return nil
}
