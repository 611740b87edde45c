package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/shadowcast/internal/config"
	"github.com/cwbudde/shadowcast/internal/store"
)

var (
	rendersDataDir string
	keepLast       int
	olderThanDays  int
	forceClean     bool
)

var rendersCmd = &cobra.Command{
	Use:   "renders",
	Short: "Manage stored renders",
	Long: `Manage renders saved by the server or by "render --save", including
listing them and cleaning up old ones.`,
}

var listRendersCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored renders",
	Long:  `Display all stored renders with ID, timestamp, light and size on disk.`,
	RunE:  runListRenders,
}

var cleanRendersCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old renders",
	Long: `Delete old renders based on retention policy.
You can keep only the newest N renders or delete renders older than N days.`,
	RunE: runCleanRenders,
}

var traceRenderCmd = &cobra.Command{
	Use:   "trace <id>",
	Short: "Show the light-estimation trace of a fit",
	Long:  `Print every evaluation recorded by "fit --trace" for the given ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTraceRender,
}

func init() {
	rootCmd.AddCommand(rendersCmd)

	rendersCmd.AddCommand(listRendersCmd)
	rendersCmd.AddCommand(cleanRendersCmd)
	rendersCmd.AddCommand(traceRenderCmd)

	rendersCmd.PersistentFlags().StringVar(&rendersDataDir, "data-dir", "", "Data directory (default from config, ./data)")

	cleanRendersCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N renders (0 = keep all)")
	cleanRendersCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete renders older than N days (0 = no age limit)")
	cleanRendersCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openRenderStore() (*store.FSStore, error) {
	cfg, err := loadConfig(config.Flags{DataDir: rendersDataDir})
	if err != nil {
		return nil, err
	}
	st, err := store.NewFSStore(cfg.Server.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create render store: %w", err)
	}
	return st, nil
}

func runListRenders(cmd *cobra.Command, args []string) error {
	st, err := openRenderStore()
	if err != nil {
		return err
	}

	infos, err := st.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list renders: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No renders found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tANGLE\tELEVATION\tINTENSITY\tSIZE")
	fmt.Fprintln(w, "--\t---------\t-----\t---------\t---------\t----")

	for _, info := range infos {
		size, err := getDirSize(filepath.Join(st.BaseDir(), "renders", info.ID))
		sizeStr := "unknown"
		if err == nil {
			sizeStr = formatBytes(size)
		}

		fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%.2f\t%s\n",
			shortID(info.ID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Light.Angle,
			info.Light.Elevation,
			info.Light.Intensity,
			sizeStr,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal renders: %d\n", len(infos))
	return nil
}

func runCleanRenders(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, err := openRenderStore()
	if err != nil {
		return err
	}

	infos, err := st.ListRecords()
	if err != nil {
		return fmt.Errorf("failed to list renders: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No renders to clean.")
		return nil
	}

	toDelete := selectRendersForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Println("No renders match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d render(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, %s)\n",
			shortID(info.ID),
			info.Foreground,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := st.DeleteRecord(info.ID); err != nil {
			slog.Error("Failed to delete render", "id", info.ID, "error", err)
			failed++
		} else {
			slog.Info("Deleted render", "id", info.ID)
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d render(s), %d failed.\n", deleted, failed)
	return nil
}

func runTraceRender(cmd *cobra.Command, args []string) error {
	st, err := openRenderStore()
	if err != nil {
		return err
	}
	return printTrace(cmd.OutOrStdout(), st.BaseDir(), args[0])
}

func printTrace(out io.Writer, baseDir, id string) error {
	tr, err := store.NewTraceReader(baseDir, id)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "Trace is empty.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVAL\tANGLE\tELEVATION\tINTENSITY\tCOST\tBEST")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%.2f\t%.6f\t%.6f\n",
			e.Evaluation, e.Light.Angle, e.Light.Elevation, e.Light.Intensity, e.Cost, e.Best)
	}
	w.Flush()

	last := entries[len(entries)-1]
	fmt.Fprintf(out, "\nEvaluations: %d, best cost: %.6f\n", len(entries), last.Best)
	return nil
}

// selectRendersForDeletion applies the retention policy. infos must be
// sorted newest first, as ListRecords returns them.
func selectRendersForDeletion(infos []store.RecordInfo, keepLast, olderThanDays int, now time.Time) []store.RecordInfo {
	var toDelete []store.RecordInfo
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		for _, info := range infos[keepLast:] {
			if !selected[info.ID] {
				toDelete = append(toDelete, info)
				selected[info.ID] = true
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// getDirSize calculates the total size of a directory
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
