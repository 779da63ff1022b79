package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"learningfun/internal/service"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore every table as JSON",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database to a JSON file",
	RunE:  runExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSON backup",
	Long: `Import a JSON backup in a single transaction.

With --clear every existing row is deleted first. This is destructive and asks
for confirmation unless --yes is given.`,
	RunE: runImport,
}

func init() {
	backupExportCmd.Flags().String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	backupImportCmd.Flags().String("input", "", "Input file path (required)")
	backupImportCmd.Flags().Bool("clear", false, "Clear existing data before import")
	backupImportCmd.Flags().Bool("yes", false, "Skip the --clear confirmation prompt")
	_ = backupImportCmd.MarkFlagRequired("input")

	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	backup, err := service.NewBackupService(e.db, e.log).ExportFile(contextOf(cmd), outputPath)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d users to %s (%.2f MB)\n",
		len(backup.Users), outputPath, float64(info.Size())/1024/1024)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	clearData, _ := cmd.Flags().GetBool("clear")
	yes, _ := cmd.Flags().GetBool("yes")

	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	if clearData && !yes {
		fmt.Fprint(cmd.OutOrStdout(), "WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
			return nil
		}
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	backup, err := service.NewBackupService(e.db, e.log).ImportFile(contextOf(cmd), inputPath, clearData)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d users, %d exercises, %d progress rows\n",
		len(backup.Users), len(backup.Exercises), len(backup.Progress))
	return nil
}
