package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/hobbyshelf/hobbyshelf-server/internal/backup"
)

var (
	exportCompression string
	exportOutput      string
	importYes         bool
	importTables      []string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list and restore snapshots",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a snapshot of every table",
	Long: `Export writes a consistent snapshot of the database into the backup
directory. With --output the file is copied to that path as well.`,
	Args: cobra.NoArgs,
	RunE: runBackupExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace live data with a snapshot file",
	Long: `Import restores a snapshot (.json, .json.gz or .zip) over the live
database. A safety copy of the database is written to the backup directory
first. Nothing is changed unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupImport,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots and safety backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupRecoverCmd = &cobra.Command{
	Use:   "recover <file>",
	Short: "Restore a safety backup database",
	Long: `Recover loads a safety backup taken before an earlier restore and
restores its rows through the normal import path. A bare file name is looked
up in the backup directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupRecover,
}

func init() {
	backupExportCmd.Flags().StringVar(&exportCompression, "compress", "", "container format (none, gzip, zip); default from config")
	backupExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "also copy the snapshot to this path")

	for _, c := range []*cobra.Command{backupImportCmd, backupRecoverCmd} {
		c.Flags().BoolVar(&importYes, "yes", false, "confirm that live data will be replaced")
		c.Flags().StringSliceVar(&importTables, "tables", nil, "restore only these tables")
	}

	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRecoverCmd)
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	c := backup.Compression(exportCompression)
	if exportCompression != "" && !c.Valid() {
		return fmt.Errorf("invalid --compress %q (valid: none, gzip, zip)", exportCompression)
	}

	svc := do.MustInvoke[*backup.BackupService](injector)
	result, err := svc.Create(cmd.Context(), backup.CreateOptions{Compression: c})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if exportOutput != "" {
		if err := copyFile(result.Path, exportOutput); err != nil {
			return fmt.Errorf("copy snapshot: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s (%d bytes, sha256 %s) in %s\n",
		result.Name, result.Size, result.Checksum, result.Duration.Round(time.Millisecond))
	printCounts(cmd, result.TableCounts)
	return nil
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	if !importYes {
		return fmt.Errorf("refusing to replace live data without --yes")
	}

	svc := do.MustInvoke[*backup.BackupService](injector)
	snap, err := svc.Load(args[0])
	if err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}

	result, err := svc.Import(cmd.Context(), snap, backup.ImportOptions{Confirm: true, Tables: importTables})
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	printRestore(cmd, result)
	return nil
}

func runBackupRecover(cmd *cobra.Command, args []string) error {
	if !importYes {
		return fmt.Errorf("refusing to replace live data without --yes")
	}

	svc := do.MustInvoke[*backup.BackupService](injector)
	result, err := svc.Recover(cmd.Context(), args[0], backup.ImportOptions{Confirm: true, Tables: importTables})
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	printRestore(cmd, result)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	svc := do.MustInvoke[*backup.BackupService](injector)

	snapshots, err := svc.List(cmd.Context())
	if err != nil {
		return err
	}
	safety, err := svc.SafetyBackups(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tSIZE\tCREATED")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Name, s.Compression, s.Size, s.CreatedAt.Local().Format(time.DateTime))
	}
	for _, s := range safety {
		fmt.Fprintf(w, "%s\tsafety\t%d\t%s\n", s.Name, s.Size, s.CreatedAt.Local().Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nBackup directory: %s\n", svc.Dir())
	return nil
}

func printRestore(cmd *cobra.Command, result *backup.RestoreResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Restore completed in %s\n", result.Duration.Round(time.Millisecond))
	printCounts(cmd, result.Imported)
	for _, name := range result.Skipped {
		fmt.Fprintf(out, "  skipped %s\n", name)
	}
	for _, te := range result.Errors {
		fmt.Fprintf(out, "  %s: %s\n", te.Table, te.Error)
	}
	fmt.Fprintf(out, "Search index: %d entries\n", result.Indexed)
	fmt.Fprintf(out, "Safety backup: %s\n", result.SafetyBackup)
}

func printCounts(cmd *cobra.Command, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%d\n", name, counts[name])
	}
	_ = w.Flush()
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
