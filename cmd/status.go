package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"portforge/service"
	"portforge/util"
)

var statusCmd = &cobra.Command{
	Use:   "status [ports...]",
	Short: "Report build database statistics, or status for specific ports",
	RunE:  runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd, cleanupCmd, resetDBCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := service.NewService(cfg)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer svc.Close()

	result, err := svc.GetStatus(service.StatusOptions{PortList: args})
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Printf("builds: %d, packages: %d, fingerprints: %d, database size: %d bytes\n",
			result.Stats.TotalBuilds, result.Stats.TotalPackages, result.Stats.TotalFingerprints, result.DatabaseSize)
		return nil
	}

	for _, p := range result.Ports {
		if p.LastBuild == nil {
			fmt.Printf("%s: never built\n", p.PortDir)
			continue
		}
		fmt.Printf("%s: version %s, status %s, last built %s\n",
			p.PortDir, p.Version, p.LastBuild.Status, p.LastBuild.EndTime)
	}
	return nil
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale worker directories left behind by interrupted builds",
	RunE:  runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := service.NewService(cfg)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer svc.Close()

	result, err := svc.Cleanup(service.CleanupOptions{})
	if err != nil {
		return err
	}

	fmt.Printf("cleaned up %d worker director%s\n", result.WorkersCleaned, plural(result.WorkersCleaned))
	for _, e := range result.Errors {
		fmt.Printf("warning: %v\n", e)
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

var resetDBYes bool

var resetDBCmd = &cobra.Command{
	Use:   "reset-db",
	Short: "Delete the build database (all build history is lost)",
	RunE:  runResetDB,
}

func init() {
	resetDBCmd.Flags().BoolVarP(&resetDBYes, "yes", "y", false, "skip the confirmation prompt")
}

func runResetDB(cmd *cobra.Command, args []string) error {
	if !resetDBYes && !util.AskYN("This deletes all build history. Continue?", false) {
		fmt.Println("aborted")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := service.NewService(cfg)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	// service.ResetDatabase closes and nils out the database handle
	// itself, so Close afterward only needs to release the logger.
	defer svc.Close()

	result, err := svc.ResetDatabase()
	if err != nil {
		return err
	}
	if !result.DatabaseRemoved {
		fmt.Println("no database present")
		return nil
	}
	for _, f := range result.FilesRemoved {
		fmt.Printf("removed %s\n", f)
	}
	return nil
}
