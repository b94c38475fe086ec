package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"portforge/config"
	"portforge/service"
)

var initSkipSystemFiles bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default portforge.ini and set up the build environment",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initSkipSystemFiles, "skip-system-files", false, "skip copying host /etc files into the build template (for testing)")
}

// runInit is idempotent: a missing portforge.ini is written with computed
// defaults, an existing one is left alone and its own directories/template/
// database are (re-)verified — rerunning init after a partial failure, or
// against a config an operator already hand-edited, must not fail just
// because the file is already there.
func runInit(cmd *cobra.Command, args []string) error {
	dir := flagConfigDir
	if dir == "" {
		dir = "/etc/portforge"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, "portforge.ini")
	if _, err := os.Stat(path); err != nil {
		defaults, err := config.LoadConfig("", "")
		if err != nil {
			return fmt.Errorf("compute defaults: %w", err)
		}
		if err := config.WriteDefaultConfig(path, defaults); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote %s\n", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, err := service.NewService(cfg)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer svc.Close()

	result, err := svc.Initialize(service.InitOptions{SkipSystemFiles: initSkipSystemFiles})
	if err != nil {
		return fmt.Errorf("initialize build environment: %w", err)
	}
	for _, d := range result.DirsCreated {
		fmt.Printf("created %s\n", d)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("ports found: %d\n", result.PortsFound)
	fmt.Println("Initialization complete")
	return nil
}
