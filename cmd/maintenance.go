package cmd

import (
	"github.com/spf13/cobra"

	"portforge/hostpkg"
	"portforge/repo"
)

var rebuildRepoCmd = &cobra.Command{
	Use:   "rebuild-repo",
	Short: "Rebuild the pkg(8) repository database",
	RunE:  runRebuildRepo,
}

var upgradeHostCmd = &cobra.Command{
	Use:   "upgrade-host",
	Short: "Upgrade the host's own pkg(8)-managed packages",
	RunE:  runUpgradeHost,
}

func runRebuildRepo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return repo.Rebuild(cfg)
}

func runUpgradeHost(cmd *cobra.Command, args []string) error {
	return hostpkg.Upgrade()
}
