package cmd

import (
	"github.com/spf13/cobra"

	"portforge/log"
)

var (
	logsTailLines int
	logsGrepExpr  string
)

var logsCmd = &cobra.Command{
	Use:   "logs [name]",
	Short: "List, tail, or grep build logs under Directory_logs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVar(&logsTailLines, "tail", 0, "show the last N lines of the named log instead of opening a pager")
	logsCmd.Flags().StringVar(&logsGrepExpr, "grep", "", "print lines of the named log matching this pattern instead of opening a pager")
	RootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		log.ListLogs(cfg)
		return nil
	}

	name := args[0]
	switch {
	case logsTailLines > 0:
		log.TailLog(cfg, name, logsTailLines)
	case logsGrepExpr != "":
		log.GrepLog(cfg, name, logsGrepExpr)
	default:
		log.ViewLog(cfg, name)
	}
	return nil
}
