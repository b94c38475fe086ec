package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Tail the running build's Summary.log",
	RunE:  runMonitor,
}

// runMonitor follows Summary.log the way `tail -f` would: the same
// append-only event record statusbus.SummaryLogSubscriber writes, so a
// separate process can watch a build already in progress without
// talking to the scheduler directly.
func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.LogsPath + "/Summary.log"
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek %s: %w", path, err)
	}

	fmt.Printf("Monitoring %s (Ctrl+C to exit)...\n", path)

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		fmt.Print(line)
	}
}
