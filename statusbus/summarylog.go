package statusbus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
)

// summaryRotateThreshold is the size at which SummaryLogSubscriber
// gzip-rotates Summary.log — the original dsynth leaves retention to
// logrotate; portforge does it inline so a long-running daemon install
// never needs an external cron job.
const summaryRotateThreshold = 8 << 20 // 8 MiB

// SummaryLogSubscriber appends every event to an on-disk Summary.log,
// the append-only event stream spec §6's on-disk layout names. It is
// the teacher's resultsFile (log/logger.go's Logger.resultsFile)
// promoted from a single Logger method set into a standalone bus
// subscriber.
type SummaryLogSubscriber struct {
	path string
}

// NewSummaryLogSubscriber creates path's parent directory if absent and
// returns a subscriber for path; Run opens the file for appending.
func NewSummaryLogSubscriber(path string) (*SummaryLogSubscriber, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create summary log dir: %w", err)
	}
	return &SummaryLogSubscriber{path: path}, nil
}

// Run writes every event to Summary.log until events closes, rotating
// the file to a timestamped .gz once it crosses summaryRotateThreshold.
func (s *SummaryLogSubscriber) Run(events <-chan Event) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open summary log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	for ev := range events {
		if ev.Kind == ProgressTick {
			continue // cosmetic; not part of the durable event record
		}
		line := formatLine(ev)
		if _, err := w.WriteString(line); err != nil {
			return fmt.Errorf("write summary log: %w", err)
		}
		w.Flush()

		if info, err := f.Stat(); err == nil && info.Size() > summaryRotateThreshold {
			if err := s.rotate(f); err != nil {
				return err
			}
			f, err = os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("reopen summary log after rotate: %w", err)
			}
			w = bufio.NewWriter(f)
		}
	}
	return nil
}

func formatLine(ev Event) string {
	ts := time.Now().Format("15:04:05")
	switch ev.Kind {
	case Started:
		return fmt.Sprintf("[%s] STARTED: %s (slot %d)\n", ts, ev.Port, ev.Slot)
	case PhaseChanged:
		return fmt.Sprintf("[%s] PHASE: %s -> %s (slot %d)\n", ts, ev.Port, ev.Phase, ev.Slot)
	case Succeeded:
		return fmt.Sprintf("[%s] SUCCESS: %s\n", ts, ev.Port)
	case Failed:
		return fmt.Sprintf("[%s] FAILED: %s (%s)\n", ts, ev.Port, ev.Reason)
	case Skipped:
		return fmt.Sprintf("[%s] SKIPPED: %s (%s)\n", ts, ev.Port, ev.Reason)
	default:
		return fmt.Sprintf("[%s] %s: %s\n", ts, ev.Kind, ev.Port)
	}
}

// rotate gzip-compresses the current Summary.log to
// Summary.log.<unix-timestamp>.gz and truncates the live file, using
// klauspost/compress for the faster, lower-allocation gzip writer the
// rest of the pack reaches for over compress/gzip on hot paths.
func (s *SummaryLogSubscriber) rotate(f *os.File) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek summary log for rotation: %w", err)
	}

	rotatedPath := fmt.Sprintf("%s.%d.gz", s.path, rotationStamp())
	dst, err := os.Create(rotatedPath)
	if err != nil {
		return fmt.Errorf("create rotated summary log: %w", err)
	}
	defer dst.Close()

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, f); err != nil {
		return fmt.Errorf("compress rotated summary log: %w", err)
	}
	if err := gz.Close(); err != nil {
		return err
	}

	return f.Truncate(0)
}

func rotationStamp() int64 {
	return time.Now().Unix()
}
