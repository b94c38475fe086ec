package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"portforge/config"
)

// PackageLogger writes one append-only build log per port, mirroring
// dsynth's per-port log file under LogsPath. Origin "devel/git" maps to
// devel___git.log so the slash never has to survive a filesystem path.
type PackageLogger struct {
	cfg     *config.Config
	portDir string

	mu   sync.Mutex
	file *os.File
}

// NewPackageLogger opens (creating or truncating) the log file for portDir
// under cfg.LogsPath. A failure to open is swallowed rather than returned:
// every PackageLogger method already tolerates a nil file, so a worker
// whose log directory is unwritable still builds, it just runs unlogged.
func NewPackageLogger(cfg *config.Config, portDir string) *PackageLogger {
	pl := &PackageLogger{cfg: cfg, portDir: portDir}

	name := strings.ReplaceAll(portDir, "/", "___") + ".log"
	f, err := os.Create(filepath.Join(cfg.LogsPath, name))
	if err == nil {
		pl.file = f
	}
	return pl
}

// Write satisfies io.Writer so a PackageLogger can be handed directly to
// exec.Cmd.Stdout/Stderr (see build's loggerWriter and sandbox's phase
// runner).
func (pl *PackageLogger) Write(p []byte) (int, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.file == nil {
		return len(p), nil
	}
	n, err := pl.file.Write(p)
	pl.file.Sync()
	return n, err
}

// WriteString appends msg verbatim, with no added framing.
func (pl *PackageLogger) WriteString(msg string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.file == nil {
		return
	}
	io.WriteString(pl.file, msg)
	pl.file.Sync()
}

// WriteCommand records the shell command about to run, prefixed the way
// dsynth's build log marks command boundaries.
func (pl *PackageLogger) WriteCommand(cmd string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.file == nil {
		return
	}
	fmt.Fprintf(pl.file, ">>> %s\n", cmd)
	pl.file.Sync()
}

func (pl *PackageLogger) WriteWarning(msg string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.file == nil {
		return
	}
	fmt.Fprintf(pl.file, "WARNING: %s\n", msg)
	pl.file.Sync()
}

func (pl *PackageLogger) WriteError(msg string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.file == nil {
		return
	}
	fmt.Fprintf(pl.file, "ERROR: %s\n", msg)
	pl.file.Sync()
}

// Close closes the underlying file. Safe to call more than once.
func (pl *PackageLogger) Close() {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.file == nil {
		return
	}
	pl.file.Close()
	pl.file = nil
}

// WriteHeader writes a banner naming the port directory and the start time.
func (pl *PackageLogger) WriteHeader() {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	fmt.Fprintf(pl.file, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(pl.file, "Build Log: %s\n", pl.portDir)
	fmt.Fprintf(pl.file, "Started: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(pl.file, "%s\n\n", strings.Repeat("=", 70))
	pl.file.Sync()
}

func (pl *PackageLogger) WritePhase(phase string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	fmt.Fprintf(pl.file, "\n")
	fmt.Fprintf(pl.file, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(pl.file, "Phase: %s\n", phase)
	fmt.Fprintf(pl.file, "Time: %s\n", time.Now().Format("15:04:05"))
	fmt.Fprintf(pl.file, "%s\n", strings.Repeat("=", 70))
	pl.file.Sync()
}

func (pl *PackageLogger) WriteSuccess(duration time.Duration) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	fmt.Fprintf(pl.file, "\n")
	fmt.Fprintf(pl.file, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(pl.file, "BUILD SUCCESS\n")
	fmt.Fprintf(pl.file, "Completed: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(pl.file, "Duration: %s\n", duration)
	fmt.Fprintf(pl.file, "%s\n", strings.Repeat("=", 70))
	pl.file.Sync()
}

func (pl *PackageLogger) WriteFailure(duration time.Duration, reason string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	fmt.Fprintf(pl.file, "\n")
	fmt.Fprintf(pl.file, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(pl.file, "BUILD FAILED\n")
	fmt.Fprintf(pl.file, "Reason: %s\n", reason)
	fmt.Fprintf(pl.file, "Completed: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(pl.file, "Duration: %s\n", duration)
	fmt.Fprintf(pl.file, "%s\n", strings.Repeat("=", 70))
	pl.file.Sync()
}