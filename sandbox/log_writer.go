package sandbox

import "portforge/log"

// packageLogWriter adapts a log.PackageLogger to io.Writer so a phase's
// stdout/stderr can be teed directly into the build log, the same
// adapter shape as build/phases.go's loggerWriter.
type packageLogWriter struct {
	logger *log.PackageLogger
}

func (w *packageLogWriter) Write(p []byte) (int, error) {
	return w.logger.Write(p)
}
