package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// SetupLogging points the standard logger at stdout, stderr or a file. The
// returned closer releases the file, if one was opened.
func SetupLogging(outputPath string) (io.Closer, error) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	switch strings.ToLower(outputPath) {
	case "", "stdout":
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	case "stderr":
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}

// NewLogger returns a component logger that writes wherever the standard logger does.
func NewLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), prefix, log.Flags()|log.Lmsgprefix)
}

func IsDebug(level string) bool {
	return strings.EqualFold(level, "debug")
}
