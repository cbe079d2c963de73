// Package debug holds the process-wide verbosity switches and builds the
// structured loggers used by the store, the transport and the CLI.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	enabled     = os.Getenv("INBOX_DEBUG") != ""
	verboseMode = false
	quietMode   = false

	mu   sync.Mutex
	root = zerolog.Nop()
)

// Enabled reports whether INBOX_DEBUG or --verbose turned on debug output.
func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// Level returns the log level implied by the switches, falling back to
// configured when neither is set.
func Level(configured string) string {
	switch {
	case Enabled():
		return "debug"
	case quietMode:
		return "error"
	case configured == "":
		return "warn"
	default:
		return configured
	}
}

// New builds a JSON logger at the given level. An empty file writes to
// stderr. The returned func closes the file.
func New(level string, file string) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writer io.Writer = os.Stderr
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, err
		}
		closer = func() { _ = f.Close() }
		writer = f
	}

	return NewWithWriter(writer, lvl), closer, nil
}

// NewWithWriter builds a logger on w. Tests use it with a bytes.Buffer.
func NewWithWriter(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(lvl)
}

// SetLogger installs the process logger returned by Logger and Component.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
}

// Logger returns the process logger. It discards everything until SetLogger
// is called.
func Logger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return root
}

// Component returns the process logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("cmp", name).Logger()
}
