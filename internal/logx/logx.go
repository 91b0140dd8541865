package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options controls logger construction.
type Options struct {
	Level string    // zerolog level name; empty means info
	JSON  bool      // force JSON lines even on a terminal
	Out   io.Writer // defaults to os.Stderr
}

// NewLogger returns an info-level logger writing to stderr.
func NewLogger() zerolog.Logger {
	logger, _ := New(Options{})
	return logger
}

// New builds a logger. Output is the padded console format when Out is a
// terminal and JSON otherwise, so piped runs produce machine-readable logs.
func New(opts Options) (zerolog.Logger, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		level = l
	}

	callerOnce.Do(func() { zerolog.CallerMarshalFunc = shortCaller })

	w := out
	if !opts.JSON && isTerminal(out) {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
	return logger, nil
}

var callerOnce sync.Once

// shortCaller renders file:line without the directory, padded to 28
// characters for alignment.
func shortCaller(_ uintptr, file string, line int) string {
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return fmt.Sprintf("%-28s", fmt.Sprintf("%s:%d", short, line))
}

// WithRunID tags every event of log with a fresh run_id and returns the id.
func WithRunID(log zerolog.Logger) (zerolog.Logger, string) {
	id := uuid.NewString()
	return log.With().Str("run_id", id).Logger(), id
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
