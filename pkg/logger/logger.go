package logger

import (
	"io"
	"log"
	"os"
)

// New returns a standard logger writing to stderr with a consistent prefix and
// UTC timestamps. Stdout is left to the data the commands print.
func New(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags|log.LUTC|log.Lmsgprefix)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// OrDiscard returns l, or a discarding logger if l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
