package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Level is shared by every handler built here so a flag can change verbosity
// after the logger exists.
var Level = new(slog.LevelVar)

type Options struct {
	// Terminal receives human readable records. Defaults to os.Stderr; set
	// Quiet to drop it.
	Terminal io.Writer
	Quiet    bool

	// JSONFile, when set, receives every record as JSON lines.
	JSONFile string

	// Journal forces the systemd journal handler. It is enabled automatically
	// when the process runs as a systemd service.
	Journal bool
}

// Logger is a configured slog logger plus the files it owns.
type Logger struct {
	*slog.Logger
	closers []io.Closer
}

func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("logging: invalid level %q", s)
	}
	return level, nil
}

func New(opts Options) (*Logger, error) {
	var (
		handlers []slog.Handler
		closers  []io.Closer
	)
	handlerOpts := &slog.HandlerOptions{Level: Level}

	// an explicit terminal writer always wins over service detection
	service := opts.Terminal == nil && isSystemdService()
	var terminalHandler slog.Handler
	if !opts.Quiet && !service {
		w := opts.Terminal
		if w == nil {
			w = os.Stderr
		}
		terminalHandler = slog.NewTextHandler(w, handlerOpts)
		handlers = append(handlers, terminalHandler)
	}

	if opts.JSONFile != "" {
		f, err := os.OpenFile(opts.JSONFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", opts.JSONFile, err)
		}
		closers = append(closers, f)
		handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
	}

	if opts.Journal || service {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminalHandler != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
				record.Add("error", err)
				_ = terminalHandler.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	if len(handlers) == 0 {
		return &Logger{Logger: slog.New(slog.DiscardHandler), closers: closers}, nil
	}
	return &Logger{
		Logger:  slog.New(&Handler{Handler: slogmulti.Fanout(handlers...)}),
		closers: closers,
	}, nil
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
