package helper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
)

// PrettyHandlerOptions configures a PrettyHandler
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler is a colored single line slog handler for terminals
type PrettyHandler struct {
	slog.Handler
	l     *log.Logger
	buf   *bytes.Buffer
	mutex *sync.Mutex
}

// NewPrettyHandler creates a new PrettyHandler writing to out
func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	buf := &bytes.Buffer{}
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level:       opts.SlogOpts.Level,
			AddSource:   opts.SlogOpts.AddSource,
			ReplaceAttr: suppressDefaults(opts.SlogOpts.ReplaceAttr),
		}),
		l:     log.New(out, "", 0),
		buf:   buf,
		mutex: &sync.Mutex{},
	}
}

// Handle formats a record as "[time] LEVEL: message {attrs}"
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	attrs, err := h.computeAttrs(ctx, r)
	if err != nil {
		return err
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	timeStr := r.Time.Format("[15:04:05.000]")
	msg := color.CyanString(r.Message)

	h.l.Println(timeStr, level, msg, color.WhiteString(string(b)))
	return nil
}

// WithAttrs returns a handler carrying attrs on every record
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{Handler: h.Handler.WithAttrs(attrs), l: h.l, buf: h.buf, mutex: h.mutex}
}

// WithGroup returns a handler nesting following attrs under name
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{Handler: h.Handler.WithGroup(name), l: h.l, buf: h.buf, mutex: h.mutex}
}

func (h *PrettyHandler) computeAttrs(ctx context.Context, r slog.Record) (map[string]any, error) {
	h.mutex.Lock()
	defer func() {
		h.buf.Reset()
		h.mutex.Unlock()
	}()
	if err := h.Handler.Handle(ctx, r); err != nil {
		return nil, err
	}

	var attrs map[string]any
	if err := json.Unmarshal(h.buf.Bytes(), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// suppressDefaults drops time, level and message from the inner JSON output
func suppressDefaults(next func([]string, slog.Attr) slog.Attr) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey {
			return slog.Attr{}
		}
		if next == nil {
			return a
		}
		return next(groups, a)
	}
}

// NewLogger returns a logger writing through a PrettyHandler to stdout
func NewLogger(level slog.Leveler) *slog.Logger {
	return slog.New(NewPrettyHandler(os.Stdout, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	}))
}
