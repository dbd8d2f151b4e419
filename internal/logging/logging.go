// Package logging builds the slog loggers used by the command line.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// New returns a logger writing to w. format "json" selects the JSON
// handler; anything else selects the colored human handler.
func New(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := slog.HandlerOptions{Level: level}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &opts))
	}
	return slog.New(NewPrettyHandler(w, PrettyHandlerOptions{SlogOpts: opts}))
}

// PrettyHandlerOptions configures a PrettyHandler
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler prints one colored line per record:
// "LEVEL: message key=value ...".
type PrettyHandler struct {
	slog.Handler
	l     *log.Logger
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a PrettyHandler writing to out
func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewTextHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
	}
}

// Handle formats and writes r
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch {
	case r.Level >= slog.LevelError:
		level = color.RedString(level)
	case r.Level >= slog.LevelWarn:
		level = color.YellowString(level)
	case r.Level >= slog.LevelInfo:
		level = color.BlueString(level)
	default:
		level = color.MagentaString(level)
	}

	fields := make(map[string]string, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = a.Value.String()
		return true
	})

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(r.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", color.CyanString(k), fields[k])
	}

	h.l.Println(b.String())
	return nil
}

// WithAttrs returns a handler that adds attrs to every record
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		merged = append(merged, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &PrettyHandler{
		Handler: h.Handler.WithAttrs(attrs),
		l:       h.l,
		attrs:   merged,
		group:   h.group,
	}
}

// WithGroup returns a handler that qualifies later keys with name
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &PrettyHandler{
		Handler: h.Handler.WithGroup(name),
		l:       h.l,
		attrs:   h.attrs,
		group:   group,
	}
}

func (h *PrettyHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}
