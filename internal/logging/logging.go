// Package logging provides the structured, context-scoped zerolog logger
// shared by every component. Server-side logs always carry {agent_id,
// job_id?, component} per spec §7.
package logging

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()

	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	SetLevel(levelStr)
}

// SetLevel adjusts the global log level from a zerolog level name (e.g.
// "debug", "info"); a name zerolog does not recognise leaves it unchanged.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

type ctxKey struct{}

// WithComponent returns a context carrying a logger scoped to component.
func WithComponent(ctx context.Context, component string) context.Context {
	l := fromCtx(ctx).With().Str("component", component).Logger()
	return context.WithValue(ctx, ctxKey{}, &l)
}

// WithFields adds additional key/value string fields to the scoped logger.
func WithFields(ctx context.Context, fields map[string]string) context.Context {
	lctx := fromCtx(ctx).With()
	for k, v := range fields {
		lctx = lctx.Str(k, v)
	}
	l := lctx.Logger()
	return context.WithValue(ctx, ctxKey{}, &l)
}

func fromCtx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return &base
}

// From returns the logger scoped to ctx, falling back to the global logger.
func From(ctx context.Context) *zerolog.Logger { return fromCtx(ctx) }
