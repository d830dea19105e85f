package logger

import (
	"io"
	"log/slog"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Options configures optional log sinks beyond the local JSON writer.
type Options struct {
	// BetterStackToken enables shipping logs to Better Stack when non-empty.
	BetterStackToken string
	// BetterStackEndpoint is the ingesting host for the configured source.
	BetterStackEndpoint string
	// Async tunes the async pipeline in front of the remote sink.
	Async AsyncOptions
}

// NewWithOptions creates the application logger. Records always go to the
// local writer; when a Better Stack token is configured they are additionally
// shipped remotely through an async pipeline so slow uploads never block
// request handling. Context values (session ID, request ID) are extracted
// into attributes via ContextHandler.
func NewWithOptions(level string, w io.Writer, opts Options) *Logger {
	local := newJSONHandler(level, w)

	var async *AsyncHandler
	handler := slog.Handler(local)
	if opts.BetterStackToken != "" {
		remote := slogbetterstack.Option{
			Level:    parseLevel(level),
			Token:    opts.BetterStackToken,
			Endpoint: opts.BetterStackEndpoint,
		}.NewBetterstackHandler()
		async = NewAsyncHandler(remote, opts.Async)
		handler = NewMultiHandler(local, async)
	}

	return &Logger{
		Logger: slog.New(NewContextHandler(handler)),
		async:  async,
	}
}
