// Package gwlog builds the gateway's structured logger and request-scoped
// children carrying a request ID.
package gwlog

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// New builds the root logger for the process. level is one of
// trace/debug/info/warn/error; logFile, if non-empty, is created or
// truncated at startup and used instead of stderr.
func New(level, logFile string) (hclog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closer = f
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "ollama-gateway",
		Level:      hclog.LevelFromString(level),
		Output:     out,
		JSONFormat: logFile != "",
	})
	return logger, closer, nil
}

// ForRequest returns a child logger carrying request_id for the lifetime of
// a single HTTP request.
func ForRequest(base hclog.Logger, requestID string) hclog.Logger {
	return base.With("request_id", requestID)
}
