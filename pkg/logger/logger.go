package logger

import "go.uber.org/zap"

// New returns the process-wide logger: human-readable in dev mode, JSON
// otherwise
func New(devMode bool) (*zap.Logger, error) {
	if devMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
