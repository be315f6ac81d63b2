package analysis

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunContext carries what every component of one audit run shares
type RunContext struct {
	RunID  string
	Logger *zap.Logger
}

// NewRunContext starts a run with a fresh identifier. The logger is tagged
// with the run ID; a nil logger discards output.
func NewRunContext(logger *zap.Logger) *RunContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()
	return &RunContext{
		RunID:  runID,
		Logger: logger.With(zap.String("run_id", runID)),
	}
}

func (rc *RunContext) logger() *zap.Logger {
	if rc == nil || rc.Logger == nil {
		return zap.NewNop()
	}
	return rc.Logger
}
