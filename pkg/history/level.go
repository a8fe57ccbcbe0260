package history

import (
	"fmt"
	"strings"
)

// Level controls how much history the execution engine produces. The
// retention engine consults it to decide whether a job lifecycle event
// results in a job log row.
type Level int

const (
	LevelNone Level = iota
	LevelActivity
	LevelAudit
	LevelFull
)

// String returns the configuration name of the level.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelActivity:
		return "activity"
	case LevelAudit:
		return "audit"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a history level name. An empty name selects full.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return LevelNone, nil
	case "activity":
		return LevelActivity, nil
	case "audit":
		return LevelAudit, nil
	case "full", "":
		return LevelFull, nil
	default:
		return LevelNone, fmt.Errorf("unknown history level %q (expected none, activity, audit or full)", s)
	}
}

// ProducesJobLog reports whether a job event in the given state is written
// as a job log at this level. Job logs are only produced at full history.
func (l Level) ProducesJobLog(state JobState) bool {
	if l < LevelFull {
		return false
	}
	switch state {
	case JobCreated, JobFailed, JobSuccessful, JobDeleted:
		return true
	default:
		return false
	}
}
