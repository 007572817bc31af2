package core

import "errors"

var (
	ErrStageNotFound         = errors.New("work stage not found")
	ErrUnknownStageStatus    = errors.New("unknown stage status")
	ErrUnknownProgressMethod = errors.New("unknown progress method")
)

// StageStatus is the tri-state of the lightweight schedule-stage list.
// The list is a parallel structure to the priced budget hierarchy and
// the two are never unified.
type StageStatus string

const (
	StagePending    StageStatus = "PENDING"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageCompleted  StageStatus = "COMPLETED"
)

// Valid reports whether s is one of the three known statuses.
func (s StageStatus) Valid() bool {
	switch s {
	case StagePending, StageInProgress, StageCompleted:
		return true
	}
	return false
}

// WorkStage is one entry of the simple schedule list used by the
// STAGES aggregation method.
type WorkStage struct {
	ID     string      `json:"id"`
	WorkID string      `json:"workId"`
	Name   string      `json:"name"`
	Status StageStatus `json:"status"`
}

// ProgressMethod selects how the headline work-level percentage is
// derived. Switching methods is a pure re-derivation: it never touches
// stage or task data.
type ProgressMethod string

const (
	MethodStages ProgressMethod = "STAGES"
	MethodTasks  ProgressMethod = "TASKS"
)

// Valid reports whether m is a known method.
func (m ProgressMethod) Valid() bool {
	return m == MethodStages || m == MethodTasks
}
