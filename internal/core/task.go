package core

import (
	"encoding/json"
	"errors"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskNotLinked     = errors.New("task not linked to a budget category")
	ErrLogAlreadyApplied = errors.New("daily log already applied")
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// StageRef is a task's optional link to a budget category. The zero
// value is the unlinked state, so the no-op branch for unlinked tasks
// is an explicit check instead of a stray empty string.
type StageRef struct {
	categoryID string
}

// LinkedStage returns a reference to the given category.
func LinkedStage(categoryID string) StageRef {
	return StageRef{categoryID: categoryID}
}

// CategoryID reports the linked category, if any.
func (r StageRef) CategoryID() (string, bool) {
	return r.categoryID, r.categoryID != ""
}

// Linked reports whether the task points at a budget category.
func (r StageRef) Linked() bool {
	return r.categoryID != ""
}

func (r StageRef) MarshalJSON() ([]byte, error) {
	if r.categoryID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.categoryID)
}

func (r *StageRef) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		r.categoryID = ""
		return nil
	}
	r.categoryID = *s
	return nil
}

// Task is a field activity. The engine only reads its stage link and
// physical progress, and marks it done when a measured delta completes
// it; everything else about tasks lives outside this core.
type Task struct {
	ID               string     `json:"id"`
	WorkID           string     `json:"workId"`
	Name             string     `json:"name"`
	Status           TaskStatus `json:"status"`
	PhysicalProgress int        `json:"physicalProgress"`
	Stage            StageRef   `json:"stageId"`
	EstimatedCost    *Money     `json:"estimatedCost,omitempty"`
}

// ProgressUpdate is one entry of a daily log: an incremental completion
// percentage contributed by a task, not an absolute value.
type ProgressUpdate struct {
	TaskID string `json:"taskId"`
	Delta  int    `json:"progressDelta"`
	Note   string `json:"note,omitempty"`
}
