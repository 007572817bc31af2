package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"obras/internal/core"
	"obras/internal/ports"
)

// ProgressService turns field-reported completion into authoritative
// category progress. Two pathways exist: the manual operator edit
// (absolute write, decrease allowed) and the daily-log delta
// application (clamped increments, applied exactly once per log).
type ProgressService struct {
	repo   ports.BudgetRepository
	tasks  ports.TaskStore
	events EventPublisher
}

func NewProgressService(repo ports.BudgetRepository, tasks ports.TaskStore, events EventPublisher) *ProgressService {
	return &ProgressService{
		repo:   repo,
		tasks:  tasks,
		events: events,
	}
}

// SetCategoryProgress is the manual override pathway: an operator sets
// an explicit value in [0,100], overwriting whatever was there. This is
// the one place where progress may decrease (a correction).
func (s *ProgressService) SetCategoryProgress(ctx context.Context, workID, categoryID string, progress int) (*core.WorkBudget, error) {
	b, err := s.repo.GetBudget(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	if err := b.SetCategoryProgress(categoryID, progress); err != nil {
		return nil, err
	}
	saved, err := s.repo.SaveBudget(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}

	slog.InfoContext(ctx, "Category progress set manually",
		"work_id", workID,
		"category_id", categoryID,
		"progress", progress,
		"version", saved.Version)

	s.publishApplied(ctx, workID, "", saved.WeightedProgress())
	return saved, nil
}

// ApplyDailyLog folds one field report into category progress. For each
// update whose task is linked to a category, the delta is added and
// clamped at 100 and the task transitions to DONE; unlinked tasks are a
// defined no-op. The budget write, the task transitions and the
// applied-log marker commit atomically — a log is applied exactly once,
// and a log edited after application is never re-applied.
func (s *ProgressService) ApplyDailyLog(ctx context.Context, workID, logID string, updates []core.ProgressUpdate) (*core.WorkBudget, error) {
	b, err := s.repo.GetBudget(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}

	var completedTaskIDs []string
	linked := 0
	for _, u := range updates {
		task, err := s.tasks.GetTask(ctx, u.TaskID)
		if err != nil {
			return nil, fmt.Errorf("resolve task %s: %w", u.TaskID, err)
		}
		categoryID, ok := task.Stage.CategoryID()
		if !ok {
			slog.DebugContext(ctx, "Progress update for unlinked task skipped",
				"work_id", workID, "log_id", logID, "task_id", u.TaskID, "delta", u.Delta)
			continue
		}
		if _, err := b.ApplyProgressDelta(categoryID, u.Delta); err != nil {
			return nil, err
		}
		completedTaskIDs = append(completedTaskIDs, task.ID)
		linked++
	}

	if linked == 0 {
		slog.InfoContext(ctx, "Daily log carried no linked progress updates",
			"work_id", workID, "log_id", logID, "updates", len(updates))
		return b, nil
	}

	saved, err := s.repo.ApplyDailyLog(ctx, b, logID, completedTaskIDs)
	if err != nil {
		if errors.Is(err, core.ErrLogAlreadyApplied) {
			slog.WarnContext(ctx, "Daily log was already applied, skipping",
				"work_id", workID, "log_id", logID)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "Daily log applied",
		"work_id", workID,
		"log_id", logID,
		"linked_updates", linked,
		"version", saved.Version)

	s.publishApplied(ctx, workID, logID, saved.WeightedProgress())
	return saved, nil
}

// ApplyMeasurement is the dedicated measurement step: the operator saw
// the category's current progress and chose a delta within what is
// left. Zero is allowed (labor without measurable physical advance) and
// still marks the task complete.
func (s *ProgressService) ApplyMeasurement(ctx context.Context, workID, logID, taskID string, delta int) (*core.WorkBudget, error) {
	if delta < 0 {
		return nil, core.ErrNegativeDelta
	}
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("resolve task %s: %w", taskID, err)
	}
	categoryID, ok := task.Stage.CategoryID()
	if !ok {
		return nil, core.ErrTaskNotLinked
	}

	b, err := s.repo.GetBudget(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	current, err := b.CategoryProgress(categoryID)
	if err != nil {
		return nil, err
	}
	if delta > 100-current {
		return nil, core.ErrDeltaExceedsRemaining
	}
	if _, err := b.ApplyProgressDelta(categoryID, delta); err != nil {
		return nil, err
	}

	saved, err := s.repo.ApplyDailyLog(ctx, b, logID, []string{taskID})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Measurement applied",
		"work_id", workID,
		"log_id", logID,
		"task_id", taskID,
		"category_id", categoryID,
		"delta", delta,
		"version", saved.Version)

	s.publishApplied(ctx, workID, logID, saved.WeightedProgress())
	return saved, nil
}

func (s *ProgressService) publishApplied(ctx context.Context, workID, logID string, weightedProgress float64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishProgressApplied(ctx, workID, logID, weightedProgress); err != nil {
		slog.ErrorContext(ctx, "Failed to publish progress event",
			"work_id", workID, "log_id", logID, "error", err)
	}
}
