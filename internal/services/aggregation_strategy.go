// Package services provides the orchestration layer of the budget
// engine: cost-model edits, progress propagation, work-level
// aggregation and earned-value reporting.
//
// This file implements the Strategy Pattern for work-level progress
// aggregation. The two methods read different structures (the simple
// tri-state stage list vs. the task list) and are deliberately kept as
// independent strategies behind one interface instead of unifying the
// underlying data.
package services

import (
	"context"
	"fmt"
	"math"

	"obras/internal/core"
	"obras/internal/ports"
)

// ProgressAggregationStrategy derives the headline percentage of a
// work. Implementations hold no state beyond their data source; every
// call recomputes from scratch.
type ProgressAggregationStrategy interface {
	WorkProgress(ctx context.Context, workID string) (int, error)
}

// StagesStrategy is the default method: the share of schedule stages
// marked COMPLETED. Zero stages means zero progress.
type StagesStrategy struct {
	stages ports.StageStore
}

func NewStagesStrategy(stages ports.StageStore) StagesStrategy {
	return StagesStrategy{stages: stages}
}

func (s StagesStrategy) WorkProgress(ctx context.Context, workID string) (int, error) {
	stages, err := s.stages.ListStages(ctx, workID)
	if err != nil {
		return 0, fmt.Errorf("list stages: %w", err)
	}
	if len(stages) == 0 {
		return 0, nil
	}
	completed := 0
	for _, st := range stages {
		if st.Status == core.StageCompleted {
			completed++
		}
	}
	return roundRatio(completed, len(stages)), nil
}

// TasksStrategy counts DONE tasks over all tasks of the work,
// regardless of budget linkage. Zero tasks means zero progress.
type TasksStrategy struct {
	tasks ports.TaskStore
}

func NewTasksStrategy(tasks ports.TaskStore) TasksStrategy {
	return TasksStrategy{tasks: tasks}
}

func (s TasksStrategy) WorkProgress(ctx context.Context, workID string) (int, error) {
	tasks, err := s.tasks.ListTasks(ctx, workID)
	if err != nil {
		return 0, fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}
	done := 0
	for _, t := range tasks {
		if t.Status == core.TaskDone {
			done++
		}
	}
	return roundRatio(done, len(tasks)), nil
}

func roundRatio(part, total int) int {
	return int(math.Round(100 * float64(part) / float64(total)))
}

// ProgressAggregator dispatches to the strategy selected for the work.
// Switching the method is a pure re-derivation: only the formula
// changes, never the stage or task data.
type ProgressAggregator struct {
	settings   ports.SettingsStore
	strategies map[core.ProgressMethod]ProgressAggregationStrategy
}

func NewProgressAggregator(settings ports.SettingsStore, stages ports.StageStore, tasks ports.TaskStore) *ProgressAggregator {
	return &ProgressAggregator{
		settings: settings,
		strategies: map[core.ProgressMethod]ProgressAggregationStrategy{
			core.MethodStages: NewStagesStrategy(stages),
			core.MethodTasks:  NewTasksStrategy(tasks),
		},
	}
}

// Register installs a strategy for a method, replacing any existing
// one. Supports extension without touching the dispatch logic.
func (a *ProgressAggregator) Register(m core.ProgressMethod, s ProgressAggregationStrategy) {
	a.strategies[m] = s
}

// WorkProgress computes the headline percentage for a work using its
// configured method, and reports which method was used.
func (a *ProgressAggregator) WorkProgress(ctx context.Context, workID string) (int, core.ProgressMethod, error) {
	method, err := a.settings.GetProgressMethod(ctx, workID)
	if err != nil {
		return 0, "", fmt.Errorf("get progress method: %w", err)
	}
	strategy, ok := a.strategies[method]
	if !ok {
		return 0, method, fmt.Errorf("progress method %s: %w", method, core.ErrUnknownProgressMethod)
	}
	progress, err := strategy.WorkProgress(ctx, workID)
	if err != nil {
		return 0, method, err
	}
	return progress, method, nil
}

// SetMethod switches the aggregation method for a work.
func (a *ProgressAggregator) SetMethod(ctx context.Context, workID string, m core.ProgressMethod) error {
	if _, ok := a.strategies[m]; !ok {
		return core.ErrUnknownProgressMethod
	}
	return a.settings.SetProgressMethod(ctx, workID, m)
}
