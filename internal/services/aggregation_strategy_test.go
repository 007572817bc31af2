package services

import (
	"context"
	"errors"
	"testing"

	"obras/internal/core"
	"obras/internal/memory"
)

func TestStagesStrategyWorkProgress(t *testing.T) {
	tests := []struct {
		name     string
		statuses []core.StageStatus
		want     int
	}{
		{"no stages", nil, 0},
		{"none completed", []core.StageStatus{core.StagePending, core.StageInProgress}, 0},
		{"one of three", []core.StageStatus{core.StageCompleted, core.StagePending, core.StagePending}, 33},
		{"two of three", []core.StageStatus{core.StageCompleted, core.StageCompleted, core.StagePending}, 67},
		{"all completed", []core.StageStatus{core.StageCompleted, core.StageCompleted}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			for i, st := range tt.statuses {
				err := store.AddStage(context.Background(), core.WorkStage{
					ID: string(rune('a' + i)), WorkID: "work-1", Name: "stage", Status: st,
				})
				if err != nil {
					t.Fatalf("AddStage: %v", err)
				}
			}
			got, err := NewStagesStrategy(store).WorkProgress(context.Background(), "work-1")
			if err != nil {
				t.Fatalf("WorkProgress: %v", err)
			}
			if got != tt.want {
				t.Errorf("WorkProgress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTasksStrategyWorkProgress(t *testing.T) {
	tests := []struct {
		name     string
		statuses []core.TaskStatus
		want     int
	}{
		{"no tasks", nil, 0},
		{"half done", []core.TaskStatus{core.TaskDone, core.TaskPending}, 50},
		{"all done", []core.TaskStatus{core.TaskDone, core.TaskDone, core.TaskDone}, 100},
		{"in progress does not count", []core.TaskStatus{core.TaskInProgress, core.TaskPending}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			for i, st := range tt.statuses {
				store.PutTask(core.Task{ID: string(rune('a' + i)), WorkID: "work-1", Status: st})
			}
			got, err := NewTasksStrategy(store).WorkProgress(context.Background(), "work-1")
			if err != nil {
				t.Fatalf("WorkProgress: %v", err)
			}
			if got != tt.want {
				t.Errorf("WorkProgress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProgressAggregatorDispatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	// one completed stage out of two, one done task out of four
	_ = store.AddStage(context.Background(), core.WorkStage{ID: "s1", WorkID: "work-1", Name: "Fundação", Status: core.StageCompleted})
	_ = store.AddStage(context.Background(), core.WorkStage{ID: "s2", WorkID: "work-1", Name: "Estrutura", Status: core.StagePending})
	for i, st := range []core.TaskStatus{core.TaskDone, core.TaskPending, core.TaskPending, core.TaskPending} {
		store.PutTask(core.Task{ID: string(rune('a' + i)), WorkID: "work-1", Status: st})
	}

	agg := NewProgressAggregator(store, store, store)

	// default method is STAGES
	got, method, err := agg.WorkProgress(ctx, "work-1")
	if err != nil {
		t.Fatalf("WorkProgress: %v", err)
	}
	if method != core.MethodStages || got != 50 {
		t.Errorf("default method: got %d via %s, want 50 via STAGES", got, method)
	}

	// switching the method re-derives without touching any data
	if err := agg.SetMethod(ctx, "work-1", core.MethodTasks); err != nil {
		t.Fatalf("SetMethod: %v", err)
	}
	got, method, err = agg.WorkProgress(ctx, "work-1")
	if err != nil {
		t.Fatalf("WorkProgress: %v", err)
	}
	if method != core.MethodTasks || got != 25 {
		t.Errorf("after switch: got %d via %s, want 25 via TASKS", got, method)
	}

	// switching back restores the stage-derived figure
	if err := agg.SetMethod(ctx, "work-1", core.MethodStages); err != nil {
		t.Fatalf("SetMethod: %v", err)
	}
	got, _, err = agg.WorkProgress(ctx, "work-1")
	if err != nil {
		t.Fatalf("WorkProgress: %v", err)
	}
	if got != 50 {
		t.Errorf("after switching back: got %d, want 50", got)
	}

	if err := agg.SetMethod(ctx, "work-1", "GUESSWORK"); !errors.Is(err, core.ErrUnknownProgressMethod) {
		t.Errorf("expected ErrUnknownProgressMethod, got %v", err)
	}
}
