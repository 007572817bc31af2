// Package memory is the in-process adapter for the engine's ports.
// It is the default backend for local runs and the fixture for tests:
// every method works on deep copies so callers can't mutate the store
// behind its back.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"obras/internal/core"
)

type Store struct {
	mu          sync.Mutex
	budgets     map[string]*core.WorkBudget        // by work id
	methods     map[string]core.ProgressMethod     // by work id
	stages      map[string][]core.WorkStage        // by work id
	tasks       map[string]core.Task               // by task id
	records     map[string][]core.FinancialRecord  // by work id
	appliedLogs map[string]bool                    // work id + log id
	now         func() time.Time
}

func New() *Store {
	return &Store{
		budgets:     make(map[string]*core.WorkBudget),
		methods:     make(map[string]core.ProgressMethod),
		stages:      make(map[string][]core.WorkStage),
		tasks:       make(map[string]core.Task),
		records:     make(map[string][]core.FinancialRecord),
		appliedLogs: make(map[string]bool),
		now:         time.Now,
	}
}

// SetClock overrides the store's clock, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) GetBudget(_ context.Context, workID string) (*core.WorkBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[workID]
	if !ok {
		return nil, core.ErrBudgetNotFound
	}
	return cloneBudget(b), nil
}

func (s *Store) SaveBudget(_ context.Context, b *core.WorkBudget) (*core.WorkBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(b)
}

func (s *Store) ApplyDailyLog(_ context.Context, b *core.WorkBudget, logID string, completedTaskIDs []string) (*core.WorkBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := b.WorkID + "/" + logID
	if s.appliedLogs[key] {
		return nil, core.ErrLogAlreadyApplied
	}
	for _, taskID := range completedTaskIDs {
		if _, ok := s.tasks[taskID]; !ok {
			return nil, fmt.Errorf("complete task %s: %w", taskID, core.ErrTaskNotFound)
		}
	}

	saved, err := s.saveLocked(b)
	if err != nil {
		return nil, err
	}
	for _, taskID := range completedTaskIDs {
		t := s.tasks[taskID]
		t.Status = core.TaskDone
		t.PhysicalProgress = 100
		s.tasks[taskID] = t
	}
	s.appliedLogs[key] = true
	return saved, nil
}

// saveLocked enforces the optimistic-concurrency contract: the caller's
// Version must match the stored one (zero for a new budget).
func (s *Store) saveLocked(b *core.WorkBudget) (*core.WorkBudget, error) {
	stored, exists := s.budgets[b.WorkID]
	if exists && stored.Version != b.Version {
		return nil, core.ErrVersionConflict
	}
	if !exists && b.Version != 0 {
		return nil, core.ErrVersionConflict
	}
	next := cloneBudget(b)
	next.Version = b.Version + 1
	next.UpdatedAt = s.now()
	s.budgets[b.WorkID] = next
	return cloneBudget(next), nil
}

func (s *Store) GetProgressMethod(_ context.Context, workID string) (core.ProgressMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.methods[workID]; ok {
		return m, nil
	}
	return core.MethodStages, nil
}

func (s *Store) SetProgressMethod(_ context.Context, workID string, m core.ProgressMethod) error {
	if !m.Valid() {
		return core.ErrUnknownProgressMethod
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[workID] = m
	return nil
}

func (s *Store) ListStages(_ context.Context, workID string) ([]core.WorkStage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.WorkStage(nil), s.stages[workID]...), nil
}

func (s *Store) AddStage(_ context.Context, st core.WorkStage) error {
	if !st.Status.Valid() {
		return core.ErrUnknownStageStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[st.WorkID] = append(s.stages[st.WorkID], st)
	return nil
}

func (s *Store) SetStageStatus(_ context.Context, workID, stageID string, status core.StageStatus) error {
	if !status.Valid() {
		return core.ErrUnknownStageStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stages := s.stages[workID]
	for i := range stages {
		if stages[i].ID == stageID {
			stages[i].Status = status
			return nil
		}
	}
	return core.ErrStageNotFound
}

func (s *Store) ListTasks(_ context.Context, workID string) ([]core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Task
	for _, t := range s.tasks {
		if t.WorkID == workID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) GetTask(_ context.Context, taskID string) (*core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, core.ErrTaskNotFound
	}
	copy := t
	return &copy, nil
}

// PutTask inserts or replaces a task. Task lifecycle is owned by the
// wider system; the store exposes this for seeding and tests.
func (s *Store) PutTask(t core.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

func (s *Store) ListFinancialRecords(_ context.Context, workID string) ([]core.FinancialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.FinancialRecord(nil), s.records[workID]...), nil
}

// AddFinancialRecord seeds a finance entry; the engine itself never
// writes records.
func (s *Store) AddFinancialRecord(r core.FinancialRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.WorkID] = append(s.records[r.WorkID], r)
}

// cloneBudget deep-copies the aggregate through its JSON document form,
// which is also the shape the SQLite adapter persists.
func cloneBudget(b *core.WorkBudget) *core.WorkBudget {
	data, err := json.Marshal(b)
	if err != nil {
		panic(fmt.Sprintf("clone budget: %v", err))
	}
	var out core.WorkBudget
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("clone budget: %v", err))
	}
	return &out
}
