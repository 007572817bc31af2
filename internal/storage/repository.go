// Package storage is the SQLite adapter for the engine's ports. The
// budget aggregate travels as a JSON document with a version column;
// stages, tasks and financial records are plain rows.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"obras/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetBudget implements ports.BudgetRepository. The version and
// timestamp columns are authoritative over whatever the document says.
func (r *SQLiteRepository) GetBudget(ctx context.Context, workID string) (*core.WorkBudget, error) {
	var (
		document  string
		version   int64
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT document, version, updated_at FROM work_budgets WHERE work_id = ?`, workID).
		Scan(&document, &version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrBudgetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query budget: %w", err)
	}

	var b core.WorkBudget
	if err := json.Unmarshal([]byte(document), &b); err != nil {
		return nil, fmt.Errorf("decode budget document: %w", err)
	}
	b.Version = version
	b.UpdatedAt = updatedAt
	return &b, nil
}

// SaveBudget implements ports.BudgetRepository: insert or update with
// the optimistic version check, returning the aggregate at Version+1.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b *core.WorkBudget) (*core.WorkBudget, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	saved, err := saveBudgetTx(ctx, tx, b)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved",
		"work_id", saved.WorkID,
		"version", saved.Version,
		"total_value_cents", saved.TotalValue.Cents)
	return saved, nil
}

// ApplyDailyLog implements ports.BudgetRepository. The applied-log
// marker, the budget write and the task transitions share one
// transaction; any failure rolls back all of them.
func (r *SQLiteRepository) ApplyDailyLog(ctx context.Context, b *core.WorkBudget, logID string, completedTaskIDs []string) (*core.WorkBudget, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM applied_logs WHERE work_id = ? AND log_id = ?`, b.WorkID, logID).
		Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check applied log: %w", err)
	}
	if exists > 0 {
		return nil, core.ErrLogAlreadyApplied
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO applied_logs (work_id, log_id, applied_at) VALUES (?, ?, ?)`,
		b.WorkID, logID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("mark log applied: %w", err)
	}

	saved, err := saveBudgetTx(ctx, tx, b)
	if err != nil {
		return nil, err
	}

	for _, taskID := range completedTaskIDs {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = ?, physical_progress = 100 WHERE id = ?`,
			core.TaskDone, taskID)
		if err != nil {
			return nil, fmt.Errorf("complete task %s: %w", taskID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("complete task %s: %w", taskID, err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("complete task %s: %w", taskID, core.ErrTaskNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply: %w", err)
	}

	slog.InfoContext(ctx, "Daily log applied",
		"work_id", saved.WorkID,
		"log_id", logID,
		"completed_tasks", len(completedTaskIDs),
		"version", saved.Version)
	return saved, nil
}

func saveBudgetTx(ctx context.Context, tx *sql.Tx, b *core.WorkBudget) (*core.WorkBudget, error) {
	var storedVersion int64
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM work_budgets WHERE work_id = ?`, b.WorkID).
		Scan(&storedVersion)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if b.Version != 0 {
			return nil, core.ErrVersionConflict
		}
	case err != nil:
		return nil, fmt.Errorf("read stored version: %w", err)
	default:
		if storedVersion != b.Version {
			return nil, core.ErrVersionConflict
		}
	}

	next := *b
	next.Version = b.Version + 1
	next.UpdatedAt = time.Now().UTC()

	document, err := json.Marshal(&next)
	if err != nil {
		return nil, fmt.Errorf("encode budget document: %w", err)
	}

	if b.Version == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO work_budgets (work_id, version, document, updated_at) VALUES (?, ?, ?, ?)`,
			next.WorkID, next.Version, string(document), next.UpdatedAt)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE work_budgets SET version = ?, document = ?, updated_at = ? WHERE work_id = ? AND version = ?`,
			next.Version, string(document), next.UpdatedAt, next.WorkID, b.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("write budget: %w", err)
	}
	return &next, nil
}

// GetProgressMethod implements ports.SettingsStore; works without a
// stored setting default to the STAGES method.
func (r *SQLiteRepository) GetProgressMethod(ctx context.Context, workID string) (core.ProgressMethod, error) {
	var method string
	err := r.db.QueryRowContext(ctx,
		`SELECT progress_method FROM work_settings WHERE work_id = ?`, workID).
		Scan(&method)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MethodStages, nil
	}
	if err != nil {
		return "", fmt.Errorf("query progress method: %w", err)
	}
	return core.ProgressMethod(method), nil
}

func (r *SQLiteRepository) SetProgressMethod(ctx context.Context, workID string, m core.ProgressMethod) error {
	if !m.Valid() {
		return core.ErrUnknownProgressMethod
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_settings (work_id, progress_method) VALUES (?, ?)
		 ON CONFLICT(work_id) DO UPDATE SET progress_method = excluded.progress_method`,
		workID, string(m))
	if err != nil {
		return fmt.Errorf("set progress method: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListStages(ctx context.Context, workID string) ([]core.WorkStage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, work_id, name, status FROM work_stages WHERE work_id = ? ORDER BY rowid`, workID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var stages []core.WorkStage
	for rows.Next() {
		var s core.WorkStage
		if err := rows.Scan(&s.ID, &s.WorkID, &s.Name, &s.Status); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func (r *SQLiteRepository) AddStage(ctx context.Context, s core.WorkStage) error {
	if !s.Status.Valid() {
		return core.ErrUnknownStageStatus
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_stages (id, work_id, name, status) VALUES (?, ?, ?, ?)`,
		s.ID, s.WorkID, s.Name, string(s.Status))
	if err != nil {
		return fmt.Errorf("insert stage: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetStageStatus(ctx context.Context, workID, stageID string, status core.StageStatus) error {
	if !status.Valid() {
		return core.ErrUnknownStageStatus
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE work_stages SET status = ? WHERE id = ? AND work_id = ?`,
		string(status), stageID, workID)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if affected == 0 {
		return core.ErrStageNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, workID string) ([]core.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, work_id, name, status, physical_progress, stage_id, estimated_cost_cents
		 FROM tasks WHERE work_id = ? ORDER BY rowid`, workID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *SQLiteRepository) GetTask(ctx context.Context, taskID string) (*core.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, work_id, name, status, physical_progress, stage_id, estimated_cost_cents
		 FROM tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTask writes a task row. Task lifecycle belongs to the wider
// system; this is the sync entry point for it.
func (r *SQLiteRepository) UpsertTask(ctx context.Context, t core.Task) error {
	var stageID sql.NullString
	if id, ok := t.Stage.CategoryID(); ok {
		stageID = sql.NullString{String: id, Valid: true}
	}
	var cost sql.NullInt64
	if t.EstimatedCost != nil {
		cost = sql.NullInt64{Int64: t.EstimatedCost.Cents, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, work_id, name, status, physical_progress, stage_id, estimated_cost_cents)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   work_id = excluded.work_id,
		   name = excluded.name,
		   status = excluded.status,
		   physical_progress = excluded.physical_progress,
		   stage_id = excluded.stage_id,
		   estimated_cost_cents = excluded.estimated_cost_cents`,
		t.ID, t.WorkID, t.Name, string(t.Status), t.PhysicalProgress, stageID, cost)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListFinancialRecords(ctx context.Context, workID string) ([]core.FinancialRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, work_id, type, status, amount_cents, related_category_id, description, record_date
		 FROM financial_records WHERE work_id = ? ORDER BY rowid`, workID)
	if err != nil {
		return nil, fmt.Errorf("query financial records: %w", err)
	}
	defer rows.Close()

	var records []core.FinancialRecord
	for rows.Next() {
		var (
			rec      core.FinancialRecord
			category sql.NullString
			date     sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.WorkID, &rec.Type, &rec.Status,
			&rec.Amount.Cents, &category, &rec.Description, &date); err != nil {
			return nil, fmt.Errorf("scan financial record: %w", err)
		}
		rec.RelatedCategoryID = category.String
		rec.Date = date.Time
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertFinancialRecord writes a finance row for the engine to read.
// The engine itself never mutates these.
func (r *SQLiteRepository) InsertFinancialRecord(ctx context.Context, rec core.FinancialRecord) error {
	var category sql.NullString
	if rec.RelatedCategoryID != "" {
		category = sql.NullString{String: rec.RelatedCategoryID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO financial_records (id, work_id, type, status, amount_cents, related_category_id, description, record_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WorkID, string(rec.Type), string(rec.Status),
		rec.Amount.Cents, category, rec.Description, rec.Date)
	if err != nil {
		return fmt.Errorf("insert financial record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (core.Task, error) {
	var (
		t       core.Task
		stageID sql.NullString
		cost    sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.WorkID, &t.Name, &t.Status,
		&t.PhysicalProgress, &stageID, &cost); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Task{}, err
		}
		return core.Task{}, fmt.Errorf("scan task: %w", err)
	}
	if stageID.Valid {
		t.Stage = core.LinkedStage(stageID.String)
	}
	if cost.Valid {
		t.EstimatedCost = &core.Money{Cents: cost.Int64}
	}
	return t, nil
}
