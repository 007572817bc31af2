package sheets

import (
	"context"
	"testing"
	"time"

	"obras/internal/core"
)

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("New without spreadsheet id should fail")
	}
}

func TestResolveCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"inline JSON", Config{CredentialsJSON: `{"type":"service_account"}`}, `{"type":"service_account"}`, false},
		{"missing", Config{}, "", true},
		{"nonexistent file", Config{CredentialsFile: "/non/existent.json"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCredentials(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveCredentials() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && string(got) != tt.want {
				t.Errorf("resolveCredentials() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := core.EarnedValueReport{
		WorkID:           "work-1",
		GeneratedAt:      now,
		TotalBudget:      core.Money{Cents: 1000000},
		TotalEarned:      core.Money{Cents: 650000},
		TotalSpend:       core.Money{Cents: 500000},
		TotalVariance:    core.Money{Cents: -150000},
		WeightedProgress: 65,
		Categories: []core.CategoryEarnedValue{
			{CategoryID: "c1", Name: "Fundação", Budgeted: core.Money{Cents: 700000}, Progress: 80, Earned: core.Money{Cents: 560000}},
			{CategoryID: "c2", Name: "Alvenaria", Budgeted: core.Money{Cents: 300000}, Progress: 30, Earned: core.Money{Cents: 90000}},
		},
	}

	rows := buildRows(report)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (summary + 2 categories)", len(rows))
	}
	if rows[0][2] != "TOTAL" || rows[0][3] != 10000.0 {
		t.Errorf("summary row = %v", rows[0])
	}
	if rows[1][2] != "Fundação" || rows[1][4] != 80 {
		t.Errorf("category row = %v", rows[1])
	}
	if rows[0][0] != "2026-03-01T12:00:00Z" {
		t.Errorf("timestamp = %v", rows[0][0])
	}
}
