package amqp

import (
	"encoding/json"
	"time"
)

// BudgetUpdatedMessage announces that a work's budget aggregate was
// saved. Consumers fetch the full aggregate by work id; the message
// stays lightweight on purpose.
type BudgetUpdatedMessage struct {
	WorkID    string    `json:"workId"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressAppliedMessage announces a progress change: a daily log was
// folded in (LogID set) or an operator edited a category directly
// (LogID empty). WeightedProgress is the work-level figure after the
// change, for dashboard feeds that only need the headline number.
type ProgressAppliedMessage struct {
	WorkID           string    `json:"workId"`
	LogID            string    `json:"logId,omitempty"`
	WeightedProgress float64   `json:"weightedProgress"`
	Timestamp        time.Time `json:"timestamp"`
}

func (m *BudgetUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ProgressAppliedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetUpdatedMessageFromJSON(data []byte) (*BudgetUpdatedMessage, error) {
	var msg BudgetUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func ProgressAppliedMessageFromJSON(data []byte) (*ProgressAppliedMessage, error) {
	var msg ProgressAppliedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
