package amqp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first attempt", 0, time.Second},
		{"second attempt", 1, 2 * time.Second},
		{"third attempt", 2, 4 * time.Second},
		{"fifth attempt", 4, 16 * time.Second},
		{"capped", 6, 30 * time.Second},
		{"far past the cap", 20, 30 * time.Second},
		{"shift overflow", 80, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExponentialBackoff(tt.attempt); got != tt.want {
				t.Errorf("ExponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestProgressAppliedMessageRoundTrip(t *testing.T) {
	msg := &ProgressAppliedMessage{
		WorkID:           "work-1",
		LogID:            "log-7",
		WeightedProgress: 65,
		Timestamp:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ProgressAppliedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.WorkID != msg.WorkID || got.LogID != msg.LogID || got.WeightedProgress != msg.WeightedProgress {
		t.Errorf("round trip = %+v, want %+v", got, msg)
	}
}

func TestProgressAppliedMessageOmitsEmptyLogID(t *testing.T) {
	msg := &ProgressAppliedMessage{WorkID: "work-1", WeightedProgress: 40, Timestamp: time.Now()}
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if strings.Contains(string(body), `"logId"`) {
		t.Errorf("manual edits carry no log id, got %s", body)
	}
}

type recordingHandler struct {
	budget   []*BudgetUpdatedMessage
	progress []*ProgressAppliedMessage
	err      error
}

func (h *recordingHandler) HandleBudgetUpdated(_ context.Context, msg *BudgetUpdatedMessage) error {
	h.budget = append(h.budget, msg)
	return h.err
}

func (h *recordingHandler) HandleProgressApplied(_ context.Context, msg *ProgressAppliedMessage) error {
	h.progress = append(h.progress, msg)
	return h.err
}

func TestHandleDeliveryDispatchesByRoutingKey(t *testing.T) {
	ctx := context.Background()
	h := &recordingHandler{}

	budgetBody, _ := (&BudgetUpdatedMessage{WorkID: "work-1", Version: 3, Timestamp: time.Now()}).ToJSON()
	requeue, err := handleDelivery(ctx, h, amqp091.Delivery{RoutingKey: routingKeyBudgetUpdated, Body: budgetBody})
	if err != nil || requeue {
		t.Fatalf("budget delivery: requeue=%v err=%v", requeue, err)
	}

	progressBody, _ := (&ProgressAppliedMessage{WorkID: "work-1", LogID: "log-9", WeightedProgress: 40, Timestamp: time.Now()}).ToJSON()
	requeue, err = handleDelivery(ctx, h, amqp091.Delivery{RoutingKey: routingKeyProgressApplied, Body: progressBody})
	if err != nil || requeue {
		t.Fatalf("progress delivery: requeue=%v err=%v", requeue, err)
	}

	if len(h.budget) != 1 || h.budget[0].Version != 3 {
		t.Errorf("budget handler calls = %+v, want one with version 3", h.budget)
	}
	if len(h.progress) != 1 || h.progress[0].LogID != "log-9" {
		t.Errorf("progress handler calls = %+v, want one with log-9", h.progress)
	}
}

func TestHandleDeliveryFailureModes(t *testing.T) {
	ctx := context.Background()
	body, _ := (&ProgressAppliedMessage{WorkID: "work-1"}).ToJSON()

	tests := []struct {
		name        string
		handler     *recordingHandler
		delivery    amqp091.Delivery
		wantRequeue bool
	}{
		{
			name:        "handler error requeues",
			handler:     &recordingHandler{err: errors.New("store down")},
			delivery:    amqp091.Delivery{RoutingKey: routingKeyProgressApplied, Body: body},
			wantRequeue: true,
		},
		{
			name:        "malformed body is dropped",
			handler:     &recordingHandler{},
			delivery:    amqp091.Delivery{RoutingKey: routingKeyBudgetUpdated, Body: []byte("{not json")},
			wantRequeue: false,
		},
		{
			name:        "unknown routing key is dropped",
			handler:     &recordingHandler{},
			delivery:    amqp091.Delivery{RoutingKey: "audit.trail", Body: body},
			wantRequeue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requeue, err := handleDelivery(ctx, tt.handler, tt.delivery)
			if err == nil {
				t.Fatal("expected an error")
			}
			if requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", requeue, tt.wantRequeue)
			}
		})
	}
}
