package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcher_AllSucceed(t *testing.T) {
	fire := func(ctx context.Context, req OperationRequest) (string, string, error) {
		return "Draft", "Submitted", nil
	}
	d := NewDispatcher(fire)

	requests := make([]OperationRequest, 5)
	for i := range requests {
		requests[i] = OperationRequest{EntityID: fmt.Sprintf("order-%d", i)}
	}

	res := d.Execute(context.Background(), requests, Options{MaxParallelism: 2})
	if res.SuccessCount != 5 || res.FailureCount != 0 {
		t.Fatalf("res = %+v", res)
	}
	for i, item := range res.Items {
		if item.BatchIndex != i {
			t.Fatalf("item %d has BatchIndex %d, want %d (original order preserved)", i, item.BatchIndex, i)
		}
	}
}

func TestDispatcher_PriorityOrdering(t *testing.T) {
	var order []string
	fire := func(ctx context.Context, req OperationRequest) (string, string, error) {
		order = append(order, req.EntityID)
		return "", "", nil
	}
	d := NewDispatcher(fire)

	requests := []OperationRequest{
		{EntityID: "low", Priority: 1},
		{EntityID: "high", Priority: 10},
		{EntityID: "mid", Priority: 5},
	}
	d.Execute(context.Background(), requests, Options{MaxParallelism: 1, OrderByPriority: true})

	if len(order) != 3 || order[0] != "high" || order[2] != "low" {
		t.Fatalf("order = %v, want high,mid,low", order)
	}
}

func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	var calls int32
	fire := func(ctx context.Context, req OperationRequest) (string, string, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return "", "", fmt.Errorf("transient")
		}
		return "A", "B", nil
	}
	d := NewDispatcher(fire)

	res := d.Execute(context.Background(), []OperationRequest{{EntityID: "order-1"}}, Options{
		MaxParallelism: 1,
		Retry:          2,
		RetryDelay:     time.Millisecond,
	})
	if res.SuccessCount != 1 {
		t.Fatalf("res = %+v", res)
	}
}

func TestDispatcher_StopOnFirstFailure(t *testing.T) {
	fire := func(ctx context.Context, req OperationRequest) (string, string, error) {
		if req.EntityID == "bad" {
			return "", "", fmt.Errorf("boom")
		}
		return "A", "B", nil
	}
	d := NewDispatcher(fire)

	requests := []OperationRequest{{EntityID: "bad"}, {EntityID: "ok-1"}, {EntityID: "ok-2"}}
	res := d.Execute(context.Background(), requests, Options{MaxParallelism: 1, StopOnFirstFailure: true})

	if res.FailureCount == 0 {
		t.Fatalf("res = %+v, want at least one failure", res)
	}
	if res.SuccessCount+res.FailureCount+res.SkippedCount != res.Total {
		t.Fatalf("res totals don't add up: %+v", res)
	}
}
