package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestClassifyRPC(t *testing.T) {
	err := ClassifyRPC(&RPCError{Code: CodeUserRejected, Message: "User rejected the request."})
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("4001 must map to ErrUserRejected, got %v", err)
	}

	err = ClassifyRPC(&RPCError{Code: -32000, Message: "insufficient funds for gas * price + value"})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	err = ClassifyRPC(&RPCError{Code: 3, Message: "execution reverted: not owner"})
	if !errors.Is(err, ErrTransactionReverted) {
		t.Fatalf("expected ErrTransactionReverted, got %v", err)
	}

	orig := &RPCError{Code: -32099, Message: "something odd"}
	err = ClassifyRPC(orig)
	if !errors.Is(err, ErrRPCFailure) {
		t.Fatalf("unrecognized code must pass through as ErrRPCFailure, got %v", err)
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Message != "something odd" {
		t.Fatalf("original message must be preserved, got %v", err)
	}
}

func TestRunnerOrderAndHalt(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	steps := []Step{
		{Name: "one", Run: func(ctx context.Context) error { ran = append(ran, "one"); return nil }},
		{Name: "two", Run: func(ctx context.Context) error { ran = append(ran, "two"); return boom }},
		{Name: "three", Run: func(ctx context.Context) error { ran = append(ran, "three"); return nil }},
	}

	r := &Runner{Flow: "test", Log: zerolog.Nop()}
	err := r.Execute(context.Background(), steps)
	if err == nil {
		t.Fatalf("expected failure")
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if stepErr.Step != "two" {
		t.Fatalf("unexpected failed step: %s", stepErr.Step)
	}
	if len(stepErr.Completed) != 1 || stepErr.Completed[0] != "one" {
		t.Fatalf("unexpected completed list: %v", stepErr.Completed)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause must unwrap")
	}
	if len(ran) != 2 {
		t.Fatalf("step three must not run, ran=%v", ran)
	}
}

func TestRunnerAbortsOnChainChange(t *testing.T) {
	chain := uint64(11155111)
	steps := []Step{
		{Name: "first", Run: func(ctx context.Context) error {
			chain = 84532 // wallet switched mid-flow
			return nil
		}},
		{Name: "second", Run: func(ctx context.Context) error {
			t.Fatalf("second step must not run after a chain change")
			return nil
		}},
	}

	r := &Runner{
		Flow:      "test",
		Log:       zerolog.Nop(),
		ChainID:   func() (uint64, bool) { return chain, true },
		WantChain: 11155111,
	}
	err := r.Execute(context.Background(), steps)
	if !errors.Is(err, ErrChainChangedMidOperation) {
		t.Fatalf("expected ErrChainChangedMidOperation, got %v", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != "second" {
		t.Fatalf("abort must name the step that did not start, got %v", err)
	}
	if len(stepErr.Completed) != 1 {
		t.Fatalf("first step remains confirmed, got %v", stepErr.Completed)
	}
}

func TestRunnerStatusUpdates(t *testing.T) {
	var seen []string
	steps := []Step{
		{Name: "upload", Run: func(ctx context.Context) error { return nil }},
		{Name: "mint", Run: func(ctx context.Context) error { return nil }},
	}
	r := &Runner{Flow: "test", Log: zerolog.Nop(), Status: func(msg string) { seen = append(seen, msg) }}
	if err := r.Execute(context.Background(), steps); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(seen) != 2 || seen[0] != "upload" || seen[1] != "mint" {
		t.Fatalf("unexpected status sequence: %v", seen)
	}
}
