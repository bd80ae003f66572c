package concurrent

import (
	"context"
	"errors"
	"testing"
)

func TestParallelMapPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results, err := ParallelMap(context.Background(), items, func(n int) (int, error) {
		return n * n, nil
	}, 2)
	if err != nil {
		t.Fatalf("ParallelMap: %v", err)
	}
	for i, n := range items {
		if results[i] != n*n {
			t.Errorf("results[%d] = %d, want %d", i, results[i], n*n)
		}
	}
}

func TestParallelMapReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ParallelMap(context.Background(), []int{1, 2, 3}, func(n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	}, 3)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestParallelMapEmptyInput(t *testing.T) {
	results, err := ParallelMap(context.Background(), nil, func(n int) (int, error) { return n, nil }, 2)
	if err != nil || results != nil {
		t.Fatalf("expected nil results and nil error, got %v, %v", results, err)
	}
}

func TestParallelMapCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParallelMap(ctx, []int{1, 2, 3}, func(n int) (int, error) { return n, nil }, 1)
	if err == nil {
		t.Fatal("expected context error")
	}
}
