package models

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/medkitlab/medirag/src/config"
)

type countingAgent struct {
	calls     int
	failTimes int
	reply     string
	err       error
}

func (c *countingAgent) Generate(_ context.Context, _ string) (string, error) {
	c.calls++
	if c.failTimes >= c.calls {
		if c.err != nil {
			return "", c.err
		}
		return "", errors.New("transient failure")
	}
	return c.reply, nil
}

var _ Agent = (*countingAgent)(nil)

func TestDummyLLMEchoesLastLine(t *testing.T) {
	d := NewDummyLLM("Echo:")
	got, err := d.Generate(context.Background(), "first line\n\nlast line\n")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Echo: last line" {
		t.Errorf("got %q", got)
	}
}

func TestDummyLLMEmptyPrompt(t *testing.T) {
	d := NewDummyLLM("")
	got, err := d.Generate(context.Background(), "   \n ")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(got, "<empty prompt>") {
		t.Errorf("got %q", got)
	}
}

func TestRetryLLMSucceedsAfterTransientFailures(t *testing.T) {
	inner := &countingAgent{failTimes: 2, reply: "ok"}
	r := &RetryLLM{Agent: inner, MaxAttempts: 3, BaseDelay: time.Millisecond}

	got, err := r.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q", got)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryLLMExhaustsAndSurfacesLastError(t *testing.T) {
	boom := errors.New("backend down")
	inner := &countingAgent{failTimes: 10, err: boom}
	r := &RetryLLM{Agent: inner, MaxAttempts: 3, BaseDelay: time.Millisecond}

	_, err := r.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the last failure, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryLLMHonorsCanceledContext(t *testing.T) {
	inner := &countingAgent{failTimes: 10}
	r := &RetryLLM{Agent: inner, MaxAttempts: 3, BaseDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Generate(ctx, "prompt"); err == nil {
		t.Fatal("expected context error")
	}
	if inner.calls > 1 {
		t.Errorf("no retries should run after cancellation, calls = %d", inner.calls)
	}
}

func TestCachedLLMSkipsSecondCall(t *testing.T) {
	inner := &countingAgent{reply: "cached answer"}
	c := NewCachedLLM(inner, 16, time.Hour, "")

	for i := 0; i < 3; i++ {
		got, err := c.Generate(context.Background(), "same prompt")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got != "cached answer" {
			t.Errorf("got %q", got)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestCachedLLMPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm_cache.json")

	inner := &countingAgent{reply: "persisted"}
	c := NewCachedLLM(inner, 16, time.Hour, path)
	if _, err := c.Generate(context.Background(), "question"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	inner2 := &countingAgent{reply: "should not be called"}
	c2 := NewCachedLLM(inner2, 16, time.Hour, path)
	got, err := c2.Generate(context.Background(), "question")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "persisted" {
		t.Errorf("got %q", got)
	}
	if inner2.calls != 0 {
		t.Errorf("second instance should hit the restored cache, calls = %d", inner2.calls)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	cfg := &config.Config{Provider: "watson"}
	if _, err := NewProvider(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewProviderDummy(t *testing.T) {
	cfg := &config.Config{Provider: "dummy"}
	agent, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if _, ok := agent.(*DummyLLM); !ok {
		t.Errorf("agent = %T, want *DummyLLM", agent)
	}
}
