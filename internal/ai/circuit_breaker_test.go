package ai

import (
	stderrors "errors"
	"testing"
	"time"

	"resumegenius/internal/config"

	"github.com/sony/gobreaker/v2"
)

func TestNilBreakerRunsDirectly(t *testing.T) {
	b := NewBreaker[int]("AI-generate-analyze", config.CircuitBreakerConfig{Enabled: false}, testLogger)
	if b != nil {
		t.Fatal("disabled config should yield a nil breaker")
	}

	got, err := b.Execute(func() (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("Execute = %d, %v; want 42, nil", got, err)
	}
	if !b.Healthy() {
		t.Error("nil breaker should be healthy")
	}
	if b.Stats()["enabled"] != false {
		t.Errorf("Stats = %v", b.Stats())
	}
}

func TestBreakerTripsOnFailureRatio(t *testing.T) {
	cfg := config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      3,
		FailureThreshold: 0.6,
	}
	b := NewBreaker[string](breakerName("generate", config.OperationAnalyze), cfg, testLogger)

	boom := stderrors.New("upstream down")
	for i := 0; i < 3; i++ {
		if _, err := b.Execute(func() (string, error) { return "", boom }); !stderrors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want upstream error", i, err)
		}
	}

	if b.Healthy() {
		t.Fatal("breaker should be open after 3/3 failures")
	}
	_, err := b.Execute(func() (string, error) { return "ok", nil })
	if !stderrors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}

	stats := b.Stats()
	if stats["name"] != "AI-generate-analyze" || stats["state"] != "open" {
		t.Errorf("Stats = %v", stats)
	}
}

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	cfg := config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      5,
		FailureThreshold: 0.5,
	}
	b := NewBreaker[int]("AI-generate-rewrite", cfg, testLogger)
	for i := 0; i < 4; i++ {
		_, _ = b.Execute(func() (int, error) { return 0, stderrors.New("fail") })
	}
	if !b.Healthy() {
		t.Error("breaker tripped before MinRequests")
	}
}

func TestIndependentOperationBreakers(t *testing.T) {
	cfg := config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      1,
		FailureThreshold: 0.1,
	}
	analyze := NewBreaker[int](breakerName("generate", config.OperationAnalyze), cfg, testLogger)
	rewrite := NewBreaker[int](breakerName("generate", config.OperationRewrite), cfg, testLogger)

	_, _ = analyze.Execute(func() (int, error) { return 0, stderrors.New("fail") })

	if analyze.Healthy() {
		t.Error("analyze breaker should be open")
	}
	if !rewrite.Healthy() {
		t.Error("rewrite breaker must not be affected by analyze failures")
	}
}
