package server

import (
	"sync"
	"testing"
	"time"

	"resumegenius/internal/controller"
	"resumegenius/internal/plan"
)

func newTestRegistry(idle time.Duration) (*Registry, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(0, func(initial plan.Plan) *controller.Controller {
		return controller.New(stubAnalyzer{}, stubRewriter{}, controller.Options{Logger: testLogger, InitialPlan: initial})
	}, testLogger)
	r.idle = idle
	r.now = func() time.Time { return now }
	return r, &now
}

func TestRegistryGetOrCreate(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	defer r.Close()

	if _, ok := r.Get("a"); ok {
		t.Fatal("Get() on empty registry should miss")
	}
	first, created := r.GetOrCreate("a", plan.Free)
	if !created {
		t.Fatal("first GetOrCreate() should create")
	}
	again, created := r.GetOrCreate("a", plan.Free)
	if created || again != first {
		t.Fatal("second GetOrCreate() should return the same controller")
	}
	if got, ok := r.Get("a"); !ok || got != first {
		t.Fatal("Get() should find the created controller")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryInitialPlan(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	defer r.Close()

	ctrl, _ := r.GetOrCreate("paid", plan.Unlimited)
	if got := ctrl.State().Plan; got != plan.Unlimited {
		t.Errorf("new controller plan = %v, want UNLIMITED", got)
	}
	again, _ := r.GetOrCreate("paid", plan.Free)
	if got := again.State().Plan; got != plan.Unlimited {
		t.Errorf("existing controller should keep its plan, got %v", got)
	}
}

func TestRegistryEvictIdle(t *testing.T) {
	r, now := newTestRegistry(10 * time.Minute)
	defer r.Close()

	r.GetOrCreate("stale", plan.Free)
	*now = now.Add(6 * time.Minute)
	r.GetOrCreate("fresh", plan.Free)
	*now = now.Add(6 * time.Minute)

	if n := r.evictIdle(); n != 1 {
		t.Fatalf("evictIdle() = %d, want 1", n)
	}
	if _, ok := r.Get("stale"); ok {
		t.Error("stale session should be evicted")
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Error("fresh session should survive")
	}
}

func TestRegistryConcurrentCreate(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	defer r.Close()

	var wg sync.WaitGroup
	results := make([]*controller.Controller, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.GetOrCreate("shared", plan.Free)
		}(i)
	}
	wg.Wait()

	for _, c := range results[1:] {
		if c != results[0] {
			t.Fatal("concurrent GetOrCreate() returned different controllers")
		}
	}
}

func TestCleanupInterval(t *testing.T) {
	tests := []struct {
		idle time.Duration
		want time.Duration
	}{
		{30 * time.Second, 15 * time.Second},
		{time.Minute, 30 * time.Second},
		{30 * time.Minute, time.Minute},
	}
	for _, tt := range tests {
		if got := cleanupInterval(tt.idle); got != tt.want {
			t.Errorf("cleanupInterval(%v) = %v, want %v", tt.idle, got, tt.want)
		}
	}
}
