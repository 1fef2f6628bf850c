package store

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"

	"resumegenius/internal/config"
	"resumegenius/internal/errors"
	"resumegenius/internal/plan"
	"resumegenius/internal/types"
)

var testLogger = errors.NewLogger(slog.LevelDebug)

func structuredRewrite() *types.RewriteResult {
	return &types.RewriteResult{Structured: &types.StructuredResume{
		Header:  types.ResumeHeader{Name: "Jane Doe", Email: "jane@example.com", Website: "jane.dev"},
		Summary: "Engineering leader.",
		Experience: []types.ExperienceEntry{{
			Company: "Acme", Position: "Director", DateRange: "2019 - Present",
			Bullets: []string{"Grew team from 4 to 30", "Shipped 3 products"},
		}},
		Education: []types.EducationEntry{{School: "Stanford", Degree: "MS CS"}},
		Skills:    []types.SkillGroup{{Category: "Leadership", Items: []string{"Hiring"}}},
	}}
}

func TestKey(t *testing.T) {
	if got := Key("jane@example.com"); got != "vault_redo_jane@example.com" {
		t.Errorf("Key() = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		result *types.RewriteResult
	}{
		{"flat", &types.RewriteResult{Text: "JANE DOE\n\nSUMMARY\nLeader."}},
		{"structured", structuredRewrite()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(NewMemoryBackend(), testLogger)
			ctx := context.Background()

			if err := s.Save(ctx, "jane@example.com", tt.result); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, "jane@example.com")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, tt.result) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tt.result)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	s := New(NewMemoryBackend(), testLogger)
	got, err := s.Load(context.Background(), "nobody@example.com")
	if err != nil || got != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", got, err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	backend := NewMemoryBackend()
	_ = backend.Set(context.Background(), Key("jane@example.com"), []byte(`{"content": [1,2`))
	s := New(backend, testLogger)

	got, err := s.Load(context.Background(), "jane@example.com")
	if got != nil {
		t.Errorf("corrupt entry should not decode, got %+v", got)
	}
	if !errors.HasCode(err, errors.ErrCodeCorruptState) {
		t.Errorf("expected CORRUPT_STATE, got %v", err)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	s := New(NewMemoryBackend(), testLogger)
	ctx := context.Background()
	_ = s.Save(ctx, "a@example.com", &types.RewriteResult{Text: "A"})
	_ = s.Save(ctx, "b@example.com", &types.RewriteResult{Text: "B"})
	_ = s.Save(ctx, "a@example.com", &types.RewriteResult{Text: "A2"})

	a, _ := s.Load(ctx, "a@example.com")
	b, _ := s.Load(ctx, "b@example.com")
	if a.Text != "A2" || b.Text != "B" {
		t.Errorf("got a=%q b=%q", a.Text, b.Text)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "etcd"}, testLogger)
	if !errors.HasCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestRedisBackend(t *testing.T) {
	url := os.Getenv("RESUMEGENIUS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("RESUMEGENIUS_TEST_REDIS_URL not set")
	}

	cfg := config.StorageConfig{
		Backend: "redis",
		TTL:     time.Minute,
		Redis:   config.RedisConfig{URL: url, PoolSize: 2, MinIdleConns: 1},
	}
	s, err := Open(context.Background(), cfg, testLogger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()

	email := "redis-test@example.com"
	want := structuredRewrite()
	if err := s.Save(context.Background(), email, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(context.Background(), email)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch")
	}
}

func TestPlanRoundTrip(t *testing.T) {
	s := New(NewMemoryBackend(), testLogger)
	ctx := context.Background()

	if got, err := s.LoadPlan(ctx, "jane@example.com"); err != nil || got != plan.Free {
		t.Fatalf("LoadPlan() before save = %v, %v; want FREE, nil", got, err)
	}

	if err := s.SavePlan(ctx, "jane@example.com", plan.Unlimited); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	got, err := s.LoadPlan(ctx, "jane@example.com")
	if err != nil || got != plan.Unlimited {
		t.Errorf("LoadPlan() = %v, %v; want UNLIMITED", got, err)
	}

	if _, ok, _ := s.Backend().Get(ctx, PlanKey("bob@example.com")); ok {
		t.Error("plans must be kept per owner")
	}
	if err := s.SavePlan(ctx, "bob@example.com", plan.Free); err != nil {
		t.Fatalf("SavePlan(FREE): %v", err)
	}
	if _, ok, _ := s.Backend().Get(ctx, PlanKey("bob@example.com")); ok {
		t.Error("FREE should not be written")
	}
}

func TestLoadPlanCorrupt(t *testing.T) {
	backend := NewMemoryBackend()
	_ = backend.Set(context.Background(), PlanKey("jane@example.com"), []byte("PLATINUM"))
	s := New(backend, testLogger)

	got, err := s.LoadPlan(context.Background(), "jane@example.com")
	if got != plan.Free {
		t.Errorf("corrupt plan should fall back to FREE, got %v", got)
	}
	if !errors.HasCode(err, errors.ErrCodeCorruptState) {
		t.Errorf("expected CORRUPT_STATE, got %v", err)
	}
}

func TestBestPlan(t *testing.T) {
	s := New(NewMemoryBackend(), testLogger)
	ctx := context.Background()
	_ = s.SavePlan(ctx, "jane@example.com", plan.Basic)
	_ = s.SavePlan(ctx, SessionOwner("sid-1"), plan.SuperPremium)
	_ = s.Backend().Set(ctx, PlanKey("broken"), []byte("???"))

	got, err := s.BestPlan(ctx, "jane@example.com", SessionOwner("sid-1"), "broken", "")
	if got != plan.SuperPremium {
		t.Errorf("BestPlan() = %v, want SUPER_PREMIUM", got)
	}
	if !errors.HasCode(err, errors.ErrCodeCorruptState) {
		t.Errorf("expected the unreadable entry to be reported, got %v", err)
	}
}
