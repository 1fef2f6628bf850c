package controller

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"resumegenius/internal/errors"
	"resumegenius/internal/plan"
	"resumegenius/internal/store"
	"resumegenius/internal/types"
)

var testLogger = errors.NewLogger(slog.LevelDebug)

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  []string
	result *types.AnalysisResult
	err    error
	hook   func()
}

func (f *fakeAnalyzer) Analyze(_ context.Context, text string) (*types.AnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeRewriter struct {
	mu     sync.Mutex
	calls  []string
	result *types.RewriteResult
	err    error
}

func (f *fakeRewriter) Rewrite(_ context.Context, text string) (*types.RewriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRewriter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func sampleAnalysis() *types.AnalysisResult {
	return &types.AnalysisResult{
		OverallScore:       68,
		Summary:            "Strong experience, weak metrics.",
		ImpactMetricsScore: 41,
		KeywordsMissing:    []string{"Kubernetes", "P&L"},
		Sections: []types.SectionFeedback{
			{Title: "Summary", Feedback: "Too generic", Score: 55, IsFree: false},
			{Title: "Experience", Feedback: "Add numbers", Score: 62, IsFree: true},
			{Title: "Skills", Feedback: "Group by domain", Score: 80, IsFree: true},
		},
	}
}

func sampleRewrite() *types.RewriteResult {
	return &types.RewriteResult{Structured: &types.StructuredResume{
		Header:     types.ResumeHeader{Name: "Jane Doe", Email: "jane@example.com"},
		Summary:    "Operator who scales teams.",
		Experience: []types.ExperienceEntry{{Company: "Acme", Bullets: []string{"Raised NPS 20 points"}}},
	}}
}

var jane = types.User{ID: "u-1", Email: "jane@example.com", Name: "Jane"}

type harness struct {
	c        *Controller
	analyzer *fakeAnalyzer
	rewriter *fakeRewriter
	store    *store.Store
	mu       sync.Mutex
	states   []State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		analyzer: &fakeAnalyzer{result: sampleAnalysis()},
		rewriter: &fakeRewriter{result: sampleRewrite()},
		store:    store.New(store.NewMemoryBackend(), testLogger),
	}
	h.c = New(h.analyzer, h.rewriter, Options{
		Store:          h.store,
		Logger:         testLogger,
		StatusInterval: time.Hour,
	})
	h.c.Subscribe(func(s State) {
		h.mu.Lock()
		h.states = append(h.states, s)
		h.mu.Unlock()
	})
	return h
}

func (h *harness) published() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.states)
}

func (h *harness) upgrade(t *testing.T, p plan.Plan) {
	t.Helper()
	if err := h.c.SelectPlanUpgrade(p); err != nil {
		t.Fatalf("SelectPlanUpgrade: %v", err)
	}
	if err := h.c.CompletePayment(); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}
}

func (h *harness) analyzed(t *testing.T) {
	t.Helper()
	if err := h.c.CompleteAuthentication(context.Background(), jane); err != nil {
		t.Fatalf("CompleteAuthentication: %v", err)
	}
	err := h.c.SubmitInput(context.Background(), "Jane Doe\nEngineer")
	if err != nil && h.analyzer.err == nil {
		t.Fatalf("SubmitInput: %v", err)
	}
}

func TestInitialState(t *testing.T) {
	h := newHarness(t)
	s := h.c.State()
	if s.View != ViewLanding || s.Plan != plan.Free || s.Analysis != nil || s.User != nil {
		t.Errorf("unexpected initial state: %+v", s)
	}
}

func TestSubmitEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			h := newHarness(t)
			_ = h.c.CompleteAuthentication(context.Background(), jane)
			before := h.published()

			err := h.c.SubmitInput(context.Background(), text)
			if !errors.HasCode(err, errors.ErrCodeEmptyInput) {
				t.Errorf("expected EMPTY_INPUT, got %v", err)
			}
			if h.published() != before {
				t.Errorf("empty input published a state change")
			}
			if got := h.c.State().View; got != ViewLanding {
				t.Errorf("view = %s, want landing", got)
			}
			if n := len(h.analyzer.Calls()); n != 0 {
				t.Errorf("analyzer called %d times", n)
			}
		})
	}
}

func TestSubmitWithoutSessionDefersAnalysis(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.c.SubmitInput(ctx, "X"); err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}
	s := h.c.State()
	if !s.AuthRequired || !s.HasPendingText || s.PendingText != "X" {
		t.Fatalf("expected staged text and auth prompt, got %+v", s)
	}
	if s.View != ViewLanding {
		t.Errorf("view = %s, want landing", s.View)
	}
	if len(h.analyzer.Calls()) != 0 {
		t.Fatalf("analysis must wait for authentication")
	}

	if err := h.c.CompleteAuthentication(ctx, jane); err != nil {
		t.Fatalf("CompleteAuthentication: %v", err)
	}

	if calls := h.analyzer.Calls(); !reflect.DeepEqual(calls, []string{"X"}) {
		t.Errorf("analyzer calls = %q, want [X]", calls)
	}
	s = h.c.State()
	if s.HasPendingText || s.PendingText != "" || s.AuthRequired {
		t.Errorf("pending slot not cleared: %+v", s)
	}
	if s.View != ViewResults {
		t.Errorf("view = %s, want results", s.View)
	}

	// a second sign-in must not replay the consumed text
	if err := h.c.CompleteAuthentication(ctx, jane); err != nil {
		t.Fatalf("CompleteAuthentication: %v", err)
	}
	if n := len(h.analyzer.Calls()); n != 1 {
		t.Errorf("analyzer called %d times, want 1", n)
	}
}

func TestCancelAuthenticationKeepsPendingText(t *testing.T) {
	h := newHarness(t)
	_ = h.c.SubmitInput(context.Background(), "X")
	h.c.CancelAuthentication()

	s := h.c.State()
	if s.AuthRequired || s.PendingText != "X" {
		t.Errorf("unexpected state after cancel: %+v", s)
	}
}

func TestAnalysisForcesFirstSectionFree(t *testing.T) {
	h := newHarness(t)
	h.analyzed(t)

	s := h.c.State()
	if s.View != ViewResults || s.Analysis == nil {
		t.Fatalf("expected results with analysis, got %+v", s)
	}
	for i, sec := range s.Analysis.Sections {
		if sec.IsFree != (i == 0) {
			t.Errorf("section %d IsFree = %v", i, sec.IsFree)
		}
	}
	if !h.analyzer.result.Sections[1].IsFree {
		t.Errorf("controller mutated the client's result")
	}
}

func TestFreePlanLocksAllButFirstSection(t *testing.T) {
	h := newHarness(t)
	h.analyzed(t)

	s := h.c.State()
	want := []bool{false, true, true}
	for i := range s.Analysis.Sections {
		if got := plan.IsSectionLocked(s.Plan, i); got != want[i] {
			t.Errorf("section %d locked = %v, want %v", i, got, want[i])
		}
	}

	redacted := s.Redacted()
	if redacted.Analysis.Sections[1].Feedback != "" || redacted.Analysis.Sections[0].Feedback == "" {
		t.Errorf("redaction did not follow the locks")
	}
}

func TestAnalysisFailure(t *testing.T) {
	h := newHarness(t)
	h.analyzer.err = errors.NewAIError(errors.ErrCodeAIServiceFailed, "model unavailable", nil)

	h.analyzed(t)

	s := h.c.State()
	if s.View != ViewLanding {
		t.Errorf("view = %s, want landing", s.View)
	}
	if s.Analysis != nil {
		t.Errorf("failed analysis must not populate a result")
	}
	if s.Notice != NoticeAnalysisFailed {
		t.Errorf("notice = %q", s.Notice)
	}
	if s.StatusMessage != "" {
		t.Errorf("status message left behind: %q", s.StatusMessage)
	}
}

func TestAnalysisFailureKeepsPreviousResult(t *testing.T) {
	h := newHarness(t)
	h.analyzed(t)
	first := h.c.State().Analysis

	h.analyzer.err = fmt.Errorf("timeout")
	if err := h.c.SubmitInput(context.Background(), "other resume"); err == nil {
		t.Fatalf("expected error")
	}

	s := h.c.State()
	if s.View != ViewLanding || !reflect.DeepEqual(s.Analysis, first) {
		t.Errorf("failed analysis changed the stored result")
	}
}

func TestNilAnalysisIsFailure(t *testing.T) {
	h := newHarness(t)
	h.analyzer.result = nil
	_ = h.c.CompleteAuthentication(context.Background(), jane)

	err := h.c.SubmitInput(context.Background(), "text")
	if !errors.HasCode(err, errors.ErrCodeAIServiceFailed) {
		t.Errorf("expected AI_SERVICE_FAILED, got %v", err)
	}
	if h.c.State().View != ViewLanding {
		t.Errorf("nil result must not reach results")
	}
}

func TestStatusRotationStopsOnFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("boom")}
	c := New(analyzer, &fakeRewriter{}, Options{
		Logger:         testLogger,
		StatusInterval: time.Millisecond,
		StatusMessages: []string{"one", "two"},
	})

	var mu sync.Mutex
	rotations := 0
	ticked := make(chan struct{}, 1)
	c.Subscribe(func(s State) {
		if s.StatusMessage == "one" || s.StatusMessage == "two" {
			mu.Lock()
			rotations++
			mu.Unlock()
			select {
			case ticked <- struct{}{}:
			default:
			}
		}
	})
	analyzer.hook = func() {
		select {
		case <-ticked:
		case <-time.After(time.Second):
		}
	}

	_ = c.CompleteAuthentication(context.Background(), jane)
	if err := c.SubmitInput(context.Background(), "text"); err == nil {
		t.Fatalf("expected analysis error")
	}

	if c.rotating() {
		t.Errorf("rotation still registered after failure")
	}

	mu.Lock()
	seen := rotations
	mu.Unlock()
	if seen == 0 {
		t.Fatalf("rotation never ran")
	}

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	after := rotations
	mu.Unlock()
	if after != seen {
		t.Errorf("status kept rotating after failure: %d -> %d", seen, after)
	}
	if got := c.State().StatusMessage; got != "" {
		t.Errorf("status message = %q after failure", got)
	}
}

func TestStatusRotationStopsOnSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleAnalysis(), hook: func() { time.Sleep(10 * time.Millisecond) }}
	c := New(analyzer, &fakeRewriter{}, Options{Logger: testLogger, StatusInterval: time.Millisecond})

	_ = c.CompleteAuthentication(context.Background(), jane)
	if err := c.SubmitInput(context.Background(), "text"); err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}
	if c.rotating() {
		t.Errorf("rotation outlived the analysis")
	}

	before := c.State()
	time.Sleep(10 * time.Millisecond)
	after := c.State()
	if before.UpdatedAt != after.UpdatedAt || after.StatusMessage != "" {
		t.Errorf("state changed after the analysis settled")
	}
}

func TestRequestFullRewriteGated(t *testing.T) {
	for _, p := range []plan.Plan{plan.Free, plan.Basic} {
		t.Run(p.String(), func(t *testing.T) {
			h := newHarness(t)
			h.analyzed(t)
			if p != plan.Free {
				h.upgrade(t, p)
			}

			if err := h.c.RequestFullRewrite(context.Background()); err != nil {
				t.Fatalf("RequestFullRewrite: %v", err)
			}
			if got := h.c.State().View; got != ViewPricing {
				t.Errorf("view = %s, want pricing", got)
			}
			if n := h.rewriter.Calls(); n != 0 {
				t.Errorf("rewriter called %d times", n)
			}
		})
	}
}

func TestRequestFullRewriteWithoutText(t *testing.T) {
	h := newHarness(t)
	h.upgrade(t, plan.Unlimited)

	err := h.c.RequestFullRewrite(context.Background())
	if !errors.HasCode(err, errors.ErrCodeEmptyInput) {
		t.Errorf("expected EMPTY_INPUT, got %v", err)
	}
	s := h.c.State()
	if s.View != ViewLanding || s.Notice != NoticeUploadFirst {
		t.Errorf("unexpected state: view=%s notice=%q", s.View, s.Notice)
	}
	if h.rewriter.Calls() != 0 {
		t.Errorf("rewriter must not be called without text")
	}
}

func TestRequestFullRewriteSuccessPersists(t *testing.T) {
	h := newHarness(t)
	h.analyzed(t)
	h.upgrade(t, plan.SuperPremium)

	if err := h.c.RequestFullRewrite(context.Background()); err != nil {
		t.Fatalf("RequestFullRewrite: %v", err)
	}
	s := h.c.State()
	if s.View != ViewFullRewrite || s.Rewrite == nil {
		t.Fatalf("expected full-rewrite view with result, got %+v", s)
	}
	if h.rewriter.calls[0] != "Jane Doe\nEngineer" {
		t.Errorf("rewrite used %q", h.rewriter.calls[0])
	}

	stored, err := h.store.Load(context.Background(), jane.Email)
	if err != nil || !reflect.DeepEqual(stored, sampleRewrite()) {
		t.Errorf("stored rewrite = %+v, %v", stored, err)
	}

	// a fresh session for the same user restores the identical result
	fresh := New(&fakeAnalyzer{}, &fakeRewriter{}, Options{Store: h.store, Logger: testLogger})
	if err := fresh.CompleteAuthentication(context.Background(), jane); err != nil {
		t.Fatalf("CompleteAuthentication: %v", err)
	}
	if got := fresh.State().Rewrite; !reflect.DeepEqual(got, sampleRewrite()) {
		t.Errorf("restored rewrite = %+v", got)
	}
}

func TestFlatRewriteRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.rewriter.result = &types.RewriteResult{Text: "JANE DOE\n\nEXPERIENCE\n- Did things"}
	h.analyzed(t)
	h.upgrade(t, plan.Unlimited)
	_ = h.c.RequestFullRewrite(context.Background())

	fresh := New(&fakeAnalyzer{}, &fakeRewriter{}, Options{Store: h.store, Logger: testLogger})
	_ = fresh.CompleteAuthentication(context.Background(), jane)
	if got := fresh.State().Rewrite; got == nil || got.Text != h.rewriter.result.Text || got.IsStructured() {
		t.Errorf("restored rewrite = %+v", got)
	}
}

func TestRequestFullRewriteFailure(t *testing.T) {
	h := newHarness(t)
	h.rewriter.err = errors.NewAIError(errors.ErrCodeAITimeout, "deadline", nil)
	h.analyzed(t)
	h.upgrade(t, plan.Unlimited)

	if err := h.c.RequestFullRewrite(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	s := h.c.State()
	if s.View != ViewResults {
		t.Errorf("view = %s, want results", s.View)
	}
	if s.Rewrite != nil {
		t.Errorf("failed rewrite populated a result")
	}
	if s.Notice != NoticeRewriteFailed {
		t.Errorf("notice = %q", s.Notice)
	}
	if stored, _ := h.store.Load(context.Background(), jane.Email); stored != nil {
		t.Errorf("failed rewrite was persisted")
	}
}

func TestRewriteWithoutUserSkipsPersistence(t *testing.T) {
	backend := store.NewMemoryBackend()
	c := New(&fakeAnalyzer{result: sampleAnalysis()}, &fakeRewriter{result: sampleRewrite()}, Options{
		Store:       store.New(backend, testLogger),
		Logger:      testLogger,
		InitialPlan: plan.Unlimited,
	})
	if err := c.RunAnalysis(context.Background(), "text"); err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	_ = c.SubmitInput(context.Background(), "text")
	c.CancelAuthentication()

	if err := c.RequestFullRewrite(context.Background()); err != nil {
		t.Fatalf("RequestFullRewrite: %v", err)
	}
	if c.State().View != ViewFullRewrite {
		t.Errorf("rewrite should still succeed without a user")
	}
}

func TestCompleteAuthenticationIgnoresCorruptStorage(t *testing.T) {
	backend := store.NewMemoryBackend()
	_ = backend.Set(context.Background(), store.Key(jane.Email), []byte("{not json"))
	c := New(&fakeAnalyzer{}, &fakeRewriter{}, Options{Store: store.New(backend, testLogger), Logger: testLogger})

	if err := c.CompleteAuthentication(context.Background(), jane); err != nil {
		t.Fatalf("corrupt storage must not fail authentication: %v", err)
	}
	s := c.State()
	if s.Rewrite != nil {
		t.Errorf("corrupt entry produced a rewrite")
	}
	if s.User == nil || s.User.Email != jane.Email {
		t.Errorf("session not recorded")
	}
}

func TestCompleteAuthenticationRequiresEmail(t *testing.T) {
	h := newHarness(t)
	err := h.c.CompleteAuthentication(context.Background(), types.User{Name: "anon"})
	if !errors.HasCode(err, errors.ErrCodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
	if h.c.State().User != nil {
		t.Errorf("invalid user recorded")
	}
}

func TestSwitchingUserDropsPreviousRewrite(t *testing.T) {
	h := newHarness(t)
	h.analyzed(t)
	h.upgrade(t, plan.Unlimited)
	_ = h.c.RequestFullRewrite(context.Background())

	_ = h.c.CompleteAuthentication(context.Background(), types.User{Email: "other@example.com"})
	if h.c.State().Rewrite != nil {
		t.Errorf("another user's rewrite leaked across sign-in")
	}
}

func TestSelectPlanUpgradeStagesOnly(t *testing.T) {
	h := newHarness(t)
	if err := h.c.SelectPlanUpgrade(plan.Unlimited); err != nil {
		t.Fatalf("SelectPlanUpgrade: %v", err)
	}
	s := h.c.State()
	if s.Plan != plan.Free || s.PendingPlan != plan.Unlimited || !s.PaymentRequired {
		t.Errorf("unexpected state: %+v", s)
	}

	for _, p := range []plan.Plan{plan.Free, plan.Plan("GOLD")} {
		if err := h.c.SelectPlanUpgrade(p); !errors.HasCode(err, errors.ErrCodeInvalidPlan) {
			t.Errorf("SelectPlanUpgrade(%s) = %v", p, err)
		}
	}

	h.c.CancelPayment()
	s = h.c.State()
	if s.PendingPlan != "" || s.PaymentRequired {
		t.Errorf("cancel did not clear staging: %+v", s)
	}
}

func TestCompletePayment(t *testing.T) {
	tests := []struct {
		name        string
		analysis    bool
		fromPricing bool
		wantView    View
	}{
		{"pricing with analysis", true, true, ViewResults},
		{"pricing without analysis", false, true, ViewPricing},
		{"results view", true, false, ViewResults},
		{"landing view", false, false, ViewLanding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.analysis {
				h.analyzed(t)
			}
			if tt.fromPricing {
				h.c.ShowPricing()
			}
			_ = h.c.SelectPlanUpgrade(plan.Basic)

			if err := h.c.CompletePayment(); err != nil {
				t.Fatalf("CompletePayment: %v", err)
			}
			s := h.c.State()
			if s.View != tt.wantView {
				t.Errorf("view = %s, want %s", s.View, tt.wantView)
			}
			if s.Plan != plan.Basic || s.PendingPlan != "" || s.PaymentRequired {
				t.Errorf("plan not committed: %+v", s)
			}
		})
	}
}

func TestCompletePaymentWithoutStagedPlan(t *testing.T) {
	h := newHarness(t)
	h.c.ShowPricing()
	before := h.c.State()

	err := h.c.CompletePayment()
	if !errors.HasCode(err, errors.ErrCodeNoStagedPlan) {
		t.Errorf("expected NO_STAGED_PLAN, got %v", err)
	}
	after := h.c.State()
	if after.View != before.View || after.Plan != before.Plan {
		t.Errorf("state changed without a staged plan")
	}
}

func TestNavigation(t *testing.T) {
	h := newHarness(t)

	h.c.ShowPricing()
	h.c.Back()
	if got := h.c.State().View; got != ViewLanding {
		t.Errorf("back from pricing without analysis = %s, want landing", got)
	}

	h.analyzed(t)
	h.c.ShowPricing()
	h.c.Back()
	if got := h.c.State().View; got != ViewResults {
		t.Errorf("back from pricing = %s, want results", got)
	}

	h.upgrade(t, plan.Unlimited)
	_ = h.c.RequestFullRewrite(context.Background())
	h.c.Back()
	if got := h.c.State().View; got != ViewResults {
		t.Errorf("back from full-rewrite = %s, want results", got)
	}

	h.c.GoHome()
	if got := h.c.State().View; got != ViewLanding {
		t.Errorf("home = %s, want landing", got)
	}
	if h.c.State().Analysis == nil {
		t.Errorf("going home must keep the analysis")
	}
}

func TestDismissNotice(t *testing.T) {
	h := newHarness(t)
	h.analyzer.err = fmt.Errorf("down")
	h.analyzed(t)
	h.c.DismissNotice()
	if n := h.c.State().Notice; n != "" {
		t.Errorf("notice = %q", n)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.analyzed(t)

	s := h.c.State()
	s.Analysis.Sections[0].Title = "mutated"
	s.User.Email = "mutated"

	again := h.c.State()
	if again.Analysis.Sections[0].Title == "mutated" || again.User.Email == "mutated" {
		t.Errorf("snapshot aliases controller memory")
	}
}

func TestUnsubscribe(t *testing.T) {
	c := New(&fakeAnalyzer{}, &fakeRewriter{}, Options{Logger: testLogger})
	calls := 0
	unsubscribe := c.Subscribe(func(State) { calls++ })

	c.ShowPricing()
	unsubscribe()
	c.GoHome()

	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}
