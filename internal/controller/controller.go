// Package controller owns the view state of one resume session and
// orchestrates every transition between views.
package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"resumegenius/internal/errors"
	"resumegenius/internal/plan"
	"resumegenius/internal/types"
)

// AnalysisClient produces a health check for resume text
type AnalysisClient interface {
	Analyze(ctx context.Context, text string) (*types.AnalysisResult, error)
}

// RewriteClient produces a full rewrite for resume text
type RewriteClient interface {
	Rewrite(ctx context.Context, text string) (*types.RewriteResult, error)
}

// RewriteStore persists rewrites per user
type RewriteStore interface {
	Load(ctx context.Context, email string) (*types.RewriteResult, error)
	Save(ctx context.Context, email string, result *types.RewriteResult) error
}

// Options tune a controller. Zero values select the defaults.
type Options struct {
	Store          RewriteStore
	Logger         *errors.Logger
	StatusMessages []string
	StatusInterval time.Duration
	InitialPlan    plan.Plan
}

// Controller is the single authority for which view is shown
type Controller struct {
	analyzer AnalysisClient
	rewriter RewriteClient
	store    RewriteStore
	logger   *errors.Logger

	statusMessages []string
	statusInterval time.Duration
	now            func() time.Time

	mu       sync.Mutex
	state    State
	rotation *rotation

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates a controller on the landing view
func New(analyzer AnalysisClient, rewriter RewriteClient, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = errors.NewLogger(slog.LevelInfo)
	}
	if opts.StatusMessages == nil {
		opts.StatusMessages = DefaultStatusMessages
	}
	if opts.StatusInterval == 0 {
		opts.StatusInterval = 2 * time.Second
	}
	if !opts.InitialPlan.Valid() {
		opts.InitialPlan = plan.Free
	}

	c := &Controller{
		analyzer:       analyzer,
		rewriter:       rewriter,
		store:          opts.Store,
		logger:         opts.Logger,
		statusMessages: opts.StatusMessages,
		statusInterval: opts.StatusInterval,
		now:            time.Now,
		subs:           make(map[int]func(State)),
	}
	c.state = State{View: ViewLanding, Plan: opts.InitialPlan, UpdatedAt: c.now()}
	return c
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to receive every new snapshot. The returned
// function removes the subscription.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

// update mutates state under the lock and publishes the result outside it
func (c *Controller) update(fn func(s *State)) State {
	c.mu.Lock()
	fn(&c.state)
	c.state.UpdatedAt = c.now()
	snap := c.state.clone()
	c.mu.Unlock()

	c.subsMu.Lock()
	subs := make([]func(State), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.subsMu.Unlock()

	for _, s := range subs {
		s(snap)
	}
	return snap
}

// SubmitInput accepts resume text. Without a session the text is staged
// until CompleteAuthentication; with one the analysis runs immediately.
func (c *Controller) SubmitInput(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyInput, "Resume text is empty", nil)
	}

	deferred := false
	c.update(func(s *State) {
		s.OriginalText = text
		if s.User == nil {
			s.PendingText = text
			s.HasPendingText = true
			s.AuthRequired = true
			deferred = true
		}
	})
	if deferred {
		c.logger.Debug("Deferred analysis until authentication", "text_length", len(text))
		return nil
	}
	return c.RunAnalysis(ctx, text)
}

// RunAnalysis shows the analyzing view while the analysis client runs.
// Failures return to landing and leave the stored analysis untouched.
func (c *Controller) RunAnalysis(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyInput, "Resume text is empty", nil)
	}

	c.update(func(s *State) {
		s.View = ViewAnalyzing
		s.StatusMessage = StatusInitializing
		s.Notice = ""
	})

	rot := c.beginRotation()
	defer c.endRotation(rot)

	result, err := c.analyzer.Analyze(ctx, text)
	c.endRotation(rot)

	if err == nil && result == nil {
		err = errors.NewAIError(errors.ErrCodeAIServiceFailed, "Analysis returned no result", nil)
	}
	if err != nil {
		c.logger.LogError(err, "Resume analysis failed", "text_length", len(text))
		c.update(func(s *State) {
			s.View = ViewLanding
			s.StatusMessage = ""
			s.Notice = NoticeAnalysisFailed
		})
		return err
	}

	result = result.Clone()
	plan.MarkFreeSections(result.Sections)

	c.update(func(s *State) {
		s.Analysis = result
		s.View = ViewResults
		s.StatusMessage = ""
	})
	c.logger.Info("Resume analysis completed",
		"overall_score", result.OverallScore,
		"sections", len(result.Sections))
	return nil
}

func (c *Controller) beginRotation() *rotation {
	rot := startRotation(c.statusInterval, c.statusMessages, func(msg string) {
		c.update(func(s *State) {
			if s.View == ViewAnalyzing {
				s.StatusMessage = msg
			}
		})
	})

	c.mu.Lock()
	prev := c.rotation
	c.rotation = rot
	c.mu.Unlock()

	prev.stop()
	return rot
}

func (c *Controller) endRotation(rot *rotation) {
	c.mu.Lock()
	if c.rotation == rot {
		c.rotation = nil
	}
	c.mu.Unlock()
	rot.stop()
}

// rotating reports whether a status rotation is active
func (c *Controller) rotating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation != nil
}

// RequestFullRewrite runs the rewrite when the plan allows it. Lower plans
// are sent to pricing without touching the rewrite client.
func (c *Controller) RequestFullRewrite(ctx context.Context) error {
	var (
		gated  bool
		noText bool
		text   string
		email  string
	)
	c.update(func(s *State) {
		switch {
		case !plan.CanFullRewrite(s.Plan):
			s.View = ViewPricing
			gated = true
		case s.OriginalText == "":
			s.View = ViewLanding
			s.Notice = NoticeUploadFirst
			noText = true
		default:
			s.View = ViewAnalyzing
			s.StatusMessage = StatusRewriting
			s.Notice = ""
			text = s.OriginalText
			if s.User != nil {
				email = s.User.Email
			}
		}
	})

	if gated {
		c.logger.Debug("Full rewrite requires an upgrade")
		return nil
	}
	if noText {
		return errors.NewValidationError(errors.ErrCodeEmptyInput, NoticeUploadFirst, nil)
	}

	result, err := c.rewriter.Rewrite(ctx, text)
	if err == nil && result == nil {
		err = errors.NewAIError(errors.ErrCodeAIServiceFailed, "Rewrite returned no result", nil)
	}
	if err != nil {
		c.logger.LogError(err, "Resume rewrite failed", "text_length", len(text))
		c.update(func(s *State) {
			s.StatusMessage = ""
			s.Notice = NoticeRewriteFailed
			s.View = stableResultsView(s)
		})
		return err
	}

	if email != "" && c.store != nil {
		if err := c.store.Save(ctx, email, result); err != nil {
			c.logger.LogError(err, "Failed to persist rewrite", "email", email)
		}
	}

	c.update(func(s *State) {
		s.Rewrite = result
		s.StatusMessage = ""
		s.View = ViewFullRewrite
	})
	c.logger.Info("Resume rewrite completed", "structured", result.IsStructured())
	return nil
}

// CompleteAuthentication records the session, restores the user's stored
// rewrite, and runs any deferred analysis exactly once.
func (c *Controller) CompleteAuthentication(ctx context.Context, user types.User) error {
	if strings.TrimSpace(user.Email) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "User email is required", nil)
	}

	var stored *types.RewriteResult
	if c.store != nil {
		r, err := c.store.Load(ctx, user.Email)
		switch {
		case errors.HasCode(err, errors.ErrCodeCorruptState):
			c.logger.LogError(err, "Ignoring corrupt stored rewrite", "email", user.Email)
		case err != nil:
			c.logger.LogError(err, "Failed to load stored rewrite", "email", user.Email)
		default:
			stored = r
		}
	}

	var (
		pending    string
		hasPending bool
	)
	c.update(func(s *State) {
		if s.User != nil && s.User.Email != user.Email {
			s.Rewrite = nil
		}
		u := user
		s.User = &u
		s.AuthRequired = false
		if stored != nil {
			s.Rewrite = stored
		}

		pending, hasPending = s.PendingText, s.HasPendingText
		s.PendingText = ""
		s.HasPendingText = false
	})

	c.logger.Info("Session authenticated", "email", user.Email, "restored_rewrite", stored != nil)

	if hasPending {
		return c.RunAnalysis(ctx, pending)
	}
	return nil
}

// SelectPlanUpgrade stages p and asks for payment. The active plan is
// unchanged until CompletePayment.
func (c *Controller) SelectPlanUpgrade(p plan.Plan) error {
	if !p.Valid() || p == plan.Free {
		return errors.NewValidationError(errors.ErrCodeInvalidPlan, "Unknown or non-purchasable plan", nil).
			WithContext("plan", string(p))
	}
	c.update(func(s *State) {
		s.PendingPlan = p
		s.PaymentRequired = true
	})
	return nil
}

// CompletePayment commits the staged plan. The view moves to results only
// when the user came from pricing and an analysis exists.
func (c *Controller) CompletePayment() error {
	var committed plan.Plan
	c.update(func(s *State) {
		if s.PendingPlan == "" {
			return
		}
		committed = s.PendingPlan
		s.Plan = s.PendingPlan
		s.PendingPlan = ""
		s.PaymentRequired = false
		if s.View == ViewPricing && s.Analysis != nil {
			s.View = ViewResults
		}
	})

	if committed == "" {
		return errors.NewValidationError(errors.ErrCodeNoStagedPlan, "No plan is awaiting payment", nil)
	}
	c.logger.Info("Plan upgraded", "plan", committed.String())
	return nil
}

// ShowPricing opens the pricing view
func (c *Controller) ShowPricing() {
	c.update(func(s *State) {
		s.View = ViewPricing
	})
}

// Back leaves pricing or the rewrite for the results view, or for landing
// when no analysis exists yet.
func (c *Controller) Back() {
	c.update(func(s *State) {
		switch s.View {
		case ViewPricing, ViewFullRewrite:
			s.View = stableResultsView(s)
		case ViewResults:
			s.View = ViewLanding
		}
	})
}

// GoHome returns to the landing view
func (c *Controller) GoHome() {
	c.update(func(s *State) {
		s.View = ViewLanding
	})
}

// CancelAuthentication closes the sign-in prompt. Staged text is kept.
func (c *Controller) CancelAuthentication() {
	c.update(func(s *State) {
		s.AuthRequired = false
	})
}

// CancelPayment discards the staged plan
func (c *Controller) CancelPayment() {
	c.update(func(s *State) {
		s.PendingPlan = ""
		s.PaymentRequired = false
	})
}

// DismissNotice clears the user-visible notice
func (c *Controller) DismissNotice() {
	c.update(func(s *State) {
		s.Notice = ""
	})
}

// stableResultsView keeps results reachable only with an analysis
func stableResultsView(s *State) View {
	if s.Analysis != nil {
		return ViewResults
	}
	return ViewLanding
}
