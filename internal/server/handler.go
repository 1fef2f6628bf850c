package server

import (
	"io"
	"net/http"
	"strings"

	"resumegenius/internal/billing"
	"resumegenius/internal/controller"
	"resumegenius/internal/errors"
	"resumegenius/internal/extract"
	"resumegenius/internal/formatters"
	"resumegenius/internal/observability"
	"resumegenius/internal/plan"
	"resumegenius/internal/session"
	"resumegenius/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// AuthRequest signs the session in
type AuthRequest struct {
	Name  string `json:"name" validate:"max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// SubmitRequest carries resume text; emptiness is judged by the controller
type SubmitRequest struct {
	Text string `json:"text"`
}

// NavigateRequest moves between views
type NavigateRequest struct {
	Action string `json:"action" validate:"required,oneof=back home pricing dismiss cancel-auth cancel-payment"`
}

// SelectPlanRequest stages a plan upgrade
type SelectPlanRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// StateResponse is returned by every state-changing endpoint
type StateResponse struct {
	Token    string            `json:"token,omitempty"`
	State    controller.State  `json:"state"`
	Checkout *billing.Checkout `json:"checkout,omitempty"`
	Error    *ErrorResponse    `json:"error,omitempty"`
}

// ExtractResponse is the text pulled from an upload
type ExtractResponse struct {
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	Characters int    `json:"characters"`
}

func (s *Server) writeState(w http.ResponseWriter, ctrl *controller.Controller) {
	writeJSON(w, http.StatusOK, StateResponse{State: ctrl.State().Redacted()})
}

// createSessionHandler starts an anonymous session
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := session.NewSessionID()
	token, err := s.sessions.Issue(id, nil)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	ctrl, _ := s.registry.GetOrCreate(id, plan.Free)
	s.Logger.Debug("Session created", "session_id", id)
	writeJSON(w, http.StatusCreated, StateResponse{Token: token, State: ctrl.State().Redacted()})
}

// authHandler signs the session in and reissues its token. A staged
// submission is analyzed now; its failure is reported alongside the new
// token since the sign-in itself succeeded.
func (s *Server) authHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, claims *session.Claims) {
	var req AuthRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user := types.User{
		ID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String(),
		Email: email,
		Name:  strings.TrimSpace(req.Name),
	}

	authErr := ctrl.CompleteAuthentication(r.Context(), user)
	if errors.HasCode(authErr, errors.ErrCodeInvalidRequest) {
		s.writeAppError(w, r, authErr)
		return
	}

	// a plan bought before sign-in follows the user to later sessions
	s.persistPlan(r.Context(), claims.SessionID(), email, ctrl.State().Plan)

	token, err := s.sessions.Issue(claims.SessionID(), &user)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	resp := StateResponse{Token: token, State: ctrl.State().Redacted()}
	if authErr != nil {
		resp.Error = errorResponse(authErr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, _ *session.Claims) {
	var req SubmitRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if err := ctrl.SubmitInput(r.Context(), req.Text); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeState(w, ctrl)
}

// extractHandler turns an uploaded file into text without touching state
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request, _ *controller.Controller, _ *session.Claims) {
	ctx, span := s.om.Tracer("resumegenius.api").Start(r.Context(), "api.extract")
	defer span.End()

	file, header, err := r.FormFile("file")
	if err != nil {
		span.RecordError(err)
		if isMaxBytesError(err) {
			s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeFileTooLarge, "Upload exceeds the size limit", err))
			return
		}
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "multipart field 'file' is required", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read upload", err))
		return
	}

	ext := extract.Extension(header.Filename)
	span.SetAttributes(
		attribute.String("file.extension", ext),
		attribute.Int("file.size", len(data)),
	)

	text, err := s.extractor.Extract(header.Filename, data)
	s.om.RecordBusinessEvent(ctx, observability.EventFileExtracted, err == nil, attribute.String("extension", ext))
	if err != nil {
		span.RecordError(err)
		s.writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		Filename:   header.Filename,
		Text:       text,
		Characters: len([]rune(text)),
	})
}

func (s *Server) rewriteHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, _ *session.Claims) {
	if err := ctrl.RequestFullRewrite(r.Context()); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.writeState(w, ctrl)
}

func (s *Server) navigateHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, _ *session.Claims) {
	var req NavigateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	switch req.Action {
	case "back":
		ctrl.Back()
	case "home":
		ctrl.GoHome()
	case "pricing":
		ctrl.ShowPricing()
	case "dismiss":
		ctrl.DismissNotice()
	case "cancel-auth":
		ctrl.CancelAuthentication()
	case "cancel-payment":
		ctrl.CancelPayment()
	}
	s.writeState(w, ctrl)
}

// selectPlanHandler stages the plan and opens a checkout with the billing
// provider. The plan is committed only by a payment confirmation.
func (s *Server) selectPlanHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, claims *session.Claims) {
	var req SelectPlanRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	p, _ := plan.Parse(req.Plan)
	if err := ctrl.SelectPlanUpgrade(p); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	checkoutReq := billing.CheckoutRequest{SessionID: claims.SessionID(), Plan: p}
	if claims.User != nil {
		checkoutReq.CustomerEmail = claims.User.Email
	}
	checkout, err := s.billing.CreateCheckout(r.Context(), checkoutReq)
	if err != nil {
		ctrl.CancelPayment()
		s.writeAppError(w, r, err)
		return
	}

	s.Logger.Info("Checkout created",
		"session_id", claims.SessionID(),
		"plan", p.String(),
		"provider", checkout.Provider)
	writeJSON(w, http.StatusOK, StateResponse{State: ctrl.State().Redacted(), Checkout: checkout})
}

// completePaymentHandler confirms a simulated payment. Real providers
// confirm through the webhook only.
func (s *Server) completePaymentHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, claims *session.Claims) {
	if s.billing.Name() != billing.ProviderNone {
		s.writeAppError(w, r, errors.NewEntitlementError(errors.ErrCodePaymentFailed,
			"Payment is confirmed by the billing provider"))
		return
	}

	staged := ctrl.State().PendingPlan
	if err := ctrl.CompletePayment(); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.persistPlan(r.Context(), claims.SessionID(), sessionEmail(ctrl, claims), staged)
	s.om.RecordBusinessEvent(r.Context(), observability.EventPlanUpgraded, true, attribute.String("plan", staged.String()))
	s.writeState(w, ctrl)
}

// webhookHandler applies a verified payment callback to its session. The
// plan is persisted first, so a session that was evicted or never seen by
// this replica picks it up when it next resumes.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := io.ReadAll(io.LimitReader(r.Body, billing.MaxWebhookBytes+1))
	if err != nil {
		s.writeAppError(w, r, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read webhook body", err))
		return
	}
	if len(payload) > billing.MaxWebhookBytes {
		writeErrorResponse(w, errors.ErrCodeFileTooLarge, "Webhook payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	event, err := s.billing.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	ack := map[string]any{"received": true}
	if event.SessionID == "" || !event.Paid {
		s.Logger.Debug("Ignoring webhook event", "type", event.Type)
		writeJSON(w, http.StatusOK, ack)
		return
	}

	if !event.Plan.Valid() || event.Plan == plan.Free {
		s.Logger.Warn("Webhook carried an unusable plan", "session_id", event.SessionID, "plan", event.Plan.String())
		s.om.RecordBusinessEvent(ctx, observability.EventPaymentSettled, false, attribute.String("reason", "invalid_plan"))
		writeJSON(w, http.StatusOK, ack)
		return
	}

	ctrl, ok := s.registry.Get(event.SessionID)
	email := event.CustomerEmail
	if ok {
		if u := ctrl.State().User; u != nil {
			email = u.Email
		}
	}
	s.persistPlan(ctx, event.SessionID, email, event.Plan)

	planAttr := attribute.String("plan", event.Plan.String())
	if !ok {
		s.Logger.Info("Payment stored for inactive session", "session_id", event.SessionID, "plan", event.Plan.String())
		s.om.RecordBusinessEvent(ctx, observability.EventPaymentSettled, true, planAttr, attribute.String("session", "inactive"))
		writeJSON(w, http.StatusOK, ack)
		return
	}

	// the paid plan wins over whatever was staged since
	if ctrl.State().PendingPlan != event.Plan {
		if err := ctrl.SelectPlanUpgrade(event.Plan); err != nil {
			s.Logger.LogError(err, "Webhook carried an unusable plan", "session_id", event.SessionID)
			writeJSON(w, http.StatusOK, ack)
			return
		}
	}
	if err := ctrl.CompletePayment(); err != nil {
		s.Logger.LogError(err, "Failed to apply payment", "session_id", event.SessionID)
		s.om.RecordBusinessEvent(ctx, observability.EventPaymentSettled, false)
		writeJSON(w, http.StatusOK, ack)
		return
	}

	s.om.RecordBusinessEvent(ctx, observability.EventPaymentSettled, true, planAttr)
	s.om.RecordBusinessEvent(ctx, observability.EventPlanUpgraded, true, planAttr)
	s.Logger.Info("Payment settled", "session_id", event.SessionID, "plan", event.Plan.String())
	writeJSON(w, http.StatusOK, ack)
}

// sessionEmail is the signed-in user's email, from state or the token
func sessionEmail(ctrl *controller.Controller, claims *session.Claims) string {
	if u := ctrl.State().User; u != nil {
		return u.Email
	}
	if claims != nil && claims.User != nil {
		return claims.User.Email
	}
	return ""
}

func (s *Server) stateHandler(w http.ResponseWriter, _ *http.Request, ctrl *controller.Controller, _ *session.Claims) {
	s.writeState(w, ctrl)
}

// reportHandler downloads the health check, redacted by plan
func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, _ *session.Claims) {
	format, ok := s.requestedFormat(w, r)
	if !ok {
		return
	}
	st := ctrl.State()
	if st.Analysis == nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeNoAnalysis, "No analysis to download yet", nil))
		return
	}

	out, err := s.formatters.Format(formatters.Report{Analysis: st.Analysis, Plan: st.Plan}, format)
	if err != nil {
		s.writeAppError(w, r, errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to render report", err))
		return
	}
	writeDownload(w, formatters.ReportFileName(s.now(), format), format, out)
}

// rewriteDownloadHandler downloads the optimized resume
func (s *Server) rewriteDownloadHandler(w http.ResponseWriter, r *http.Request, ctrl *controller.Controller, _ *session.Claims) {
	format, ok := s.requestedFormat(w, r)
	if !ok {
		return
	}
	st := ctrl.State()
	if st.Rewrite == nil {
		s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeNoRewrite, "No rewrite to download yet", nil))
		return
	}

	out, err := s.formatters.Format(st.Rewrite, format)
	if err != nil {
		s.writeAppError(w, r, errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to render rewrite", err))
		return
	}
	writeDownload(w, formatters.RewriteFileName(s.now(), format), format, out)
}

// requestedFormat reads ?format=, defaulting to text
func (s *Server) requestedFormat(w http.ResponseWriter, r *http.Request) (string, bool) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatters.FormatText
	}
	for _, f := range s.formatters.GetSupportedFormats() {
		if f == format {
			return format, true
		}
	}
	s.writeAppError(w, r, errors.NewValidationError(errors.ErrCodeInvalidFormat,
		"format must be one of "+strings.Join(s.formatters.GetSupportedFormats(), ", "), nil))
	return "", false
}

func writeDownload(w http.ResponseWriter, filename, format, body string) {
	w.Header().Set("Content-Type", formatters.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
