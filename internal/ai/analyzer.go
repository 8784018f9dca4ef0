package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	apperrors "github.com/payrollcheck/payrollcheck-backend/internal/errors"
	"github.com/payrollcheck/payrollcheck-backend/internal/models"
	"github.com/payrollcheck/payrollcheck-backend/internal/repository"
)

// Notifier receives a callback when a new draft becomes available.
// Implemented by the websocket hub; nil disables notifications.
type Notifier interface {
	DraftReady(conversationID, draftID string)
}

// AnalyzeParams identifies the lead and conversation to analyze.
// MessageID and AdminID are optional.
type AnalyzeParams struct {
	LeadID         string
	ConversationID string
	MessageID      string
	AdminID        string
	Trigger        string
}

// AnalyzeResult reports the outcome of one analysis run
type AnalyzeResult struct {
	Success  bool   `json:"success"`
	ActionID string `json:"action_id,omitempty"`
	DraftID  string `json:"draft_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Analyzer runs the full case analysis pipeline: load context, fetch the
// thread, assemble prompts, call the generation service, validate the output
// and persist state, audit action and draft.
type Analyzer struct {
	leads     repository.LeadRepository
	rules     repository.RulesRepository
	states    repository.StateRepository
	actions   repository.ActionRepository
	drafts    repository.DraftRepository
	messages  repository.MessageRepository
	generator Generator
	notifier  Notifier
	logger    *slog.Logger
}

// AnalyzerConfig wires the analyzer's dependencies
type AnalyzerConfig struct {
	Leads     repository.LeadRepository
	Rules     repository.RulesRepository
	States    repository.StateRepository
	Actions   repository.ActionRepository
	Drafts    repository.DraftRepository
	Messages  repository.MessageRepository
	Generator Generator
	Notifier  Notifier
	Logger    *slog.Logger
}

// NewAnalyzer creates an analyzer from its dependencies
func NewAnalyzer(cfg *AnalyzerConfig) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		leads:     cfg.Leads,
		rules:     cfg.Rules,
		states:    cfg.States,
		actions:   cfg.Actions,
		drafts:    cfg.Drafts,
		messages:  cfg.Messages,
		generator: cfg.Generator,
		notifier:  cfg.Notifier,
		logger:    logger,
	}
}

// AnalyzeInboundEmail runs one analysis invocation. On AI or validation
// failure it records a failed audit action and leaves case state and drafts
// untouched. Errors are reported in the result, not returned, because
// callers fire this from webhook goroutines where a failed analysis must not
// affect ingestion.
func (a *Analyzer) AnalyzeInboundEmail(ctx context.Context, params AnalyzeParams) AnalyzeResult {
	log := a.logger.With(
		slog.String("lead_id", params.LeadID),
		slog.String("conversation_id", params.ConversationID),
		slog.String("trigger", params.Trigger),
	)

	lead, err := a.leads.GetByID(ctx, params.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AnalyzeResult{Error: "Lead not found"}
		}
		log.Error("failed to load lead for analysis", slog.String("error", err.Error()))
		return AnalyzeResult{Error: "failed to load lead"}
	}

	caseType := InferCaseType(lead)

	requiredFields, err := a.loadRequiredFields(ctx, caseType)
	if err != nil {
		log.Error("failed to load case rules", slog.String("error", err.Error()))
		return AnalyzeResult{Error: "failed to load case rules"}
	}

	state, err := a.loadOrSeedState(ctx, lead, caseType, requiredFields)
	if err != nil {
		log.Error("failed to load case state", slog.String("error", err.Error()))
		return AnalyzeResult{Error: "failed to load case state"}
	}

	knownFacts := map[string]interface{}(state.KnownFacts)
	if knownFacts == nil {
		knownFacts = map[string]interface{}{}
	}

	thread, err := a.fetchThread(ctx, params.ConversationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrEmptyConversation) {
			return AnalyzeResult{Error: apperrors.ErrEmptyConversation.Error()}
		}
		log.Error("failed to load conversation thread", slog.String("error", err.Error()))
		return AnalyzeResult{Error: "failed to load conversation thread"}
	}

	missingFields := ComputeMissingFields(requiredFields, knownFacts)

	systemPrompt := BuildSystemPrompt()
	userPrompt := BuildAnalysisPrompt(AnalysisPromptParams{
		LeadName:       lead.FullName,
		CaseType:       caseType,
		CurrentSummary: state.Summary,
		KnownFacts:     knownFacts,
		MissingFields:  missingFields,
		Thread:         thread,
	})

	inputSnapshot := a.buildInputSnapshot(params, caseType, missingFields, len(thread))

	raw, usage, genErr := a.generator.Generate(ctx, systemPrompt, userPrompt)

	var output *AnalysisOutput
	if genErr == nil {
		output, genErr = ParseAnalysisOutput(raw)
	}

	if genErr != nil {
		a.recordFailure(ctx, params, inputSnapshot, usage, genErr)
		log.Warn("analysis failed", slog.String("error", genErr.Error()))
		return AnalyzeResult{Error: genErr.Error()}
	}

	updatedFacts := MergeKnownFacts(knownFacts, output.ExtractedFacts)
	updatedMissing := ComputeMissingFields(requiredFields, updatedFacts)

	action := &models.CaseAiAction{
		LeadID:           params.LeadID,
		Trigger:          params.Trigger,
		InputSnapshot:    inputSnapshot,
		Output:           outputAsMap(output),
		Status:           models.ActionStatusSuccess,
		Model:            a.generator.Model(),
		CreatedByAdminID: optionalID(params.AdminID),
	}
	if usage != nil {
		action.PromptTokens = usage.PromptTokens
		action.CompletionTokens = usage.CompletionTokens
	}
	if err := a.actions.Create(ctx, action); err != nil {
		log.Error("failed to record analysis action", slog.String("error", err.Error()))
		return AnalyzeResult{Error: "failed to record analysis action"}
	}

	now := time.Now().UTC()
	state.Summary = output.CaseSummary
	state.KnownFacts = datatypes.JSONMap(updatedFacts)
	state.MissingFields = datatypes.JSONSlice[models.RequiredField](updatedMissing)
	state.LastAnalyzedMessageID = optionalID(params.MessageID)
	state.LastAnalyzedAt = &now
	state.ConfidenceScore = ComputeConfidence(requiredFields, updatedFacts)
	if err := a.states.Update(ctx, state); err != nil {
		log.Error("failed to update case state", slog.String("error", err.Error()))
	}

	draft := &models.CaseAiDraft{
		LeadID:           params.LeadID,
		ConversationID:   params.ConversationID,
		SuggestedSubject: output.SuggestedSubject,
		SuggestedText:    output.SuggestedReplyText,
		SuggestedHTML:    output.SuggestedReplyHTML,
		Questions:        datatypes.JSONSlice[string](output.Questions),
		Status:           models.DraftStatusProposed,
		SourceActionID:   &action.ID,
	}
	if err := a.drafts.ReplaceProposed(ctx, draft); err != nil {
		log.Error("failed to store draft", slog.String("error", err.Error()))
		return AnalyzeResult{ActionID: action.ID, Error: "failed to store draft"}
	}

	if a.notifier != nil {
		a.notifier.DraftReady(params.ConversationID, draft.ID)
	}

	log.Info("analysis completed",
		slog.String("action_id", action.ID),
		slog.String("draft_id", draft.ID),
		slog.Int("confidence_score", state.ConfidenceScore))

	return AnalyzeResult{Success: true, ActionID: action.ID, DraftID: draft.ID}
}

// loadRequiredFields loads the rule schedule for the case type, falling back
// to the generic type. When neither exists the schedule is empty and the
// engine trivially reports nothing missing.
func (a *Analyzer) loadRequiredFields(ctx context.Context, caseType string) ([]models.RequiredField, error) {
	rules, err := a.rules.GetByCaseType(ctx, caseType)
	if errors.Is(err, repository.ErrNotFound) && caseType != CaseTypeGeneral {
		rules, err = a.rules.GetByCaseType(ctx, CaseTypeGeneral)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []models.RequiredField(rules.RequiredFields), nil
}

// loadOrSeedState fetches the lead's case state, creating it on first
// analysis seeded from facts derivable directly from the lead record.
func (a *Analyzer) loadOrSeedState(ctx context.Context, lead *models.Lead, caseType string, requiredFields []models.RequiredField) (*models.CaseAiState, error) {
	state, err := a.states.GetByLead(ctx, lead.ID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	facts := ExtractFactsFromLead(lead)
	state = &models.CaseAiState{
		LeadID:        lead.ID,
		CaseType:      caseType,
		KnownFacts:    datatypes.JSONMap(facts),
		MissingFields: datatypes.JSONSlice[models.RequiredField](ComputeMissingFields(requiredFields, facts)),
	}
	if err := a.states.Create(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (a *Analyzer) fetchThread(ctx context.Context, conversationID string) ([]ThreadMessage, error) {
	messages, err := a.messages.LatestByConversation(ctx, conversationID, ThreadMessageLimit)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, apperrors.ErrEmptyConversation
	}

	thread := make([]ThreadMessage, 0, len(messages))
	for _, m := range messages {
		text := ""
		if m.TextBody != nil {
			text = *m.TextBody
		}
		thread = append(thread, ThreadMessage{
			Direction:  m.Direction,
			From:       m.FromEmail,
			OccurredAt: m.OccurredAt,
			Text:       text,
		})
	}
	return thread, nil
}

func (a *Analyzer) buildInputSnapshot(params AnalyzeParams, caseType string, missingFields []models.RequiredField, threadLength int) datatypes.JSONMap {
	missingKeys := make([]interface{}, 0, len(missingFields))
	for _, f := range missingFields {
		missingKeys = append(missingKeys, f.Key)
	}

	snapshot := datatypes.JSONMap{
		"lead_id":            params.LeadID,
		"conversation_id":    params.ConversationID,
		"case_type":          caseType,
		"missing_field_keys": missingKeys,
		"thread_length":      threadLength,
		"trigger":            params.Trigger,
	}
	if params.MessageID != "" {
		snapshot["message_id"] = params.MessageID
	}
	return snapshot
}

// recordFailure stores a failed audit action with an empty output
func (a *Analyzer) recordFailure(ctx context.Context, params AnalyzeParams, snapshot datatypes.JSONMap, usage *TokenUsage, genErr error) {
	msg := genErr.Error()
	action := &models.CaseAiAction{
		LeadID:           params.LeadID,
		Trigger:          params.Trigger,
		InputSnapshot:    snapshot,
		Output:           datatypes.JSONMap{},
		Status:           models.ActionStatusFailed,
		Model:            a.generator.Model(),
		ErrorMessage:     &msg,
		CreatedByAdminID: optionalID(params.AdminID),
	}
	if usage != nil {
		action.PromptTokens = usage.PromptTokens
		action.CompletionTokens = usage.CompletionTokens
	}
	if err := a.actions.Create(ctx, action); err != nil {
		a.logger.Error("failed to record failed analysis action",
			slog.String("lead_id", params.LeadID),
			slog.String("error", err.Error()))
	}
}

func outputAsMap(out *AnalysisOutput) datatypes.JSONMap {
	m := datatypes.JSONMap{
		"case_summary":         out.CaseSummary,
		"extracted_facts":      out.ExtractedFacts,
		"risk_flags":           out.RiskFlags,
		"suggested_subject":    out.SuggestedSubject,
		"suggested_reply_text": out.SuggestedReplyText,
		"questions":            out.Questions,
	}
	if out.SuggestedReplyHTML != nil {
		m["suggested_reply_html"] = *out.SuggestedReplyHTML
	} else {
		m["suggested_reply_html"] = nil
	}
	return m
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
