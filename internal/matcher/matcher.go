// File path: internal/matcher/matcher.go
package matcher

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/orderflow/workorder-engine/internal/common"
	"github.com/orderflow/workorder-engine/internal/llm"
	"github.com/orderflow/workorder-engine/internal/recipe"
	"github.com/orderflow/workorder-engine/internal/telemetry"
)

// confidenceThreshold is the minimum match confidence the interpreter will
// act on.
const confidenceThreshold = 0.7

// errBelowThreshold aborts the conversation graph after the selection turn
// without spending a second LLM call on parameter extraction.
var errBelowThreshold = errors.New("matcher: confidence below threshold")

// Outcome tags the result of a match attempt.
type Outcome string

const (
	Matched   Outcome = "matched"
	Unmatched Outcome = "unmatched"
	Errored   Outcome = "error"
)

// MatchError reports a malformed or out-of-range LLM response.
type MatchError struct {
	Reason string
}

func (e MatchError) Error() string {
	return "matcher: " + e.Reason
}

// Result is the outcome of Match: Recipe and ExtractedParams are set only
// when Outcome is Matched, and Err only when Outcome is Errored.
type Result struct {
	Outcome         Outcome
	Recipe          *recipe.Recipe
	ExtractedParams map[string]interface{}
	Confidence      float64
	Err             error
}

// Client is the narrow completion capability the matcher needs, adapted from
// the chat-oriented llm.Provider so a deadline can be attached per call.
type Client struct {
	provider llm.Provider
}

func NewClient(provider llm.Provider) *Client {
	return &Client{provider: provider}
}

func (c *Client) complete(ctx context.Context, promptText string, deadline time.Duration) (string, error) {
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	return c.provider.Chat(callCtx, []llm.Message{{Role: "user", Content: promptText}})
}

// Match runs the two-call matching protocol against catalog, wired as a
// two-node message graph (see graph.go) so the selection and extraction
// turns share one conversation history. The catalog is passed by the caller
// (typically Store.ListAll) so the matcher itself holds no state between
// runs.
func Match(ctx context.Context, userText string, catalog []*recipe.Recipe, client *Client, deadline time.Duration) Result {
	logger := common.Logger()
	if len(catalog) == 0 {
		telemetry.RecordMatchAttempt(false, false)
		return Result{Outcome: Unmatched}
	}

	var selection selectionResponse
	var chosen *recipe.Recipe

	state := &conversationState{
		client:   client,
		deadline: deadline,
		extractQuery: func(selectionReply string) (string, error) {
			sel, err := parseSelection(selectionReply, len(catalog))
			if err != nil {
				return "", err
			}
			selection = sel
			if sel.confidence < confidenceThreshold {
				return "", errBelowThreshold
			}
			chosen = catalog[sel.matchedIndex-1]
			return buildExtractionPrompt(userText, chosen), nil
		},
	}

	g, err := buildConversation()
	if err != nil {
		telemetry.RecordMatchAttempt(false, false)
		return Result{Outcome: Errored, Err: MatchError{Reason: err.Error()}}
	}
	runnable, err := g.Compile()
	if err != nil {
		telemetry.RecordMatchAttempt(false, false)
		return Result{Outcome: Errored, Err: MatchError{Reason: err.Error()}}
	}

	initial := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, buildSelectionPrompt(userText, catalog))}
	final, err := runnable.Invoke(withConversationState(ctx, state), initial)
	if err != nil {
		if errors.Is(err, errBelowThreshold) {
			telemetry.RecordMatchAttempt(false, false)
			logger.Info("matcher: below confidence threshold", "confidence", selection.confidence, "reasoning", selection.reasoning)
			return Result{Outcome: Unmatched, Confidence: selection.confidence}
		}
		telemetry.RecordMatchAttempt(false, isDeadlineErr(err))
		if _, ok := err.(MatchError); ok {
			return Result{Outcome: Errored, Err: err}
		}
		return Result{Outcome: Errored, Err: MatchError{Reason: err.Error()}}
	}

	params, err := parseParams(lastAIText(final))
	if err != nil {
		telemetry.RecordMatchAttempt(false, false)
		return Result{Outcome: Errored, Err: err}
	}

	telemetry.RecordMatchAttempt(true, false)
	return Result{Outcome: Matched, Recipe: chosen, ExtractedParams: params, Confidence: selection.confidence}
}

func isDeadlineErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
