// File path: internal/matcher/graph.go
package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langgraphgo/graph"
)

// buildConversation wires the two-call matching protocol as a two-node
// message graph: a selection turn, followed by a parameter-extraction turn,
// sharing one accumulating message history.
func buildConversation() (*graph.MessageGraph, error) {
	g := graph.NewMessageGraph()
	g.AddNode(nodeSelect, selectNode)
	g.AddNode(nodeExtract, extractNode)
	g.SetEntryPoint(nodeSelect)
	g.AddEdge(nodeSelect, nodeExtract)
	g.AddEdge(nodeExtract, graph.END)
	return g, nil
}

const (
	nodeSelect  = "select"
	nodeExtract = "extract"
)

// conversationKey threads the non-message call parameters (the completion
// client, deadline, and which recipe was chosen after selection) through
// context, since MessageGraph nodes only receive and return message history.
type conversationKey struct{}

type conversationState struct {
	client       *Client
	deadline     time.Duration
	extractQuery func(selectionReply string) (string, error)
}

func withConversationState(ctx context.Context, s *conversationState) context.Context {
	return context.WithValue(ctx, conversationKey{}, s)
}

func conversationStateFrom(ctx context.Context) *conversationState {
	s, _ := ctx.Value(conversationKey{}).(*conversationState)
	return s
}

func selectNode(ctx context.Context, messages []llms.MessageContent) ([]llms.MessageContent, error) {
	state := conversationStateFrom(ctx)
	if state == nil {
		return nil, fmt.Errorf("matcher: missing conversation state")
	}
	prompt := extractLastUserText(messages)
	reply, err := state.client.complete(ctx, prompt, state.deadline)
	if err != nil {
		return nil, err
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeAI, reply)), nil
}

func extractNode(ctx context.Context, messages []llms.MessageContent) ([]llms.MessageContent, error) {
	state := conversationStateFrom(ctx)
	if state == nil {
		return nil, fmt.Errorf("matcher: missing conversation state")
	}
	selectionReply := lastAIText(messages)
	nextPrompt, err := state.extractQuery(selectionReply)
	if err != nil {
		return messages, err
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, nextPrompt))
	reply, err := state.client.complete(ctx, nextPrompt, state.deadline)
	if err != nil {
		return nil, err
	}
	return append(messages, llms.TextParts(llms.ChatMessageTypeAI, reply)), nil
}

func extractLastUserText(messages []llms.MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llms.ChatMessageTypeHuman {
			return textOf(messages[i])
		}
	}
	return ""
}

func lastAIText(messages []llms.MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llms.ChatMessageTypeAI {
			return textOf(messages[i])
		}
	}
	return ""
}

func textOf(m llms.MessageContent) string {
	for _, part := range m.Parts {
		if tp, ok := part.(llms.TextContent); ok {
			return tp.Text
		}
	}
	return ""
}
