package reasoner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
)

// DefaultMaxIterations bounds the tool-calling rounds of one ask.
const DefaultMaxIterations = 5

// SystemPrompt introduces the assistant and its tools to the model.
const SystemPrompt = `You are TaarYa, an intelligent astronomy research assistant.
You have access to tools that query real astronomical databases:

1. cone_search: find stars near a sky coordinate (RA/Dec)
2. star_lookup: get details about a specific star by its Gaia source ID
3. find_nearby_stars: find neighbors of a known star
4. semantic_search: search research papers by topic
5. graph_query: explore the knowledge graph for star-paper relationships
6. count_stars_in_region: count stars in a sky area

Guidelines:
- When users mention coordinates, use cone_search with those coordinates
- When users mention a star ID or source_id, use star_lookup first
- For questions about research or papers, use semantic_search
- Always interpret magnitudes correctly: lower G-mag = brighter star
- Be concise but informative. Include relevant numbers from the data.
- If a tool returns no results, explain why (e.g., collection not populated yet)
- Coordinates are in degrees: RA ranges 0-360, Dec ranges -90 to +90
`

const (
	noAnswerText       = "I couldn't generate a response."
	iterationLimitText = "Agent stopped due to iteration limit."
)

// Generative lets a chat model decide which tools to call.
type Generative struct {
	model         ChatModel
	tools         *Toolbox
	maxIterations int
	timeout       time.Duration
	logger        *zap.Logger
}

// NewGenerative creates the LLM-driven reasoner.
func NewGenerative(model ChatModel, tools *Toolbox) *Generative {
	return &Generative{
		model:         model,
		tools:         tools,
		maxIterations: DefaultMaxIterations,
		logger:        zap.NewNop(),
	}
}

// WithMaxIterations overrides the tool round limit.
func (g *Generative) WithMaxIterations(n int) *Generative {
	if n > 0 {
		g.maxIterations = n
	}
	return g
}

// WithTimeout bounds a whole ask, tool calls included.
func (g *Generative) WithTimeout(d time.Duration) *Generative {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// WithLogger sets the logger.
func (g *Generative) WithLogger(l *zap.Logger) *Generative {
	if l != nil {
		g.logger = l
	}
	return g
}

// Ask runs the tool loop. A model failure is returned as an error so the caller can fall back.
func (g *Generative) Ask(ctx context.Context, query string, history []agent.Turn) (agent.Answer, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	msgs := make([]agent.Message, 0, len(history)+2)
	msgs = append(msgs, agent.Message{Role: agent.RoleSystem, Content: SystemPrompt})
	msgs = append(msgs, agent.HistoryMessages(history)...)
	msgs = append(msgs, agent.Message{Role: agent.RoleUser, Content: query})

	specs := g.tools.Specs()
	ans := agent.Answer{Query: query, Mode: agent.ModeGenerative, ToolsUsed: []agent.ToolUse{}}

	for range g.maxIterations {
		reply, err := g.model.Complete(ctx, msgs, specs)
		if err != nil {
			return agent.Answer{}, fmt.Errorf("complete chat: %w", err)
		}
		if len(reply.ToolCalls) == 0 {
			ans.Answer = reply.Content
			if ans.Answer == "" {
				ans.Answer = noAnswerText
			}
			return ans, nil
		}

		msgs = append(msgs, reply)
		for _, tc := range reply.ToolCalls {
			out := g.tools.Invoke(ctx, tc.Name, tc.Arguments)
			g.logger.Debug("tool called", zap.String("tool", tc.Name), zap.String("input", tc.Arguments))
			ans.ToolsUsed = append(ans.ToolsUsed, agent.ToolUse{
				Tool:          tc.Name,
				Input:         tc.Arguments,
				OutputPreview: agent.Preview(out),
			})
			msgs = append(msgs, agent.Message{Role: agent.RoleTool, Content: out, ToolCallID: tc.ID})
		}
	}

	ans.Answer = iterationLimitText
	return ans, nil
}
