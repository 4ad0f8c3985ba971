package reasoner

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
)

// Fallback tool parameters.
const (
	FallbackConeRadius = 0.5
	FallbackConeLimit  = 10
	FallbackPaperLimit = 5
)

// InsufficientSignalText is the answer when nothing could be extracted from a query.
const InsufficientSignalText = "I couldn't connect to an LLM for reasoning, and I couldn't find coordinates, " +
	"a star id or a research topic in your question. Try a more specific query, for example " +
	"\"stars near ra=45 dec=0.5\", \"star source_id=4295806720\" or \"papers about wide binaries\"."

var (
	raPattern  = regexp.MustCompile(`(?i)\bra\s*[=:]\s*(\d+(?:\.\d+)?)`)
	decPattern = regexp.MustCompile(`(?i)\bdec\s*[=:]\s*([+-]?\d+(?:\.\d+)?)`)
	idPattern  = regexp.MustCompile(`(?i)\b(?:source_id|star|id)\s*[=:]\s*([A-Za-z0-9_\-]+)`)

	topicKeywords = []string{"paper", "research", "study", "published"}
)

// Signals is what the rule-based interpreter understood in a query.
type Signals struct {
	RA, Dec *float64
	ID      string
	Topical bool
}

// HasCone reports whether both coordinates were found.
func (s Signals) HasCone() bool { return s.RA != nil && s.Dec != nil }

// IsEmpty reports whether nothing usable was found.
func (s Signals) IsEmpty() bool { return !s.HasCone() && s.ID == "" && !s.Topical }

// Extract pulls coordinates, an identifier and the topical flag out of free text.
func Extract(query string) Signals {
	var s Signals
	s.RA = matchFloat(raPattern, query)
	s.Dec = matchFloat(decPattern, query)
	if m := idPattern.FindStringSubmatch(query); m != nil {
		s.ID = m[1]
	}
	lower := strings.ToLower(query)
	for _, kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			s.Topical = true
			break
		}
	}
	return s
}

func matchFloat(re *regexp.Regexp, s string) *float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// RuleBased answers by pattern matching and never calls a language model.
type RuleBased struct {
	tools *Toolbox
}

// NewRuleBased creates the deterministic interpreter.
func NewRuleBased(tools *Toolbox) *RuleBased {
	return &RuleBased{tools: tools}
}

// Ask runs every tool the query has a signal for. It does not fail: backend
// errors become answer text and an empty extraction sets Insufficient.
func (r *RuleBased) Ask(ctx context.Context, query string, _ []agent.Turn) (agent.Answer, error) {
	sig := Extract(query)
	ans := agent.Answer{
		Query:     query,
		Mode:      agent.ModeFallback,
		ToolsUsed: []agent.ToolUse{},
	}
	if sig.IsEmpty() {
		ans.Answer = InsufficientSignalText
		ans.Insufficient = true
		return ans, nil
	}

	res := &agent.Results{}
	var parts []string
	record := func(tool, input, output string) {
		parts = append(parts, output)
		ans.ToolsUsed = append(ans.ToolsUsed, agent.ToolUse{Tool: tool, Input: input, OutputPreview: agent.Preview(output)})
	}

	if sig.HasCone() {
		text, hits := r.tools.ConeSearch(ctx, *sig.RA, *sig.Dec, FallbackConeRadius, FallbackConeLimit)
		res.Cone = hits
		record(ToolConeSearch, fmt.Sprintf("ra=%g, dec=%g", *sig.RA, *sig.Dec), text)
	}
	if sig.ID != "" {
		text, star := r.tools.StarLookup(ctx, sig.ID)
		res.Star = star
		record(ToolStarLookup, sig.ID, text)
	}
	if sig.Topical {
		text, hits := r.tools.SemanticSearch(ctx, query, FallbackPaperLimit)
		res.Papers = hits
		record(ToolSemantic, query, text)
	}

	ans.Answer = strings.Join(parts, "\n\n")
	ans.Results = res
	return ans, nil
}
