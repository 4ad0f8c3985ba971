// Package reasoner answers natural-language questions. Asker tries the
// generative strategy first and falls back to the rule-based interpreter on any
// failure, so an ask never fails for backend or model reasons.
package reasoner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/taarya/internal/domain/agent"
	"github.com/kailas-cloud/taarya/internal/metrics"
)

// Asker is the ask entry point.
type Asker struct {
	generative Reasoner
	fallback   Reasoner
	logger     *zap.Logger
}

// NewAsker creates an Asker. A nil generative reasoner means fallback only.
func NewAsker(generative, fallback Reasoner) *Asker {
	return &Asker{generative: generative, fallback: fallback, logger: zap.NewNop()}
}

// WithLogger sets the logger for downgrades.
func (a *Asker) WithLogger(l *zap.Logger) *Asker {
	if l != nil {
		a.logger = l
	}
	return a
}

// Ask validates the query and answers it. A generative failure is logged and
// downgraded; only an invalid query or a failing fallback is returned.
func (a *Asker) Ask(ctx context.Context, query string, history []agent.Turn) (agent.Answer, error) {
	if err := agent.ValidateQuery(query); err != nil {
		return agent.Answer{}, err
	}
	traceID := uuid.NewString()
	log := a.logger.With(zap.String("trace_id", traceID))

	var (
		ans agent.Answer
		err error
	)
	if a.generative != nil {
		ans, err = a.generative.Ask(ctx, query, history)
		if err != nil {
			log.Warn("generative reasoner failed, using fallback", zap.Error(err))
		}
	}
	if a.generative == nil || err != nil {
		if ans, err = a.fallback.Ask(ctx, query, history); err != nil {
			return agent.Answer{}, fmt.Errorf("fallback ask: %w", err)
		}
		ans.Mode = agent.ModeFallback
	}

	ans.TraceID = traceID
	metrics.ReasonerAnswersTotal.WithLabelValues(string(ans.Mode)).Inc()
	log.Info("ask answered",
		zap.String("mode", string(ans.Mode)),
		zap.Int("tools", len(ans.ToolsUsed)),
		zap.Bool("insufficient_signal", ans.Insufficient))
	return ans, nil
}
