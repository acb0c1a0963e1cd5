// decision/engine.go
package decision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// systemPolicy is the fixed prompt describing the allowed action vocabulary
// and the required response shape.
const systemPolicy = `You are a cryptocurrency trading assistant for a WETH/USDC pair traded
through CoW Protocol limit orders.

Key rules:
- NEVER recommend selling below cost basis plus the minimum profit margin ($%.0f)
- Keep portfolio balance: avoid being more than %.0f%% in one asset
- Factor in recent price trend and the high/low watermarks
- Limit orders take time to fill; plan accordingly
- Be conservative with position sizes
- orderSize is USDC for BUY and WETH for SELL

Analyze the market data and return JSON ONLY with this structure:
{
  "action": "WAIT" | "BUY" | "SELL" | "CANCEL_ORDERS",
  "reasoning": "explain your decision in 1-2 sentences",
  "confidence": 0.1-1.0,
  "parameters": {
    "buyPrice": number,
    "sellPrice": number,
    "orderSize": number,
    "urgency": "LOW" | "MEDIUM" | "HIGH"
  },
  "riskLevel": "LOW" | "MEDIUM" | "HIGH"
}`

// Result reports how a decision was produced.
type Result struct {
	Decision Decision
	Backend  string // backend name, or "" when the fallback produced it
	Fallback bool
	Next     int // cursor for the next decision call
}

// Engine consults a ranked, cyclic list of backends. The cursor is explicit:
// callers pass the starting index and persist the returned Next, so no state
// leaks between unrelated decision calls.
type Engine struct {
	backends []Backend
	limits   Limits
	log      *logrus.Entry
}

func NewEngine(backends []Backend, limits Limits) *Engine {
	return &Engine{
		backends: backends,
		limits:   limits,
		log:      logrus.WithField("component", "decision"),
	}
}

// Decide submits the snapshot to each backend starting at the cursor. A
// response counts only if a schema-valid decision can be extracted from it;
// anything else advances to the next backend. When every backend fails the
// deterministic fallback answers; Decide never returns an error.
func (e *Engine) Decide(ctx context.Context, snap Snapshot, start int) Result {
	n := len(e.backends)
	if n == 0 {
		return Result{Decision: Fallback(snap, e.limits), Fallback: true, Next: start}
	}

	system := fmt.Sprintf(systemPolicy, e.limits.MinProfitMargin, e.limits.MaxConcentration*100)
	user, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Result{Decision: Fallback(snap, e.limits), Fallback: true, Next: start}
	}

	start = ((start % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		b := e.backends[idx]

		text, err := b.Complete(ctx, system, string(user))
		if err != nil {
			e.log.WithField("backend", b.Name()).WithError(err).Warn("backend failed")
			continue
		}

		d, err := Extract(text)
		if err != nil {
			e.log.WithField("backend", b.Name()).WithError(err).Warn("unparsable backend response")
			continue
		}

		// Stay on the backend that worked.
		return Result{Decision: d, Backend: b.Name(), Next: idx}
	}

	e.log.Warn("all backends failed, using fallback rules")
	return Result{Decision: Fallback(snap, e.limits), Fallback: true, Next: start}
}
