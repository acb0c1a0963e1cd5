// decision/safety.go
package decision

import "fmt"

// Safety applies the hard trading constraints to a decision. It is pure and
// total: the rules run in fixed order, the first violation rewrites the
// action to WAIT with a stated reason, and a clean decision passes through
// unchanged.
func Safety(d Decision, snap Snapshot, limits Limits) Decision {
	// 1. Never sell below cost basis plus the minimum profit margin.
	if d.Action == ActionSell && d.Parameters.SellPrice < snap.CostBasis+limits.MinProfitMargin {
		return reject(d, fmt.Sprintf("sell price %.2f below cost basis %.2f + margin %.2f",
			d.Parameters.SellPrice, snap.CostBasis, limits.MinProfitMargin))
	}

	// 2. No buying into an already over-concentrated asset position.
	if d.Action == ActionBuy && snap.AssetShare > limits.MaxConcentration {
		return reject(d, fmt.Sprintf("asset share %.1f%% already above %.1f%%",
			snap.AssetShare*100, limits.MaxConcentration*100))
	}

	// 3. No selling into an over-concentrated quote position: the share the
	// quote asset would reach after the sell must stay within bounds.
	if d.Action == ActionSell && snap.TotalValue > 0 {
		resulting := (snap.QuoteBalance + d.Parameters.OrderSize*snap.Price) / snap.TotalValue
		if resulting > limits.MaxConcentration {
			return reject(d, fmt.Sprintf("sell would push quote share to %.1f%%, above %.1f%%",
				resulting*100, limits.MaxConcentration*100))
		}
	}

	// 4. Orders below the minimum notional are not worth their costs.
	// OrderSize is quote for buys, asset for sells.
	switch d.Action {
	case ActionBuy:
		if d.Parameters.OrderSize < limits.MinOrderSize {
			return reject(d, fmt.Sprintf("order size %.2f below minimum %.2f",
				d.Parameters.OrderSize, limits.MinOrderSize))
		}
	case ActionSell:
		if d.Parameters.OrderSize*snap.Price < limits.MinOrderSize {
			return reject(d, fmt.Sprintf("order notional %.2f below minimum %.2f",
				d.Parameters.OrderSize*snap.Price, limits.MinOrderSize))
		}
	}

	return d
}

func reject(d Decision, reason string) Decision {
	d.Action = ActionWait
	d.Reasoning = "Safety: " + reason
	return d
}
