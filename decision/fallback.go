// decision/fallback.go
package decision

// Fallback is the deterministic rule set used when every backend fails. It
// always returns some decision and never errors.
//
// Rules, in order: wait while no profitable sell exists, rebalance away from
// over-concentration, buy the dip when underweight, otherwise hold.
func Fallback(snap Snapshot, limits Limits) Decision {
	if snap.Price < snap.CostBasis+limits.MinProfitMargin {
		return Decision{
			Action:     ActionWait,
			Reasoning:  "Price below profitable sell threshold, waiting",
			Confidence: 0.8,
			Parameters: Parameters{Urgency: LevelLow},
			RiskLevel:  LevelLow,
		}
	}

	if snap.AssetShare > limits.MaxConcentration {
		return Decision{
			Action:     ActionSell,
			Reasoning:  "Portfolio heavily asset weighted, rebalancing",
			Confidence: 0.7,
			Parameters: Parameters{
				SellPrice: snap.Price + limits.FallbackOffset,
				OrderSize: snap.Holdings * limits.FallbackFraction,
				Urgency:   LevelMedium,
			},
			RiskLevel: LevelMedium,
		}
	}

	if snap.AssetShare < limits.LowConcentration {
		size := snap.QuoteBalance * limits.FallbackFraction
		if size > limits.FallbackMaxBuy {
			size = limits.FallbackMaxBuy
		}
		return Decision{
			Action:     ActionBuy,
			Reasoning:  "Portfolio heavily quote weighted, buying dip",
			Confidence: 0.7,
			Parameters: Parameters{
				BuyPrice:  snap.Price - limits.FallbackOffset,
				OrderSize: size,
				Urgency:   LevelMedium,
			},
			RiskLevel: LevelMedium,
		}
	}

	return Decision{
		Action:     ActionWait,
		Reasoning:  "Portfolio balanced, no action needed",
		Confidence: 0.6,
		Parameters: Parameters{Urgency: LevelLow},
		RiskLevel:  LevelLow,
	}
}
