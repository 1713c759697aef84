package strategy

// ExitAction is the outcome of an exit evaluation.
type ExitAction int

const (
	ExitNone ExitAction = iota
	ExitTakeProfit
	ExitStopLoss
)

func (a ExitAction) String() string {
	switch a {
	case ExitTakeProfit:
		return "take profit"
	case ExitStopLoss:
		return "stop loss"
	default:
		return "hold"
	}
}

// EvaluateExit decides whether the held position should be closed. The
// observed price is the held side's BUY quote, the same feed used for
// entry. It returns the action and the observed price that triggered it.
func EvaluateExit(cfg Config, dir Direction, upPrice, downPrice float64) (ExitAction, float64) {
	observed := upPrice
	if dir == DirectionDown {
		observed = downPrice
	}

	switch {
	case observed >= cfg.ProfitTargetPrice:
		return ExitTakeProfit, observed
	case observed <= cfg.StopLossPrice:
		return ExitStopLoss, observed
	default:
		return ExitNone, observed
	}
}
