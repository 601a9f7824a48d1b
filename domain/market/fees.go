package market

// FeeRates returns the (taker, maker) fee rates for a fee tier. Maker
// rates are negative: makers are paid a rebate.
func FeeRates(tier uint8) (taker, maker float64) {
	switch tier {
	case 1:
		return 0.002, -0.0003
	case 2:
		return 0.0018, -0.0003
	case 3:
		return 0.0016, -0.0003
	case 4:
		return 0.0014, -0.0003
	case 5:
		return 0.0012, -0.0003
	case 6:
		return 0.001, -0.0005
	default:
		return 0.0022, -0.0003
	}
}

// FeeTierFromBalances maps fee-token holdings to a fee tier. The mega
// token counts regardless of the plain balance.
func FeeTierFromBalances(megaBalance, balance float64) uint8 {
	switch {
	case megaBalance >= 1:
		return 6
	case balance >= 1_000_000:
		return 5
	case balance >= 100_000:
		return 4
	case balance >= 10_000:
		return 3
	case balance >= 1_000:
		return 2
	case balance >= 100:
		return 1
	default:
		return 0
	}
}
