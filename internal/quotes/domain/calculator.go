package domain

// Line is a priced quote line for totaling purposes.
type Line struct {
	Quantity int
	CostOre  int64
}

// Total sums line costs times quantities. All amounts are integer öre, so
// totals never accumulate float drift.
func Total(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		total += int64(line.Quantity) * line.CostOre
	}
	return total
}

// Commission computes the platform's cut of a quote total in öre at the
// given rate in basis points, rounding half away from zero.
func Commission(totalOre int64, bps int) int64 {
	return (totalOre*int64(bps) + 5000) / 10000
}
