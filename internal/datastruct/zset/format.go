package zset

import "strconv"

// formatScore renders a score the way ZSCORE/ZADD reconstruction commands
// do: integral scores print without a decimal point, matching real Redis
// and keeping AOF-rewrite output minimal.
func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return strconv.FormatInt(int64(score), 10)
	}
	return strconv.FormatFloat(score, 'g', -1, 64)
}
