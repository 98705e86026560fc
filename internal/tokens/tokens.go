// Package tokens approximates token counts for budget accounting.
package tokens

import "unicode/utf8"

// CharsPerToken is the calibration used by Estimate.
const CharsPerToken = 4

// Estimate returns a rough token count for s: one token per four runes,
// rounded up. It is deterministic and monotonic in string length, which is
// all budget accounting needs since budgets and costs share the estimator.
func Estimate(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + CharsPerToken - 1) / CharsPerToken
}
