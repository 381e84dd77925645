package similarity

import (
	"context"
	"strings"
)

// Provider scores the similarity of two texts on a [0,1] scale.
type Provider interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// Lexical is the dependency-free fallback provider. It is total: Score
// never returns an error and always yields a value in [0,1].
type Lexical struct{}

// Score returns a longest-common-subsequence ratio of the two texts,
// case-insensitive: 2*LCS / (len(a)+len(b)). Two empty strings score 1.
func (Lexical) Score(_ context.Context, a, b string) (float64, error) {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0, nil
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0, nil
	}
	lcs := lcsLength(ra, rb)
	return 2 * float64(lcs) / float64(len(ra)+len(rb)), nil
}

// lcsLength computes the longest common subsequence length with a
// two-row rolling table.
func lcsLength(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
