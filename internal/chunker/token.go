package chunker

// TokenCounter measures text length in model tokens. The pipeline only needs
// a consistent estimate for budgeting, not an exact vocabulary match.
type TokenCounter interface {
	Count(text string) int
}

// EstimatorCounter approximates token length as roughly four characters per
// token, which tracks closely enough for English prose. Any non-empty input
// counts as at least one token.
type EstimatorCounter struct{}

func (EstimatorCounter) Count(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}
