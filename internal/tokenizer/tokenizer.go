package tokenizer

// Tokenizer defines the minimal interface the harness needs to round-trip
// prompts. Real deployments wrap a model's own vocabulary behind it.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
}
