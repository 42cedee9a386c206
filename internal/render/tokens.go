package render

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// CountTokens estimates how many tokens text takes for the given model
func CountTokens(model, text string) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return 0, fmt.Errorf("failed to get tokenizer for model %q: %w", model, err)
	}
	return len(enc.Encode(text, nil, nil)), nil
}
