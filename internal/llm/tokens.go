package llm

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// chat-format overhead: 3 per message, 1 for the role, 3 for reply priming
const chatOverhead = 3 + 1 + 3

// EstimateTokens counts the prompt tokens a single user message would cost
// on model, computed locally. It is an estimate: providers may differ.
func EstimateTokens(model, text string) (int, error) {
	codec, err := codecFor(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode prompt: %w", err)
	}
	return len(ids) + chatOverhead, nil
}

func codecFor(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}
	codec, err := tokenizer.Get(encodingFor(model))
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}
	return codec, nil
}

func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-5"), strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}
