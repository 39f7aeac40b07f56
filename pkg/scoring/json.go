package scoring

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// UnmarshalResponse parses a JSON object out of a scoring response. Models
// occasionally wrap the object in prose or markdown fences, so the parser
// slices from the first '{' to the last '}' before unmarshaling.
func UnmarshalResponse(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < 0 || end <= start {
		return eris.Errorf("scoring: no JSON object in response: %s", truncate(text, 128))
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return eris.Wrap(err, "scoring: unmarshal response")
	}
	return nil
}

// UnmarshalResponseArray is UnmarshalResponse for a top-level JSON array.
func UnmarshalResponseArray(text string, v any) error {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < 0 || end <= start {
		return eris.Errorf("scoring: no JSON array in response: %s", truncate(text, 128))
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return eris.Wrap(err, "scoring: unmarshal response array")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
