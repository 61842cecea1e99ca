package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSON strips Markdown code fences and surrounding prose from a model
// reply, keeping the outermost JSON array or object.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	openCh, closeCh := byte('['), byte(']')
	arr := strings.IndexByte(s, '[')
	obj := strings.IndexByte(s, '{')
	if obj != -1 && (arr == -1 || obj < arr) {
		openCh, closeCh = '{', '}'
	}
	if start := strings.IndexByte(s, openCh); start != -1 {
		if end := strings.LastIndexByte(s, closeCh); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}

// decodeReply cleans a reply and unmarshals it into v.
func decodeReply(raw string, v any) error {
	clean := CleanJSON(raw)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("decodeReply: unmarshal JSON: %w", err)
	}
	return nil
}
