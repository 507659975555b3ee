package cache

import (
	"encoding/json"
	"fmt"

	"github.com/mikey/mailpilot/internal/core"
)

// encodeResult serialises a result for the SQL and redis backends
func encodeResult(result *core.AnalysisResult) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return data, nil
}

func decodeResult(data []byte) (*core.AnalysisResult, error) {
	var result core.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &result, nil
}
