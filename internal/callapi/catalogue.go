package callapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ListAudioFiles returns the audio file names available for analysis.
func (c *Client) ListAudioFiles(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, nil, http.MethodGet, "/audio-files", nil, &raw); err != nil {
		return nil, err
	}
	return stringList(raw, "audio_files", "files")
}

// ListModels returns the model options the service accepts.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, nil, http.MethodGet, "/models", nil, &raw); err != nil {
		return nil, err
	}
	return stringList(raw, "models")
}

// stringList accepts either a bare JSON array of strings or an object holding one
// under any of keys.
func stringList(raw json.RawMessage, keys ...string) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("analysis service response parse: %w", err)
	}
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			if err := json.Unmarshal(v, &list); err != nil {
				return nil, fmt.Errorf("analysis service response parse %s: %w", key, err)
			}
			if list == nil {
				list = []string{}
			}
			return list, nil
		}
	}
	return []string{}, nil
}
