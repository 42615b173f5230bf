package callapi

import (
	"context"
	"net/http"

	"callinsights-backend/internal/dashboard"
)

type processCallsRequest struct {
	Filenames   []string `json:"filenames"`
	ModelOption string   `json:"model_option"`
}

// SubmitJob runs the remote analysis over the named files and returns its result.
func (c *Client) SubmitJob(ctx context.Context, files []string, modelOption string) (*dashboard.AnalysisResult, error) {
	var result dashboard.AnalysisResult
	err := c.doJSON(ctx, nil, http.MethodPost, "/process-calls", processCallsRequest{
		Filenames:   files,
		ModelOption: modelOption,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
