package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	workouts, err := h.ds.ListWorkouts(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, workouts)
}

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	exercises, err := h.ds.Exercises(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, exercises)
}

func (h *handlers) trends(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ranked, err := h.ds.Trends(ctx)
	if err != nil {
		h.log.Warn("trends resource failed", "error", err)
		return nil, err
	}
	return jsonContents(req.Params.URI, ranked)
}
