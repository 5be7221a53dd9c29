// Package backend groups the server's MCP tools into named backends.
//
// A [Backend] is a namespace of tools, such as the "jupyter" backend that
// wraps the notebook server. The [Registry] owns backend lifecycle and the
// [Aggregator] presents every enabled backend as one flat tool list, with
// tools addressed as "backend:tool":
//
//	registry := backend.NewRegistry()
//	_ = registry.Register(jupyterTools)
//
//	agg := backend.NewAggregator(registry)
//	tools, _ := agg.ListAllTools(ctx)
//	res, _ := agg.Execute(ctx, "jupyter:session_list", nil)
//
// Tool failures travel inside the returned *mcp.CallToolResult; Execute only
// returns an error when dispatch itself fails.
package backend
