package rpc

import "github.com/modelcontextprotocol/go-sdk/mcp"

// EmptyRequest is the input type for tools that take no parameters.
type EmptyRequest struct{}

// ToolDefinitions contains the MCP tool definitions for every operation in
// spec.md §6.4. Separated from the handlers so the surface can be read at a
// glance; RegisterAllTools pairs each entry with its handler by name.
var ToolDefinitions = []mcp.Tool{
	{
		Name: "search_conversations",
		Description: `Run the full boosted relevance search over stored turns (spec.md §4.11).

**Parameters:**
- query (required): free-text search
- project: restrict to one project_key
- n: number of results (default 10)
- time_filter: "last_hour", "today", "last_3_days", "this_week", or "YYYY-MM-DD,YYYY-MM-DD"
- topic_focus: boost candidates matching this topic
- prefer_solutions: boost by solution_quality_score
- troubleshooting_mode: boost troubleshooting-shaped turns
- validation_preference: "validated_only", "include_failures", or "neutral"
- prefer_recent: apply the recency boost curve
- show_context_chain: attach up to chain_length turns on either side of each hit
- chain_length: radius for show_context_chain (default 2)

**Returns:** ranked results with the per-candidate boost breakdown, and
deadline_exceeded if the query timed out before completing.`,
	},
	{
		Name:        "search_validated",
		Description: "Search only turns whose solutions were validated, above an optional minimum validation strength.",
	},
	{
		Name:        "search_failed",
		Description: "Search turns, including refuted or failed solution attempts, for troubleshooting what didn't work.",
	},
	{
		Name:        "most_recent",
		Description: "Return the n most recent turns by timestamp, optionally filtered by role or project.",
	},
	{
		Name:        "context_chain",
		Description: "Attach the turns immediately before and after a given turn_id, within the session it belongs to.",
	},
	{
		Name:        "force_sync",
		Description: "Re-scan every transcript the configured source reports, enrich and chain-link new turns, and add them to the index.",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
	{
		Name: "process_validation_feedback",
		Description: `Apply one piece of feedback to a previously stored solution, updating its
validation state and the learner's running outcome statistics (spec.md §4.12).`,
	},
	{
		Name:        "health_report",
		Description: "Sample the index and report schema and invariant violation rates (spec.md §4.13).",
	},
	{
		Name: "backfill_chains",
		Description: `Re-run adjacency and relationship detection over already-stored turns,
grouped by session. Omit session to process every session currently stored.
Safe to re-run.`,
	},
}
