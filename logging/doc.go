// Package logging provides the minimal structured logging interface used
// throughout notebookmcp.
//
// Components accept a [Logger] rather than a concrete *slog.Logger so tests
// can pass [Nop] and embedders can plug their own logger:
//
//	logger := logging.New(logging.LevelInfo, "json", os.Stderr)
//	client, _ := jupyter.NewClient(jupyter.Config{Logger: logger})
//
// Log output must never be written to stdout when the server runs over the
// stdio transport; [New] callers pass os.Stderr.
package logging
