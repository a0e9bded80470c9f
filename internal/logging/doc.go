// Package logging provides structured logging for engramd.
//
// Logger wraps zap with:
//   - a Trace level (-2, below Debug)
//   - stderr output, keeping stdout free for the MCP stdio transport
//   - optional OpenTelemetry log export through the otelzap bridge
//   - context field injection (trace_id, session.id, request.id, tool)
//   - redaction of sensitive keys and value patterns
//   - level-aware sampling (errors never sampled)
//
// Library packages take a *zap.Logger; pass Logger.Underlying() to them.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, "sess_123")
//	logger.Info(ctx, "engrams injected", zap.Int("count", n))
package logging
