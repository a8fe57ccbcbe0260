// Package logging builds the process logger on top of log/slog.
//
// Components log through slog.Default().With("component", ...); Setup
// installs the configured handler as that default:
//
//	logger, err := logging.Setup(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
// Records logged with a context carry the retention fields stored in it:
//
//	ctx = logging.WithRootInstanceID(ctx, rootID)
//	logger.InfoContext(ctx, "removal time backfilled")
//	// {"level":"INFO","msg":"removal time backfilled","root_instance_id":"..."}
package logging
