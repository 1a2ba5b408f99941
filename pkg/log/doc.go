/*
Package log provides structured logging for cirrus using zerolog.

A single global Logger is initialized once via Init and then narrowed with the
With* helpers into component-scoped child loggers (head controller, scheduler,
function manager, storage service, bare-metal runner) that carry a field
identifying which actor emitted the line:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	schedulerLog := log.WithComponent("scheduler")
	schedulerLog.Info().Msg("scheduling pass complete")

	invLog := log.WithInvocationID(inv.ID.String())
	invLog.Warn().Err(err).Msg("invocation failed")

Before Init is called — in tests, or for packages imported before main sets up
logging — the global Logger defaults to an unbuffered stderr writer, so early
log lines are never silently dropped.
*/
package log
