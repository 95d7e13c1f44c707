// Package log provides a small leveled logging interface used across the
// graph-rag pipeline: the orchestrator, retrieval engine, cache layer,
// glossary subsystem, embedding client, and tool agent all take a
// log.Logger at construction rather than writing to stdout directly.
//
// Two implementations are provided: DefaultLogger, a thin wrapper over the
// standard library's log.Logger, and GologLogger, a wrapper over
// github.com/kataras/golog for structured leveled output. A NoOpLogger is
// available for tests that don't care about log output.
//
//	logger := log.NewGologLogger(golog.New())
//	logger.SetLevel(log.LogLevelDebug)
//	cache := cache.New(redisTier, 1000, cache.WithLogger(logger))
//
// Cache hit/miss events log at LogLevelDebug; primary-tier unavailability
// logs at LogLevelWarn, per the cache layer's documented policy.
package log
