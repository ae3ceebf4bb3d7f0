/*
Package observability turns flow lifecycle events into Prometheus metrics
and structured log lines.

Both are exposed as domain.LifecycleHooks so they can be merged into any
session.Manager. Labels are operational only (stage, phase, effect,
archetype); no flow IDs or codes are recorded.
*/
package observability
