/*
Package ports defines the driven ports (interfaces) of the awakening core.

These interfaces decouple the timed screens and the flow controller from concrete
implementations, allowing the core to run on a virtual clock in tests and on a
wall-clock pump in production, and to persist flow snapshots in memory or Redis.

# Key Interfaces

  - Timeline: Schedules (offset, action) entries under an owner token and cancels them.
  - Classifier: Maps a raw personality code to an archetype.
  - ProfileSource: Read-only access to the static archetype profiles.
  - FlowStore: Persists FlowRecord snapshots.
  - Exporter: Turns a renderable reveal into a shareable artifact.
*/
package ports
