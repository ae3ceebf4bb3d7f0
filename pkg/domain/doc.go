/*
Package domain contains the core domain models of the awakening ritual.

It defines the fixed archetype set, the personality code alphabet, the static profile
shape, and the per-screen session snapshots. This package is kept pure and free of
external dependencies like I/O, timers or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Archetype: One of six fixed classification outcomes, ordered by declaration.
  - PersonalityCode: A normalized four-letter code on four binary axes.
  - Profile: Static descriptive content for one archetype.
  - RitualSession / DivinationSession: Snapshots of the two timed screens.
  - FlowRecord: A serializable snapshot of one user's walk through the screens.
*/
package domain
