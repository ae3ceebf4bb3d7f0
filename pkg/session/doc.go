/*
Package session owns the live flows of a process.

A Manager keeps at most one live flow per flow ID, drives every flow's
ritual and divination on a single virtual clock, and persists a
domain.FlowRecord snapshot through a ports.FlowStore after each
transition. All access is serialized behind one mutex, including the
wall-clock pump that advances the clock.
*/
package session
