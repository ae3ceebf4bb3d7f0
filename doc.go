/*
Package awaken reveals which of the six Nen archetypes a personality code belongs to,
through a short ritual: a quiz, a ten-second aura countdown, and a water divination
whose animation depends on the archetype.

The timed screens run on a virtual clock. Nothing moves until the clock is advanced,
either by a wall-clock pump (CLI, HTTP server) or by draining it (tests, batch use).

# Usage

	eng, err := awaken.New()
	if err != nil {
		log.Fatal(err)
	}

	// Instant classification
	fmt.Println(eng.Classify("INFJ")) // Enhancer

	// Whole flow on the virtual clock
	view, err := eng.Walk(ctx, "flow-1", "ENTP")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(view.DivinationOutcome)

For step-by-step control (one screen at a time, streamed phase events), drive
Engine.Sessions directly and register hooks with WithLifecycleHooks.
*/
package awaken
