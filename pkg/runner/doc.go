/*
Package runner walks one user through the quiz, the ritual countdown, the
divination animation and the final reveal on a terminal.

It is the bridge between a session.Manager and the outside world. Screens
are presented through a pluggable IOHandler (text or JSON lines), and the
virtual clock is either driven by wall time through a clock.Pump or, in
headless mode, advanced as fast as the events can be rendered.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithSpeed(2),
	)
	manager := session.NewManager(store, controller, profiles, session.WithHooks(r.Hooks()))

	view, err := r.Run(ctx, manager)
	if err != nil {
		log.Fatal(err)
	}

The runner's hooks must be registered on the manager it drives, otherwise
Run never sees the countdown complete.
*/
package runner
