package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/awaken"
	"github.com/aretw0/awaken/internal/presentation/tui"
	"github.com/aretw0/awaken/pkg/adapters/export"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/observability"
	"github.com/aretw0/awaken/pkg/runner"
	tea "github.com/charmbracelet/bubbletea"
)

// RunSession walks one flow on the line runner.
func RunSession(ctx context.Context, opts RunOptions) error {
	logger, err := createLogger(opts.Stderr, opts.Config.LogLevel, opts.Debug)
	if err != nil {
		return err
	}
	quiet := opts.JSON || opts.Headless

	if !quiet {
		tui.PrintBanner(opts.Stdout, awaken.Version)
	}

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.Stdin, opts.Stdout)
	} else {
		var textOpts []runner.TextHandlerOption
		if !opts.Headless {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer(tui.DefaultWordWrap)))
		}
		handler = runner.NewTextHandler(opts.Stdin, opts.Stdout, textOpts...)
	}

	r := runner.NewRunner(
		runner.WithLogger(logger),
		runner.WithInputHandler(handler),
		runner.WithHeadless(opts.Headless),
		runner.WithSpeed(opts.Config.Clock.Speed),
		runner.WithInterval(opts.Config.Clock.Interval),
		runner.WithCode(opts.Code),
		runner.WithFlowID(opts.FlowID),
	)

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	stack, err := BuildStack(sigCtx, opts.Config, logger, r.Hooks().Merge(observability.LogHooks(logger)))
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)
	r.Identity = stack.Identity

	view, runErr := r.Run(sigCtx, stack.Manager)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	stage := domain.StageReveal
	if runErr != nil {
		stage = domain.StageQuiz
	}
	logCompletion(opts.Stdout, stage, runErr, quiet, sigCtx.Signal())

	if runErr == nil {
		if err := exportCard(sigCtx, opts, view); err != nil {
			return err
		}
	}
	return handleExecutionError(runErr)
}

// RunTUI walks one flow in a full-screen bubbletea program.
func RunTUI(ctx context.Context, opts RunOptions) error {
	logger, err := createLogger(opts.Stderr, opts.Config.LogLevel, opts.Debug)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	model := tui.NewModel(sigCtx, opts.FlowID,
		tui.WithSpeed(opts.Config.Clock.Speed),
		tui.WithCode(opts.Code),
	)
	stack, err := BuildStack(sigCtx, opts.Config, logger, model.Hooks().Merge(observability.LogHooks(logger)))
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)
	model.Attach(stack.Manager)

	program := tea.NewProgram(model,
		tea.WithContext(sigCtx),
		tea.WithInput(opts.Stdin),
		tea.WithOutput(opts.Stdout),
		tea.WithAltScreen(),
	)
	stop := model.WatchIdentity(stack.Identity, program.Send)
	defer stop()
	if _, err := program.Run(); err != nil {
		return handleExecutionError(fmt.Errorf("tui: %w", err))
	}

	view, err := model.Result()
	if err != nil {
		return handleExecutionError(err)
	}
	printSystemMessage(opts.Stdout, "You are %s %s.", article(string(view.Archetype)), view.Archetype)
	return exportCard(sigCtx, opts, view)
}

func exportCard(ctx context.Context, opts RunOptions, view flow.RevealView) error {
	if opts.ExportDir == "" {
		return nil
	}
	name := view.DisplayName + "-" + string(view.Archetype)
	path, err := export.NewMarkdown(opts.ExportDir).Export(ctx, name, export.Card(view))
	if err != nil {
		return err
	}
	if !opts.JSON {
		printSystemMessage(opts.Stdout, "Card saved to %s", path)
	}
	return nil
}

func closeStack(stack *Stack, logger *slog.Logger) {
	if err := stack.Close(context.Background()); err != nil {
		logger.Warn("Shutdown incomplete", "err", err)
	}
}

func article(word string) string {
	if word == "" {
		return "a"
	}
	switch word[0] {
	case 'A', 'E', 'I', 'O', 'U':
		return "an"
	}
	return "a"
}
