package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/driver"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/engine"
	"github.com/shaneholloman/ultimate-bug-scanner/internal/ui"
)

type scanOutcome struct {
	report *driver.Report
	err    error
}

// runScanWithUI runs the scan in the background and renders its events
// until the scan finishes. A view that fails to run cancels the scan.
func runScanWithUI(ctx context.Context, title string, eng *engine.Engine, paths []string, opts driver.Options) (*driver.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan driver.Event, 256)
	outcomeCh := make(chan scanOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Observer = ui.Channel(events)
		res, err := driver.Scan(ctx, eng, paths, optsCopy)
		outcomeCh <- scanOutcome{report: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	if uiErr != nil {
		cancel()
	}
	// keep draining so that workers never block on a closed view
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
