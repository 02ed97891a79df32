// Package devicewait waits for a udev subsystem to report a device before
// the capture command opens its audio input, for USB sound dongles that
// take a moment to enumerate after being plugged in. This has no
// counterpart in direwolf (which talks to already-configured sound cards
// and TNCs), so it's grounded directly on jochenvg/go-udev's own device
// monitor example rather than any teacher file.
package devicewait

import (
	"context"
	"fmt"

	"github.com/jochenvg/go-udev"
)

// Wait blocks until udev reports an "add" event on subsystem, or ctx is
// cancelled. Subsystem is typically "sound". Devices already present when
// Wait is called are matched immediately without waiting for a new event.
func Wait(ctx context.Context, subsystem string) error {
	u := udev.Udev{}

	enum := u.NewEnumerate()
	if err := enum.AddMatchSubsystem(subsystem); err != nil {
		return fmt.Errorf("devicewait: match subsystem %s: %w", subsystem, err)
	}
	existing, err := enum.Devices()
	if err != nil {
		return fmt.Errorf("devicewait: enumerate %s devices: %w", subsystem, err)
	}
	if len(existing) > 0 {
		return nil
	}

	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem(subsystem); err != nil {
		return fmt.Errorf("devicewait: filter subsystem %s: %w", subsystem, err)
	}

	ch, stop, err := mon.DeviceChan(ctx)
	if err != nil {
		return fmt.Errorf("devicewait: start monitor: %w", err)
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case dev, ok := <-ch:
			if !ok {
				return fmt.Errorf("devicewait: monitor channel closed before an %s device appeared", subsystem)
			}
			if dev.Action() == "add" {
				return nil
			}
		}
	}
}
