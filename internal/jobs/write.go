// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/panelkit/harmon/internal/frame"
	"github.com/panelkit/harmon/internal/log"
	"github.com/panelkit/harmon/internal/plot"
)

// writeFrame writes a CSV artifact atomically. renameio fsyncs before the
// rename, so a crash mid-write never leaves a truncated file behind.
func writeFrame(ctx context.Context, path string, f *frame.Frame) error {
	logger := log.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending csv file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending csv file")
		}
	}()

	if err := f.WriteCSV(pending); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}

	logger.Info().
		Str("event", "artifact.write").
		Str("path", path).
		Int("rows", f.Len()).
		Msg("csv artifact written")
	return nil
}

// writeChart renders an SVG chart atomically.
func writeChart(ctx context.Context, path string, c *plot.Chart) error {
	logger := log.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending svg file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending svg file")
		}
	}()

	if err := c.RenderSVG(pending); err != nil {
		return fmt.Errorf("render chart %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}

	logger.Info().
		Str("event", "artifact.write").
		Str("path", path).
		Str("subscale", c.Subscale).
		Msg("chart artifact written")
	return nil
}
