package compositor

import (
	"time"

	"github.com/bnema/waycore/internal/config"
	"github.com/bnema/waycore/internal/input"
	"github.com/bnema/waycore/internal/logger"
)

// WatchConfig applies config file edits while running. Socket, seat and
// device settings need a restart; everything else takes effect on the
// loop right away.
func (c *Compositor) WatchConfig() {
	config.Watch(func(cfg *config.Config) {
		c.loop.Post(func() { c.Apply(cfg) })
	}, func(err error) {
		logger.Warn("config reload rejected, keeping previous settings", "err", err)
	})
}

// Apply switches to cfg. It runs on the loop.
func (c *Compositor) Apply(cfg *config.Config) {
	if cfg.Logging.LogLevel != "" {
		logger.SetLevel(cfg.Logging.LogLevel)
	}

	c.translator.SetRepeat(cfg.Input.RepeatEnabled,
		time.Duration(cfg.Input.RepeatDelayMs)*time.Millisecond,
		time.Duration(cfg.Input.RepeatIntervalMs)*time.Millisecond)
	c.translator.SetScrollStep(cfg.Input.ScrollStep)
	c.translator.SetFilter(input.LinearAcceleration(cfg.Input.Acceleration))

	if outputs := outputRects(cfg.Outputs); len(outputs) > 0 {
		c.scene.SetOutputs(outputs)
	}
	c.layout = &input.Layout{Monitors: c.scene.Outputs(), Barriers: barriers(cfg.Barriers)}
	c.translator.SetConstrainer(c.layout)
	if c.backend != nil {
		c.backend.SetBounds(c.layout.Bounds())
	}

	c.frames.SetInterval(frameInterval(cfg))
	c.cfg = cfg
	logger.Info("config applied", "repeat_delay_ms", cfg.Input.RepeatDelayMs,
		"repeat_interval_ms", cfg.Input.RepeatIntervalMs, "outputs", len(cfg.Outputs))
}
