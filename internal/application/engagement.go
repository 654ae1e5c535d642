package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/persona-pool-cli/internal/motion"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

type EngagementOptions struct {
	Scrolls     int
	Query       string
	SearchX     int
	SearchY     int
	ScreenWidth int
	ScrollStyle string
}

// NewEngagementTask builds the automation step that runs between transfer
// phases 4 and 5: a reading-style scroll pattern, optionally preceded by
// a search query typed with human timing. The returned task honors its
// context so a mid-session ban interrupts it between gestures.
func NewEngagementTask(device ports.DeviceChannel, opts EngagementOptions, log zerolog.Logger) func(context.Context) error {
	if opts.Scrolls <= 0 {
		opts.Scrolls = 5
	}
	if opts.ScreenWidth <= 0 {
		opts.ScreenWidth = 1080
	}

	return func(ctx context.Context) error {
		if opts.Query != "" {
			if err := typeQuery(ctx, device, opts); err != nil {
				return err
			}
		}

		swipes := motion.Scroll(motion.ScrollDown, opts.Scrolls,
			motion.WithStyle(motion.ParseScrollStyle(opts.ScrollStyle)))
		for _, swipe := range swipes {
			if err := ctx.Err(); err != nil {
				return err
			}

			if swipe.Pause {
				if err := sleepCtx(ctx, time.Duration(swipe.PauseMs)*time.Millisecond); err != nil {
					return err
				}
				continue
			}

			event := ports.InputEvent{
				Kind:       ports.InputSwipe,
				X:          swipe.FromX,
				Y:          swipe.FromY,
				ToX:        swipe.ToX,
				ToY:        swipe.ToY,
				DurationMs: swipe.DurationMs,
			}
			if err := device.SendInput(ctx, event); err != nil {
				return fmt.Errorf("send swipe: %w", err)
			}
		}

		log.Debug().Int("scrolls", opts.Scrolls).Msg("engagement finished")
		return nil
	}
}

func typeQuery(ctx context.Context, device ports.DeviceChannel, opts EngagementOptions) error {
	targetX, targetY := opts.SearchX, opts.SearchY
	if targetX == 0 && targetY == 0 {
		targetX = opts.ScreenWidth / 2
		targetY = 180
	}

	tap := motion.TapAt(targetX, targetY)
	event := ports.InputEvent{Kind: ports.InputTap, X: tap.X, Y: tap.Y, DurationMs: tap.DurationMs}
	if err := device.SendInput(ctx, event); err != nil {
		return fmt.Errorf("tap search field: %w", err)
	}

	for _, ev := range motion.Typing(opts.Query, 0.08) {
		if err := sleepCtx(ctx, time.Duration(ev.DelayMs)*time.Millisecond); err != nil {
			return err
		}

		event := ports.InputEvent{Kind: ports.InputText, Text: string(ev.Char)}
		if ev.Char == '\b' {
			event = ports.InputEvent{Kind: ports.InputKey, Key: "KEYCODE_DEL"}
		}
		if err := device.SendInput(ctx, event); err != nil {
			return fmt.Errorf("send keystroke: %w", err)
		}
	}

	if err := device.SendInput(ctx, ports.InputEvent{Kind: ports.InputKey, Key: "KEYCODE_ENTER"}); err != nil {
		return fmt.Errorf("submit query: %w", err)
	}

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
