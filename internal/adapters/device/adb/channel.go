// Package adb implements the device channel over the adb command line
// client. Every operation shells out to adb with an optional -s serial,
// so multiple channels can target different devices on one host.
package adb

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

// runnerFunc executes adb with the given arguments and returns combined
// output. Tests substitute a stub; production uses exec.CommandContext.
type runnerFunc func(ctx context.Context, args ...string) (string, error)

type Channel struct {
	serial string
	log    zerolog.Logger
	run    runnerFunc
}

var _ ports.DeviceChannel = (*Channel)(nil)

type Option func(*Channel)

func WithRunner(run runnerFunc) Option {
	return func(c *Channel) {
		c.run = run
	}
}

func NewChannel(serial string, log zerolog.Logger, opts ...Option) *Channel {
	c := &Channel{
		serial: serial,
		log:    log.With().Str("component", "adb").Str("serial", serial).Logger(),
		run:    execRunner,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func execRunner(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "adb", args...).CombinedOutput()
	return string(out), err
}

func (c *Channel) args(rest ...string) []string {
	if c.serial == "" {
		return rest
	}
	return append([]string{"-s", c.serial}, rest...)
}

func (c *Channel) shell(ctx context.Context, cmd string) (string, error) {
	out, err := c.run(ctx, c.args("shell", cmd)...)
	if err != nil {
		return out, c.classify(cmd, out, err)
	}
	return out, nil
}

// classify maps adb client failures onto domain errors. Output mentioning
// a missing or offline device means the slot itself is gone, not that the
// shell command failed.
func (c *Channel) classify(cmd, out string, err error) error {
	lower := strings.ToLower(out)
	for _, marker := range []string{"device offline", "device not found", "no devices", "device unauthorized", "cannot connect"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", domain.ErrDeviceUnreachable, strings.TrimSpace(out))
		}
	}
	return fmt.Errorf("adb %s: %w (%s)", cmd, err, strings.TrimSpace(out))
}

func (c *Channel) SendInput(ctx context.Context, event ports.InputEvent) error {
	var cmd string
	switch event.Kind {
	case ports.InputTap:
		cmd = fmt.Sprintf("input touchscreen tap %d %d", event.X, event.Y)
	case ports.InputSwipe:
		cmd = fmt.Sprintf("input touchscreen swipe %d %d %d %d %d",
			event.X, event.Y, event.ToX, event.ToY, event.DurationMs)
	case ports.InputText:
		cmd = "input text " + escapeInputText(event.Text)
	case ports.InputKey:
		cmd = "input keyevent " + event.Key
	default:
		return fmt.Errorf("unknown input kind %q", event.Kind)
	}

	c.log.Trace().Str("cmd", cmd).Msg("send input")
	_, err := c.shell(ctx, cmd)
	return err
}

// escapeInputText quotes text for `input text`, which treats %s as a
// space and chokes on unquoted shell metacharacters.
func escapeInputText(text string) string {
	replaced := strings.ReplaceAll(text, " ", "%s")
	return strconv.Quote(replaced)
}

func (c *Channel) RunCommand(ctx context.Context, cmd string) (string, error) {
	c.log.Trace().Str("cmd", cmd).Msg("run command")
	return c.shell(ctx, cmd)
}

func (c *Channel) PushFile(ctx context.Context, local, remote string) error {
	out, err := c.run(ctx, c.args("push", local, remote)...)
	if err != nil {
		return c.classify("push", out, err)
	}
	return nil
}

func (c *Channel) PullFile(ctx context.Context, remote, local string) error {
	out, err := c.run(ctx, c.args("pull", remote, local)...)
	if err != nil {
		return c.classify("pull", out, err)
	}
	return nil
}

func (c *Channel) ReadProperty(ctx context.Context, key string) (string, error) {
	out, err := c.shell(ctx, "getprop "+key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
