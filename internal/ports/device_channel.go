package ports

import "context"

type InputKind string

const (
	InputTap   InputKind = "tap"
	InputSwipe InputKind = "swipe"
	InputText  InputKind = "text"
	InputKey   InputKind = "key"
)

type InputEvent struct {
	Kind       InputKind
	X          int
	Y          int
	ToX        int
	ToY        int
	DurationMs int
	Text       string
	Key        string
}

// DeviceChannel exposes primitive operations against one physical device
// slot. Calls are synchronous; implementations must fail with an error
// wrapping domain.ErrDeviceUnreachable when the device cannot be reached.
// A channel must never execute two commands concurrently for the same
// device; callers serialize access per device slot.
type DeviceChannel interface {
	SendInput(ctx context.Context, event InputEvent) error
	RunCommand(ctx context.Context, cmd string) (string, error)
	PushFile(ctx context.Context, local, remote string) error
	PullFile(ctx context.Context, remote, local string) error
	ReadProperty(ctx context.Context, key string) (string, error)
}
