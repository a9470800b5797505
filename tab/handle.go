package tab

import (
	"context"
	"errors"

	"tabengine/ids"
)

// ErrChannelClosed is returned by SendAndWait when the reply channel is
// closed without a result. A Handle cannot tell whether its worker has
// exited: Send to an exited worker succeeds until the inbox is full and
// then blocks until ctx is done, and SendAndWait waits until ctx is done.
var ErrChannelClosed = errors.New("tab: channel closed")

// Handle is a freely cloneable reference to a running tab: an id plus a
// command sender. It does not extend the tab's lifetime.
type Handle struct {
	id   ids.TabId
	zone ids.ZoneId
	cmds chan<- Command
}

// NewHandle wraps a command channel as a Handle.
func NewHandle(id ids.TabId, zone ids.ZoneId, cmds chan<- Command) Handle {
	return Handle{id: id, zone: zone, cmds: cmds}
}

func (h Handle) ID() ids.TabId     { return h.id }
func (h Handle) ZoneID() ids.ZoneId { return h.zone }

// Send enqueues cmd, blocking if the channel is full (backpressure, not
// drop) and respecting ctx cancellation.
func (h Handle) Send(ctx context.Context, cmd Command) error {
	select {
	case h.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendAndWait enqueues cmd with a reply channel and blocks for the
// worker's acknowledgement.
func (h Handle) SendAndWait(ctx context.Context, cmd Command) error {
	reply := make(chan error, 1)
	cmd.Reply = reply
	if err := h.Send(ctx, cmd); err != nil {
		return err
	}
	select {
	case err, ok := <-reply:
		if !ok {
			return ErrChannelClosed
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
