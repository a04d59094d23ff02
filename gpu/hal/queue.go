package hal

import (
	"sync"

	"github.com/codeyousef/materia/gpu/core"
)

// Queue is the single submission point of a device. Submit is
// mutex-serialized; everything else about ordering is per buffer:
// commands inside one buffer run in recorded order, buffers inside one
// call have no ordering guarantee between them.
type Queue struct {
	mu     sync.Mutex
	device *Device
}

// Submit consumes the given command buffers. Each buffer must come from
// this queue's device and must not have been submitted before; a buffer
// whose pass targeted a swapchain frame additionally presents that
// frame after the submission signal. Native handles are destroyed
// whether the submission succeeded or not.
func (q *Queue) Submit(buffers ...*CommandBuffer) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, buf := range buffers {
		if err := q.submitOne(buf); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) submitOne(buf *CommandBuffer) error {
	if buf == nil {
		err := core.WrapError(core.ErrEncoderMisuse, "submit: nil command buffer", "")
		core.LogError(err.Error())
		return err
	}
	if buf.consumed {
		err := core.WrapError(core.ErrEncoderMisuse, "submit: command buffer already submitted", buf.label)
		core.LogError(err.Error())
		return err
	}
	if buf.device != q.device {
		err := core.WrapError(core.ErrEncoderMisuse, "submit: command buffer from another device", buf.label)
		core.LogError(err.Error())
		return err
	}

	// Single-submission rule: the native handle dies with this call no
	// matter how it goes.
	defer func() {
		buf.backend.Destroy()
		buf.backend = nil
		buf.consumed = true
	}()

	var present *PresentRequest
	if ps := buf.present; ps != nil {
		if !ps.surface.frameCurrent(ps.generation) {
			err := core.WrapError(core.ErrSwapchainOutOfDate, "submit: frame acquired before surface reconfiguration", buf.label)
			core.LogError(err.Error())
			return err
		}
		present = &PresentRequest{
			Swapchain:  ps.swapchain,
			ImageIndex: ps.imageIndex,
		}
	}

	if err := q.device.backend.Submit(buf.backend, present); err != nil {
		core.LogError("submit (%q): %s", buf.label, err)
		return err
	}
	if ps := buf.present; ps != nil {
		ps.surface.framePresented(ps.frame)
	}
	return nil
}
