package hal

import (
	"fmt"

	"github.com/codeyousef/materia/gpu/core"
)

type encoderState int

const (
	encoderRecording encoderState = iota
	encoderFinished
	encoderDestroyed
)

// CommandEncoder is a single-use recording object. It is not safe for
// concurrent use; record from one goroutine, though independent
// encoders for the same device may record in parallel.
type CommandEncoder struct {
	label   string
	device  *Device
	backend BackendEncoder
	state   encoderState
	pass    *RenderPassEncoder
	cpass   *ComputePassEncoder
	present *presentState
}

// presentState links a finished command buffer to the swapchain frame
// its pass rendered into.
type presentState struct {
	surface    *Surface
	swapchain  BackendSwapchain
	frame      *Frame
	imageIndex uint32
	generation uint64
}

func (e *CommandEncoder) Label() string { return e.label }

func (e *CommandEncoder) guardRecording(op string) error {
	switch e.state {
	case encoderRecording:
		return nil
	case encoderFinished:
		err := core.WrapError(core.ErrEncoderFinished, op, e.label)
		core.LogError(err.Error())
		return err
	default:
		err := core.WrapError(core.ErrEncoderFinished, op+": encoder destroyed", e.label)
		core.LogError(err.Error())
		return err
	}
}

// BeginRenderPass opens the single render pass this encoder may have
// open at a time. The attachment view must be live; a view acquired
// from a swapchain registers the pass for presentation at submit.
func (e *CommandEncoder) BeginRenderPass(desc *RenderPassDescriptor) (*RenderPassEncoder, error) {
	if err := e.guardRecording("begin render pass"); err != nil {
		return nil, err
	}
	if e.pass != nil || e.cpass != nil {
		err := core.WrapError(core.ErrEncoderMisuse, "begin render pass: a pass is already open", e.label)
		core.LogError(err.Error())
		return nil, err
	}
	view := desc.ColorAttachment.View
	if !view.live() {
		err := core.WrapError(core.ErrEncoderMisuse, "begin render pass: color attachment view is not live", e.label)
		core.LogError(err.Error())
		return nil, err
	}
	w, h := view.texture.Extent()
	state := &RenderPassState{
		Label:      desc.Label,
		View:       view.backend,
		Format:     view.Format(),
		Width:      w,
		Height:     h,
		ClearColor: desc.ColorAttachment.ClearColor,
	}
	if frame := view.frame; frame != nil && !frame.fallback {
		state.Swapchain = frame.swapchain
		state.ImageIndex = frame.ImageIndex
		e.present = &presentState{
			surface:    frame.surface,
			swapchain:  frame.swapchain,
			frame:      frame,
			imageIndex: frame.ImageIndex,
			generation: frame.generation,
		}
	}
	backend, err := e.backend.BeginRenderPass(state)
	if err != nil {
		err = fmt.Errorf("begin render pass (%q): %w", e.label, err)
		core.LogError(err.Error())
		return nil, err
	}
	e.pass = &RenderPassEncoder{encoder: e, backend: backend}
	return e.pass, nil
}

// BeginComputePass mirrors BeginRenderPass for dispatch recording.
func (e *CommandEncoder) BeginComputePass() (*ComputePassEncoder, error) {
	if err := e.guardRecording("begin compute pass"); err != nil {
		return nil, err
	}
	if e.pass != nil || e.cpass != nil {
		err := core.WrapError(core.ErrEncoderMisuse, "begin compute pass: a pass is already open", e.label)
		core.LogError(err.Error())
		return nil, err
	}
	backend, err := e.backend.BeginComputePass()
	if err != nil {
		err = fmt.Errorf("begin compute pass (%q): %w", e.label, err)
		core.LogError(err.Error())
		return nil, err
	}
	e.cpass = &ComputePassEncoder{encoder: e, backend: backend}
	return e.cpass, nil
}

// Finish is terminal: it closes any still-open pass, seals the
// recording, and hands the result over as a single-submission command
// buffer. Every later call on the encoder fails with ErrEncoderFinished.
func (e *CommandEncoder) Finish() (*CommandBuffer, error) {
	if err := e.guardRecording("finish"); err != nil {
		return nil, err
	}
	if e.pass != nil {
		e.pass.backend.End()
		e.pass.closed = true
		e.pass = nil
	}
	if e.cpass != nil {
		e.cpass.backend.End()
		e.cpass.closed = true
		e.cpass = nil
	}
	backend, err := e.backend.Finish()
	e.state = encoderFinished
	e.backend = nil
	if err != nil {
		err = fmt.Errorf("finish encoder (%q): %w", e.label, err)
		core.LogError(err.Error())
		return nil, err
	}
	return &CommandBuffer{
		label:   e.label,
		device:  e.device,
		backend: backend,
		present: e.present,
	}, nil
}

// Destroy abandons an unfinished encoder and releases its native
// recording resource. A finished encoder has nothing left to release.
func (e *CommandEncoder) Destroy() {
	if e.state != encoderRecording {
		return
	}
	if e.pass != nil {
		e.pass.closed = true
		e.pass = nil
	}
	if e.cpass != nil {
		e.cpass.closed = true
		e.cpass = nil
	}
	e.backend.Destroy()
	e.backend = nil
	e.state = encoderDestroyed
}

// RenderPassEncoder records draw state between BeginRenderPass and End.
// All methods are only valid while the pass is open.
type RenderPassEncoder struct {
	encoder *CommandEncoder
	backend BackendRenderPass
	closed  bool
}

func (r *RenderPassEncoder) guard(op string) error {
	if r.closed {
		err := core.WrapError(core.ErrEncoderMisuse, op+": render pass already ended", r.encoder.label)
		core.LogError(err.Error())
		return err
	}
	return r.encoder.guardRecording(op)
}

func (r *RenderPassEncoder) SetPipeline(p *RenderPipeline) error {
	if err := r.guard("set pipeline"); err != nil {
		return err
	}
	if p == nil || p.backend == nil {
		err := core.WrapError(core.ErrEncoderMisuse, "set pipeline: pipeline is not live", r.encoder.label)
		core.LogError(err.Error())
		return err
	}
	r.backend.SetPipeline(p.backend)
	return nil
}

func (r *RenderPassEncoder) SetVertexBuffer(slot uint32, buf *Buffer, offset uint64) error {
	if err := r.guard("set vertex buffer"); err != nil {
		return err
	}
	if buf == nil || buf.backend == nil {
		err := core.WrapError(core.ErrEncoderMisuse, "set vertex buffer: buffer is not live", r.encoder.label)
		core.LogError(err.Error())
		return err
	}
	if buf.usage&BufferUsageVertex == 0 {
		err := core.WrapError(core.ErrEncoderMisuse, "set vertex buffer: buffer lacks vertex usage", buf.label)
		core.LogError(err.Error())
		return err
	}
	r.backend.SetVertexBuffer(slot, buf.backend, offset)
	return nil
}

func (r *RenderPassEncoder) SetIndexBuffer(buf *Buffer, format IndexFormat, offset uint64) error {
	if err := r.guard("set index buffer"); err != nil {
		return err
	}
	if buf == nil || buf.backend == nil {
		err := core.WrapError(core.ErrEncoderMisuse, "set index buffer: buffer is not live", r.encoder.label)
		core.LogError(err.Error())
		return err
	}
	if buf.usage&BufferUsageIndex == 0 {
		err := core.WrapError(core.ErrEncoderMisuse, "set index buffer: buffer lacks index usage", buf.label)
		core.LogError(err.Error())
		return err
	}
	r.backend.SetIndexBuffer(buf.backend, format, offset)
	return nil
}

func (r *RenderPassEncoder) SetBindGroup(index uint32, group *BindGroup) error {
	if err := r.guard("set bind group"); err != nil {
		return err
	}
	if group == nil || group.backend == nil {
		err := core.WrapError(core.ErrEncoderMisuse, "set bind group: group is not live", r.encoder.label)
		core.LogError(err.Error())
		return err
	}
	r.backend.SetBindGroup(index, group.backend)
	return nil
}

func (r *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if err := r.guard("draw"); err != nil {
		return err
	}
	r.backend.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (r *RenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if err := r.guard("draw indexed"); err != nil {
		return err
	}
	r.backend.DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

// End finalizes the pass. Further draw calls on it fail with
// ErrEncoderMisuse.
func (r *RenderPassEncoder) End() error {
	if err := r.guard("end render pass"); err != nil {
		return err
	}
	r.backend.End()
	r.closed = true
	r.encoder.pass = nil
	return nil
}

// ComputePassEncoder records dispatch state between BeginComputePass
// and End.
type ComputePassEncoder struct {
	encoder *CommandEncoder
	backend BackendComputePass
	closed  bool
}

func (c *ComputePassEncoder) guard(op string) error {
	if c.closed {
		err := core.WrapError(core.ErrEncoderMisuse, op+": compute pass already ended", c.encoder.label)
		core.LogError(err.Error())
		return err
	}
	return c.encoder.guardRecording(op)
}

func (c *ComputePassEncoder) SetPipeline(p *ComputePipeline) error {
	if err := c.guard("set compute pipeline"); err != nil {
		return err
	}
	if p == nil || p.backend == nil {
		err := core.WrapError(core.ErrEncoderMisuse, "set compute pipeline: pipeline is not live", c.encoder.label)
		core.LogError(err.Error())
		return err
	}
	c.backend.SetPipeline(p.backend)
	return nil
}

func (c *ComputePassEncoder) SetBindGroup(index uint32, group *BindGroup) error {
	if err := c.guard("set bind group"); err != nil {
		return err
	}
	if group == nil || group.backend == nil {
		err := core.WrapError(core.ErrEncoderMisuse, "set bind group: group is not live", c.encoder.label)
		core.LogError(err.Error())
		return err
	}
	c.backend.SetBindGroup(index, group.backend)
	return nil
}

func (c *ComputePassEncoder) DispatchWorkgroups(x, y, z uint32) error {
	if err := c.guard("dispatch workgroups"); err != nil {
		return err
	}
	c.backend.DispatchWorkgroups(x, y, z)
	return nil
}

func (c *ComputePassEncoder) End() error {
	if err := c.guard("end compute pass"); err != nil {
		return err
	}
	c.backend.End()
	c.closed = true
	c.encoder.cpass = nil
	return nil
}

// CommandBuffer is the finalized result of recording. It can be
// submitted exactly once; submission destroys the native handle whether
// it succeeded or not.
type CommandBuffer struct {
	label    string
	device   *Device
	backend  BackendCommandBuffer
	present  *presentState
	consumed bool
}

func (c *CommandBuffer) Label() string { return c.label }
