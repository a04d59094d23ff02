package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

// Encoder records into one primary command buffer. Pass ordering and
// lifetime rules are enforced a layer up, so recording here is
// straight-line.
type Encoder struct {
	device *Device
	cb     *CommandBuffer
	label  string
}

func (d *Device) CreateCommandEncoder(label string) (hal.BackendEncoder, error) {
	cb, err := NewCommandBuffer(d.context, d.context.GraphicsCommandPool, label, true)
	if err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create command encoder", label)
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Destroy()
		return nil, core.WrapError(core.ErrResourceCreationFailed, "begin command encoder", label)
	}
	return &Encoder{device: d, cb: cb, label: label}, nil
}

func (e *Encoder) BeginRenderPass(state *hal.RenderPassState) (hal.BackendRenderPass, error) {
	var pass vk.RenderPass
	var framebuffer vk.Framebuffer
	var err error

	if state.Swapchain != nil {
		swapchain, ok := state.Swapchain.(*Swapchain)
		if !ok {
			return nil, fmt.Errorf("foreign swapchain %T", state.Swapchain)
		}
		pass = swapchain.renderPass
		framebuffer = swapchain.framebuffers[state.ImageIndex]
	} else {
		view, ok := state.View.(*TextureView)
		if !ok {
			return nil, fmt.Errorf("foreign texture view %T", state.View)
		}
		pass, err = e.device.renderPassFor(VulkanFormat(state.Format), false)
		if err != nil {
			return nil, err
		}
		framebuffer, err = e.device.createFramebuffer(pass, view.handle, state.Width, state.Height)
		if err != nil {
			return nil, err
		}
		// Freed together with the command buffer once execution is done.
		e.cb.transientFramebuffers = append(e.cb.transientFramebuffers, framebuffer)
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(state.ClearColor[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: state.Width, Height: state.Height},
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(e.cb.handle, &beginInfo, vk.SubpassContentsInline)
	e.cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(state.Width),
		Height:   float32(state.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: state.Width, Height: state.Height},
	}
	vk.CmdSetViewport(e.cb.handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(e.cb.handle, 0, 1, []vk.Rect2D{scissor})

	return &RenderPassEncoder{cb: e.cb}, nil
}

func (e *Encoder) BeginComputePass() (hal.BackendComputePass, error) {
	return &ComputePassEncoder{cb: e.cb}, nil
}

func (e *Encoder) Finish() (hal.BackendCommandBuffer, error) {
	if err := e.cb.End(); err != nil {
		return nil, err
	}
	return e.cb, nil
}

func (e *Encoder) Destroy() {
	e.cb.Destroy()
}

// RenderPassEncoder records draw state inside an open render pass. The
// pipeline layout of the last bound pipeline is what descriptor sets
// bind against.
type RenderPassEncoder struct {
	cb     *CommandBuffer
	layout vk.PipelineLayout
}

func (p *RenderPassEncoder) SetPipeline(pipeline hal.BackendRenderPipeline) {
	backend := pipeline.(*RenderPipeline)
	p.layout = backend.layout
	vk.CmdBindPipeline(p.cb.handle, vk.PipelineBindPointGraphics, backend.handle)
}

func (p *RenderPassEncoder) SetVertexBuffer(slot uint32, buf hal.BackendBuffer, offset uint64) {
	backend := buf.(*Buffer)
	vk.CmdBindVertexBuffers(p.cb.handle, slot, 1, []vk.Buffer{backend.handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (p *RenderPassEncoder) SetIndexBuffer(buf hal.BackendBuffer, format hal.IndexFormat, offset uint64) {
	backend := buf.(*Buffer)
	vk.CmdBindIndexBuffer(p.cb.handle, backend.handle, vk.DeviceSize(offset), VulkanIndexType(format))
}

func (p *RenderPassEncoder) SetBindGroup(index uint32, group hal.BackendBindGroup) {
	backend := group.(*BindGroup)
	vk.CmdBindDescriptorSets(p.cb.handle, vk.PipelineBindPointGraphics, p.layout,
		index, 1, []vk.DescriptorSet{backend.handle}, 0, nil)
}

func (p *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(p.cb.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *RenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(p.cb.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (p *RenderPassEncoder) End() {
	vk.CmdEndRenderPass(p.cb.handle)
	p.cb.State = COMMAND_BUFFER_STATE_RECORDING
}

type ComputePassEncoder struct {
	cb     *CommandBuffer
	layout vk.PipelineLayout
}

func (p *ComputePassEncoder) SetPipeline(pipeline hal.BackendComputePipeline) {
	backend := pipeline.(*ComputePipeline)
	p.layout = backend.layout
	vk.CmdBindPipeline(p.cb.handle, vk.PipelineBindPointCompute, backend.handle)
}

func (p *ComputePassEncoder) SetBindGroup(index uint32, group hal.BackendBindGroup) {
	backend := group.(*BindGroup)
	vk.CmdBindDescriptorSets(p.cb.handle, vk.PipelineBindPointCompute, p.layout,
		index, 1, []vk.DescriptorSet{backend.handle}, 0, nil)
}

func (p *ComputePassEncoder) DispatchWorkgroups(x, y, z uint32) {
	vk.CmdDispatch(p.cb.handle, x, y, z)
}

func (p *ComputePassEncoder) End() {}
