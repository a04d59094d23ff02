package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// CommandBuffer owns one primary command buffer plus the transient
// framebuffers its passes created. Those can only go away after the
// submission fence has signaled, which Destroy relies on.
type CommandBuffer struct {
	context *VulkanContext
	handle  vk.CommandBuffer
	label   string
	State   VulkanCommandBufferState

	transientFramebuffers []vk.Framebuffer
}

func NewCommandBuffer(context *VulkanContext, pool vk.CommandPool, label string, isPrimary bool) (*CommandBuffer, error) {
	cb := &CommandBuffer{
		context: context,
		label:   label,
		State:   COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelPrimary
	if !isPrimary {
		level = vk.CommandBufferLevelSecondary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := lockPool.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(context.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			err := fmt.Errorf("failed to allocate command buffer with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}
	cb.handle = handles[0]
	cb.State = COMMAND_BUFFER_STATE_READY

	return cb, nil
}

func (cb *CommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(cb.handle, beginInfo); res != vk.Success {
		err := fmt.Errorf("failed to begin command buffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (cb *CommandBuffer) End() error {
	if res := vk.EndCommandBuffer(cb.handle); res != vk.Success {
		err := fmt.Errorf("failed to end command buffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// Destroy frees the command buffer and the framebuffers recorded passes
// left behind.
func (cb *CommandBuffer) Destroy() {
	for _, fb := range cb.transientFramebuffers {
		vk.DestroyFramebuffer(cb.context.LogicalDevice, fb, cb.context.Allocator)
	}
	cb.transientFramebuffers = nil

	if cb.handle != nil {
		vk.FreeCommandBuffers(cb.context.LogicalDevice, cb.context.GraphicsCommandPool, 1, []vk.CommandBuffer{cb.handle})
		cb.handle = nil
	}
	cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}
