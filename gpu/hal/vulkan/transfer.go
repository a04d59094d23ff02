package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
)

// Staging protocol. Every upload and readback runs on a single-use
// command buffer and waits for queue completion before returning, so
// staging memory never outlives the copy that reads it.

func (d *Device) beginSingleUse() (*CommandBuffer, error) {
	cb, err := NewCommandBuffer(d.context, d.context.GraphicsCommandPool, "single-use", true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Destroy()
		return nil, err
	}
	return cb, nil
}

func (d *Device) endSingleUse(cb *CommandBuffer) error {
	defer cb.Destroy()

	if err := cb.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.handle},
	}

	return lockPool.SafeCall(QueueManagement, func() error {
		if res := vk.QueueSubmit(d.context.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); res != vk.Success {
			err := fmt.Errorf("failed to submit single-use commands with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		if res := vk.QueueWaitIdle(d.context.GraphicsQueue); res != vk.Success {
			err := fmt.Errorf("queue failed to wait in idle mode with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	})
}

// stagingBuffer is a host-visible scratch allocation.
type stagingBuffer struct {
	handle vk.Buffer
	memory vk.DeviceMemory
	size   uint64
}

func (d *Device) createStagingBuffer(size uint64) (*stagingBuffer, error) {
	handle, memory, err := d.createRawBuffer(size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		uint32(vk.MemoryPropertyHostVisibleBit)|uint32(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	return &stagingBuffer{handle: handle, memory: memory, size: size}, nil
}

func (s *stagingBuffer) write(context *VulkanContext, data []byte) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.LogicalDevice, s.memory, 0, vk.DeviceSize(s.size), 0, &ptr); res != vk.Success {
		err := fmt.Errorf("failed to map staging memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(context.LogicalDevice, s.memory)
	return nil
}

func (s *stagingBuffer) read(context *VulkanContext, dst []byte) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.LogicalDevice, s.memory, 0, vk.DeviceSize(s.size), 0, &ptr); res != vk.Success {
		err := fmt.Errorf("failed to map staging memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	copy(dst, unsafe.Slice((*byte)(ptr), len(dst)))
	vk.UnmapMemory(context.LogicalDevice, s.memory)
	return nil
}

func (s *stagingBuffer) destroy(context *VulkanContext) {
	if s.handle != vk.NullBuffer {
		vk.DestroyBuffer(context.LogicalDevice, s.handle, context.Allocator)
		s.handle = vk.NullBuffer
	}
	if s.memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.LogicalDevice, s.memory, context.Allocator)
		s.memory = vk.NullDeviceMemory
	}
}

// createRawBuffer allocates a buffer and binds fresh memory to it.
func (d *Device) createRawBuffer(size uint64, usage vk.BufferUsageFlags, memoryFlags uint32) (vk.Buffer, vk.DeviceMemory, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if err := lockPool.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(d.context.LogicalDevice, &bufferInfo, d.context.Allocator, &handle); res != vk.Success {
			err := fmt.Errorf("failed to create buffer with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.context.LogicalDevice, handle, &requirements)
	requirements.Deref()

	memoryIndex := d.context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if memoryIndex < 0 {
		vk.DestroyBuffer(d.context.LogicalDevice, handle, d.context.Allocator)
		err := fmt.Errorf("no suitable memory type for buffer")
		core.LogError(err.Error())
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.context.LogicalDevice, &allocateInfo, d.context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(d.context.LogicalDevice, handle, d.context.Allocator)
		err := fmt.Errorf("failed to allocate buffer memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}
	if res := vk.BindBufferMemory(d.context.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(d.context.LogicalDevice, memory, d.context.Allocator)
		vk.DestroyBuffer(d.context.LogicalDevice, handle, d.context.Allocator)
		err := fmt.Errorf("failed to bind buffer memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}

	return handle, memory, nil
}
