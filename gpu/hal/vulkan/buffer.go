package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

// Buffer is one device allocation. Uniform-usage buffers live in
// host-visible coherent memory and stream writes through a direct map;
// everything else is device-local and moves through staging copies.
type Buffer struct {
	device      *Device
	handle      vk.Buffer
	memory      vk.DeviceMemory
	size        uint64
	hostVisible bool
	label       string
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.BackendBuffer, error) {
	hostVisible := HostVisibleUsage(desc.Usage)
	memoryFlags := uint32(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		memoryFlags = uint32(vk.MemoryPropertyHostVisibleBit) | uint32(vk.MemoryPropertyHostCoherentBit)
	}
	handle, memory, err := d.createRawBuffer(desc.Size,
		VulkanBufferUsage(desc.Usage),
		memoryFlags)
	if err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create buffer", desc.Label)
	}
	return &Buffer{
		device:      d,
		handle:      handle,
		memory:      memory,
		size:        desc.Size,
		hostVisible: hostVisible,
		label:       desc.Label,
	}, nil
}

func (b *Buffer) Write(data []byte, offset uint64) error {
	if len(data) == 0 {
		return nil
	}
	if b.hostVisible {
		return b.writeMapped(data, offset)
	}

	staging, err := b.device.createStagingBuffer(uint64(len(data)))
	if err != nil {
		return err
	}
	defer staging.destroy(b.device.context)

	if err := staging.write(b.device.context, data); err != nil {
		return err
	}

	cb, err := b.device.beginSingleUse()
	if err != nil {
		return err
	}
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: vk.DeviceSize(offset),
		Size:      vk.DeviceSize(len(data)),
	}
	vk.CmdCopyBuffer(cb.handle, staging.handle, b.handle, 1, []vk.BufferCopy{region})
	return b.device.endSingleUse(cb)
}

func (b *Buffer) Read(dst []byte, offset uint64) error {
	if len(dst) == 0 {
		return nil
	}
	if b.hostVisible {
		return b.readMapped(dst, offset)
	}

	staging, err := b.device.createStagingBuffer(uint64(len(dst)))
	if err != nil {
		return err
	}
	defer staging.destroy(b.device.context)

	cb, err := b.device.beginSingleUse()
	if err != nil {
		return err
	}
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(offset),
		DstOffset: 0,
		Size:      vk.DeviceSize(len(dst)),
	}
	vk.CmdCopyBuffer(cb.handle, b.handle, staging.handle, 1, []vk.BufferCopy{region})
	if err := b.device.endSingleUse(cb); err != nil {
		return err
	}

	return staging.read(b.device.context, dst)
}

// writeMapped is the streaming path: map the range, copy, unmap. The
// memory is coherent, so no flush is needed.
func (b *Buffer) writeMapped(data []byte, offset uint64) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(b.device.context.LogicalDevice, b.memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &ptr); res != vk.Success {
		err := fmt.Errorf("failed to map buffer memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(b.device.context.LogicalDevice, b.memory)
	return nil
}

func (b *Buffer) readMapped(dst []byte, offset uint64) error {
	var ptr unsafe.Pointer
	if res := vk.MapMemory(b.device.context.LogicalDevice, b.memory, vk.DeviceSize(offset), vk.DeviceSize(len(dst)), 0, &ptr); res != vk.Success {
		err := fmt.Errorf("failed to map buffer memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	copy(dst, unsafe.Slice((*byte)(ptr), len(dst)))
	vk.UnmapMemory(b.device.context.LogicalDevice, b.memory)
	return nil
}

func (b *Buffer) Destroy() {
	if b.handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device.context.LogicalDevice, b.handle, b.device.context.Allocator)
		b.handle = vk.NullBuffer
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device.context.LogicalDevice, b.memory, b.device.context.Allocator)
		b.memory = vk.NullDeviceMemory
	}
}
