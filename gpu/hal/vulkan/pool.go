package vulkan

import "sync"

type LockGroup string

const (
	InstanceManagement      LockGroup = "instance_management"
	DeviceManagement        LockGroup = "device_management"
	QueueManagement         LockGroup = "queue_management"
	BufferManagement        LockGroup = "buffer_management"
	ImageManagement         LockGroup = "image_management"
	SamplerManagement       LockGroup = "sampler_management"
	ShaderManagement        LockGroup = "shader_management"
	DescriptorManagement    LockGroup = "descriptor_management"
	PipelineManagement      LockGroup = "pipeline_management"
	RenderpassManagement    LockGroup = "renderpass_management"
	CommandBufferManagement LockGroup = "command_buffer_management"
	SwapchainManagement     LockGroup = "swapchain_management"
)

// VulkanLockPool serializes driver calls that touch the same kind of
// object. The loader is not thread-safe for everything, and external
// synchronization requirements vary per handle type.
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex // Protects access to the locks map
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks: make(map[LockGroup]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) setLock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.locks[group]; !exists {
		vs.locks[group] = &sync.Mutex{}
	}
	vs.locks[group].Lock()

	return vs.locks[group]
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.setLock(group)
	defer l.Unlock()

	return fn()
}

var lockPool = NewVulkanLockPool()
