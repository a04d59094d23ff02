package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

// Adapter wraps one physical device together with the queue families
// selected for it.
type Adapter struct {
	backend            *Backend
	physicalDevice     vk.PhysicalDevice
	properties         vk.PhysicalDeviceProperties
	features           vk.PhysicalDeviceFeatures
	graphicsQueueIndex int32
	presentQueueIndex  int32
}

func (a *Adapter) Info() hal.AdapterInfo {
	deviceType := "unknown"
	switch a.properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		deviceType = "integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		deviceType = "discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		deviceType = "virtual"
	case vk.PhysicalDeviceTypeCpu:
		deviceType = "cpu"
	}
	return hal.AdapterInfo{
		Name:       vk.ToString(a.properties.DeviceName[:]),
		VendorID:   a.properties.VendorID,
		DeviceID:   a.properties.DeviceID,
		DeviceType: deviceType,
		DriverVersion: fmt.Sprintf("%d.%d.%d",
			vk.Version.Major(vk.Version(a.properties.DriverVersion)),
			vk.Version.Minor(vk.Version(a.properties.DriverVersion)),
			vk.Version.Patch(vk.Version(a.properties.DriverVersion))),
		APIVersion: fmt.Sprintf("%d.%d.%d",
			vk.Version.Major(vk.Version(a.properties.ApiVersion)),
			vk.Version.Minor(vk.Version(a.properties.ApiVersion)),
			vk.Version.Patch(vk.Version(a.properties.ApiVersion))),
	}
}

func (a *Adapter) CreateDevice() (hal.BackendDevice, error) {
	context := a.backend.context
	context.PhysicalDevice = a.physicalDevice
	context.Properties = a.properties
	context.Features = a.features
	context.GraphicsQueueIndex = a.graphicsQueueIndex
	context.PresentQueueIndex = a.presentQueueIndex
	vk.GetPhysicalDeviceMemoryProperties(a.physicalDevice, &context.Memory)

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := a.presentQueueIndex < 0 || a.graphicsQueueIndex == a.presentQueueIndex
	indices := []uint32{uint32(a.graphicsQueueIndex)}
	if !presentSharesGraphicsQueue {
		indices = append(indices, uint32(a.presentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i].SType = vk.StructureTypeDeviceQueueCreateInfo
		queueCreateInfos[i].QueueFamilyIndex = indices[i]
		queueCreateInfos[i].QueueCount = 1
		queueCreateInfos[i].PQueuePriorities = []float32{1.0}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if a.features.SamplerAnisotropy == vk.True {
		deviceFeatures.SamplerAnisotropy = vk.True
	}

	portabilityRequired := false
	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(a.physicalDevice, "", &availableExtensionCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate device extensions with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if availableExtensionCount != 0 {
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(a.physicalDevice, "", &availableExtensionCount, availableExtensions); res != vk.Success {
			err := fmt.Errorf("failed to enumerate device extensions with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		for i := 0; i < int(availableExtensionCount); i++ {
			availableExtensions[i].Deref()
			zero := FindFirstZeroInByteArray(availableExtensions[i].ExtensionName[:])
			if vk.ToString(availableExtensions[i].ExtensionName[:zero+1]) == "VK_KHR_portability_subset" {
				core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
				portabilityRequired = true
				break
			}
		}
	}

	extensionNames := []string{}
	if context.Surface != vk.NullSurface {
		extensionNames = append(extensionNames, vk.KhrSwapchainExtensionName)
	}
	if portabilityRequired {
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	if err := lockPool.SafeCall(DeviceManagement, func() error {
		if res := vk.CreateDevice(a.physicalDevice, &deviceCreateInfo, context.Allocator, &context.LogicalDevice); res != vk.Success {
			err := fmt.Errorf("failed to create logical device with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(context.LogicalDevice, uint32(a.graphicsQueueIndex), 0, &context.GraphicsQueue)
	if presentSharesGraphicsQueue {
		context.PresentQueue = context.GraphicsQueue
	} else {
		vk.GetDeviceQueue(context.LogicalDevice, uint32(a.presentQueueIndex), 0, &context.PresentQueue)
	}
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(a.graphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(context.LogicalDevice, &poolCreateInfo, context.Allocator, &context.GraphicsCommandPool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	core.LogInfo("Graphics command pool created.")

	device := &Device{context: context}
	if err := device.createDescriptorPool(); err != nil {
		return nil, err
	}

	fence, err := NewFence(context, false)
	if err != nil {
		return nil, err
	}
	device.submitFence = fence

	device.renderPasses = make(map[renderPassKey]vk.RenderPass)
	return device, nil
}

// Device is the Vulkan half of one logical device. Submissions are
// fence-synchronized, so command buffers and their transient
// framebuffers are safe to release as soon as Submit returns.
type Device struct {
	context     *VulkanContext
	submitFence *VulkanFence

	mu           sync.Mutex
	renderPasses map[renderPassKey]vk.RenderPass
}

const descriptorPoolMaxSets = 1024

func (d *Device) createDescriptorPool() error {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolMaxSets},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       descriptorPoolMaxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(d.context.LogicalDevice, &poolInfo, d.context.Allocator, &d.context.DescriptorPool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (d *Device) Submit(buf hal.BackendCommandBuffer, present *hal.PresentRequest) error {
	cb, ok := buf.(*CommandBuffer)
	if !ok {
		err := fmt.Errorf("foreign command buffer %T", buf)
		core.LogError(err.Error())
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.handle},
	}

	var swapchain *Swapchain
	if present != nil {
		swapchain, ok = present.Swapchain.(*Swapchain)
		if !ok {
			err := fmt.Errorf("foreign swapchain %T", present.Swapchain)
			core.LogError(err.Error())
			return err
		}
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{swapchain.imageAvailable}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{swapchain.renderComplete}
	}

	if err := lockPool.SafeCall(QueueManagement, func() error {
		if res := vk.QueueSubmit(d.context.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, d.submitFence.Handle); res != vk.Success {
			err := fmt.Errorf("queue submit failed with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return err
	}

	if !d.submitFence.FenceWait(d.context, fenceDefaultTimeout) {
		return core.WrapError(core.ErrDeviceLost, "wait for submission", cb.label)
	}
	if err := d.submitFence.FenceReset(d.context); err != nil {
		return err
	}

	if present != nil {
		return swapchain.present(present.ImageIndex)
	}
	return nil
}

func (d *Device) WaitIdle() error {
	if d.context.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(d.context.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("device wait idle failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (d *Device) Destroy() {
	if d.context.LogicalDevice == nil {
		return
	}
	vk.DeviceWaitIdle(d.context.LogicalDevice)

	d.mu.Lock()
	for key, pass := range d.renderPasses {
		vk.DestroyRenderPass(d.context.LogicalDevice, pass, d.context.Allocator)
		delete(d.renderPasses, key)
	}
	d.mu.Unlock()

	if d.submitFence != nil {
		d.submitFence.FenceDestroy(d.context)
		d.submitFence = nil
	}
	if d.context.DescriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(d.context.LogicalDevice, d.context.DescriptorPool, d.context.Allocator)
		d.context.DescriptorPool = vk.NullDescriptorPool
	}

	core.LogInfo("Destroying command pools...")
	vk.DestroyCommandPool(d.context.LogicalDevice, d.context.GraphicsCommandPool, d.context.Allocator)

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(d.context.LogicalDevice, d.context.Allocator)
	d.context.LogicalDevice = nil

	d.context.GraphicsQueue = nil
	d.context.PresentQueue = nil
	d.context.PhysicalDevice = nil
	d.context.GraphicsQueueIndex = -1
	d.context.PresentQueueIndex = -1
}
