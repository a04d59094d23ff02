package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
	"github.com/codeyousef/materia/gpu/mathutil"
)

type swapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Swapchain owns the presentable images, one view and framebuffer per
// image, and the semaphore pair the submit path synchronizes with.
type Swapchain struct {
	device *Device

	handle      vk.Swapchain
	imageFormat vk.SurfaceFormat
	width       uint32
	height      uint32

	images       []vk.Image
	views        []vk.ImageView
	textures     []*Texture
	wrappedViews []*TextureView

	renderPass   vk.RenderPass
	framebuffers []vk.Framebuffer

	imageAvailable vk.Semaphore
	renderComplete vk.Semaphore
}

func (d *Device) querySwapchainSupport() (*swapchainSupportInfo, error) {
	info := &swapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(d.context.PhysicalDevice, d.context.Surface, &info.Capabilities); res != vk.Success {
		err := fmt.Errorf("failed to get surface capabilities with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(d.context.PhysicalDevice, d.context.Surface, &formatCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get surface formats with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if formatCount != 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(d.context.PhysicalDevice, d.context.Surface, &formatCount, info.Formats); res != vk.Success {
			err := fmt.Errorf("failed to get surface formats with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(d.context.PhysicalDevice, d.context.Surface, &presentModeCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get surface present modes with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if presentModeCount != 0 {
		info.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(d.context.PhysicalDevice, d.context.Surface, &presentModeCount, info.PresentModes); res != vk.Success {
			err := fmt.Errorf("failed to get surface present modes with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
	}

	return info, nil
}

// chooseSurfaceFormat prefers BGRA8 with the sRGB nonlinear color
// space, falling back to whatever the surface offers first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Unorm && formats[i].ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return formats[i]
		}
	}
	return formats[0]
}

// choosePresentMode honors a mailbox request when the surface supports
// it. FIFO is always available.
func choosePresentMode(available []vk.PresentMode, requested hal.PresentMode) vk.PresentMode {
	wanted := VulkanPresentMode(requested)
	if wanted == vk.PresentModeFifo {
		return vk.PresentModeFifo
	}
	for _, mode := range available {
		if mode == wanted {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent resolves the swapchain extent from the surface
// capabilities, clamping a free choice to the allowed range.
func chooseExtent(capabilities *vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	return vk.Extent2D{
		Width:  mathutil.Clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: mathutil.Clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

func (d *Device) CreateSwapchain(cfg *hal.SwapchainConfig) (hal.BackendSwapchain, error) {
	if d.context.Surface == vk.NullSurface {
		err := fmt.Errorf("cannot create a swapchain without a surface")
		core.LogError(err.Error())
		return nil, err
	}

	support, err := d.querySwapchainSupport()
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		err := fmt.Errorf("surface offers no formats or present modes")
		core.LogError(err.Error())
		return nil, err
	}

	swapchain := &Swapchain{device: d}
	swapchain.imageFormat = chooseSurfaceFormat(support.Formats)
	presentMode := choosePresentMode(support.PresentModes, cfg.PresentMode)
	extent := chooseExtent(&support.Capabilities, cfg.Width, cfg.Height)
	swapchain.width = extent.Width
	swapchain.height = extent.Height

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.imageFormat.Format,
		ImageColorSpace:  swapchain.imageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	if d.context.GraphicsQueueIndex != d.context.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(d.context.GraphicsQueueIndex),
			uint32(d.context.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if err := lockPool.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(d.context.LogicalDevice, &swapchainCreateInfo, d.context.Allocator, &swapchain.handle); res != vk.Success {
			err := fmt.Errorf("failed to create swapchain with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var actualImageCount uint32
	if res := vk.GetSwapchainImages(d.context.LogicalDevice, swapchain.handle, &actualImageCount, nil); res != vk.Success {
		swapchain.Destroy()
		err := fmt.Errorf("failed to get swapchain images with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	swapchain.images = make([]vk.Image, actualImageCount)
	if res := vk.GetSwapchainImages(d.context.LogicalDevice, swapchain.handle, &actualImageCount, swapchain.images); res != vk.Success {
		swapchain.Destroy()
		err := fmt.Errorf("failed to get swapchain images with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	swapchain.renderPass, err = d.renderPassFor(swapchain.imageFormat.Format, true)
	if err != nil {
		swapchain.Destroy()
		return nil, err
	}

	swapchain.views = make([]vk.ImageView, actualImageCount)
	swapchain.framebuffers = make([]vk.Framebuffer, actualImageCount)
	swapchain.textures = make([]*Texture, actualImageCount)
	swapchain.wrappedViews = make([]*TextureView, actualImageCount)
	for i := 0; i < int(actualImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.imageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(d.context.LogicalDevice, &viewInfo, d.context.Allocator, &swapchain.views[i]); res != vk.Success {
			swapchain.Destroy()
			err := fmt.Errorf("failed to create swapchain image view with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}

		swapchain.framebuffers[i], err = d.createFramebuffer(swapchain.renderPass, swapchain.views[i], extent.Width, extent.Height)
		if err != nil {
			swapchain.Destroy()
			return nil, err
		}

		// Non-owning wrappers handed out by Acquire. The swapchain is
		// what frees the underlying handles.
		swapchain.textures[i] = &Texture{
			device:    d,
			handle:    swapchain.images[i],
			format:    swapchain.imageFormat.Format,
			width:     extent.Width,
			height:    extent.Height,
			mipLevels: 1,
			layers:    1,
			owned:     false,
		}
		swapchain.wrappedViews[i] = &TextureView{context: d.context, handle: swapchain.views[i]}
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if res := vk.CreateSemaphore(d.context.LogicalDevice, &semaphoreCreateInfo, d.context.Allocator, &swapchain.imageAvailable); res != vk.Success {
		swapchain.Destroy()
		err := fmt.Errorf("failed to create semaphore on image available with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if res := vk.CreateSemaphore(d.context.LogicalDevice, &semaphoreCreateInfo, d.context.Allocator, &swapchain.renderComplete); res != vk.Success {
		swapchain.Destroy()
		err := fmt.Errorf("failed to create semaphore on queue complete with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	core.LogInfo("Swapchain created successfully (%dx%d, %d images).", extent.Width, extent.Height, actualImageCount)
	return swapchain, nil
}

func (s *Swapchain) ImageCount() uint32 {
	return uint32(len(s.images))
}

func (s *Swapchain) Extent() (uint32, uint32) {
	return s.width, s.height
}

func (s *Swapchain) Format() hal.TextureFormat {
	return HALFormat(s.imageFormat.Format)
}

func (s *Swapchain) Acquire() (uint32, hal.BackendTexture, hal.BackendTextureView, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(s.device.context.LogicalDevice, s.handle, fenceDefaultTimeout,
		s.imageAvailable, vk.NullFence, &imageIndex)

	if result == vk.ErrorOutOfDate {
		return 0, nil, nil, core.WrapError(core.ErrSwapchainOutOfDate, "acquire next image", "")
	}
	if result != vk.Success && result != vk.Suboptimal {
		err := fmt.Errorf("failed to acquire swapchain image with %s", VulkanResultString(result))
		core.LogError(err.Error())
		return 0, nil, nil, err
	}

	return imageIndex, s.textures[imageIndex], s.wrappedViews[imageIndex], nil
}

func (s *Swapchain) present(imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{imageIndex},
	}

	result := vk.QueuePresent(s.device.context.PresentQueue, &presentInfo)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		return core.WrapError(core.ErrSwapchainOutOfDate, "present image", "")
	}
	if result != vk.Success {
		err := fmt.Errorf("failed to present swapchain image with %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (s *Swapchain) Destroy() {
	device := s.device.context.LogicalDevice
	vk.DeviceWaitIdle(device)

	if s.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.imageAvailable, s.device.context.Allocator)
		s.imageAvailable = vk.NullSemaphore
	}
	if s.renderComplete != vk.NullSemaphore {
		vk.DestroySemaphore(device, s.renderComplete, s.device.context.Allocator)
		s.renderComplete = vk.NullSemaphore
	}
	for _, framebuffer := range s.framebuffers {
		if framebuffer != vk.NullFramebuffer {
			vk.DestroyFramebuffer(device, framebuffer, s.device.context.Allocator)
		}
	}
	s.framebuffers = nil

	// Only destroy the views, not the images. Those are owned by the
	// swapchain and go away with it.
	for _, view := range s.views {
		if view != vk.NullImageView {
			vk.DestroyImageView(device, view, s.device.context.Allocator)
		}
	}
	s.views = nil
	s.wrappedViews = nil
	s.textures = nil

	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, s.handle, s.device.context.Allocator)
		s.handle = vk.NullSwapchain
	}
}
