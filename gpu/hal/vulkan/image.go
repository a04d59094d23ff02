package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

// Texture wraps an image plus its backing memory. Swapchain images are
// wrapped with owned false, since the swapchain frees those itself.
type Texture struct {
	device    *Device
	handle    vk.Image
	memory    vk.DeviceMemory
	format    vk.Format
	width     uint32
	height    uint32
	mipLevels uint32
	layers    uint32
	owned     bool
	label     string
}

// TextureView wraps one image view.
type TextureView struct {
	context *VulkanContext
	handle  vk.ImageView
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.BackendTexture, error) {
	layers := desc.Dimension.LayerCount()

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    VulkanFormat(desc.Format),
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     desc.MipLevelCount,
		ArrayLayers:   layers,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         VulkanImageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if desc.Dimension == hal.TextureDimensionCube {
		imageInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	var handle vk.Image
	if err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(d.context.LogicalDevice, &imageInfo, d.context.Allocator, &handle); res != vk.Success {
			err := fmt.Errorf("failed to create image with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create texture", desc.Label)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.context.LogicalDevice, handle, &requirements)
	requirements.Deref()

	memoryIndex := d.context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex < 0 {
		vk.DestroyImage(d.context.LogicalDevice, handle, d.context.Allocator)
		return nil, core.WrapError(core.ErrResourceCreationFailed, "allocate texture memory", desc.Label)
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.context.LogicalDevice, &allocateInfo, d.context.Allocator, &memory); res != vk.Success {
		vk.DestroyImage(d.context.LogicalDevice, handle, d.context.Allocator)
		err := fmt.Errorf("failed to allocate image memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, core.WrapError(core.ErrResourceCreationFailed, "allocate texture memory", desc.Label)
	}
	if res := vk.BindImageMemory(d.context.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(d.context.LogicalDevice, memory, d.context.Allocator)
		vk.DestroyImage(d.context.LogicalDevice, handle, d.context.Allocator)
		err := fmt.Errorf("failed to bind image memory with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, core.WrapError(core.ErrResourceCreationFailed, "bind texture memory", desc.Label)
	}

	return &Texture{
		device:    d,
		handle:    handle,
		memory:    memory,
		format:    imageInfo.Format,
		width:     desc.Width,
		height:    desc.Height,
		mipLevels: desc.MipLevelCount,
		layers:    layers,
		owned:     true,
		label:     desc.Label,
	}, nil
}

func (t *Texture) Upload(data []byte, regions []hal.UploadRegion) error {
	staging, err := t.device.createStagingBuffer(uint64(len(data)))
	if err != nil {
		return err
	}
	defer staging.destroy(t.device.context)

	if err := staging.write(t.device.context, data); err != nil {
		return err
	}

	copies := make([]vk.BufferImageCopy, len(regions))
	for i, r := range regions {
		copies[i] = vk.BufferImageCopy{
			BufferOffset:      vk.DeviceSize(r.Offset),
			BufferRowLength:   0,
			BufferImageHeight: 0,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       r.MipLevel,
				BaseArrayLayer: r.BaseLayer,
				LayerCount:     r.LayerCount,
			},
			ImageExtent: vk.Extent3D{
				Width:  r.Width,
				Height: r.Height,
				Depth:  1,
			},
		}
	}

	cb, err := t.device.beginSingleUse()
	if err != nil {
		return err
	}

	t.transitionLayout(cb, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	vk.CmdCopyBufferToImage(cb.handle, staging.handle, t.handle, vk.ImageLayoutTransferDstOptimal, uint32(len(copies)), copies)
	t.transitionLayout(cb, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)

	return t.device.endSingleUse(cb)
}

// transitionLayout records a full-image layout transition.
func (t *Texture) transitionLayout(cb *CommandBuffer, oldLayout, newLayout vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: t.mipLevels,
			LayerCount: t.layers,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		srcStage = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}

	vk.CmdPipelineBarrier(cb.handle, srcStage, dstStage, 0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
}

func (t *Texture) CreateView(desc *hal.TextureViewDescriptor) (hal.BackendTextureView, error) {
	viewType := vk.ImageViewType2d
	if desc.Dimension == hal.TextureDimensionCube {
		viewType = vk.ImageViewTypeCube
	}
	format := t.format
	if desc.Format != hal.TextureFormatUndefined {
		format = VulkanFormat(desc.Format)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    t.handle,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   desc.BaseMipLevel,
			LevelCount:     desc.MipLevels,
			BaseArrayLayer: desc.BaseLayer,
			LayerCount:     desc.Layers,
		},
	}
	if viewInfo.SubresourceRange.LevelCount == 0 {
		viewInfo.SubresourceRange.LevelCount = t.mipLevels
	}
	if viewInfo.SubresourceRange.LayerCount == 0 {
		viewInfo.SubresourceRange.LayerCount = t.layers
	}

	var handle vk.ImageView
	if res := vk.CreateImageView(t.device.context.LogicalDevice, &viewInfo, t.device.context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create image view with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create texture view", desc.Label)
	}
	return &TextureView{context: t.device.context, handle: handle}, nil
}

func (t *Texture) Destroy() {
	if !t.owned {
		return
	}
	if t.handle != vk.NullImage {
		vk.DestroyImage(t.device.context.LogicalDevice, t.handle, t.device.context.Allocator)
		t.handle = vk.NullImage
	}
	if t.memory != vk.NullDeviceMemory {
		vk.FreeMemory(t.device.context.LogicalDevice, t.memory, t.device.context.Allocator)
		t.memory = vk.NullDeviceMemory
	}
}

func (v *TextureView) Destroy() {
	if v.handle != vk.NullImageView {
		vk.DestroyImageView(v.context.LogicalDevice, v.handle, v.context.Allocator)
		v.handle = vk.NullImageView
	}
}
