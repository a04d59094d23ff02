package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/hal"
)

// Mappings from the portable enums to their Vulkan counterparts. Every
// buffer additionally carries both transfer bits because writes and
// readbacks may go through staging copies.

// HostVisibleUsage reports whether buffers with this usage are placed
// in host-visible coherent memory and written through a direct map.
// Uniform data is streamed from the CPU every frame; everything else
// stays device-local behind staging copies.
func HostVisibleUsage(usage hal.BufferUsage) bool {
	return usage&hal.BufferUsageUniform != 0
}

func VulkanBufferUsage(usage hal.BufferUsage) vk.BufferUsageFlags {
	flags := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) |
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	if usage&hal.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usage&hal.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	if usage&hal.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if usage&hal.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usage&hal.BufferUsageIndirect != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit)
	}
	return flags
}

func VulkanImageUsage(usage hal.TextureUsage) vk.ImageUsageFlags {
	flags := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	if usage&hal.TextureUsageSampled != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage&hal.TextureUsageStorage != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	if usage&hal.TextureUsageRenderAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	return flags
}

func VulkanFormat(format hal.TextureFormat) vk.Format {
	switch format {
	case hal.TextureFormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case hal.TextureFormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case hal.TextureFormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	default:
		return vk.FormatUndefined
	}
}

// HALFormat maps a surface format back into the portable enum. Formats
// the portable layer does not know come back Undefined.
func HALFormat(format vk.Format) hal.TextureFormat {
	switch format {
	case vk.FormatR8g8b8a8Unorm:
		return hal.TextureFormatRGBA8Unorm
	case vk.FormatB8g8r8a8Unorm:
		return hal.TextureFormatBGRA8Unorm
	case vk.FormatR16g16b16a16Sfloat:
		return hal.TextureFormatRGBA16Float
	default:
		return hal.TextureFormatUndefined
	}
}

func VulkanFilter(mode hal.FilterMode) vk.Filter {
	if mode == hal.FilterModeLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func VulkanAddressMode(mode hal.AddressMode) vk.SamplerAddressMode {
	switch mode {
	case hal.AddressModeRepeat:
		return vk.SamplerAddressModeRepeat
	case hal.AddressModeMirrorRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	default:
		return vk.SamplerAddressModeClampToEdge
	}
}

func VulkanTopology(topology hal.PrimitiveTopology) vk.PrimitiveTopology {
	switch topology {
	case hal.PrimitiveTopologyPointList:
		return vk.PrimitiveTopologyPointList
	case hal.PrimitiveTopologyLineList:
		return vk.PrimitiveTopologyLineList
	case hal.PrimitiveTopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case hal.PrimitiveTopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func VulkanCullMode(mode hal.CullMode) vk.CullModeFlags {
	switch mode {
	case hal.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case hal.CullModeBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	default:
		return vk.CullModeFlags(vk.CullModeNone)
	}
}

func VulkanIndexType(format hal.IndexFormat) vk.IndexType {
	if format == hal.IndexFormatUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func VulkanVertexFormat(format hal.VertexFormat) vk.Format {
	switch format {
	case hal.VertexFormatFloat32:
		return vk.FormatR32Sfloat
	case hal.VertexFormatFloat32x2:
		return vk.FormatR32g32Sfloat
	case hal.VertexFormatFloat32x3:
		return vk.FormatR32g32b32Sfloat
	default:
		return vk.FormatR32g32b32a32Sfloat
	}
}

func VulkanInputRate(mode hal.VertexStepMode) vk.VertexInputRate {
	if mode == hal.VertexStepModeInstance {
		return vk.VertexInputRateInstance
	}
	return vk.VertexInputRateVertex
}

func VulkanShaderStages(stages hal.ShaderStage) vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	if stages&hal.ShaderStageVertex != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if stages&hal.ShaderStageFragment != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	if stages&hal.ShaderStageCompute != 0 {
		flags |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	return flags
}

func VulkanDescriptorType(binding hal.BindingType) vk.DescriptorType {
	switch binding {
	case hal.BindingTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case hal.BindingTypeSampledTexture:
		return vk.DescriptorTypeSampledImage
	case hal.BindingTypeSampler:
		return vk.DescriptorTypeSampler
	case hal.BindingTypeCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}

func VulkanPresentMode(mode hal.PresentMode) vk.PresentMode {
	if mode == hal.PresentModeMailbox {
		return vk.PresentModeMailbox
	}
	return vk.PresentModeFifo
}
