package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

type Sampler struct {
	context *VulkanContext
	handle  vk.Sampler
}

func (d *Device) CreateSampler(desc *hal.SamplerDescriptor) (hal.BackendSampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        VulkanFilter(desc.MagFilter),
		MinFilter:        VulkanFilter(desc.MinFilter),
		AddressModeU:     VulkanAddressMode(desc.AddressModeU),
		AddressModeV:     VulkanAddressMode(desc.AddressModeV),
		AddressModeW:     VulkanAddressMode(desc.AddressModeW),
		MipmapMode:       vk.SamplerMipmapModeLinear,
		MaxLod:           vk.LodClampNone,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		CompareOp:        vk.CompareOpAlways,
		AnisotropyEnable: vk.False,
	}
	if d.context.Features.SamplerAnisotropy == vk.True {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = 16
	}

	var handle vk.Sampler
	if err := lockPool.SafeCall(SamplerManagement, func() error {
		if res := vk.CreateSampler(d.context.LogicalDevice, &samplerInfo, d.context.Allocator, &handle); res != vk.Success {
			err := fmt.Errorf("failed to create sampler with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create sampler", desc.Label)
	}
	return &Sampler{context: d.context, handle: handle}, nil
}

func (s *Sampler) Destroy() {
	if s.handle != vk.NullSampler {
		vk.DestroySampler(s.context.LogicalDevice, s.handle, s.context.Allocator)
		s.handle = vk.NullSampler
	}
}
