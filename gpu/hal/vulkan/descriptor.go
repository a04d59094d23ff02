package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

type BindGroupLayout struct {
	context *VulkanContext
	handle  vk.DescriptorSetLayout
}

func (d *Device) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BackendBindGroupLayout, error) {
	bindings := make([]vk.DescriptorSetLayoutBinding, len(desc.Entries))
	for i, entry := range desc.Entries {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         entry.Binding,
			DescriptorType:  VulkanDescriptorType(entry.Type),
			DescriptorCount: 1,
			StageFlags:      VulkanShaderStages(entry.Visibility),
		}
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var handle vk.DescriptorSetLayout
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(d.context.LogicalDevice, &layoutInfo, d.context.Allocator, &handle); res != vk.Success {
			err := fmt.Errorf("failed to create descriptor set layout with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create bind group layout", desc.Label)
	}
	return &BindGroupLayout{context: d.context, handle: handle}, nil
}

func (l *BindGroupLayout) Destroy() {
	if l.handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(l.context.LogicalDevice, l.handle, l.context.Allocator)
		l.handle = vk.NullDescriptorSetLayout
	}
}

type BindGroup struct {
	context *VulkanContext
	handle  vk.DescriptorSet
}

func (d *Device) CreateBindGroup(layout hal.BackendBindGroupLayout, bindings []hal.BackendBinding) (hal.BackendBindGroup, error) {
	setLayout, ok := layout.(*BindGroupLayout)
	if !ok {
		err := fmt.Errorf("foreign bind group layout %T", layout)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.context.DescriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{setLayout.handle},
	}

	sets := make([]vk.DescriptorSet, 1)
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(d.context.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
			err := fmt.Errorf("failed to allocate descriptor set with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create bind group", "")
	}
	set := sets[0]

	writes := make([]vk.WriteDescriptorSet, 0, len(bindings))
	for _, binding := range bindings {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      binding.Binding,
			DescriptorCount: 1,
			DescriptorType:  VulkanDescriptorType(binding.Type),
		}
		switch binding.Type {
		case hal.BindingTypeUniformBuffer, hal.BindingTypeStorageBuffer:
			buffer := binding.Buffer.(*Buffer)
			bufferInfo := vk.DescriptorBufferInfo{
				Buffer: buffer.handle,
				Offset: vk.DeviceSize(binding.Offset),
				Range:  vk.DeviceSize(binding.Size),
			}
			if binding.Size == 0 {
				bufferInfo.Range = vk.DeviceSize(vk.WholeSize)
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{bufferInfo}
		case hal.BindingTypeSampledTexture:
			view := binding.View.(*TextureView)
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   view.handle,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		case hal.BindingTypeSampler:
			sampler := binding.Sampler.(*Sampler)
			write.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler: sampler.handle,
			}}
		case hal.BindingTypeCombinedImageSampler:
			view := binding.View.(*TextureView)
			sampler := binding.Sampler.(*Sampler)
			write.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     sampler.handle,
				ImageView:   view.handle,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		}
		writes = append(writes, write)
	}

	vk.UpdateDescriptorSets(d.context.LogicalDevice, uint32(len(writes)), writes, 0, nil)

	return &BindGroup{context: d.context, handle: set}, nil
}

func (g *BindGroup) Destroy() {
	if g.handle != vk.NullDescriptorSet {
		vk.FreeDescriptorSets(g.context.LogicalDevice, g.context.DescriptorPool, 1, &g.handle)
		g.handle = vk.NullDescriptorSet
	}
}
