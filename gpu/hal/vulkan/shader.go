package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

type ShaderModule struct {
	context *VulkanContext
	handle  vk.ShaderModule
}

func (d *Device) CreateShaderModule(label string, words []uint32) (hal.BackendShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(words)) * 4,
		PCode:    words,
	}

	var handle vk.ShaderModule
	if err := lockPool.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(d.context.LogicalDevice, &createInfo, d.context.Allocator, &handle); res != vk.Success {
			err := fmt.Errorf("failed to create shader module with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create shader module", label)
	}
	return &ShaderModule{context: d.context, handle: handle}, nil
}

func (m *ShaderModule) Destroy() {
	if m.handle != vk.NullShaderModule {
		vk.DestroyShaderModule(m.context.LogicalDevice, m.handle, m.context.Allocator)
		m.handle = vk.NullShaderModule
	}
}
