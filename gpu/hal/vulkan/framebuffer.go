package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
)

// createFramebuffer wraps one color attachment for the given pass.
func (d *Device) createFramebuffer(pass vk.RenderPass, view vk.ImageView, width, height uint32) (vk.Framebuffer, error) {
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{view},
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(d.context.LogicalDevice, &framebufferCreateInfo, d.context.Allocator, &framebuffer); res != vk.Success {
		err := fmt.Errorf("failed to create framebuffer with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return vk.NullFramebuffer, err
	}
	return framebuffer, nil
}
