package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
)

type renderPassKey struct {
	format  vk.Format
	present bool
}

// renderPassFor returns a cached single-subpass color-only render pass
// for the given attachment format. Presentable passes end in the
// present layout, offscreen ones stay shader-readable. Layouts do not
// affect render pass compatibility, so pipelines built against either
// variant work with both.
func (d *Device) renderPassFor(format vk.Format, present bool) (vk.RenderPass, error) {
	key := renderPassKey{format: format, present: present}

	d.mu.Lock()
	if pass, ok := d.renderPasses[key]; ok {
		d.mu.Unlock()
		return pass, nil
	}
	d.mu.Unlock()

	finalLayout := vk.ImageLayoutShaderReadOnlyOptimal
	if present {
		finalLayout = vk.ImageLayoutPresentSrc
	}

	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    finalLayout,
	}

	colorAttachmentReference := []vk.AttachmentReference{
		{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pass vk.RenderPass
	if err := lockPool.SafeCall(RenderpassManagement, func() error {
		if res := vk.CreateRenderPass(d.context.LogicalDevice, &renderpassCreateInfo, d.context.Allocator, &pass); res != vk.Success {
			err := fmt.Errorf("failed to create render pass with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return vk.NullRenderPass, err
	}

	d.mu.Lock()
	// Another goroutine may have raced the creation. Keep the first.
	if existing, ok := d.renderPasses[key]; ok {
		d.mu.Unlock()
		vk.DestroyRenderPass(d.context.LogicalDevice, pass, d.context.Allocator)
		return existing, nil
	}
	d.renderPasses[key] = pass
	d.mu.Unlock()

	return pass, nil
}
