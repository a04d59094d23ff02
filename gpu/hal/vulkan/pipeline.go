package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

type RenderPipeline struct {
	context *VulkanContext
	handle  vk.Pipeline
	layout  vk.PipelineLayout
}

type ComputePipeline struct {
	context *VulkanContext
	handle  vk.Pipeline
	layout  vk.PipelineLayout
}

func (d *Device) createPipelineLayout(layouts []hal.BackendBindGroupLayout) (vk.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(layouts))
	for i, layout := range layouts {
		backend, ok := layout.(*BindGroupLayout)
		if !ok {
			err := fmt.Errorf("foreign bind group layout %T", layout)
			core.LogError(err.Error())
			return vk.NullPipelineLayout, err
		}
		setLayouts[i] = backend.handle
	}

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	var layout vk.PipelineLayout
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreatePipelineLayout(d.context.LogicalDevice, &layoutCreateInfo, d.context.Allocator, &layout)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(result))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return vk.NullPipelineLayout, err
	}
	return layout, nil
}

func (d *Device) CreateRenderPipeline(state *hal.RenderPipelineState) (hal.BackendRenderPipeline, error) {
	vertex, ok := state.Vertex.(*ShaderModule)
	if !ok {
		return nil, fmt.Errorf("foreign vertex module %T", state.Vertex)
	}
	fragment, ok := state.Fragment.(*ShaderModule)
	if !ok {
		return nil, fmt.Errorf("foreign fragment module %T", state.Fragment)
	}

	layout, err := d.createPipelineLayout(state.Layouts)
	if err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create pipeline layout", state.Label)
	}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertex.handle,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragment.handle,
			PName:  VulkanSafeString("main"),
		},
	}

	// Vertex input
	bindingDescriptions := make([]vk.VertexInputBindingDescription, len(state.VertexBuffers))
	attributeDescriptions := []vk.VertexInputAttributeDescription{}
	for i, buffer := range state.VertexBuffers {
		bindingDescriptions[i] = vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    buffer.ArrayStride,
			InputRate: VulkanInputRate(buffer.StepMode),
		}
		for _, attr := range buffer.Attributes {
			attributeDescriptions = append(attributeDescriptions, vk.VertexInputAttributeDescription{
				Location: attr.ShaderLocation,
				Binding:  uint32(i),
				Format:   VulkanVertexFormat(attr.Format),
				Offset:   attr.Offset,
			})
		}
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               VulkanTopology(state.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are dynamic so one pipeline serves any
	// framebuffer size.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                VulkanCullMode(state.CullMode),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if state.BlendEnabled {
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.ColorBlendOp = vk.BlendOpAdd
		colorBlendAttachmentState.SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.AlphaBlendOp = vk.BlendOpAdd
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	renderPass, err := d.renderPassFor(VulkanFormat(state.ColorFormat), false)
	if err != nil {
		vk.DestroyPipelineLayout(d.context.LogicalDevice, layout, d.context.Allocator)
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create render pass", state.Label)
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(
			d.context.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			d.context.Allocator,
			pipelines)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(result))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		vk.DestroyPipelineLayout(d.context.LogicalDevice, layout, d.context.Allocator)
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create render pipeline", state.Label)
	}

	core.LogDebug("Graphics pipeline created!")
	return &RenderPipeline{context: d.context, handle: pipelines[0], layout: layout}, nil
}

func (p *RenderPipeline) Destroy() {
	if p.handle != vk.NullPipeline {
		vk.DestroyPipeline(p.context.LogicalDevice, p.handle, p.context.Allocator)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.context.LogicalDevice, p.layout, p.context.Allocator)
		p.layout = vk.NullPipelineLayout
	}
}

func (d *Device) CreateComputePipeline(state *hal.ComputePipelineState) (hal.BackendComputePipeline, error) {
	module, ok := state.Module.(*ShaderModule)
	if !ok {
		return nil, fmt.Errorf("foreign compute module %T", state.Module)
	}

	layout, err := d.createPipelineLayout(state.Layouts)
	if err != nil {
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create pipeline layout", state.Label)
	}

	pipelineCreateInfo := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: module.handle,
			PName:  VulkanSafeString("main"),
		},
		Layout:             layout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateComputePipelines(
			d.context.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.ComputePipelineCreateInfo{pipelineCreateInfo},
			d.context.Allocator,
			pipelines)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vkCreateComputePipelines failed with %s", VulkanResultString(result))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		vk.DestroyPipelineLayout(d.context.LogicalDevice, layout, d.context.Allocator)
		return nil, core.WrapError(core.ErrResourceCreationFailed, "create compute pipeline", state.Label)
	}

	core.LogDebug("Compute pipeline created!")
	return &ComputePipeline{context: d.context, handle: pipelines[0], layout: layout}, nil
}

func (p *ComputePipeline) Destroy() {
	if p.handle != vk.NullPipeline {
		vk.DestroyPipeline(p.context.LogicalDevice, p.handle, p.context.Allocator)
		p.handle = vk.NullPipeline
	}
	if p.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(p.context.LogicalDevice, p.layout, p.context.Allocator)
		p.layout = vk.NullPipelineLayout
	}
}
