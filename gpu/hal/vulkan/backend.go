package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
)

// SurfaceSource is the windowing contract the driver needs from a
// platform target to present on screen. gpu/platform.Platform
// implements it.
type SurfaceSource interface {
	hal.PlatformTarget
	GetVulkanGetInstanceProcAddress() unsafe.Pointer
	GetRequiredInstanceExtensions() []string
	CreateVulkanSurface(instance interface{}) (uintptr, error)
}

// Backend drives a Vulkan implementation of the portable GPU layer.
type Backend struct {
	context *VulkanContext
	source  SurfaceSource
	debug   bool
}

func New() *Backend {
	return &Backend{
		context: &VulkanContext{
			Allocator:          nil,
			GraphicsQueueIndex: -1,
			PresentQueueIndex:  -1,
		},
	}
}

func (b *Backend) Init(opts hal.InstanceOptions) error {
	if opts.Target != nil {
		source, ok := opts.Target.(SurfaceSource)
		if !ok {
			err := fmt.Errorf("target %T cannot produce a vulkan surface", opts.Target)
			core.LogError(err.Error())
			return err
		}
		b.source = source
	}
	b.debug = opts.EnableValidation

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if b.source != nil {
		procAddr = b.source.GetVulkanGetInstanceProcAddress()
	}
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(opts.AppName),
		PEngineName:        VulkanSafeString("Materia"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	if b.source != nil {
		requiredExtensions = append(requiredExtensions, b.source.GetRequiredInstanceExtensions()...)
	}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if b.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogDebug("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogDebug(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	validationLayers := []string{}
	if b.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			err := fmt.Errorf("failed to enumerate instance layers with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			err := fmt.Errorf("failed to enumerate instance layers with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}

		for i := range validationLayers {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				zero := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if validationLayers[i] == vk.ToString(availableLayers[j].LayerName[:zero+1]) {
					found = true
					break
				}
			}
			if !found {
				core.LogWarn("Validation layer missing: %s, continuing without it.", validationLayers[i])
				validationLayers = nil
				break
			}
		}
	}

	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if err := lockPool.SafeCall(InstanceManagement, func() error {
		if res := vk.CreateInstance(&createInfo, b.context.Allocator, &b.context.Instance); res != vk.Success {
			err := fmt.Errorf("failed to create the vulkan instance with %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		return nil
	}); err != nil {
		return err
	}
	if err := vk.InitInstance(b.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if b.debug && len(validationLayers) > 0 {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(b.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
			core.LogWarn("CreateDebugReportCallback failed with %s, continuing without it.", VulkanResultString(res))
		} else {
			b.context.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}

	if b.source != nil {
		surface, err := b.source.CreateVulkanSurface(b.context.Instance)
		if err != nil {
			core.LogError("failed to create platform surface: %s", err)
			return err
		}
		b.context.Surface = vk.SurfaceFromPointer(surface)
		core.LogDebug("Vulkan surface created.")
	}

	return nil
}

func (b *Backend) RequestAdapter(opts hal.AdapterOptions) (hal.BackendAdapter, error) {
	requirePresent := opts.RequirePresent && b.context.Surface != vk.NullSurface

	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(b.context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support vulkan were found")
		core.LogError(err.Error())
		return nil, err
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(b.context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	var fallback *Adapter
	for i := 0; i < int(physicalDeviceCount); i++ {
		adapter, ok := b.evaluatePhysicalDevice(physicalDevices[i], requirePresent)
		if !ok {
			continue
		}
		if adapter.properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			logAdapter(adapter)
			return adapter, nil
		}
		if fallback == nil {
			fallback = adapter
		}
	}
	if fallback != nil {
		logAdapter(fallback)
		return fallback, nil
	}

	err := fmt.Errorf("no physical device meets the requirements")
	core.LogError(err.Error())
	return nil, err
}

func (b *Backend) evaluatePhysicalDevice(device vk.PhysicalDevice, requirePresent bool) (*Adapter, bool) {
	properties := vk.PhysicalDeviceProperties{}
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()

	features := vk.PhysicalDeviceFeatures{}
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	graphicsIndex := int32(-1)
	presentIndex := int32(-1)
	for i := 0; i < int(queueFamilyCount); i++ {
		queueFamilies[i].Deref()
		if graphicsIndex < 0 && vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit > 0 {
			graphicsIndex = int32(i)
		}
		if b.context.Surface != vk.NullSurface {
			var supportsPresent vk.Bool32 = vk.False
			if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), b.context.Surface, &supportsPresent); res != vk.Success {
				continue
			}
			if presentIndex < 0 && supportsPresent == vk.True {
				presentIndex = int32(i)
			}
		}
	}

	if graphicsIndex < 0 {
		return nil, false
	}
	if requirePresent && presentIndex < 0 {
		return nil, false
	}

	return &Adapter{
		backend:            b,
		physicalDevice:     device,
		properties:         properties,
		features:           features,
		graphicsQueueIndex: graphicsIndex,
		presentQueueIndex:  presentIndex,
	}, true
}

func logAdapter(adapter *Adapter) {
	core.LogInfo("Selected device: '%s'.", vk.ToString(adapter.properties.DeviceName[:]))
	switch adapter.properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version.Major(vk.Version(adapter.properties.DriverVersion)),
		vk.Version.Minor(vk.Version(adapter.properties.DriverVersion)),
		vk.Version.Patch(vk.Version(adapter.properties.DriverVersion)),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(adapter.properties.ApiVersion)),
		vk.Version.Minor(vk.Version(adapter.properties.ApiVersion)),
		vk.Version.Patch(vk.Version(adapter.properties.ApiVersion)),
	)
}

func (b *Backend) Shutdown() {
	if b.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(b.context.Instance, b.context.debugMessenger, b.context.Allocator)
		b.context.debugMessenger = vk.NullDebugReportCallback
	}
	if b.context.Surface != vk.NullSurface {
		vk.DestroySurface(b.context.Instance, b.context.Surface, b.context.Allocator)
		b.context.Surface = vk.NullSurface
	}
	if b.context.Instance != nil {
		vk.DestroyInstance(b.context.Instance, b.context.Allocator)
		b.context.Instance = nil
	}
	core.LogInfo("Vulkan backend shut down.")
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogDebug("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.False
}
