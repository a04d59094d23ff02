package platform

import (
	"runtime"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/codeyousef/materia/gpu/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// ResizeHandler receives the new framebuffer size in pixels. A size of
// 0x0 means the window is minimized.
type ResizeHandler func(width, height uint32)

type Platform struct {
	Window   *glfw.Window
	onResize ResizeHandler
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32, resizable bool) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	if resizable {
		glfw.WindowHint(glfw.Resizable, glfw.True)
	} else {
		glfw.WindowHint(glfw.Resizable, glfw.False)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})
	p.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		if p.onResize != nil {
			p.onResize(uint32(width), uint32(height))
		}
	})
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

// SetResizeHandler installs the callback invoked on framebuffer size
// changes. Only one handler is kept.
func (p *Platform) SetResizeHandler(fn ResizeHandler) {
	p.onResize = fn
}

// PumpMessages processes pending window events. It returns false once
// the window wants to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitEvents blocks briefly for new events. Used while minimized so the
// loop does not spin.
func (p *Platform) WaitEvents() {
	glfw.WaitEventsTimeout(0.01)
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// VulkanSupported reports whether a Vulkan loader was found.
func (p *Platform) VulkanSupported() bool {
	return glfw.VulkanSupported()
}

// GetVulkanGetInstanceProcAddress hands the loader entry point to the
// Vulkan bindings.
func (p *Platform) GetVulkanGetInstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// GetRequiredInstanceExtensions lists the instance extensions the
// windowing system needs for surface creation.
func (p *Platform) GetRequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateVulkanSurface creates a window surface for the given VkInstance
// and returns the raw handle.
func (p *Platform) CreateVulkanSurface(instance interface{}) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, nil)
}

// FramebufferSize returns the current framebuffer size in pixels.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// GetAbsoluteTime returns seconds since glfw initialization.
func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

// Sleep gives time back to the OS between frames.
func (p *Platform) Sleep(ms float64) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
