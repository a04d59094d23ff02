// Package demo renders the reference scene: a tinted triangle and a
// textured quad, drawn every frame through the full acquire, encode,
// submit, present cycle. It exists to exercise the whole device API
// the way a material system would.
package demo

import (
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"strings"

	"github.com/codeyousef/materia/gpu/assets"
	"github.com/codeyousef/materia/gpu/config"
	"github.com/codeyousef/materia/gpu/core"
	"github.com/codeyousef/materia/gpu/hal"
	"github.com/codeyousef/materia/gpu/hal/vulkan"
	"github.com/codeyousef/materia/gpu/platform"
)

// headlessFrameCount is how many frames the offscreen path renders
// before exiting.
const headlessFrameCount = 60

// Run boots the platform (unless headless), brings up the driver and
// renders the scene until the window closes or the headless frame
// budget runs out.
func Run(cfg *config.Config) error {
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	var plat *platform.Platform
	if !cfg.Headless {
		p, err := platform.New()
		if err != nil {
			return err
		}
		if err := p.Startup(cfg.AppName, 100, 100, cfg.Width, cfg.Height, cfg.Resizable); err != nil {
			return err
		}
		if !p.VulkanSupported() {
			p.Shutdown()
			err := errors.New("no vulkan loader found")
			core.LogError(err.Error())
			return err
		}
		plat = p
		defer plat.Shutdown()
	}

	var target hal.PlatformTarget
	if plat != nil {
		target = plat
	}
	instance, err := hal.CreateInstance(vulkan.New(), hal.InstanceOptions{
		AppName:          cfg.AppName,
		EnableValidation: cfg.EnableValidation,
		Target:           target,
	})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	adapter, err := instance.RequestAdapter(hal.AdapterOptions{RequirePresent: plat != nil}).Resolve()
	if err != nil {
		return err
	}
	device, err := adapter.RequestDevice().Resolve()
	if err != nil {
		return err
	}

	surface := instance.CreateSurface()
	if err := surface.Configure(device, hal.SurfaceConfiguration{
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: parsePresentMode(cfg.PresentMode),
	}); err != nil {
		return err
	}
	if plat != nil {
		plat.SetResizeHandler(func(width, height uint32) {
			if width == 0 || height == 0 {
				return
			}
			if err := surface.Resize(width, height); err != nil {
				core.LogWarn("resize to %dx%d: %s", width, height, err)
			}
		})
	}

	library := assets.NewShaderLibrary(cfg.ShaderDir)
	if cfg.WatchShaders {
		watcher, err := assets.NewWatcher(cfg.ShaderDir, func(path string) {
			if !strings.HasSuffix(path, ".spv") {
				return
			}
			library.Invalidate(path)
			label := strings.TrimSuffix(filepath.Base(path), ".spv")
			core.LogInfo("shader %q bumped to version %d", label, library.Version(label))
		})
		if err != nil {
			core.LogWarn("shader watching disabled: %s", err)
		} else {
			defer watcher.Close()
		}
	}

	scn, err := newScene(device, library, surface.Format(), cfg.AssetsDir)
	if err != nil {
		return err
	}

	return frameLoop(plat, device, surface, scn)
}

func frameLoop(plat *platform.Platform, device *hal.Device, surface *hal.Surface, scn *scene) error {
	clock := core.NewClock()
	clock.Start()
	last := 0.0
	var rendered uint64

	for {
		if plat != nil {
			if !plat.PumpMessages() {
				break
			}
		} else if rendered >= headlessFrameCount {
			core.LogInfo("headless run complete after %d frames", rendered)
			break
		}

		clock.Update()
		now := clock.Elapsed()
		core.MetricsUpdate(now - last)
		last = now

		scn.reloadShaders()

		pulse := 0.5 + 0.5*float32(math.Sin(now*2))
		if err := scn.tint.Write(packFloats(pulse, 1-pulse, 0.8, 1), 0); err != nil {
			return err
		}

		frame, err := surface.AcquireFrame()
		if err != nil {
			if errors.Is(err, core.ErrSwapchainOutOfDate) {
				if err := recoverSurface(plat, surface); err != nil {
					return err
				}
				continue
			}
			return err
		}

		buf, err := recordFrame(device, scn, frame)
		if err != nil {
			return err
		}
		if err := device.Queue().Submit(buf); err != nil {
			if errors.Is(err, core.ErrSwapchainOutOfDate) {
				if err := recoverSurface(plat, surface); err != nil {
					return err
				}
				continue
			}
			return err
		}
		surface.Present(frame)
		rendered++

		if rendered%240 == 0 {
			fps, avg := core.MetricsFrame()
			core.LogDebug("%.0f fps, %.2f ms avg frame", fps, avg)
		}
	}

	return device.WaitIdle()
}

// recoverSurface reconfigures after an out-of-date signal. A minimized
// window reports a 0x0 framebuffer, so wait until it has pixels again.
func recoverSurface(plat *platform.Platform, surface *hal.Surface) error {
	if plat == nil {
		return nil
	}
	width, height := plat.FramebufferSize()
	for width == 0 || height == 0 {
		plat.WaitEvents()
		if !plat.PumpMessages() {
			return nil
		}
		width, height = plat.FramebufferSize()
	}
	return surface.Resize(width, height)
}

func recordFrame(device *hal.Device, scn *scene, frame *hal.Frame) (*hal.CommandBuffer, error) {
	encoder, err := device.CreateCommandEncoder("scene-frame")
	if err != nil {
		return nil, err
	}
	pass, err := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "scene-pass",
		ColorAttachment: hal.RenderPassColorAttachment{
			View:       frame.View,
			ClearColor: [4]float32{0.05, 0.05, 0.08, 1},
		},
	})
	if err != nil {
		encoder.Destroy()
		return nil, err
	}
	if err := scn.record(pass); err != nil {
		encoder.Destroy()
		return nil, err
	}
	if err := pass.End(); err != nil {
		encoder.Destroy()
		return nil, err
	}
	return encoder.Finish()
}

func parsePresentMode(mode string) hal.PresentMode {
	if mode == "mailbox" {
		return hal.PresentModeMailbox
	}
	return hal.PresentModeFifo
}

// packFloats serializes values in the little-endian layout vertex and
// uniform buffers expect.
func packFloats(values ...float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func packIndices(values ...uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}
