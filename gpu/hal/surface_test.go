package hal

import (
	"errors"
	"testing"

	"github.com/codeyousef/materia/gpu/core"
)

func TestFallbackAcquireIsDeterministic(t *testing.T) {
	instance, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if err := surface.Configure(device, SurfaceConfiguration{Width: 320, Height: 200}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	var view *TextureView
	for i := 0; i < 10; i++ {
		frame, err := surface.AcquireFrame()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if !frame.Fallback() {
			t.Fatalf("acquire %d: expected fallback frame", i)
		}
		if frame.View == nil || !frame.View.live() {
			t.Fatalf("acquire %d: expected a live view", i)
		}
		if view == nil {
			view = frame.View
		} else if frame.View != view {
			t.Errorf("acquire %d: expected the offscreen view to be reused", i)
		}
		surface.Present(frame)
	}
	w, h := view.Texture().Extent()
	if w != 320 || h != 200 {
		t.Errorf("expected fallback texture 320x200. Got %dx%d", w, h)
	}
}

func TestFallbackSubmitEndToEnd(t *testing.T) {
	instance, device, backend, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if err := surface.Configure(device, SurfaceConfiguration{Width: 64, Height: 64}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	frame, err := surface.AcquireFrame()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	enc, err := device.CreateCommandEncoder("fallback-frame")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: frame.View},
	})
	if err != nil {
		t.Fatalf("begin render pass: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("end pass: %v", err)
	}
	buf, err := enc.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := device.Queue().Submit(buf); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if backend.presents != 0 {
		t.Errorf("fallback frame must not trigger a present. Got %d", backend.presents)
	}
	surface.Present(frame)
}

func TestSwapchainFramePresentsOnSubmit(t *testing.T) {
	target := &fakeTarget{width: 800, height: 600}
	instance, device, backend, err := newTestDevice(target)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if err := surface.Configure(device, SurfaceConfiguration{}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	frame, err := surface.AcquireFrame()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if frame.Fallback() {
		t.Fatal("expected a swapchain frame with a target attached")
	}

	enc, err := device.CreateCommandEncoder("present-frame")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: frame.View, ClearColor: [4]float32{0, 0, 0, 1}},
	})
	if err != nil {
		t.Fatalf("begin render pass: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("end pass: %v", err)
	}
	buf, err := enc.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := device.Queue().Submit(buf); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if backend.presents != 1 {
		t.Errorf("expected 1 present after submit. Got %d", backend.presents)
	}
}

func TestOutstandingFramePoolRetiresOnce(t *testing.T) {
	target := &fakeTarget{width: 640, height: 480}
	instance, device, _, err := newTestDevice(target)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if err := surface.Configure(device, SurfaceConfiguration{}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	// Two frames outstanding against the 3-image swapchain.
	first, err := surface.AcquireFrame()
	if err != nil {
		t.Fatalf("acquire first: %v", err)
	}
	if _, err := surface.AcquireFrame(); err != nil {
		t.Fatalf("acquire second: %v", err)
	}

	// Fully retire the first frame: submit presents it, then the
	// caller's Present follows per the documented flow.
	enc, err := device.CreateCommandEncoder("first-frame")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: first.View},
	})
	if err != nil {
		t.Fatalf("begin render pass: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("end pass: %v", err)
	}
	buf, err := enc.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := device.Queue().Submit(buf); err != nil {
		t.Fatalf("submit: %v", err)
	}
	surface.Present(first)
	// A second Present of the same frame is likewise a no-op.
	surface.Present(first)

	// One slot came free, so exactly two more acquires fit.
	if _, err := surface.AcquireFrame(); err != nil {
		t.Fatalf("acquire after retirement: %v", err)
	}
	if _, err := surface.AcquireFrame(); err != nil {
		t.Fatalf("acquire filling the pool: %v", err)
	}
	if _, err := surface.AcquireFrame(); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("acquire beyond the image count: expected ErrEncoderMisuse. Got %v", err)
	}
}

func TestResizeInvalidatesOutstandingFrame(t *testing.T) {
	target := &fakeTarget{width: 800, height: 600}
	instance, device, _, err := newTestDevice(target)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if err := surface.Configure(device, SurfaceConfiguration{Width: 800, Height: 600}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	frame, err := surface.AcquireFrame()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	enc, err := device.CreateCommandEncoder("stale-frame")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: frame.View},
	})
	if err != nil {
		t.Fatalf("begin render pass: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("end pass: %v", err)
	}
	buf, err := enc.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	if err := surface.Resize(1024, 768); err != nil {
		t.Fatalf("resize: %v", err)
	}

	// The pre-resize frame must be rejected, not crash.
	if err := device.Queue().Submit(buf); !errors.Is(err, core.ErrSwapchainOutOfDate) {
		t.Errorf("stale frame submit: expected ErrSwapchainOutOfDate. Got %v", err)
	}

	// A fresh frame under the new configuration goes through.
	fresh, err := surface.AcquireFrame()
	if err != nil {
		t.Fatalf("acquire after resize: %v", err)
	}
	enc2, err := device.CreateCommandEncoder("fresh-frame")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pass2, err := enc2.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: fresh.View},
	})
	if err != nil {
		t.Fatalf("begin render pass: %v", err)
	}
	if err := pass2.End(); err != nil {
		t.Fatalf("end pass: %v", err)
	}
	buf2, err := enc2.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := device.Queue().Submit(buf2); err != nil {
		t.Errorf("fresh frame submit: %v", err)
	}
}

func TestAcquireOutOfDateInvalidatesSwapchain(t *testing.T) {
	target := &fakeTarget{width: 800, height: 600}
	instance, device, backend, err := newTestDevice(target)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if err := surface.Configure(device, SurfaceConfiguration{}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	backend.acquireOutOfDate = true
	if _, err := surface.AcquireFrame(); !errors.Is(err, core.ErrSwapchainOutOfDate) {
		t.Fatalf("expected ErrSwapchainOutOfDate. Got %v", err)
	}

	// Reconfigure-and-retry is the documented recovery.
	backend.acquireOutOfDate = false
	if err := surface.Configure(device, SurfaceConfiguration{}); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if _, err := surface.AcquireFrame(); err != nil {
		t.Errorf("acquire after reconfigure: %v", err)
	}
}

func TestSurfaceFormat(t *testing.T) {
	instance, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if err := surface.Configure(device, SurfaceConfiguration{Width: 32, Height: 32}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if got := surface.Format(); got != TextureFormatBGRA8Unorm {
		t.Errorf("expected the default format headless. Got %s", got)
	}

	windowed, dev2, _, err := newTestDevice(&fakeTarget{width: 64, height: 64})
	if err != nil {
		t.Fatalf("windowed setup failed: %v", err)
	}
	defer dev2.Destroy()
	s2 := windowed.CreateSurface()
	if err := s2.Configure(dev2, SurfaceConfiguration{}); err != nil {
		t.Fatalf("configure windowed: %v", err)
	}
	if got := s2.Format(); got != TextureFormatBGRA8Unorm {
		t.Errorf("expected the swapchain's format. Got %s", got)
	}
}

func TestAcquireBeforeConfigureFails(t *testing.T) {
	instance, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	surface := instance.CreateSurface()
	if _, err := surface.AcquireFrame(); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("expected ErrEncoderMisuse before configure. Got %v", err)
	}
}
