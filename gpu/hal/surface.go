package hal

import (
	"errors"
	"fmt"
	"sync"

	"github.com/codeyousef/materia/gpu/containers"
	"github.com/codeyousef/materia/gpu/core"
)

// Frame is one acquired presentable image. Swapchain frames carry the
// image index and the surface generation they were acquired under; a
// frame from the offscreen fallback presents as a no-op.
type Frame struct {
	Texture    *Texture
	View       *TextureView
	ImageIndex uint32

	surface    *Surface
	swapchain  BackendSwapchain
	generation uint64
	fallback   bool
	// retired flips once the frame's outstanding slot has been
	// released, whichever of submit or Present got there first.
	retired bool
}

// Fallback reports whether the frame came from the offscreen texture
// rather than a swapchain.
func (f *Frame) Fallback() bool { return f.fallback }

// Surface binds a platform target to a device. With a target attached
// it owns at most one live swapchain; without one it serves frames from
// a lazily-created offscreen texture, which never goes out of date.
type Surface struct {
	mu     sync.Mutex
	target PlatformTarget

	device     *Device
	config     SurfaceConfiguration
	configured bool

	swapchain   BackendSwapchain
	generation  uint64
	outstanding *containers.RingQueue[uint32]

	fallbackTexture *Texture
	fallbackView    *TextureView
}

// CreateSurface binds the instance's platform target (possibly nil) to
// a new surface. Configure must be called before frames are acquired.
func (in *Instance) CreateSurface() *Surface {
	s := &Surface{target: in.target}
	in.trackSurface(s)
	return s
}

// Configure stores the device and configuration, then (re)creates the
// swapchain when a target is attached. A zero configured size falls
// back to the target's current framebuffer size. Without a target the
// call only records the descriptor; frames come from the fallback
// texture.
func (s *Surface) Configure(device *Device, config SurfaceConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configureLocked(device, config)
}

func (s *Surface) configureLocked(device *Device, config SurfaceConfiguration) error {
	if device == nil {
		err := core.WrapError(core.ErrResourceCreationFailed, "configure surface: nil device", "")
		core.LogError(err.Error())
		return err
	}
	if config.Format == TextureFormatUndefined {
		config.Format = TextureFormatBGRA8Unorm
	}

	s.device = device
	s.config = config
	s.configured = true
	// Frames acquired under the previous configuration are now stale.
	s.generation++

	if s.target == nil {
		s.dropFallbackLocked()
		core.LogDebug("surface configured headless at %dx%d", config.Width, config.Height)
		return nil
	}

	width, height := config.Width, config.Height
	if width == 0 || height == 0 {
		width, height = s.target.FramebufferSize()
	}
	if s.swapchain != nil {
		s.swapchain.Destroy()
		s.swapchain = nil
	}
	sc, err := device.backend.CreateSwapchain(&SwapchainConfig{
		Width:       width,
		Height:      height,
		PresentMode: config.PresentMode,
	})
	if err != nil {
		err = fmt.Errorf("configure surface: %w", err)
		core.LogError(err.Error())
		return err
	}
	s.swapchain = sc
	s.outstanding = containers.NewRingQueue[uint32](int(sc.ImageCount()))
	w, h := sc.Extent()
	s.config.Width, s.config.Height = w, h
	core.LogInfo("surface configured: %dx%d, %d images, format %s", w, h, sc.ImageCount(), sc.Format())
	return nil
}

// Format reports the pixel format frames are served in: the
// swapchain's negotiated format when one is live, the configured
// format otherwise.
func (s *Surface) Format() TextureFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.swapchain != nil {
		return s.swapchain.Format()
	}
	if s.config.Format == TextureFormatUndefined {
		return TextureFormatBGRA8Unorm
	}
	return s.config.Format
}

// AcquireFrame returns the next presentable frame. On the swapchain
// path an out-of-date signal invalidates the swapchain and surfaces
// ErrSwapchainOutOfDate so the caller reconfigures; the fallback path
// never fails for presentation reasons.
func (s *Surface) AcquireFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configured {
		err := core.WrapError(core.ErrEncoderMisuse, "acquire frame: surface not configured", "")
		core.LogError(err.Error())
		return nil, err
	}
	if s.swapchain != nil {
		return s.acquireSwapchainLocked()
	}
	return s.acquireFallbackLocked()
}

func (s *Surface) acquireSwapchainLocked() (*Frame, error) {
	if s.outstanding.IsFull() {
		err := core.WrapError(core.ErrEncoderMisuse,
			fmt.Sprintf("acquire frame: %d frames already outstanding", s.outstanding.Len()), "")
		core.LogError(err.Error())
		return nil, err
	}
	index, btex, bview, err := s.swapchain.Acquire()
	if err != nil {
		if isOutOfDate(err) {
			// The swapchain is unusable until the caller reconfigures.
			s.swapchain.Destroy()
			s.swapchain = nil
			s.generation++
			core.LogWarn("swapchain out of date, surface needs reconfiguration")
		}
		return nil, err
	}
	if err := s.outstanding.Enqueue(index); err != nil {
		return nil, err
	}

	w, h := s.swapchain.Extent()
	tex := &Texture{
		label: fmt.Sprintf("swapchain-image-%d", index),
		desc: TextureDescriptor{
			Width:         w,
			Height:        h,
			Format:        s.swapchain.Format(),
			MipLevelCount: 1,
			SampleCount:   1,
			Usage:         TextureUsageRenderAttachment,
		},
		backend:  btex,
		registry: &s.device.registry,
		slot:     core.InvalidID,
	}
	frame := &Frame{
		Texture:    tex,
		ImageIndex: index,
		surface:    s,
		swapchain:  s.swapchain,
		generation: s.generation,
	}
	frame.View = &TextureView{
		label:    tex.label + "-view",
		texture:  tex,
		desc:     TextureViewDescriptor{Format: tex.desc.Format, MipLevels: 1, Layers: 1},
		backend:  bview,
		registry: &s.device.registry,
		slot:     core.InvalidID,
		frame:    frame,
	}
	return frame, nil
}

func (s *Surface) acquireFallbackLocked() (*Frame, error) {
	width, height := s.config.Width, s.config.Height
	if width == 0 || height == 0 {
		width, height = 1, 1
	}
	if s.fallbackTexture != nil {
		w, h := s.fallbackTexture.Extent()
		if w != width || h != height {
			s.dropFallbackLocked()
		}
	}
	if s.fallbackTexture == nil {
		tex, err := s.device.CreateTexture(&TextureDescriptor{
			Label:  "surface-fallback",
			Width:  width,
			Height: height,
			Format: s.config.Format,
			Usage:  TextureUsageRenderAttachment | TextureUsageCopySrc | TextureUsageSampled,
		})
		if err != nil {
			return nil, err
		}
		view, err := tex.CreateView(&TextureViewDescriptor{Label: "surface-fallback-view"})
		if err != nil {
			tex.Destroy()
			return nil, err
		}
		s.fallbackTexture = tex
		s.fallbackView = view
	}
	frame := &Frame{
		Texture:    s.fallbackTexture,
		surface:    s,
		generation: s.generation,
		fallback:   true,
	}
	// The fallback view is shared across frames; tag it so render
	// passes see where it came from without registering a present.
	s.fallbackView.frame = frame
	frame.View = s.fallbackView
	return frame, nil
}

// Present releases CPU-side bookkeeping for the frame. The actual
// platform present rides the Queue.Submit that carried the frame's
// swapchain state; for fallback frames this is a no-op. A frame whose
// submit already retired its slot is left alone, so the documented
// submit-then-Present flow frees exactly one slot.
func (s *Surface) Present(frame *Frame) {
	if frame == nil || frame.fallback {
		return
	}
	s.retire(frame)
}

// framePresented retires the frame's outstanding slot after a
// submit-driven present.
func (s *Surface) framePresented(frame *Frame) {
	if frame == nil {
		return
	}
	s.retire(frame)
}

// retire frees the frame's slot in the outstanding pool exactly once.
func (s *Surface) retire(frame *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frame.retired {
		return
	}
	frame.retired = true
	if frame.generation != s.generation {
		// Stale frame from before a reconfiguration; its pool is gone.
		return
	}
	if s.outstanding == nil || s.outstanding.IsEmpty() {
		return
	}
	index, err := s.outstanding.Dequeue()
	if err != nil {
		core.LogWarn("present bookkeeping: %s", err)
		return
	}
	if index != frame.ImageIndex {
		core.LogWarn("present bookkeeping: retired image %d, pool head was %d", frame.ImageIndex, index)
	}
}

// frameCurrent reports whether a frame acquired under generation is
// still valid for submission.
func (s *Surface) frameCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured && generation == s.generation
}

// Resize re-runs Configure with the stored device and configuration at
// the new size. Frames acquired before the resize are invalid and are
// rejected at submit.
func (s *Surface) Resize(width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configured {
		err := core.WrapError(core.ErrEncoderMisuse, "resize: surface not configured", "")
		core.LogError(err.Error())
		return err
	}
	config := s.config
	config.Width = width
	config.Height = height
	core.LogDebug("surface resize to %dx%d", width, height)
	return s.configureLocked(s.device, config)
}

// teardown destroys the swapchain and fallback resources. Called from
// Instance.Destroy before devices go down.
func (s *Surface) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.swapchain != nil {
		s.swapchain.Destroy()
		s.swapchain = nil
	}
	s.dropFallbackLocked()
	s.configured = false
	s.device = nil
}

func (s *Surface) dropFallbackLocked() {
	if s.fallbackView != nil {
		s.fallbackView.frame = nil
		s.fallbackView.Destroy()
		s.fallbackView = nil
	}
	if s.fallbackTexture != nil {
		s.fallbackTexture.Destroy()
		s.fallbackTexture = nil
	}
}

func isOutOfDate(err error) bool {
	return errors.Is(err, core.ErrSwapchainOutOfDate)
}
