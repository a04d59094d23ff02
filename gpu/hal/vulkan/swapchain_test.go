package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/codeyousef/materia/gpu/hal"
)

func TestChooseSurfaceFormatPrefersBGRA8Srgb(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	chosen := chooseSurfaceFormat(formats)
	if chosen.Format != vk.FormatB8g8r8a8Unorm {
		t.Errorf("expected BGRA8 to win. Got %v", chosen.Format)
	}
}

func TestChooseSurfaceFormatFallsBackToFirst(t *testing.T) {
	formats := []vk.SurfaceFormat{
		{Format: vk.FormatR16g16b16a16Sfloat, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	chosen := chooseSurfaceFormat(formats)
	if chosen.Format != vk.FormatR16g16b16a16Sfloat {
		t.Errorf("expected the first offered format. Got %v", chosen.Format)
	}
}

func TestChoosePresentMode(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}

	if got := choosePresentMode(available, hal.PresentModeMailbox); got != vk.PresentModeMailbox {
		t.Errorf("mailbox offered and requested: expected mailbox. Got %v", got)
	}
	if got := choosePresentMode(available, hal.PresentModeFifo); got != vk.PresentModeFifo {
		t.Errorf("fifo requested: expected fifo. Got %v", got)
	}
	fifoOnly := []vk.PresentMode{vk.PresentModeFifo}
	if got := choosePresentMode(fifoOnly, hal.PresentModeMailbox); got != vk.PresentModeFifo {
		t.Errorf("mailbox unsupported: expected fifo fallback. Got %v", got)
	}
}

func TestChooseExtent(t *testing.T) {
	// A fixed current extent wins over the requested size.
	fixed := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	if got := chooseExtent(&fixed, 1024, 768); got.Width != 800 || got.Height != 600 {
		t.Errorf("expected the surface's current extent. Got %dx%d", got.Width, got.Height)
	}

	// A free extent clamps the request to the allowed range.
	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 2048, Height: 2048},
	}
	if got := chooseExtent(&free, 4096, 16); got.Width != 2048 || got.Height != 64 {
		t.Errorf("expected clamping to [64, 2048]. Got %dx%d", got.Width, got.Height)
	}
	if got := chooseExtent(&free, 1280, 720); got.Width != 1280 || got.Height != 720 {
		t.Errorf("expected the requested size inside the range. Got %dx%d", got.Width, got.Height)
	}
}
