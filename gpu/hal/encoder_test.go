package hal

import (
	"errors"
	"testing"

	"github.com/codeyousef/materia/gpu/core"
)

func testRenderTarget(t *testing.T, device *Device) *TextureView {
	t.Helper()
	tex, err := device.CreateTexture(&TextureDescriptor{
		Width: 64, Height: 64,
		Format: TextureFormatBGRA8Unorm,
		Usage:  TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("create render target: %v", err)
	}
	view, err := tex.CreateView(&TextureViewDescriptor{})
	if err != nil {
		t.Fatalf("create render target view: %v", err)
	}
	return view
}

func TestEncoderSingleFinish(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	enc, err := device.CreateCommandEncoder("single-finish")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatalf("first finish: %v", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, core.ErrEncoderFinished) {
		t.Errorf("second finish: expected ErrEncoderFinished. Got %v", err)
	}
	if _, err := enc.BeginRenderPass(&RenderPassDescriptor{}); !errors.Is(err, core.ErrEncoderFinished) {
		t.Errorf("recording after finish: expected ErrEncoderFinished. Got %v", err)
	}
}

func TestRenderPassStateMachine(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()
	view := testRenderTarget(t, device)

	enc, err := device.CreateCommandEncoder("pass-machine")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}

	// A nil attachment view is rejected before anything is recorded.
	if _, err := enc.BeginRenderPass(&RenderPassDescriptor{}); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("nil attachment: expected ErrEncoderMisuse. Got %v", err)
	}

	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: view},
	})
	if err != nil {
		t.Fatalf("begin render pass: %v", err)
	}

	// Only one pass may be open per encoder.
	if _, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: view},
	}); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("second open pass: expected ErrEncoderMisuse. Got %v", err)
	}
	if _, err := enc.BeginComputePass(); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("compute pass while render pass open: expected ErrEncoderMisuse. Got %v", err)
	}

	if err := pass.Draw(3, 1, 0, 0); err != nil {
		t.Errorf("draw inside pass: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("end pass: %v", err)
	}
	if err := pass.Draw(3, 1, 0, 0); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("draw after end: expected ErrEncoderMisuse. Got %v", err)
	}

	// A new pass may open once the previous one ended.
	if _, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: view},
	}); err != nil {
		t.Errorf("reopen pass after end: %v", err)
	}
}

func TestFinishClosesOpenPass(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()
	view := testRenderTarget(t, device)

	enc, err := device.CreateCommandEncoder("finish-open-pass")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pass, err := enc.BeginRenderPass(&RenderPassDescriptor{
		ColorAttachment: RenderPassColorAttachment{View: view},
	})
	if err != nil {
		t.Fatalf("begin render pass: %v", err)
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatalf("finish with open pass: %v", err)
	}
	// The pass was invalidated by Finish.
	if err := pass.Draw(3, 1, 0, 0); err == nil {
		t.Error("expected draw on invalidated pass to fail. Got nil")
	}
}

func TestAbandonedEncoderDestroy(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	enc, err := device.CreateCommandEncoder("abandoned")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	backend := enc.backend.(*fakeEncoder)
	enc.Destroy()
	if !backend.destroyed {
		t.Error("expected Destroy to release the native recording resource")
	}
	if _, err := enc.Finish(); !errors.Is(err, core.ErrEncoderFinished) {
		t.Errorf("finish after destroy: expected ErrEncoderFinished. Got %v", err)
	}
}

func TestCommandBufferSingleSubmission(t *testing.T) {
	_, device, backend, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	enc, err := device.CreateCommandEncoder("single-submit")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	buf, err := enc.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := device.Queue().Submit(buf); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if backend.submits != 1 {
		t.Errorf("expected 1 driver submit. Got %d", backend.submits)
	}
	if err := device.Queue().Submit(buf); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("second submit: expected ErrEncoderMisuse. Got %v", err)
	}
}

func TestSubmitRejectsForeignBuffer(t *testing.T) {
	_, deviceA, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device A setup failed: %v", err)
	}
	defer deviceA.Destroy()
	_, deviceB, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device B setup failed: %v", err)
	}
	defer deviceB.Destroy()

	enc, err := deviceA.CreateCommandEncoder("foreign")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	buf, err := enc.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := deviceB.Queue().Submit(buf); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("expected ErrEncoderMisuse for foreign buffer. Got %v", err)
	}
}

func TestComputePassDispatch(t *testing.T) {
	_, device, _, err := newTestDevice(nil)
	if err != nil {
		t.Fatalf("device setup failed: %v", err)
	}
	defer device.Destroy()

	module, err := device.CreateShaderModule("reduce", []uint32{0x07230203})
	if err != nil {
		t.Fatalf("create module: %v", err)
	}
	pipeline, err := device.CreateComputePipeline(&ComputePipelineDescriptor{Module: module})
	if err != nil {
		t.Fatalf("create compute pipeline: %v", err)
	}

	enc, err := device.CreateCommandEncoder("compute")
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}
	pass, err := enc.BeginComputePass()
	if err != nil {
		t.Fatalf("begin compute pass: %v", err)
	}
	if err := pass.SetPipeline(pipeline); err != nil {
		t.Errorf("set pipeline: %v", err)
	}
	if err := pass.DispatchWorkgroups(8, 8, 1); err != nil {
		t.Errorf("dispatch: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("end compute pass: %v", err)
	}
	if err := pass.DispatchWorkgroups(1, 1, 1); !errors.Is(err, core.ErrEncoderMisuse) {
		t.Errorf("dispatch after end: expected ErrEncoderMisuse. Got %v", err)
	}
	buf, err := enc.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := device.Queue().Submit(buf); err != nil {
		t.Errorf("submit: %v", err)
	}
}
