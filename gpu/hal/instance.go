package hal

import (
	"sync"

	"github.com/codeyousef/materia/gpu/core"
)

// Instance is the process-wide entry point into the driver. Create one
// at startup, destroy it at shutdown; every other object descends from
// it.
type Instance struct {
	mu       sync.Mutex
	backend  Backend
	target   PlatformTarget
	devices  []*Device
	surfaces []*Surface
	alive    bool
}

// CreateInstance initializes the driver. The target may be nil for
// headless use; surfaces created from a headless instance serve frames
// from the offscreen fallback.
func CreateInstance(backend Backend, opts InstanceOptions) (*Instance, error) {
	if backend == nil {
		err := core.WrapError(core.ErrResourceCreationFailed, "create instance: nil backend", opts.AppName)
		core.LogError(err.Error())
		return nil, err
	}
	if err := backend.Init(opts); err != nil {
		core.LogError("instance initialization failed: %s", err)
		return nil, err
	}
	return &Instance{
		backend: backend,
		target:  opts.Target,
		alive:   true,
	}, nil
}

// RequestAdapter starts the two-phase adapter lookup. The returned
// request completes on Resolve.
func (in *Instance) RequestAdapter(opts AdapterOptions) *AdapterRequest {
	return &AdapterRequest{instance: in, opts: opts}
}

// Destroy tears down surfaces first, then devices, then the driver
// instance itself.
func (in *Instance) Destroy() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.alive {
		return
	}
	for _, s := range in.surfaces {
		s.teardown()
	}
	in.surfaces = nil
	for _, d := range in.devices {
		if err := d.Destroy(); err != nil {
			core.LogWarn("device teardown: %s", err)
		}
	}
	in.devices = nil
	in.backend.Shutdown()
	in.alive = false
}

func (in *Instance) trackDevice(d *Device) {
	in.mu.Lock()
	in.devices = append(in.devices, d)
	in.mu.Unlock()
}

func (in *Instance) trackSurface(s *Surface) {
	in.mu.Lock()
	in.surfaces = append(in.surfaces, s)
	in.mu.Unlock()
}

// AdapterRequest is the pending half of adapter discovery. Resolve
// blocks until the driver answers and always yields the same result
// afterwards.
type AdapterRequest struct {
	instance *Instance
	opts     AdapterOptions

	once    sync.Once
	adapter *Adapter
	err     error
}

func (r *AdapterRequest) Resolve() (*Adapter, error) {
	r.once.Do(func() {
		backend, err := r.instance.backend.RequestAdapter(r.opts)
		if err != nil {
			core.LogError("adapter request failed: %s", err)
			r.err = err
			return
		}
		r.adapter = &Adapter{
			instance: r.instance,
			backend:  backend,
			info:     backend.Info(),
		}
		core.LogInfo("adapter resolved: %s (%s)", r.adapter.info.Name, r.adapter.info.DeviceType)
	})
	return r.adapter, r.err
}

// Adapter is a queryable physical device. It creates devices and holds
// nothing that needs explicit destruction.
type Adapter struct {
	instance *Instance
	backend  BackendAdapter
	info     AdapterInfo
}

func (a *Adapter) Info() AdapterInfo {
	return a.info
}

// RequestDevice starts the two-phase device creation.
func (a *Adapter) RequestDevice() *DeviceRequest {
	return &DeviceRequest{adapter: a}
}

type DeviceRequest struct {
	adapter *Adapter

	once   sync.Once
	device *Device
	err    error
}

func (r *DeviceRequest) Resolve() (*Device, error) {
	r.once.Do(func() {
		backend, err := r.adapter.backend.CreateDevice()
		if err != nil {
			core.LogError("device request failed: %s", err)
			r.err = err
			return
		}
		r.device = newDevice(r.adapter, backend)
		r.adapter.instance.trackDevice(r.device)
	})
	return r.device, r.err
}
