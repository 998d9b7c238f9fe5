package maestro

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// AudioDevice describes one host audio device.
type AudioDevice struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefault         bool
	IsInput           bool
	IsOutput          bool
	HostAPI           string
}

// DeviceManager enumerates and validates host audio devices for the
// capture and playback paths.
type DeviceManager struct {
	mu      sync.RWMutex
	devices []AudioDevice
	logger  *Logger
}

func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		logger: GetGlobalLogger().WithComponent("devices"),
	}
}

func (dm *DeviceManager) Initialize() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return WrapError(err, ErrCodeAudioDevice)
	}
	if err := dm.refreshDevices(); err != nil {
		return WrapError(err, ErrCodeAudioDevice)
	}

	dm.logger.WithField("device_count", len(dm.devices)).Info("audio devices enumerated")
	return nil
}

func (dm *DeviceManager) Cleanup() {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := portaudio.Terminate(); err != nil {
		dm.logger.WithError(err).Error("failed to terminate portaudio")
	}
}

func (dm *DeviceManager) refreshDevices() error {
	dm.devices = dm.devices[:0]

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		dm.logger.WithError(err).Warn("no default input device")
	}
	defaultOutput, err := portaudio.DefaultOutputDevice()
	if err != nil {
		dm.logger.WithError(err).Warn("no default output device")
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}

	for i, dev := range devices {
		hostAPI := "Unknown"
		if dev.HostApi != nil {
			hostAPI = dev.HostApi.Name
		}

		device := AudioDevice{
			ID:                i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsInput:           dev.MaxInputChannels > 0,
			IsOutput:          dev.MaxOutputChannels > 0,
			HostAPI:           hostAPI,
		}
		if (defaultInput != nil && dev == defaultInput) || (defaultOutput != nil && dev == defaultOutput) {
			device.IsDefault = true
		}

		dm.devices = append(dm.devices, device)
	}

	return nil
}

func (dm *DeviceManager) Devices() []AudioDevice {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	devices := make([]AudioDevice, len(dm.devices))
	copy(devices, dm.devices)
	return devices
}

func (dm *DeviceManager) InputDevices() []AudioDevice {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	var inputs []AudioDevice
	for _, device := range dm.devices {
		if device.IsInput {
			inputs = append(inputs, device)
		}
	}
	return inputs
}

func (dm *DeviceManager) OutputDevices() []AudioDevice {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	var outputs []AudioDevice
	for _, device := range dm.devices {
		if device.IsOutput {
			outputs = append(outputs, device)
		}
	}
	return outputs
}

func (dm *DeviceManager) DeviceByID(id int) (*AudioDevice, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	for _, device := range dm.devices {
		if device.ID == id {
			return &device, nil
		}
	}
	return nil, NewAudioError(fmt.Sprintf("device %d not found", id))
}

// ValidateDevice checks a device against the channel and sample-rate
// requirements of the capture or playback path that will use it.
func (dm *DeviceManager) ValidateDevice(deviceID int, isInput bool, channels int, sampleRate float64) error {
	device, err := dm.DeviceByID(deviceID)
	if err != nil {
		return err
	}

	if isInput {
		if !device.IsInput {
			return NewAudioError(fmt.Sprintf("device %q is not an input device", device.Name))
		}
		if device.MaxInputChannels < channels {
			return NewAudioError(fmt.Sprintf("device %q supports max %d input channels, requested %d",
				device.Name, device.MaxInputChannels, channels))
		}
	} else {
		if !device.IsOutput {
			return NewAudioError(fmt.Sprintf("device %q is not an output device", device.Name))
		}
		if device.MaxOutputChannels < channels {
			return NewAudioError(fmt.Sprintf("device %q supports max %d output channels, requested %d",
				device.Name, device.MaxOutputChannels, channels))
		}
	}

	if sampleRate > 0 && device.DefaultSampleRate > 0 {
		ratio := sampleRate / device.DefaultSampleRate
		if ratio < 0.5 || ratio > 2.0 {
			dm.logger.WithField("device_name", device.Name).
				Warnf("requested sample rate %.0f differs from device default %.0f", sampleRate, device.DefaultSampleRate)
		}
	}

	return nil
}

// ListAudioDevices enumerates all devices in one shot, initializing and
// releasing portaudio around the query.
func ListAudioDevices() ([]AudioDevice, error) {
	dm := NewDeviceManager()
	if err := dm.Initialize(); err != nil {
		return nil, err
	}
	defer dm.Cleanup()
	return dm.Devices(), nil
}
