package morsekey

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// AudioCallback 定义音频数据回调函数类型
type AudioCallback func(samples []float32)

// AudioCapture 管理音频捕获 (单声道 float32)
type AudioCapture struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	SampleRate int
	Callback   AudioCallback
}

// NewAudioCapture 创建新的音频捕获实例
// targetDeviceName 为空时使用系统默认采集设备，否则按名字模糊匹配
func NewAudioCapture(sampleRate int, targetDeviceName string, callback AudioCallback) (*AudioCapture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init malgo context: %v", err)
	}

	ac := &AudioCapture{
		ctx:        ctx,
		SampleRate: sampleRate,
		Callback:   callback,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if targetDeviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err == nil {
			for _, info := range infos {
				if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(targetDeviceName)) {
					deviceConfig.Capture.DeviceID = info.ID.Pointer()
					fmt.Printf("Selected audio device: %s\n", info.Name())
					break
				}
			}
		}
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if ac.Callback == nil || len(pInputSamples) == 0 {
			return
		}
		samples := unsafe.Slice((*float32)(unsafe.Pointer(&pInputSamples[0])), int(framecount))
		ac.Callback(samples)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to init capture device: %v", err)
	}
	ac.device = device

	return ac, nil
}

// Start 启动音频捕获
func (ac *AudioCapture) Start() error {
	if ac.device == nil {
		return fmt.Errorf("device not initialized")
	}
	return ac.device.Start()
}

// Stop 停止音频捕获并释放资源
func (ac *AudioCapture) Stop() {
	if ac.device != nil {
		ac.device.Uninit()
		ac.device = nil
	}
	if ac.ctx != nil {
		_ = ac.ctx.Uninit()
		ac.ctx.Free()
		ac.ctx = nil
	}
}
