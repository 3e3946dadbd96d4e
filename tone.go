package morsekey

import (
	"fmt"
	"math"
	"sync"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// toneStep 播放队列里的一段：freq 为 0 表示静音间隔
type toneStep struct {
	freq    float64
	samples int
}

// TonePlayer 用声卡合成提示音
// 播放在设备回调里逐段消费队列，Beep 只负责排队，不阻塞调用方
type TonePlayer struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int

	mu    sync.Mutex
	queue []toneStep
	phase float64
}

// NewTonePlayer 创建播放器并启动输出设备
func NewTonePlayer(sampleRate int) (*TonePlayer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init malgo context: %v", err)
	}

	tp := &TonePlayer{
		ctx:        ctx,
		sampleRate: sampleRate,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSendFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		if len(pOutputSample) == 0 {
			return
		}
		out := unsafe.Slice((*float32)(unsafe.Pointer(&pOutputSample[0])), int(framecount))
		tp.fill(out)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to init playback device: %v", err)
	}
	tp.device = device

	if err := device.Start(); err != nil {
		tp.Close()
		return nil, fmt.Errorf("failed to start playback: %v", err)
	}
	return tp, nil
}

// fill 设备回调：消费队列，合成正弦，队列空时输出静音
func (tp *TonePlayer) fill(out []float32) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	for i := range out {
		for len(tp.queue) > 0 && tp.queue[0].samples <= 0 {
			tp.queue = tp.queue[1:]
			tp.phase = 0
		}
		if len(tp.queue) == 0 {
			out[i] = 0
			continue
		}

		step := &tp.queue[0]
		if step.freq > 0 {
			out[i] = float32(0.4 * math.Sin(tp.phase))
			tp.phase += 2 * math.Pi * step.freq / float64(tp.sampleRate)
			if tp.phase > 2*math.Pi {
				tp.phase -= 2 * math.Pi
			}
		} else {
			out[i] = 0
		}
		step.samples--
	}
}

// Beep 排队播放一声提示音，后面自动补一小段静音防止粘连
func (tp *TonePlayer) Beep(freq float64, duration time.Duration) {
	n := int(float64(tp.sampleRate) * duration.Seconds())
	gap := tp.sampleRate / 50 // 20ms
	tp.mu.Lock()
	tp.queue = append(tp.queue, toneStep{freq: freq, samples: n}, toneStep{freq: 0, samples: gap})
	tp.mu.Unlock()
}

// Close 停止播放并释放资源
func (tp *TonePlayer) Close() {
	if tp.device != nil {
		tp.device.Uninit()
		tp.device = nil
	}
	if tp.ctx != nil {
		_ = tp.ctx.Uninit()
		tp.ctx.Free()
		tp.ctx = nil
	}
}

// ToneSink 把解码事件映射成提示音
// 频率/时长沿用硬件原型的方案：字符 1000Hz，未知字符 400Hz 错误音，
// 消息完成三连 1200Hz，重置 600Hz
type ToneSink struct {
	Player *TonePlayer

	// 按键反馈音时长，零值用原型默认 (点 100ms / 划 300ms)
	DotDuration  time.Duration
	DashDuration time.Duration
}

// Feedback 按键反馈音：点 800Hz，划 600Hz
// 不属于 EventSink 事件，按键路径直接调
func (t ToneSink) Feedback(symbol string) {
	dot, dash := t.DotDuration, t.DashDuration
	if dot <= 0 {
		dot = 100 * time.Millisecond
	}
	if dash <= 0 {
		dash = 300 * time.Millisecond
	}
	if symbol == "-" {
		t.Player.Beep(600, dash)
	} else {
		t.Player.Beep(800, dot)
	}
}

func (t ToneSink) OnCharacterCompleted(symbols, char string) {
	if char == UnknownChar {
		t.Player.Beep(400, 300*time.Millisecond)
		return
	}
	t.Player.Beep(1000, 200*time.Millisecond)
}

func (t ToneSink) OnWordCompleted(word string) {
	t.Player.Beep(900, 150*time.Millisecond)
}

func (t ToneSink) OnMessageCompleted(message string) {
	for i := 0; i < 3; i++ {
		t.Player.Beep(1200, 200*time.Millisecond)
	}
}

func (t ToneSink) OnReset() {
	t.Player.Beep(600, 300*time.Millisecond)
}
