package morsekey

import (
	"fmt"
	"time"

	"morsekey/Filters"
)

// PressFunc 按键事件回调，参数是按下到松开的时长
type PressFunc func(duration time.Duration)

// ToneKey 从键控侧音中恢复按键事件
// 直键接进声卡，键按下时有一个固定频率的侧音。流程：
//  1. 校准：FFT 搜主频，锁定侧音频率
//  2. 逐块算目标频率上的 Goertzel 能量
//  3. 施密特触发器 + 块计数去抖，确认 mark/space 边沿
//  4. mark 结束 -> 上报一次按键时长
//
// 分段核心不关心这里的任何细节，它只收到 PressFunc 的时长流。
type ToneKey struct {
	sampleRate int
	blockSize  int
	blockDur   time.Duration

	minFreq      float64
	maxFreq      float64
	minMagnitude float64

	analyzer *SpectrumAnalyzer
	goertzel *Goertzel
	gate     *Filters.KeyGate

	// 校准状态
	calibrated bool
	TargetFreq float64
	calBuffer  []float64

	// 分块缓冲
	blockBuf []float64

	onPress PressFunc
}

// NewToneKey 创建音频键入器，参数取自 cfg.Tone
func NewToneKey(cfg *Config, onPress PressFunc) *ToneKey {
	var gate *Filters.KeyGate
	if cfg.Tone.AutoGate {
		gate = Filters.NewAutoKeyGate(cfg.Tone.GateDebounce)
	} else {
		gate = Filters.NewKeyGate(cfg.Tone.GateHigh, cfg.Tone.GateLow, cfg.Tone.GateDebounce)
	}

	return &ToneKey{
		sampleRate:   cfg.Tone.SampleRate,
		blockSize:    cfg.Tone.BlockSize,
		blockDur:     time.Duration(float64(cfg.Tone.BlockSize) / float64(cfg.Tone.SampleRate) * float64(time.Second)),
		minFreq:      cfg.Tone.MinFrequency,
		maxFreq:      cfg.Tone.MaxFrequency,
		minMagnitude: cfg.Tone.MinMagnitude,
		analyzer:     NewSpectrumAnalyzer(float64(cfg.Tone.SampleRate), cfg.Tone.FFTSize),
		gate:         gate,
		blockBuf:     make([]float64, 0, cfg.Tone.BlockSize),
		onPress:      onPress,
	}
}

// Calibrated 返回是否已锁定侧音频率
func (tk *ToneKey) Calibrated() bool {
	return tk.calibrated
}

// SetTargetFreq 跳过校准，直接锁定给定频率 (测试和已知侧音频率时用)
func (tk *ToneKey) SetTargetFreq(freq float64) {
	tk.TargetFreq = freq
	tk.goertzel = NewGoertzel(float64(tk.sampleRate), freq)
	tk.calibrated = true
}

// ProcessAudioChunk 处理一段音频 (实时采集和 WAV 回放共用入口)
func (tk *ToneKey) ProcessAudioChunk(samples []float32) {
	for _, s := range samples {
		tk.blockBuf = append(tk.blockBuf, float64(s))
		if len(tk.blockBuf) >= tk.blockSize {
			tk.processBlock(tk.blockBuf)
			tk.blockBuf = tk.blockBuf[:0]
		}
	}
}

func (tk *ToneKey) processBlock(block []float64) {
	if !tk.calibrated {
		tk.runCalibration(block)
		return
	}

	mag := tk.goertzel.BlockMagnitude(block)
	transition := tk.gate.Feed(mag)
	if transition == nil {
		return
	}

	if transition.FinishedMark {
		// 一次完整的按下结束，时长 = 块数 * 块时长
		duration := time.Duration(transition.Blocks) * tk.blockDur
		if tk.onPress != nil {
			tk.onPress(duration)
		}
	}
	// space 结束不上报：静默切分由分段核心按墙钟时间自己判
}

// runCalibration 攒满一个 FFT 窗后搜一次主频
// 能量太弱视为底噪，清空重来；锁定后切换到 Goertzel 路径
func (tk *ToneKey) runCalibration(block []float64) {
	tk.calBuffer = append(tk.calBuffer, block...)
	if len(tk.calBuffer) < tk.analyzer.FFTSize {
		return
	}

	freq, rawMag := tk.analyzer.FindDominantFrequency(tk.calBuffer, tk.minFreq, tk.maxFreq)
	normalizedMag := rawMag * 2.0 / float64(tk.analyzer.FFTSize)

	if normalizedMag > tk.minMagnitude {
		tk.SetTargetFreq(freq)
		tk.calBuffer = nil
		fmt.Printf("[CALIB] LOCKED! Freq: %.1f Hz, Mag: %.4f\n", freq, normalizedMag)
	} else {
		tk.calBuffer = tk.calBuffer[:0]
	}
}
