package morsekey

import (
	"math"
	"testing"
	"time"
)

// makeTone 生成一段正弦采样 (相位从 0 起连续)
func makeTone(freq, amplitude float64, numSamples, sampleRate int) []float32 {
	out := make([]float32, numSamples)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func makeSilence(numSamples int) []float32 {
	return make([]float32, numSamples)
}

// 测试用低采样率配置：80 采样点一块 = 10ms，时长断言好算
func toneTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tone.SampleRate = 8000
	cfg.Tone.BlockSize = 80
	cfg.Tone.FFTSize = 1024
	return cfg
}

func TestGoertzelBlockMagnitude(t *testing.T) {
	g := NewGoertzel(8000, 800)

	// 满幅正弦，块内整数个周期 -> 归一化幅度约 1.0
	onTone := makeTone(800, 1.0, 80, 8000)
	block := make([]float64, len(onTone))
	for i, s := range onTone {
		block[i] = float64(s)
	}
	if mag := g.BlockMagnitude(block); math.Abs(mag-1.0) > 0.05 {
		t.Errorf("on-frequency magnitude = %v, want ~1.0", mag)
	}

	// 偏离目标频率的正弦基本不贡献能量
	offTone := makeTone(500, 1.0, 80, 8000)
	for i, s := range offTone {
		block[i] = float64(s)
	}
	if mag := g.BlockMagnitude(block); mag > 0.1 {
		t.Errorf("off-frequency magnitude = %v, want near 0", mag)
	}

	// 静音块能量为零
	for i := range block {
		block[i] = 0
	}
	if mag := g.BlockMagnitude(block); mag > 1e-9 {
		t.Errorf("silence magnitude = %v, want 0", mag)
	}
}

// 合成侧音流，验证恢复出来的按键时长
func TestToneKeyPressDurations(t *testing.T) {
	cfg := toneTestConfig()
	blockSamples := cfg.Tone.BlockSize

	var presses []time.Duration
	tk := NewToneKey(cfg, func(d time.Duration) {
		presses = append(presses, d)
	})
	tk.SetTargetFreq(800)

	// 10 块静音, 12 块音 (120ms), 30 块静音, 60 块音 (600ms), 30 块静音
	var stream []float32
	stream = append(stream, makeSilence(10*blockSamples)...)
	stream = append(stream, makeTone(800, 0.8, 12*blockSamples, cfg.Tone.SampleRate)...)
	stream = append(stream, makeSilence(30*blockSamples)...)
	stream = append(stream, makeTone(800, 0.8, 60*blockSamples, cfg.Tone.SampleRate)...)
	stream = append(stream, makeSilence(30*blockSamples)...)

	tk.ProcessAudioChunk(stream)

	if len(presses) != 2 {
		t.Fatalf("expected 2 presses, got %v", presses)
	}
	if presses[0] != 120*time.Millisecond {
		t.Errorf("press 0 = %v, want 120ms", presses[0])
	}
	if presses[1] != 600*time.Millisecond {
		t.Errorf("press 1 = %v, want 600ms", presses[1])
	}
}

// 音频按任意大小分块喂入不影响结果
func TestToneKeyChunkSizeIndependent(t *testing.T) {
	cfg := toneTestConfig()
	blockSamples := cfg.Tone.BlockSize

	var presses []time.Duration
	tk := NewToneKey(cfg, func(d time.Duration) {
		presses = append(presses, d)
	})
	tk.SetTargetFreq(800)

	var stream []float32
	stream = append(stream, makeSilence(5*blockSamples)...)
	stream = append(stream, makeTone(800, 0.8, 20*blockSamples, cfg.Tone.SampleRate)...)
	stream = append(stream, makeSilence(5*blockSamples)...)

	// 7 个采样点一组，和块大小完全不对齐
	for i := 0; i < len(stream); i += 7 {
		end := i + 7
		if end > len(stream) {
			end = len(stream)
		}
		tk.ProcessAudioChunk(stream[i:end])
	}

	if len(presses) != 1 || presses[0] != 200*time.Millisecond {
		t.Fatalf("presses = %v, want [200ms]", presses)
	}
}

// 端到端：合成的 ". -" 侧音流进分段核心
func TestToneKeyFeedsKeyer(t *testing.T) {
	cfg := toneTestConfig()
	blockSamples := cfg.Tone.BlockSize

	k, err := NewKeyer(cfg.Keyer, nil)
	if err != nil {
		t.Fatalf("NewKeyer failed: %v", err)
	}

	tk := NewToneKey(cfg, func(d time.Duration) {
		k.OnPress(d)
	})
	tk.SetTargetFreq(800)

	// 120ms 的点 + 600ms 的划 (阈值 500ms)
	var stream []float32
	stream = append(stream, makeSilence(5*blockSamples)...)
	stream = append(stream, makeTone(800, 0.8, 12*blockSamples, cfg.Tone.SampleRate)...)
	stream = append(stream, makeSilence(20*blockSamples)...)
	stream = append(stream, makeTone(800, 0.8, 60*blockSamples, cfg.Tone.SampleRate)...)
	stream = append(stream, makeSilence(5*blockSamples)...)

	tk.ProcessAudioChunk(stream)

	buffer, _, _ := k.Snapshot()
	if buffer != ".-" {
		t.Fatalf("symbol buffer = %q, want %q", buffer, ".-")
	}
}

func TestToneKeyCalibrationLocks(t *testing.T) {
	cfg := toneTestConfig()
	tk := NewToneKey(cfg, nil)

	if tk.Calibrated() {
		t.Fatal("must start uncalibrated")
	}

	// 持续侧音攒满一个 FFT 窗后锁定
	tk.ProcessAudioChunk(makeTone(700, 0.5, 2*cfg.Tone.FFTSize, cfg.Tone.SampleRate))

	if !tk.Calibrated() {
		t.Fatal("calibration did not lock on a clean tone")
	}
	if math.Abs(tk.TargetFreq-700) > 15 {
		t.Errorf("locked frequency = %v, want ~700Hz", tk.TargetFreq)
	}
}

// 底噪不能触发锁定
func TestToneKeyCalibrationIgnoresNoiseFloor(t *testing.T) {
	cfg := toneTestConfig()
	tk := NewToneKey(cfg, nil)

	tk.ProcessAudioChunk(makeTone(700, 0.01, 4*cfg.Tone.FFTSize, cfg.Tone.SampleRate))
	if tk.Calibrated() {
		t.Fatal("locked on a tone below the magnitude floor")
	}

	tk.ProcessAudioChunk(makeSilence(4 * cfg.Tone.FFTSize))
	if tk.Calibrated() {
		t.Fatal("locked on silence")
	}

	// 真实信号出现后才锁定
	tk.ProcessAudioChunk(makeTone(700, 0.5, 2*cfg.Tone.FFTSize, cfg.Tone.SampleRate))
	if !tk.Calibrated() {
		t.Fatal("never locked after real signal appeared")
	}
}

func TestSpectrumAnalyzerFindsDominantFrequency(t *testing.T) {
	sa := NewSpectrumAnalyzer(8000, 1024)

	tone := makeTone(650, 1.0, 1024, 8000)
	samples := make([]float64, len(tone))
	for i, s := range tone {
		samples[i] = float64(s)
	}

	freq, mag := sa.FindDominantFrequency(samples, 400, 1200)
	if math.Abs(freq-650) > 10 {
		t.Errorf("dominant frequency = %v, want ~650Hz", freq)
	}
	if mag <= 0 {
		t.Errorf("magnitude = %v, want positive", mag)
	}

	// 搜索范围外的信号找不到主频能量
	lowTone := makeTone(100, 1.0, 1024, 8000)
	for i, s := range lowTone {
		samples[i] = float64(s)
	}
	_, lowMag := sa.FindDominantFrequency(samples, 400, 1200)
	if lowMag > mag/10 {
		t.Errorf("out-of-range tone leaked magnitude %v (in-range was %v)", lowMag, mag)
	}
}
