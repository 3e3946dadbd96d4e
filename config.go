package morsekey

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config 结构体用于集中管理键控系统的所有可调参数和阈值
type Config struct {
	// --- 分段核心 (Keyer) ---
	// 负责把按键时长序列切分为字符和单词
	Keyer KeyerConfig

	// --- 音频键入 (ToneKey) ---
	// 负责从声卡侧音中恢复按键时长
	Tone struct {
		SampleRate   int     // 采样率 (Hz)，默认 48000
		DeviceName   string  // 采集设备名关键字，空串表示默认设备
		BlockSize    int     // 能量统计块大小 (采样点数)。480 @ 48kHz = 10ms，决定了时长测量精度
		FFTSize      int     // 校准用 FFT 点数 (例如 4096)，决定了频率分辨率
		MinFrequency float64 // 校准搜索下限 (Hz)，屏蔽低频底噪
		MaxFrequency float64 // 校准搜索上限 (Hz)
		MinMagnitude float64 // 校准锁定所需的最小归一化幅度，低于此值视为噪声继续等待
		GateHigh     float64 // 施密特触发器开启阈值 (归一化包络)
		GateLow      float64 // 施密特触发器关闭阈值，低于开启阈值以防抖动
		GateDebounce int     // 去抖确认块数。状态需要连续保持这么多块才算切换
		AutoGate     bool    // 是否启用动态阈值追踪 (AdaptiveThresholder)，关闭时使用固定 GateHigh/GateLow
	}

	// --- 按键反馈音 (Feedback) ---
	Feedback struct {
		Enabled      bool          // 是否播放反馈音
		DotDuration  time.Duration // 点反馈音时长
		DashDuration time.Duration // 划反馈音时长
	}

	// --- 电台发报 (Radio) ---
	Radio struct {
		Port     string // 串口设备名，空串表示不连电台
		BaudRate int    // 波特率
	}
}

// KeyerConfig 分段核心的时序参数
// 所有值在一次会话内固定不变
type KeyerConfig struct {
	CharacterTimeout   time.Duration // 静默多久把点划 buffer 提升为字符 (默认 1.5s)
	WordTimeout        time.Duration // 静默多久把字符 buffer 提升为单词 (默认 3.0s)，必须大于 CharacterTimeout
	Debounce           time.Duration // 字符判定的额外宽限 (默认 300ms)。只加在字符检查上，不加在单词检查上
	LongPressThreshold time.Duration // 点划分界时长 (默认 500ms)，按住超过此时长为划
	PollInterval       time.Duration // 超时轮询间隔 (默认 100ms)
}

// Validate 检查时序参数是否自洽
// 非法配置在构造期拒绝，不能等到运行时表现成静默的错误行为
func (c KeyerConfig) Validate() error {
	if c.CharacterTimeout <= 0 || c.WordTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive (character=%v, word=%v)", c.CharacterTimeout, c.WordTimeout)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative (got %v)", c.Debounce)
	}
	if c.LongPressThreshold <= 0 {
		return fmt.Errorf("long press threshold must be positive (got %v)", c.LongPressThreshold)
	}
	if c.CharacterTimeout >= c.WordTimeout {
		return fmt.Errorf("character timeout (%v) must be shorter than word timeout (%v)", c.CharacterTimeout, c.WordTimeout)
	}
	// 同一类错误：宽限吃掉整个字符窗口后，字符提升永远无法触发
	if c.Debounce+c.CharacterTimeout >= c.WordTimeout {
		return fmt.Errorf("debounce (%v) + character timeout (%v) must stay below word timeout (%v)", c.Debounce, c.CharacterTimeout, c.WordTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive (got %v)", c.PollInterval)
	}
	return nil
}

// DefaultConfig 返回一个包含当前最佳实践的默认配置
func DefaultConfig() *Config {
	cfg := &Config{}

	// --- 分段核心 ---
	cfg.Keyer.CharacterTimeout = 1500 * time.Millisecond
	cfg.Keyer.WordTimeout = 3000 * time.Millisecond
	cfg.Keyer.Debounce = 300 * time.Millisecond
	cfg.Keyer.LongPressThreshold = 500 * time.Millisecond
	cfg.Keyer.PollInterval = 100 * time.Millisecond

	// --- 音频键入 ---
	cfg.Tone.SampleRate = 48000
	cfg.Tone.DeviceName = ""
	cfg.Tone.BlockSize = 480 // 10ms
	cfg.Tone.FFTSize = 4096
	cfg.Tone.MinFrequency = 400.0
	cfg.Tone.MaxFrequency = 1200.0
	cfg.Tone.MinMagnitude = 0.05
	cfg.Tone.GateHigh = 0.4
	cfg.Tone.GateLow = 0.25
	cfg.Tone.GateDebounce = 2 // 2 块 = 20ms
	cfg.Tone.AutoGate = false

	// --- 按键反馈音 ---
	cfg.Feedback.Enabled = true
	cfg.Feedback.DotDuration = 100 * time.Millisecond
	cfg.Feedback.DashDuration = 300 * time.Millisecond

	// --- 电台发报 ---
	cfg.Radio.Port = ""
	cfg.Radio.BaudRate = 115200

	return cfg
}

// fileConfig 是 TOML 配置文件的映射
// 指针字段：文件里没写的项不覆盖默认值，时长一律用毫秒表示
type fileConfig struct {
	Keyer struct {
		CharacterTimeoutMs   *int `toml:"character_timeout_ms"`
		WordTimeoutMs        *int `toml:"word_timeout_ms"`
		DebounceMs           *int `toml:"debounce_ms"`
		LongPressThresholdMs *int `toml:"long_press_threshold_ms"`
		PollIntervalMs       *int `toml:"poll_interval_ms"`
	} `toml:"keyer"`
	Tone struct {
		SampleRate   *int     `toml:"sample_rate"`
		DeviceName   *string  `toml:"device_name"`
		BlockSize    *int     `toml:"block_size"`
		FFTSize      *int     `toml:"fft_size"`
		MinFrequency *float64 `toml:"min_frequency"`
		MaxFrequency *float64 `toml:"max_frequency"`
		MinMagnitude *float64 `toml:"min_magnitude"`
		GateHigh     *float64 `toml:"gate_high"`
		GateLow      *float64 `toml:"gate_low"`
		GateDebounce *int     `toml:"gate_debounce"`
		AutoGate     *bool    `toml:"auto_gate"`
	} `toml:"tone"`
	Feedback struct {
		Enabled        *bool `toml:"enabled"`
		DotDurationMs  *int  `toml:"dot_duration_ms"`
		DashDurationMs *int  `toml:"dash_duration_ms"`
	} `toml:"feedback"`
	Radio struct {
		Port     *string `toml:"port"`
		BaudRate *int    `toml:"baud_rate"`
	} `toml:"radio"`
}

// LoadConfig 读取 TOML 配置并覆盖到默认值上
// 文件不存在不算错误，直接返回默认配置
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyMs := func(dst *time.Duration, src *int) {
		if src != nil {
			*dst = time.Duration(*src) * time.Millisecond
		}
	}
	applyMs(&cfg.Keyer.CharacterTimeout, fc.Keyer.CharacterTimeoutMs)
	applyMs(&cfg.Keyer.WordTimeout, fc.Keyer.WordTimeoutMs)
	applyMs(&cfg.Keyer.Debounce, fc.Keyer.DebounceMs)
	applyMs(&cfg.Keyer.LongPressThreshold, fc.Keyer.LongPressThresholdMs)
	applyMs(&cfg.Keyer.PollInterval, fc.Keyer.PollIntervalMs)

	if fc.Tone.SampleRate != nil {
		cfg.Tone.SampleRate = *fc.Tone.SampleRate
	}
	if fc.Tone.DeviceName != nil {
		cfg.Tone.DeviceName = *fc.Tone.DeviceName
	}
	if fc.Tone.BlockSize != nil {
		cfg.Tone.BlockSize = *fc.Tone.BlockSize
	}
	if fc.Tone.FFTSize != nil {
		cfg.Tone.FFTSize = *fc.Tone.FFTSize
	}
	if fc.Tone.MinFrequency != nil {
		cfg.Tone.MinFrequency = *fc.Tone.MinFrequency
	}
	if fc.Tone.MaxFrequency != nil {
		cfg.Tone.MaxFrequency = *fc.Tone.MaxFrequency
	}
	if fc.Tone.MinMagnitude != nil {
		cfg.Tone.MinMagnitude = *fc.Tone.MinMagnitude
	}
	if fc.Tone.GateHigh != nil {
		cfg.Tone.GateHigh = *fc.Tone.GateHigh
	}
	if fc.Tone.GateLow != nil {
		cfg.Tone.GateLow = *fc.Tone.GateLow
	}
	if fc.Tone.GateDebounce != nil {
		cfg.Tone.GateDebounce = *fc.Tone.GateDebounce
	}
	if fc.Tone.AutoGate != nil {
		cfg.Tone.AutoGate = *fc.Tone.AutoGate
	}
	if fc.Feedback.Enabled != nil {
		cfg.Feedback.Enabled = *fc.Feedback.Enabled
	}
	applyMs(&cfg.Feedback.DotDuration, fc.Feedback.DotDurationMs)
	applyMs(&cfg.Feedback.DashDuration, fc.Feedback.DashDurationMs)
	if fc.Radio.Port != nil {
		cfg.Radio.Port = *fc.Radio.Port
	}
	if fc.Radio.BaudRate != nil {
		cfg.Radio.BaudRate = *fc.Radio.BaudRate
	}

	if err := cfg.Keyer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
