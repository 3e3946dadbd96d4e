package morsekey

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// MorseSystem 管理整个键控输入系统的生命周期
// 组装分段核心、音频键入、提示音、电台发报，并处理控制台命令
type MorseSystem struct {
	cfg *Config

	// 组件
	keyer    *Keyer
	toneKey  *ToneKey
	capture  *AudioCapture
	wavReader *WavReader
	wavWriter *WavWriter
	player   *TonePlayer
	radio    *RadioClient
	debugger TimingDebugger

	// 模式
	replayFile string
	recordFile string
	debugFile  string
	mute       bool

	replayDone chan struct{}
}

// NewMorseSystem 创建系统实例
func NewMorseSystem(cfg *Config) *MorseSystem {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &MorseSystem{
		cfg:      cfg,
		debugger: NoOpTimingDebugger{},
	}
}

// SetReplayFile 设置回放文件 (设置后将进入回放模式)
func (s *MorseSystem) SetReplayFile(filename string) {
	s.replayFile = filename
}

// EnableRecording 开启录音
func (s *MorseSystem) EnableRecording(filename string) {
	s.recordFile = filename
}

// EnableDebug 开启 CSV 时序记录
func (s *MorseSystem) EnableDebug(filename string) {
	s.debugFile = filename
}

// Mute 关闭提示音输出
func (s *MorseSystem) Mute() {
	s.mute = true
}

// Start 启动系统
func (s *MorseSystem) Start() error {
	// 1. 回放模式先开文件，采样率以文件为准
	if s.replayFile != "" {
		var err error
		s.wavReader, err = NewWavReader(s.replayFile)
		if err != nil {
			return fmt.Errorf("failed to open replay file: %v", err)
		}
		s.cfg.Tone.SampleRate = s.wavReader.SampleRate
		fmt.Printf("Mode: REPLAY (%s, %dHz)\n", s.replayFile, s.cfg.Tone.SampleRate)
	}

	// 2. 时序调试
	if s.debugFile != "" {
		d, err := NewCsvTimingDebugger(s.debugFile)
		if err != nil {
			log.Printf("Warning: could not create debug file: %v\n", err)
		} else {
			s.debugger = d
			fmt.Printf("Recording timing to %s\n", s.debugFile)
		}
	}

	// 3. 输出侧：控制台永远在，提示音和电台按配置挂
	sinks := MultiSink{ConsoleSink{}}

	var toneSink *ToneSink
	if !s.mute && s.cfg.Feedback.Enabled {
		player, err := NewTonePlayer(s.cfg.Tone.SampleRate)
		if err != nil {
			log.Printf("Warning: audio feedback disabled: %v\n", err)
		} else {
			s.player = player
			ts := ToneSink{
				Player:       player,
				DotDuration:  s.cfg.Feedback.DotDuration,
				DashDuration: s.cfg.Feedback.DashDuration,
			}
			toneSink = &ts
			sinks = append(sinks, ts)
		}
	}

	if s.cfg.Radio.Port != "" {
		s.radio = NewRadioClient(s.cfg.Radio.Port, s.cfg.Radio.BaudRate)
		fmt.Printf("Connecting to radio on %s...\n", s.cfg.Radio.Port)
		if err := s.radio.Open(); err != nil {
			log.Printf("Warning: could not open serial port: %v\n", err)
			s.radio = nil
		} else {
			fmt.Println("Serial port opened.")
			sinks = append(sinks, RadioSink{Client: s.radio})
		}
	}

	// 4. 分段核心 + 超时轮询
	keyer, err := NewKeyer(s.cfg.Keyer, sinks)
	if err != nil {
		return err
	}
	s.keyer = keyer
	s.keyer.SetDebugger(s.debugger)
	s.keyer.StartMonitor()

	// 5. 音频键入：按键时长进核心，反馈音在这里挂
	s.toneKey = NewToneKey(s.cfg, func(duration time.Duration) {
		symbol := s.keyer.OnPress(duration)
		buffer, _, _ := s.keyer.Snapshot()
		if symbol == "-" {
			fmt.Printf("Dash (-) - Current: %s\n", buffer)
		} else {
			fmt.Printf("Dot (.) - Current: %s\n", buffer)
		}
		if toneSink != nil {
			toneSink.Feedback(symbol)
		}
	})

	// 6. 录音 (仅实时模式)
	if s.recordFile != "" && s.replayFile == "" {
		s.wavWriter, err = NewWavWriter(s.recordFile, s.cfg.Tone.SampleRate)
		if err != nil {
			return fmt.Errorf("failed to create wav file: %v", err)
		}
		fmt.Printf("Recording audio to %s\n", s.recordFile)
	}

	// 7. 启动音频流
	if s.replayFile != "" {
		s.replayDone = make(chan struct{})
		go s.runReplayLoop()
	} else {
		if err := s.startAudioCapture(); err != nil {
			return err
		}
		fmt.Println("Key the sidetone once to calibrate, then start sending.")
	}

	return nil
}

// Stop 停止系统并释放资源
func (s *MorseSystem) Stop() {
	if s.keyer != nil {
		s.keyer.StopMonitor()
	}
	if s.replayDone != nil {
		close(s.replayDone)
	}
	if s.capture != nil {
		s.capture.Stop()
	}
	if s.wavWriter != nil {
		fmt.Println("\nSaving recording...")
		s.wavWriter.Close()
		fmt.Println("Recording saved.")
	}
	if s.wavReader != nil {
		s.wavReader.Close()
	}
	if s.radio != nil {
		s.radio.Close()
	}
	if s.player != nil {
		s.player.Close()
	}
	s.debugger.Close()
}

// HandleLine 处理一行控制台输入
// 命令对应硬件原型的鼠标手势：done = 右键结束消息，reset = 双击右键重置。
// 一行点划 (例如 ".... ..") 会按合成时长注入按键，方便没有音频设备时测试。
func (s *MorseSystem) HandleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	switch strings.ToLower(line) {
	case "done", "send":
		if _, ok := s.keyer.CompleteMessage(); !ok {
			fmt.Println("No message to complete")
		}
		return
	case "reset":
		s.keyer.Reset()
		return
	case "help":
		s.printHelp()
		return
	}

	if isSymbolLine(line) {
		dot := s.cfg.Keyer.LongPressThreshold / 2
		dash := s.cfg.Keyer.LongPressThreshold * 2
		for _, r := range line {
			switch r {
			case '.':
				s.keyer.OnPress(dot)
			case '-':
				s.keyer.OnPress(dash)
			}
		}
		buffer, _, _ := s.keyer.Snapshot()
		fmt.Printf("Injected - Current: %s\n", buffer)
		return
	}

	fmt.Printf("Unknown command: %s\n", line)
	s.printHelp()
}

func (s *MorseSystem) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  .-. ...    inject dots/dashes manually")
	fmt.Println("  done       complete the message")
	fmt.Println("  reset      discard everything")
	fmt.Println("  exit       quit")
}

func isSymbolLine(line string) bool {
	for _, r := range line {
		if r != '.' && r != '-' && r != ' ' {
			return false
		}
	}
	return true
}

// 内部：处理音频块 (实时采集路径)
func (s *MorseSystem) processAudioChunk(samples []float32) {
	if s.wavWriter != nil {
		_ = s.wavWriter.WriteSamples(samples)
	}
	s.toneKey.ProcessAudioChunk(samples)
}

// 内部：启动实时音频捕获
func (s *MorseSystem) startAudioCapture() error {
	var err error
	s.capture, err = NewAudioCapture(s.cfg.Tone.SampleRate, s.cfg.Tone.DeviceName, s.processAudioChunk)
	if err != nil {
		return fmt.Errorf("failed to init audio capture: %v", err)
	}
	return s.capture.Start()
}

// 内部：回放循环，按文件采样率模拟实时速度
func (s *MorseSystem) runReplayLoop() {
	chunkSize := 1024
	interval := time.Second * time.Duration(chunkSize) / time.Duration(s.cfg.Tone.SampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Println("Replay started...")
	for {
		select {
		case <-s.replayDone:
			return
		case <-ticker.C:
			samples, err := s.wavReader.ReadSamples(chunkSize)
			if err != nil {
				fmt.Println("\nEnd of file.")
				return
			}
			s.toneKey.ProcessAudioChunk(samples)
		}
	}
}
