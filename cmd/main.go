package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"morsekey"
)

func main() {
	// 1. 解析命令行参数
	configPath := flag.String("config", "", "TOML config file path")
	inputFile := flag.String("file", "", "Input wav file for replay testing")
	recordAudio := flag.Bool("record", false, "Record audio to capture.wav")
	debugTiming := flag.Bool("debug", false, "Record press/promotion timing to timing.csv")
	radioPort := flag.String("port", "", "Serial port for CI-V radio output")
	mute := flag.Bool("mute", false, "Disable feedback tones")
	flag.Parse()
	_ = mute

	// 2. 加载配置
	cfg, err := morsekey.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *radioPort != "" {
		cfg.Radio.Port = *radioPort
	}

	// 3. 初始化系统
	system := morsekey.NewMorseSystem(cfg)
	if *inputFile != "" {
		system.SetReplayFile(*inputFile)
	}
	if *recordAudio {
		system.EnableRecording("capture.wav")
	}
	if *debugTiming {
		system.EnableDebug("timing.csv")
	}

	// 4. 启动系统
	if err := system.Start(); err != nil {
		log.Fatalf("System start failed: %v", err)
	}
	defer system.Stop()

	// 5. 主循环 (处理信号和控制台输入)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("System Ready. (Type 'help' for commands, 'exit' to quit)")

		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			if strings.ToLower(input) == "exit" || strings.ToLower(input) == "quit" {
				sigChan <- os.Interrupt
				return
			}

			system.HandleLine(input)
			fmt.Print("> ")
		}
	}()

	// 阻塞等待退出信号
	<-sigChan
	fmt.Println("\nShutting down...")
}
