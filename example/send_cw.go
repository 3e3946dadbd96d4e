package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"morsekey"
)

// 独立示例：不走键控输入，直接把键盘上敲的文本用 CW 发出去
// 长消息会按电台单条指令的上限自动分段，不会被截断
func main() {
	// 请根据实际情况修改串口设备名
	portName := "/dev/tty.SLAB_USBtoUART"
	baudRate := 115200

	fmt.Printf("Connecting to ICOM 7300 on %s...\n", portName)

	client := morsekey.NewRadioClient(portName, baudRate)
	if err := client.Open(); err != nil {
		log.Fatalf("Failed to open serial port: %v\n", err)
	}
	defer client.Close()

	// 顺手确认电台在 CW 模式，不在也只是提醒
	if mode, err := client.ReadMode(); err == nil && mode != "CW" && mode != "CW-R" {
		fmt.Printf("Warning: radio is in %s mode, expected CW.\n", mode)
	}

	fmt.Println("Connected. Type text and press Enter to send CW.")
	fmt.Println("Type 'exit' or 'quit' to stop.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" || strings.ToLower(input) == "quit" {
			break
		}

		fmt.Printf("Sending: %s\n", strings.ToUpper(input))
		if err := client.SendMessage(input); err != nil {
			log.Printf("Error sending text: %v\n", err)
		}
	}

	fmt.Println("Bye.")
}
