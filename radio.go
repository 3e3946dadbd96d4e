package morsekey

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarm/serial"
)

const (
	CIV_PREAMBLE  = 0xFE
	CIV_END       = 0xFD
	CIV_ADDR_7300 = 0x94 // ICOM 7300 默认地址
	CIV_ADDR_PC   = 0xE0 // 控制器(PC) 默认地址

	// 单条 CW 发送指令的最大字符数 (电台固件限制)
	civMaxTextLen = 30
)

// SerialPort 定义串口操作接口，方便测试 Mock
type SerialPort interface {
	io.ReadWriteCloser
}

// RadioClient 通过 CI-V 协议控制 ICOM 电台
// 这里只用到发报和两个只读查询，完整协议见电台手册
type RadioClient struct {
	Port     string
	BaudRate int
	conn     SerialPort
}

// NewRadioClient 创建新的 CI-V 客户端
func NewRadioClient(port string, baudRate int) *RadioClient {
	return &RadioClient{
		Port:     port,
		BaudRate: baudRate,
	}
}

// Open 打开串口连接
func (c *RadioClient) Open() error {
	config := &serial.Config{
		Name:        c.Port,
		Baud:        c.BaudRate,
		ReadTimeout: time.Millisecond * 500,
	}
	s, err := serial.OpenPort(config)
	if err != nil {
		return err
	}
	c.conn = s
	return nil
}

// Close 关闭串口连接
func (c *RadioClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand 发送 CI-V 命令
// 帧格式: FE FE [To] [From] [Cmd] [SubCmd...] FD
func (c *RadioClient) SendCommand(cmd byte, subCmd []byte) error {
	if c.conn == nil {
		return fmt.Errorf("connection not open")
	}
	frame := []byte{CIV_PREAMBLE, CIV_PREAMBLE, CIV_ADDR_7300, CIV_ADDR_PC, cmd}
	if len(subCmd) > 0 {
		frame = append(frame, subCmd...)
	}
	frame = append(frame, CIV_END)

	_, err := c.conn.Write(frame)
	return err
}

// SendText 发送一段 CW 文本 (Cmd 0x17)，不能超过单条指令上限
func (c *RadioClient) SendText(text string) error {
	if len(text) > civMaxTextLen {
		return fmt.Errorf("text too long (max %d chars)", civMaxTextLen)
	}
	// 数据部分直接是 ASCII 字符
	return c.SendCommand(0x17, []byte(text))
}

// SendMessage 发送任意长度的消息
// 按单词切成不超过上限的段，逐段发送，不截断内容
func (c *RadioClient) SendMessage(message string) error {
	message = strings.ToUpper(strings.TrimSpace(message))
	if message == "" {
		return nil
	}

	for _, segment := range splitMessage(message, civMaxTextLen) {
		if err := c.SendText(segment); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage 按空格拆分后贪心拼段，单个超长单词按上限硬切
func splitMessage(message string, limit int) []string {
	var segments []string
	var current string

	flush := func() {
		if current != "" {
			segments = append(segments, current)
			current = ""
		}
	}

	for _, word := range strings.Fields(message) {
		for len(word) > limit {
			flush()
			segments = append(segments, word[:limit])
			word = word[limit:]
		}
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= limit:
			current += " " + word
		default:
			flush()
			current = word
		}
	}
	flush()
	return segments
}

// ReadFrequency 读取当前频率 (Hz)
// 响应数据是 5 字节 BCD，低位在前。例如 7.050.00 MHz -> 00 00 50 07 00
func (c *RadioClient) ReadFrequency() (int, error) {
	// Cmd 0x03: Read operating frequency
	if err := c.SendCommand(0x03, nil); err != nil {
		return 0, err
	}

	resp, err := c.readResponse(0x03)
	if err != nil {
		return 0, err
	}
	if len(resp) < 5 {
		return 0, fmt.Errorf("invalid frequency data length")
	}

	freq := 0
	multiplier := 1
	for i := 0; i < 5; i++ {
		freq += bcdToDecimal(resp[i]) * multiplier
		multiplier *= 100
	}
	return freq, nil
}

// ReadMode 读取当前模式 (LSB, USB, CW, etc.)
func (c *RadioClient) ReadMode() (string, error) {
	// Cmd 0x04: Read operating mode
	if err := c.SendCommand(0x04, nil); err != nil {
		return "", err
	}

	resp, err := c.readResponse(0x04)
	if err != nil {
		return "", err
	}
	if len(resp) < 1 {
		return "", fmt.Errorf("invalid mode data")
	}

	modes := map[byte]string{
		0x00: "LSB", 0x01: "USB", 0x02: "AM", 0x03: "CW",
		0x04: "RTTY", 0x05: "FM", 0x07: "CW-R", 0x08: "RTTY-R",
		0x17: "DV",
	}
	if name, ok := modes[resp[0]]; ok {
		return name, nil
	}
	return fmt.Sprintf("Unknown(0x%02X)", resp[0]), nil
}

// readResponse 读取并解析响应帧
// 串口会回显我们自己发出的指令，查找目标帧头时自然跳过回显
func (c *RadioClient) readResponse(expectedCmd byte) ([]byte, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("connection not open")
	}
	buf := make([]byte, 1024)
	n, err := c.conn.Read(buf)
	if err != nil && err == io.EOF {
		return nil, fmt.Errorf("connection closed")
	}
	if n == 0 {
		return nil, fmt.Errorf("timeout or no data")
	}

	data := buf[:n]
	// 目标帧头: FE FE [To=PC] [From=7300] [Cmd]
	header := []byte{CIV_PREAMBLE, CIV_PREAMBLE, CIV_ADDR_PC, CIV_ADDR_7300, expectedCmd}
	idx := bytes.Index(data, header)
	if idx == -1 {
		return nil, fmt.Errorf("response header not found in: %s", hex.EncodeToString(data))
	}

	frame := data[idx:]
	endIdx := bytes.IndexByte(frame, CIV_END)
	if endIdx == -1 {
		return nil, fmt.Errorf("frame end not found")
	}
	if endIdx <= 5 {
		return []byte{}, nil // 无数据
	}
	return frame[5:endIdx], nil
}

func bcdToDecimal(b byte) int {
	return int((b>>4)*10 + (b & 0x0F))
}

// RadioSink 把完成的消息用 CW 发出去
// 只关心 message 事件，其余事件与电台无关
type RadioSink struct {
	Client *RadioClient
}

func (r RadioSink) OnCharacterCompleted(symbols, char string) {}
func (r RadioSink) OnWordCompleted(word string)               {}

func (r RadioSink) OnMessageCompleted(message string) {
	fmt.Printf("[TX]: %s\n", strings.ToUpper(message))
	if err := r.Client.SendMessage(message); err != nil {
		fmt.Printf("Error sending message: %v\n", err)
	}
}

func (r RadioSink) OnReset() {}
