package morsekey

import (
	"bytes"
	"strings"
	"testing"
)

// MockSerialPort 模拟串口
type MockSerialPort struct {
	ReadBuffer  *bytes.Buffer
	WriteBuffer *bytes.Buffer
	Closed      bool
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		ReadBuffer:  new(bytes.Buffer),
		WriteBuffer: new(bytes.Buffer),
	}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	return m.ReadBuffer.Read(p)
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	return m.WriteBuffer.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.Closed = true
	return nil
}

// 辅助函数：生成 CI-V 响应帧
func makeResponseFrame(cmd byte, data []byte) []byte {
	// FE FE E0 94 Cmd [Data...] FD
	frame := []byte{CIV_PREAMBLE, CIV_PREAMBLE, CIV_ADDR_PC, CIV_ADDR_7300, cmd}
	if len(data) > 0 {
		frame = append(frame, data...)
	}
	frame = append(frame, CIV_END)
	return frame
}

func TestSendCommand(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	// 测试发送指令 0x03 (读取频率)
	err := client.SendCommand(0x03, nil)
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}

	// 验证发送的数据
	expected := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x03, 0xFD}
	if !bytes.Equal(mockPort.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected command frame %X, got %X", expected, mockPort.WriteBuffer.Bytes())
	}
}

func TestSendCommandNotOpen(t *testing.T) {
	client := NewRadioClient("/dev/null", 115200)
	if err := client.SendCommand(0x03, nil); err == nil {
		t.Fatal("expected error for unopened connection")
	}
}

func TestSendText(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	if err := client.SendText("CQ"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}

	expected := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x17, 'C', 'Q', 0xFD}
	if !bytes.Equal(mockPort.WriteBuffer.Bytes(), expected) {
		t.Errorf("Expected frame %X, got %X", expected, mockPort.WriteBuffer.Bytes())
	}
}

func TestSendTextTooLong(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	if err := client.SendText(strings.Repeat("A", civMaxTextLen+1)); err == nil {
		t.Fatal("expected error for over-limit text")
	}
	if mockPort.WriteBuffer.Len() != 0 {
		t.Errorf("over-limit text must not hit the wire, wrote %X", mockPort.WriteBuffer.Bytes())
	}
}

// parseTextFrames 从 WriteBuffer 里解析出所有 0x17 指令的文本载荷
func parseTextFrames(t *testing.T, raw []byte) []string {
	t.Helper()
	var payloads []string
	for len(raw) > 0 {
		end := bytes.IndexByte(raw, CIV_END)
		if end == -1 {
			t.Fatalf("unterminated frame in %X", raw)
		}
		frame := raw[:end]
		raw = raw[end+1:]
		if len(frame) < 5 || frame[4] != 0x17 {
			t.Fatalf("unexpected frame %X", frame)
		}
		payloads = append(payloads, string(frame[5:]))
	}
	return payloads
}

func TestSendMessageSingleFrame(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	if err := client.SendMessage("hello world"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	payloads := parseTextFrames(t, mockPort.WriteBuffer.Bytes())
	if len(payloads) != 1 || payloads[0] != "HELLO WORLD" {
		t.Errorf("payloads = %q, want [HELLO WORLD]", payloads)
	}
}

// 长消息分段发送，不截断内容
func TestSendMessageChunked(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	message := "CQ CQ CQ DE BG1ABC BG1ABC BG1ABC PSE K"
	if err := client.SendMessage(message); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	payloads := parseTextFrames(t, mockPort.WriteBuffer.Bytes())
	if len(payloads) < 2 {
		t.Fatalf("expected chunked send, got %q", payloads)
	}
	for _, p := range payloads {
		if len(p) > civMaxTextLen {
			t.Errorf("segment over limit: %q (%d chars)", p, len(p))
		}
	}
	if rejoined := strings.Join(payloads, " "); rejoined != message {
		t.Errorf("content lost in chunking: %q != %q", rejoined, message)
	}
}

func TestSplitMessage(t *testing.T) {
	cases := []struct {
		message string
		limit   int
		want    []string
	}{
		{"CQ", 30, []string{"CQ"}},
		{"AAAA BBBB CCCC", 9, []string{"AAAA BBBB", "CCCC"}},
		{"AAAA BBBB CCCC", 10, []string{"AAAA BBBB", "CCCC"}},
		{"A B C", 30, []string{"A B C"}},
		// 单个超长单词按上限硬切
		{"AAAAAAAAAA", 4, []string{"AAAA", "AAAA", "AA"}},
		{"X AAAAAAAA Y", 4, []string{"X", "AAAA", "AAAA", "Y"}},
	}
	for _, tc := range cases {
		got := splitMessage(tc.message, tc.limit)
		if len(got) != len(tc.want) {
			t.Errorf("splitMessage(%q, %d) = %q, want %q", tc.message, tc.limit, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("splitMessage(%q, %d)[%d] = %q, want %q", tc.message, tc.limit, i, got[i], tc.want[i])
			}
		}
	}
}

func TestReadFrequency(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	// 模拟电台响应: 7.050.00 MHz -> 00 00 50 07 00 (BCD 低位在前)
	freqData := []byte{0x00, 0x00, 0x50, 0x07, 0x00}
	mockPort.ReadBuffer.Write(makeResponseFrame(0x03, freqData))

	freq, err := client.ReadFrequency()
	if err != nil {
		t.Fatalf("ReadFrequency failed: %v", err)
	}

	expectedFreq := 7050000
	if freq != expectedFreq {
		t.Errorf("Expected frequency %d, got %d", expectedFreq, freq)
	}
}

func TestReadMode(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	// 模拟电台响应: CW 模式 -> 0x03
	mockPort.ReadBuffer.Write(makeResponseFrame(0x04, []byte{0x03}))

	mode, err := client.ReadMode()
	if err != nil {
		t.Fatalf("ReadMode failed: %v", err)
	}
	if mode != "CW" {
		t.Errorf("Expected mode CW, got %s", mode)
	}
}

func TestReadMode_Unknown(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	// 模拟未知模式 -> 0xFF
	mockPort.ReadBuffer.Write(makeResponseFrame(0x04, []byte{0xFF}))

	mode, err := client.ReadMode()
	if err != nil {
		t.Fatalf("ReadMode failed: %v", err)
	}
	if mode != "Unknown(0xFF)" {
		t.Errorf("Expected mode Unknown(0xFF), got %s", mode)
	}
}

func TestReadResponse_EchoFilter(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	// 串口会回显我们发出的指令，解析时要跳过
	// 回显: FE FE 94 E0 03 FD (PC -> Radio)
	// 响应: FE FE E0 94 03 00 00 50 07 00 FD (Radio -> PC)
	echoFrame := []byte{0xFE, 0xFE, 0x94, 0xE0, 0x03, 0xFD}
	freqData := []byte{0x00, 0x00, 0x50, 0x07, 0x00}

	mockPort.ReadBuffer.Write(echoFrame)
	mockPort.ReadBuffer.Write(makeResponseFrame(0x03, freqData))

	freq, err := client.ReadFrequency()
	if err != nil {
		t.Fatalf("ReadFrequency with echo failed: %v", err)
	}
	if freq != 7050000 {
		t.Errorf("Expected frequency 7050000, got %d", freq)
	}
}

func TestClose(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !mockPort.Closed {
		t.Error("Expected port to be closed")
	}
}

// RadioSink 只关心 message 事件
func TestRadioSinkSendsOnMessage(t *testing.T) {
	mockPort := NewMockSerialPort()
	client := &RadioClient{conn: mockPort}
	sink := RadioSink{Client: client}

	sink.OnCharacterCompleted(".-", "A")
	sink.OnWordCompleted("AS")
	sink.OnReset()
	if mockPort.WriteBuffer.Len() != 0 {
		t.Fatalf("non-message events must not transmit, wrote %X", mockPort.WriteBuffer.Bytes())
	}

	sink.OnMessageCompleted("sos")
	payloads := parseTextFrames(t, mockPort.WriteBuffer.Bytes())
	if len(payloads) != 1 || payloads[0] != "SOS" {
		t.Errorf("payloads = %q, want [SOS]", payloads)
	}
}
