package morsekey

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// TimingDebugger 定义时序调试器接口
// Keyer 只依赖这个接口，不依赖具体的文件操作
type TimingDebugger interface {
	RecordPress(at time.Time, duration time.Duration, symbol, buffer string)
	RecordPromotion(at time.Time, kind, symbols, text string)
	Close()
}

// CsvTimingDebugger 把每次按键和每次提升写成 CSV，方便事后核对时序
type CsvTimingDebugger struct {
	file   *os.File
	writer *bufio.Writer
}

// NewCsvTimingDebugger 创建一个新的 CSV 调试器
func NewCsvTimingDebugger(filename string) (*CsvTimingDebugger, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(f)
	// 写入表头
	if _, err := w.WriteString("Time,Event,DurationMs,Symbol,Payload\n"); err != nil {
		f.Close()
		return nil, err
	}

	return &CsvTimingDebugger{
		file:   f,
		writer: w,
	}, nil
}

// RecordPress 记录一次按键：时长、判定结果、当前 buffer
func (d *CsvTimingDebugger) RecordPress(at time.Time, duration time.Duration, symbol, buffer string) {
	fmt.Fprintf(d.writer, "%s,press,%.1f,%s,%s\n",
		at.Format("15:04:05.000"), float64(duration.Microseconds())/1000.0, symbol, buffer)
}

// RecordPromotion 记录一次提升 (character/word/message/reset)
func (d *CsvTimingDebugger) RecordPromotion(at time.Time, kind, symbols, text string) {
	fmt.Fprintf(d.writer, "%s,%s,,%s,%s\n", at.Format("15:04:05.000"), kind, symbols, text)
}

// Close 关闭文件并刷新缓冲区
func (d *CsvTimingDebugger) Close() {
	if d.writer != nil {
		d.writer.Flush()
	}
	if d.file != nil {
		d.file.Close()
	}
}

// NoOpTimingDebugger 空实现，生产环境不记录数据时使用
// 这样可以避免在核心代码中写大量的 if debugger != nil check
type NoOpTimingDebugger struct{}

func (NoOpTimingDebugger) RecordPress(at time.Time, duration time.Duration, symbol, buffer string) {}
func (NoOpTimingDebugger) RecordPromotion(at time.Time, kind, symbols, text string)               {}
func (NoOpTimingDebugger) Close()                                                                 {}
