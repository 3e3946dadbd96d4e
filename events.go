package morsekey

import "fmt"

// EventSink 定义解码事件的输出接口
// Keyer 只负责通知，不关心下游做什么（显示、发声、发报都在外面）
// 实现方的失败不允许影响 Keyer 的状态
type EventSink interface {
	OnCharacterCompleted(symbols, char string)
	OnWordCompleted(word string)
	OnMessageCompleted(message string)
	OnReset()
}

// NopSink 空实现，核心代码里不用到处判 nil
type NopSink struct{}

func (NopSink) OnCharacterCompleted(symbols, char string) {}
func (NopSink) OnWordCompleted(word string)               {}
func (NopSink) OnMessageCompleted(message string)         {}
func (NopSink) OnReset()                                  {}

// ConsoleSink 把事件打印到控制台
type ConsoleSink struct{}

func (ConsoleSink) OnCharacterCompleted(symbols, char string) {
	fmt.Printf("Morse: %s -> Character: %s\n", symbols, char)
}

func (ConsoleSink) OnWordCompleted(word string) {
	fmt.Printf("Word completed: '%s'\n", word)
}

func (ConsoleSink) OnMessageCompleted(message string) {
	fmt.Printf("\nComplete message: '%s'\n", message)
}

func (ConsoleSink) OnReset() {
	fmt.Println("\nSystem reset - ready for new message")
}

// MultiSink 把事件扇出给多个 sink
type MultiSink []EventSink

func (m MultiSink) OnCharacterCompleted(symbols, char string) {
	for _, s := range m {
		s.OnCharacterCompleted(symbols, char)
	}
}

func (m MultiSink) OnWordCompleted(word string) {
	for _, s := range m {
		s.OnWordCompleted(word)
	}
}

func (m MultiSink) OnMessageCompleted(message string) {
	for _, s := range m {
		s.OnMessageCompleted(message)
	}
}

func (m MultiSink) OnReset() {
	for _, s := range m {
		s.OnReset()
	}
}
