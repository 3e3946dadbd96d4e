package morsekey

import (
	"strings"
	"sync"
	"time"
)

// Keyer 手动键控的分段核心
// 输入是一串带时长的按键事件，输出是字符/单词/消息完成事件。
// 切分只看静默时长：
//   - 静默 >= Debounce + CharacterTimeout -> 点划 buffer 提升为字符
//   - 静默 >= WordTimeout                 -> 字符 buffer 提升为单词
//
// 按键线程和超时检查线程并发访问同一份状态，所有变更都在同一把锁下进行。
// 早期版本用 "正在处理字符" 的标志位防重入，会在解锁检查和加锁处理之间漏掉
// 时间变化，这里统一换成真正的互斥：加锁后重新计算条件再动手。
type Keyer struct {
	cfg  KeyerConfig
	sink EventSink

	mu           sync.Mutex
	symbolBuffer string    // 当前字符的点划序列
	message      string    // 当前单词已解码的字符
	words        []string  // 已完成的单词
	lastInput    time.Time // 最近一次接受输入的时刻，零值表示没有待处理的超时

	// 时钟注入，测试里替换
	now func() time.Time

	// 超时轮询
	monitorDone chan struct{}
	monitorWG   sync.WaitGroup

	debugger TimingDebugger
}

// NewKeyer 创建分段核心
// 时序参数非法时直接报错，不进入运行期
func NewKeyer(cfg KeyerConfig, sink EventSink) (*Keyer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Keyer{
		cfg:      cfg,
		sink:     sink,
		now:      time.Now,
		debugger: NoOpTimingDebugger{},
	}, nil
}

// SetDebugger 设置时序调试器，nil 恢复为空实现
func (k *Keyer) SetDebugger(d TimingDebugger) {
	if d == nil {
		d = NoOpTimingDebugger{}
	}
	k.mu.Lock()
	k.debugger = d
	k.mu.Unlock()
}

// OnPress 处理一次按键，duration 是按下到松开的时长
// 超过 LongPressThreshold 判为划，否则判为点。
// 计时基准取松开时刻：长划本身按住的几秒钟不计入后续的静默窗口。
// 返回判定结果，调用方用来做按键反馈音。
func (k *Keyer) OnPress(duration time.Duration) string {
	symbol := "."
	if duration >= k.cfg.LongPressThreshold {
		symbol = "-"
	}

	k.mu.Lock()
	k.symbolBuffer += symbol
	k.lastInput = k.now()
	k.debugger.RecordPress(k.lastInput, duration, symbol, k.symbolBuffer)
	k.mu.Unlock()

	return symbol
}

// CheckTimeouts 执行一次超时检查
// 字符检查优先于单词检查，同一次 tick 里最多发生一种提升：
// 点划 buffer 非空时永远先走字符路径，单词路径只在 buffer 已空时评估。
func (k *Keyer) CheckTimeouts(now time.Time) {
	k.mu.Lock()

	if k.lastInput.IsZero() {
		k.mu.Unlock()
		return
	}
	idle := now.Sub(k.lastInput)

	// 字符提升
	// 宽限 (Debounce) 只加在这里：松开时刻刚好卡在 CharacterTimeout 边缘、
	// 紧接着还要补同一字符下一笔的情况，不能把一个字符劈成两个
	if idle >= k.cfg.Debounce+k.cfg.CharacterTimeout && k.symbolBuffer != "" && idle < k.cfg.WordTimeout {
		symbols := k.symbolBuffer
		char := Decode(symbols)
		k.message += char
		k.symbolBuffer = ""
		// 重新武装静默窗口：下一个字符不背负等待本字符超时消耗掉的时间
		k.lastInput = now
		k.debugger.RecordPromotion(now, "character", symbols, char)
		k.mu.Unlock()

		// sink 可能很慢 (渲染、发声)，事件 payload 拷出来之后在锁外通知
		k.sink.OnCharacterCompleted(symbols, char)
		return
	}

	// 单词提升
	if idle >= k.cfg.WordTimeout && k.message != "" && k.symbolBuffer == "" {
		word := k.message
		k.words = append(k.words, word)
		k.message = ""
		// 新输入到来之前不再有任何隐式提升
		k.lastInput = time.Time{}
		k.debugger.RecordPromotion(now, "word", "", word)
		k.mu.Unlock()

		k.sink.OnWordCompleted(word)
		return
	}

	k.mu.Unlock()
}

// StartMonitor 启动后台超时轮询
// 固定间隔轮询是原型一直用的实现；间隔 100ms 对 1.5s/3s 的阈值来说误差可以忽略
func (k *Keyer) StartMonitor() {
	k.monitorDone = make(chan struct{})
	k.monitorWG.Add(1)
	go func() {
		defer k.monitorWG.Done()
		ticker := time.NewTicker(k.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-k.monitorDone:
				return
			case <-ticker.C:
				k.CheckTimeouts(k.now())
			}
		}
	}()
}

// StopMonitor 停止后台轮询并等待退出
func (k *Keyer) StopMonitor() {
	if k.monitorDone == nil {
		return
	}
	close(k.monitorDone)
	k.monitorWG.Wait()
	k.monitorDone = nil
}

// CompleteMessage 结束整条消息
// 先把残留的点划 buffer 强制提升为字符 (末尾输入不能丢)，再把残留的单词
// 收进列表，最后用空格拼成消息。全空时是 no-op：返回 ok=false，不发事件。
func (k *Keyer) CompleteMessage() (string, bool) {
	k.mu.Lock()

	var flushedSymbols, flushedChar string
	if k.symbolBuffer != "" {
		flushedSymbols = k.symbolBuffer
		flushedChar = Decode(flushedSymbols)
		k.message += flushedChar
		k.symbolBuffer = ""
		k.debugger.RecordPromotion(k.now(), "character", flushedSymbols, flushedChar)
	}
	if k.message != "" {
		k.words = append(k.words, k.message)
		k.message = ""
	}

	if len(k.words) == 0 {
		// 什么都没输入过，静默返回
		k.lastInput = time.Time{}
		k.mu.Unlock()
		return "", false
	}

	msg := strings.Join(k.words, " ")
	k.words = nil
	k.lastInput = time.Time{}
	k.debugger.RecordPromotion(k.now(), "message", "", msg)
	k.mu.Unlock()

	if flushedSymbols != "" {
		k.sink.OnCharacterCompleted(flushedSymbols, flushedChar)
	}
	k.sink.OnMessageCompleted(msg)
	return msg, true
}

// Reset 无条件清空全部状态
// 任何时刻都可以调：它和其他变更一样排队拿锁，拿到就赢。永远发一次 reset 事件。
func (k *Keyer) Reset() {
	k.mu.Lock()
	k.symbolBuffer = ""
	k.message = ""
	k.words = nil
	k.lastInput = time.Time{}
	k.debugger.RecordPromotion(k.now(), "reset", "", "")
	k.mu.Unlock()

	k.sink.OnReset()
}

// Snapshot 返回当前状态的拷贝，用于显示和测试
func (k *Keyer) Snapshot() (symbolBuffer, message string, words []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.symbolBuffer, k.message, append([]string(nil), k.words...)
}
