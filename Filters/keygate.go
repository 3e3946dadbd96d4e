package Filters

/*
块域的施密特触发器
判断当前的包络块是 mark 还是 space

同时做去抖：太短的抖动不算状态切换，会被并回原状态
*/

// Transition 代表一次完整的状态结束事件
// 例如：一个 MARK 刚刚结束，持续了 12 个块
type Transition struct {
	FinishedMark bool // 刚刚结束的状态 (true=Mark/按下, false=Space/松开)
	Blocks       int  // 该状态持续了多少个块
}

// KeyGate 结合了滞回比较器（施密特）和块计数去抖
// 输入是每块一个的归一化包络值，输出是确认后的按键边沿
type KeyGate struct {
	// 配置参数
	thresholdHigh  float64
	thresholdLow   float64
	debounceBlocks int // 需要连续多少块确认去抖

	// 内部状态
	currentState    bool // 当前稳定的状态
	totalBlocks     int
	stateStartBlock int

	// 去抖动临时状态
	pendingChange    bool
	changeStartBlock int

	thresholder *AdaptiveThresholder // 可选的动态阈值，nil 表示固定阈值
}

// NewKeyGate 创建触发器，固定阈值模式
func NewKeyGate(high, low float64, debounceBlocks int) *KeyGate {
	if debounceBlocks < 1 {
		debounceBlocks = 1
	}
	return &KeyGate{
		thresholdHigh:  high,
		thresholdLow:   low,
		debounceBlocks: debounceBlocks,
		currentState:   false, // 默认为静音
	}
}

// NewAutoKeyGate 创建带动态阈值追踪的触发器
func NewAutoKeyGate(debounceBlocks int) *KeyGate {
	g := NewKeyGate(0.5, 0.4, debounceBlocks)
	// 块率远低于采样率，衰减系数相应放快
	g.thresholder = NewAdaptiveThresholder(0.98, 0.1)
	return g
}

// Feed 输入一个包络块，返回状态变化事件
// 没有发生状态切换（或者切换被去抖过滤了）时返回 nil
func (g *KeyGate) Feed(envelope float64) *Transition {
	g.totalBlocks++

	if g.thresholder != nil {
		high, low := g.thresholder.Update(envelope)
		g.thresholdHigh = high
		g.thresholdLow = low
	}

	// 1. 原始施密特逻辑
	rawSignal := g.currentState
	if g.currentState {
		// 当前是 Mark，只有低于 Low 才掉回 Space
		if envelope < g.thresholdLow {
			rawSignal = false
		}
	} else {
		// 当前是 Space，只有高于 High 才进入 Mark
		if envelope > g.thresholdHigh {
			rawSignal = true
		}
	}

	// 2. 去抖动逻辑
	if rawSignal == g.currentState {
		// 信号稳定（或者回到了原状态），取消任何待定的变更
		g.pendingChange = false
		return nil
	}

	if !g.pendingChange {
		g.pendingChange = true
		g.changeStartBlock = g.totalBlocks
	}

	pending := g.totalBlocks - g.changeStartBlock + 1
	if pending < g.debounceBlocks {
		return nil
	}

	// --- 确认状态变更 ---
	// 上一个状态的持续时长截止到 pending 开始的那一刻，而不是现在
	prevBlocks := g.changeStartBlock - g.stateStartBlock
	finished := g.currentState

	g.currentState = rawSignal
	g.stateStartBlock = g.changeStartBlock
	g.pendingChange = false

	return &Transition{
		FinishedMark: finished,
		Blocks:       prevBlocks,
	}
}

// CurrentState 获取当前稳定状态
func (g *KeyGate) CurrentState() bool {
	return g.currentState
}

// SetThresholds 动态调整阈值
func (g *KeyGate) SetThresholds(high, low float64) {
	g.thresholdHigh = high
	g.thresholdLow = low
}
