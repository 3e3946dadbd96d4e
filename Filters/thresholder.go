package Filters

// AdaptiveThresholder 实现双路包络追踪，用于生成动态的施密特触发阈值。
// 可以抵抗音量变化，并在完全没有信号时自动静噪。
type AdaptiveThresholder struct {
	// 状态变量
	maxLevel float64 // 追踪信号顶部的包络 (Signal Peak)
	minLevel float64 // 追踪底噪的基准 (Noise Floor)

	// 配置参数
	decayRate float64 // 衰减系数 (0.0 ~ 1.0)，控制 max 下降和 min 上升的速度
	minRange  float64 // 最小动态范围，小于此值视为静噪开启
}

// NewAdaptiveThresholder 初始化追踪器
// decayRate: 块域推荐 0.98 左右
// minRange: 视输入归一化策略而定，推荐 0.1
func NewAdaptiveThresholder(decayRate, minRange float64) *AdaptiveThresholder {
	return &AdaptiveThresholder{
		decayRate: decayRate,
		minRange:  minRange,
	}
}

// Update 更新追踪器状态并计算当前的迟滞阈值。
// 输入 sample: 归一化的包络值 (0.0 ~ 1.0)
// 输出 high, low: 用于施密特触发器的动态阈值
func (at *AdaptiveThresholder) Update(sample float64) (high, low float64) {
	// 1. Max Level 追踪 (Fast Attack, Slow Decay)
	// 样本超过峰值立即更新，否则按系数衰减以适应音量下降
	if sample > at.maxLevel {
		at.maxLevel = sample
	} else {
		at.maxLevel *= at.decayRate
	}

	// 2. Min Level 追踪 (Fast Attack Down, Slow Recovery Up)
	// 样本低于底噪基准立即压下去，否则缓慢向 maxLevel 漂浮，
	// 直到碰到真实的底噪样本再被压回
	if sample < at.minLevel {
		at.minLevel = sample
	} else {
		at.minLevel += (at.maxLevel - at.minLevel) * (1.0 - at.decayRate)
	}

	// 防止浮点漂移导致的异常交叉
	if at.minLevel > at.maxLevel {
		at.minLevel = at.maxLevel
	}

	// 3. 动态范围
	dynRange := at.maxLevel - at.minLevel

	// 4. 静噪 (Squelch)
	// 动态范围太小说明没有有效信号，返回输入永远达不到的阈值，强制输出 Space
	if dynRange < at.minRange {
		return 10.0, 9.0
	}

	// 5. 迟滞阈值：中点上下各留 5% 的缓冲区
	center := at.minLevel + dynRange*0.5
	hysteresis := dynRange * 0.05

	return center + hysteresis, center - hysteresis
}
