package morsekey

import (
	"math"
)

// Goertzel 用于检测特定频率的能量
// 比整块 FFT 便宜得多，适合逐块跑在键入音的目标频率上
type Goertzel struct {
	sampleRate float64
	targetFreq float64
	coeff      float64
	q1         float64
	q2         float64
}

// NewGoertzel 初始化算法
// coeff = 2 * cos(2 * PI * targetFreq / sampleRate)
func NewGoertzel(sampleRate, targetFreq float64) *Goertzel {
	normalizedFreq := targetFreq / sampleRate
	return &Goertzel{
		sampleRate: sampleRate,
		targetFreq: targetFreq,
		coeff:      2.0 * math.Cos(2.0*math.Pi*normalizedFreq),
	}
}

// Reset 重置状态，每处理完一个块后调用
func (g *Goertzel) Reset() {
	g.q1 = 0
	g.q2 = 0
}

// ProcessSample 处理单个采样点
func (g *Goertzel) ProcessSample(sample float64) {
	q0 := g.coeff*g.q1 - g.q2 + sample
	g.q2 = g.q1
	g.q1 = q0
}

// Magnitude 计算当前块的能量幅度
// magnitude^2 = q1^2 + q2^2 - q1*q2*coeff
func (g *Goertzel) Magnitude() float64 {
	magnitudeSquared := g.q1*g.q1 + g.q2*g.q2 - g.q1*g.q2*g.coeff
	if magnitudeSquared < 0 {
		return 0
	}
	return math.Sqrt(magnitudeSquared)
}

// BlockMagnitude 处理一整块并返回归一化幅度 (满幅正弦约等于 1.0)
// 内部会先 Reset，块之间互不影响
func (g *Goertzel) BlockMagnitude(samples []float64) float64 {
	g.Reset()
	for _, s := range samples {
		g.ProcessSample(s)
	}
	// N/2 归一化：块内正好整数个周期的满幅正弦得到幅度 1.0
	return g.Magnitude() * 2.0 / float64(len(samples))
}
