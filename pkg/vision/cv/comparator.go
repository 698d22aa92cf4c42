package cv

import (
	"github.com/lucasb-eyer/go-colorful"
)

// PixelsMatch 判断两个像素在容差内是否匹配
// 四个通道的绝对差都不超过 tolerance 时返回 true
func PixelsMatch(a, b Pixel, tolerance uint8) bool {
	t := int16(tolerance)
	for i := 0; i < 4; i++ {
		d := int16(a[i]) - int16(b[i])
		if d > t || d < -t {
			return false
		}
	}
	return true
}

// PixelMatcher 像素比较器
type PixelMatcher interface {
	Match(a, b Pixel) bool
}

// ChannelTolerance 逐通道绝对差比较
type ChannelTolerance uint8

// Match 实现 PixelMatcher
func (t ChannelTolerance) Match(a, b Pixel) bool {
	return PixelsMatch(a, b, uint8(t))
}

// DeltaETolerance CIEDE2000 色差比较
// RGB 部分要求 ΔE <= Tolerance/255，alpha 通道仍按绝对差比较
type DeltaETolerance uint8

// Match 实现 PixelMatcher
func (t DeltaETolerance) Match(a, b Pixel) bool {
	da := int16(a[3]) - int16(b[3])
	if da > int16(t) || da < -int16(t) {
		return false
	}
	if a[0] == b[0] && a[1] == b[1] && a[2] == b[2] {
		return true
	}
	return toColorful(a).DistanceCIEDE2000(toColorful(b)) <= float64(t)/255.0
}

func toColorful(p Pixel) colorful.Color {
	return colorful.Color{
		R: float64(p[0]) / 255.0,
		G: float64(p[1]) / 255.0,
		B: float64(p[2]) / 255.0,
	}
}

// NewPixelMatcher 根据比较方式和容差创建比较器
func NewPixelMatcher(metric Metric, tolerance uint8) PixelMatcher {
	if metric == MetricCIEDE2000 {
		return DeltaETolerance(tolerance)
	}
	return ChannelTolerance(tolerance)
}
