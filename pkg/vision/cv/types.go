// Package cv 提供容差模板匹配引擎
package cv

import "image"

// Point 表示二维坐标点（窗口左上角）
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rectangle 表示矩形区域（四个角点）
type Rectangle struct {
	TopLeft     Point `json:"top_left"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
	TopRight    Point `json:"top_right"`
}

// NewRectangle 从左上角坐标和宽高创建矩形
func NewRectangle(x, y, w, h int) Rectangle {
	return Rectangle{
		TopLeft:     Point{X: x, Y: y},
		BottomLeft:  Point{X: x, Y: y + h},
		BottomRight: Point{X: x + w, Y: y + h},
		TopRight:    Point{X: x + w, Y: y},
	}
}

// ToImageRect 转换为 image.Rectangle
func (r Rectangle) ToImageRect() image.Rectangle {
	return image.Rect(r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
}

// 默认参数
const (
	// DefaultTolerance 单通道最大允许差值
	DefaultTolerance uint8 = 30
	// DefaultPercentage 允许不匹配像素的百分比
	DefaultPercentage = 25
)

// Metric 像素比较方式
type Metric string

const (
	// MetricChannel RGBA 逐通道绝对差
	MetricChannel Metric = "channel"
	// MetricCIEDE2000 CIEDE2000 色差（alpha 仍逐通道比较）
	MetricCIEDE2000 Metric = "ciede2000"
)

// ParseMetric 解析比较方式字符串，未知值回退到 MetricChannel
func ParseMetric(s string) (Metric, bool) {
	switch Metric(s) {
	case MetricChannel, "":
		return MetricChannel, true
	case MetricCIEDE2000, "deltae":
		return MetricCIEDE2000, true
	default:
		return MetricChannel, false
	}
}
