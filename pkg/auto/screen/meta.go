package screen

import (
	"math"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// CaptureMeta 截图元信息（缩放和偏移量）
// 高分屏上截图是物理像素，而屏幕坐标是逻辑坐标
type CaptureMeta struct {
	ScaleX  float64
	ScaleY  float64
	OffsetX int
	OffsetY int
}

// BuildCaptureMeta 根据期望尺寸和实际截图尺寸构建元信息
// region 为 nil 时期望尺寸为屏幕尺寸
func BuildCaptureMeta(region *Region, screenW, screenH, imgW, imgH int) CaptureMeta {
	expectedW, expectedH := screenW, screenH
	offsetX, offsetY := 0, 0
	if region != nil {
		expectedW = region.Width
		expectedH = region.Height
		offsetX = region.X
		offsetY = region.Y
	}

	scaleX := 1.0
	if expectedW > 0 && imgW > 0 {
		scaleX = float64(imgW) / float64(expectedW)
	}
	scaleY := 1.0
	if expectedH > 0 && imgH > 0 {
		scaleY = float64(imgH) / float64(expectedH)
	}

	return CaptureMeta{
		ScaleX:  scaleX,
		ScaleY:  scaleY,
		OffsetX: offsetX,
		OffsetY: offsetY,
	}
}

// ToScreen 把截图中的坐标换算为屏幕坐标（反向缩放 + 偏移）
func (m CaptureMeta) ToScreen(p cv.Point) cv.Point {
	return cv.Point{
		X: scaleCoord(p.X, m.ScaleX) + m.OffsetX,
		Y: scaleCoord(p.Y, m.ScaleY) + m.OffsetY,
	}
}

// AdjustPoints 批量换算坐标，返回新切片
func AdjustPoints(points []cv.Point, meta CaptureMeta) []cv.Point {
	out := make([]cv.Point, len(points))
	for i, p := range points {
		out[i] = meta.ToScreen(p)
	}
	return out
}

func scaleCoord(v int, scale float64) int {
	if scale <= 0 || scale == 1 {
		return v
	}
	return int(math.Round(float64(v) / scale))
}
