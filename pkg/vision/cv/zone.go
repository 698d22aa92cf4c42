package cv

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// SearchZone 源图像坐标系中的搜索矩形，限制候选窗口左上角的范围
type SearchZone struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FullZone 覆盖整幅图像的搜索区域
func FullZone(img *Image) SearchZone {
	return SearchZone{Width: img.Width, Height: img.Height}
}

// ParseSearchZone 解析 "left,top,width,height" 格式
func ParseSearchZone(s string) (SearchZone, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return SearchZone{}, fmt.Errorf("无效的搜索区域格式: %s (期望格式: left,top,width,height)", s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return SearchZone{}, fmt.Errorf("无效的搜索区域数值: %s", p)
		}
		v[i] = n
	}
	return SearchZone{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}, nil
}

func (z SearchZone) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", z.Left, z.Top, z.Width, z.Height)
}

// IsZero 是否为零值（未配置）
func (z SearchZone) IsZero() bool {
	return z == SearchZone{}
}

// Rect 转换为 image.Rectangle
func (z SearchZone) Rect() image.Rectangle {
	return image.Rect(z.Left, z.Top, z.Left+z.Width, z.Top+z.Height)
}

// Validate 检查搜索区域是否适用于给定尺寸的源图像
// 宽高超过源图像或出现负值属于配置错误
func (z SearchZone) Validate(sourceWidth, sourceHeight int) error {
	fail := func(reason string) error {
		return &ZoneError{Zone: z, SourceWidth: sourceWidth, SourceHeight: sourceHeight, Reason: reason}
	}

	if z.Left < 0 || z.Top < 0 || z.Width < 0 || z.Height < 0 {
		return fail("坐标和尺寸不能为负数")
	}
	if z.Width > sourceWidth {
		return fail("区域宽度超过源图像宽度")
	}
	if z.Height > sourceHeight {
		return fail("区域高度超过源图像高度")
	}
	return nil
}

// OriginRange 计算候选窗口左上角的范围（左闭右开）
// x 属于 [left, left+width-tw]，y 属于 [top, top+height-th]，并保证窗口不越出源图像
// 模板放不进区域时返回 ok=false
func (z SearchZone) OriginRange(sourceWidth, sourceHeight, tw, th int) (r image.Rectangle, ok bool) {
	if tw <= 0 || th <= 0 {
		return image.Rectangle{}, false
	}

	usable := z.Rect().Intersect(image.Rect(0, 0, sourceWidth, sourceHeight))
	if usable.Dx() < tw || usable.Dy() < th {
		return image.Rectangle{}, false
	}

	return image.Rect(usable.Min.X, usable.Min.Y, usable.Max.X-tw+1, usable.Max.Y-th+1), true
}
