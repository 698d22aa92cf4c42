package cv

// MismatchBudget 计算允许的不匹配像素数 floor(pixelCount * percentage / 100)
func MismatchBudget(pixelCount, percentage int) int {
	if pixelCount <= 0 || percentage <= 0 {
		return 0
	}
	return pixelCount * percentage / 100
}

// EvaluateWindow 判断模板放在 origin 处的窗口是否通过
// 不匹配像素数一旦超过 budget 立即返回 false；调用方保证窗口完全位于源图像内
func EvaluateWindow(source, template *Image, origin Point, matcher PixelMatcher, budget int) bool {
	if ct, ok := matcher.(ChannelTolerance); ok {
		return evaluateChannel(source, template, origin, uint8(ct), budget)
	}

	fails := 0
	for ty := 0; ty < template.Height; ty++ {
		for tx := 0; tx < template.Width; tx++ {
			if matcher.Match(source.At(origin.X+tx, origin.Y+ty), template.At(tx, ty)) {
				continue
			}
			fails++
			if fails > budget {
				return false
			}
		}
	}
	return true
}

// evaluateChannel 逐通道容差的快速路径，直接读取像素切片
func evaluateChannel(source, template *Image, origin Point, tolerance uint8, budget int) bool {
	t := int16(tolerance)
	rowBytes := template.Width * 4
	fails := 0

	for ty := 0; ty < template.Height; ty++ {
		s := source.Pix[((origin.Y+ty)*source.Width+origin.X)*4:]
		p := template.Pix[ty*rowBytes : (ty+1)*rowBytes]

		for i := 0; i < rowBytes; i += 4 {
			for c := 0; c < 4; c++ {
				d := int16(s[i+c]) - int16(p[i+c])
				if d > t || d < -t {
					fails++
					break
				}
			}
			if fails > budget {
				return false
			}
		}
	}
	return true
}
