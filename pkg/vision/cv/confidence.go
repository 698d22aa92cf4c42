package cv

import (
	"github.com/anthonynsimon/bild/parallel"
)

// SimilarityMap 穷举计算每个窗口位置的相似度
// sim = maxDiff - Σ|source-template|（所有通道），sim >= threshold 时保留，否则为 0
// 返回 (H-th+1) 行 (W-tw+1) 列，模板大于源图像时返回 nil
func SimilarityMap(source, template *Image, threshold, maxDiff int) [][]int {
	if source.Empty() || template.Empty() {
		return nil
	}
	cols := source.Width - template.Width + 1
	rows := source.Height - template.Height + 1
	if cols <= 0 || rows <= 0 {
		return nil
	}

	out := make([][]int, rows)
	rowBytes := template.Width * 4

	parallel.Line(rows, func(start, end int) {
		for y := start; y < end; y++ {
			line := make([]int, cols)
			for x := 0; x < cols; x++ {
				diff := 0
				for ty := 0; ty < template.Height; ty++ {
					s := source.Pix[((y+ty)*source.Width+x)*4:]
					p := template.Pix[ty*rowBytes : (ty+1)*rowBytes]
					for i := 0; i < rowBytes; i++ {
						diff += abs(int(s[i]) - int(p[i]))
					}
				}
				if sim := maxDiff - diff; sim >= threshold {
					line[x] = sim
				}
			}
			out[y] = line
		}
	})

	return out
}

// MaxSimilarity 返回相似度图中的最大值及位置
func MaxSimilarity(m [][]int) (Point, int) {
	best, bestVal := Point{}, 0
	for y, row := range m {
		for x, v := range row {
			if v > bestVal {
				best, bestVal = Point{X: x, Y: y}, v
			}
		}
	}
	return best, bestVal
}

// abs 返回绝对值
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
