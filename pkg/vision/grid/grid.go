// Package grid 把源图像划分为网格，用网格单元格作为搜索区域
package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// GridPosition 网格位置
type GridPosition struct {
	Rows int `json:"rows"` // 总行数
	Cols int `json:"cols"` // 总列数
	Row  int `json:"row"`  // 目标行 (1-based)
	Col  int `json:"col"`  // 目标列 (1-based)
}

// ParseGridPosition 解析网格位置字符串
// 格式: rows.cols.row.col (如 "2.2.1.1" 表示 2x2 网格的第1行第1列)
func ParseGridPosition(s string) (*GridPosition, error) {
	if s == "" {
		return nil, fmt.Errorf("网格位置字符串为空")
	}

	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil, fmt.Errorf("无效的网格位置格式: %s (期望格式: rows.cols.row.col)", s)
	}

	names := [4]string{"行数", "列数", "目标行", "目标列"}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("无效的%s: %s", names[i], p)
		}
		v[i] = n
	}

	g := &GridPosition{Rows: v[0], Cols: v[1], Row: v[2], Col: v[3]}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate 检查网格位置
func (g *GridPosition) Validate() error {
	if g.Rows < 1 || g.Cols < 1 {
		return fmt.Errorf("行数和列数必须大于 0: rows=%d, cols=%d", g.Rows, g.Cols)
	}
	if g.Row < 1 || g.Col < 1 {
		return fmt.Errorf("目标行和目标列必须大于 0: row=%d, col=%d", g.Row, g.Col)
	}
	if g.Row > g.Rows || g.Col > g.Cols {
		return fmt.Errorf("目标位置超出范围: row=%d > rows=%d 或 col=%d > cols=%d", g.Row, g.Rows, g.Col, g.Cols)
	}
	return nil
}

// String 格式化为 rows.cols.row.col
func (g *GridPosition) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", g.Rows, g.Cols, g.Row, g.Col)
}

// Zone 计算单元格在 width x height 图像中的搜索区域
// 相邻单元格首尾相接，所有单元格合起来正好覆盖整幅图像
func (g *GridPosition) Zone(width, height int) cv.SearchZone {
	x0 := (g.Col - 1) * width / g.Cols
	x1 := g.Col * width / g.Cols
	y0 := (g.Row - 1) * height / g.Rows
	y1 := g.Row * height / g.Rows

	return cv.SearchZone{
		Left:   x0,
		Top:    y0,
		Width:  x1 - x0,
		Height: y1 - y0,
	}
}

// Cells 按行优先顺序返回 rows x cols 网格的所有单元格
func Cells(rows, cols, width, height int) []cv.SearchZone {
	if rows < 1 || cols < 1 {
		return nil
	}

	zones := make([]cv.SearchZone, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			g := GridPosition{Rows: rows, Cols: cols, Row: r, Col: c}
			zones = append(zones, g.Zone(width, height))
		}
	}
	return zones
}
