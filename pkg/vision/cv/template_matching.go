package cv

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/anthonynsimon/bild/parallel"
)

// TemplateMatching 容差模板匹配器
// 穷举搜索区域内所有候选左上角，按行分片并行评估
type TemplateMatching struct {
	imSearch   *Image
	imSource   *Image
	matcher    PixelMatcher
	percentage int
	zone       SearchZone
	sorted     bool
}

// NewTemplateMatching 创建模板匹配器，默认使用逐通道容差、全图搜索、结果排序
func NewTemplateMatching(search, source *Image, tolerance uint8, percentage int) *TemplateMatching {
	return &TemplateMatching{
		imSearch:   search,
		imSource:   source,
		matcher:    ChannelTolerance(tolerance),
		percentage: percentage,
		sorted:     true,
	}
}

// WithZone 限制搜索区域，零值表示整幅图像
func (t *TemplateMatching) WithZone(zone SearchZone) *TemplateMatching {
	t.zone = zone
	return t
}

// WithMatcher 替换像素比较器
func (t *TemplateMatching) WithMatcher(m PixelMatcher) *TemplateMatching {
	if m != nil {
		t.matcher = m
	}
	return t
}

// WithSorted 设置是否按 (y, x) 排序结果
func (t *TemplateMatching) WithSorted(sorted bool) *TemplateMatching {
	t.sorted = sorted
	return t
}

// FindAllResults 返回所有通过的窗口左上角
// 搜索区域非法时返回 *ZoneError；模板放不进区域时返回空结果
func (t *TemplateMatching) FindAllResults(ctx context.Context) ([]Point, error) {
	if t.imSource.Empty() || t.imSearch.Empty() {
		return nil, ErrEmptyImage
	}

	zone := t.zone
	if zone.IsZero() {
		zone = FullZone(t.imSource)
	}
	if err := zone.Validate(t.imSource.Width, t.imSource.Height); err != nil {
		return nil, err
	}

	origins, ok := zone.OriginRange(t.imSource.Width, t.imSource.Height, t.imSearch.Width, t.imSearch.Height)
	if !ok {
		return []Point{}, nil
	}

	budget := MismatchBudget(t.imSearch.PixelCount(), t.percentage)

	var mu sync.Mutex
	results := make([]Point, 0)

	parallel.Line(origins.Dy(), func(start, end int) {
		var local []Point
		for row := start; row < end; row++ {
			if ctx.Err() != nil {
				return
			}
			y := origins.Min.Y + row
			for x := origins.Min.X; x < origins.Max.X; x++ {
				origin := Point{X: x, Y: y}
				if EvaluateWindow(t.imSource, t.imSearch, origin, t.matcher, budget) {
					local = append(local, origin)
				}
			}
		}

		if len(local) > 0 {
			mu.Lock()
			results = append(results, local...)
			mu.Unlock()
		}
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("匹配被取消: %w", err)
	}

	if t.sorted {
		SortPoints(results)
	}
	return results, nil
}

// Search 便捷函数：在 zone 内搜索 template，结果按 (y, x) 排序
func Search(ctx context.Context, source, template *Image, tolerance uint8, percentage int, zone SearchZone) ([]Point, error) {
	return NewTemplateMatching(template, source, tolerance, percentage).
		WithZone(zone).
		FindAllResults(ctx)
}

// SortPoints 按 y 再按 x 排序
func SortPoints(points []Point) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Y != points[j].Y {
			return points[i].Y < points[j].Y
		}
		return points[i].X < points[j].X
	})
}
