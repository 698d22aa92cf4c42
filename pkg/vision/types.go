package vision

import (
	"time"

	"github.com/zoeyai/zoeymatch/pkg/vision/annotate"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// Version 版本号
const Version = "1.0.0"

// 类型别名
type (
	Point      = cv.Point
	SearchZone = cv.SearchZone
	Template   = cv.Template
	Image      = cv.Image
)

// MatchResult 单个模板的匹配结果
type MatchResult struct {
	// Index 模板提交顺序
	Index int `json:"index"`
	// Name 模板名称
	Name string `json:"name"`
	// Path 模板文件路径
	Path       string `json:"path,omitempty"`
	Tolerance  uint8  `json:"tolerance"`
	Percentage int    `json:"percentage"`
	// Origins 通过匹配的窗口左上角
	Origins []Point `json:"origins"`
	// Elapsed 该模板的匹配耗时
	Elapsed time.Duration `json:"elapsed"`
	// Err 该模板单独失败时的错误，不影响其他模板
	Err error `json:"-"`
}

// Found 是否有匹配
func (r *MatchResult) Found() bool {
	return len(r.Origins) > 0
}

// TemplateFailure 加载阶段失败、未提交匹配的模板
type TemplateFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// OutputSet 一次匹配运行的全部结果
// Results 的下标与模板提交顺序一致，与完成顺序无关
type OutputSet struct {
	Results  []MatchResult     `json:"results"`
	Failures []TemplateFailure `json:"failures,omitempty"`
	Warnings []cv.ParseWarning `json:"warnings,omitempty"`
	// Elapsed 整次运行的总耗时
	Elapsed time.Duration `json:"elapsed"`
}

// Origins 按提交顺序返回每个模板的匹配位置
func (o *OutputSet) Origins() [][]Point {
	out := make([][]Point, len(o.Results))
	for i := range o.Results {
		out[i] = o.Results[i].Origins
	}
	return out
}

// TotalMatches 所有模板的匹配总数
func (o *OutputSet) TotalMatches() int {
	n := 0
	for i := range o.Results {
		n += len(o.Results[i].Origins)
	}
	return n
}

// Groups 转换为标注分组
func (o *OutputSet) Groups() []annotate.Group {
	groups := make([]annotate.Group, len(o.Results))
	for i, r := range o.Results {
		groups[i] = annotate.Group{Label: r.Name, Origins: r.Origins}
	}
	return groups
}
