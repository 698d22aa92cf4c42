package vision

import (
	"fmt"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/annotate"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/grid"
)

// Options 全局配置选项
type Options struct {
	// Metric 像素比较方式，默认逐通道
	Metric cv.Metric
	// Sorted 是否按 (y, x) 排序每个模板的结果
	Sorted bool
	// Concurrency 同时运行的模板任务数，0 表示不限制
	Concurrency int

	// Debug 是否输出耗时、坐标并保存标注图
	Debug bool
	// OutputPath 标注结果图路径
	OutputPath string
	// Labels 标注图上是否绘制模板名称
	Labels bool
}

// DefaultOptions 默认配置
var DefaultOptions = Options{
	Metric:      cv.MetricChannel,
	Sorted:      true,
	Concurrency: 0,
	Debug:       false,
	OutputPath:  annotate.DefaultOutputPath,
	Labels:      false,
}

// globalOptions 全局配置实例
var globalOptions = DefaultOptions

// GetOptions 获取当前全局配置
func GetOptions() *Options {
	return &globalOptions
}

// SetOptions 设置全局配置
func SetOptions(opts Options) {
	globalOptions = opts
}

// ResetOptions 重置为默认配置
func ResetOptions() {
	globalOptions = DefaultOptions
}

// Option 配置选项函数类型
type Option func(*matchConfig)

// matchConfig 单次匹配的临时配置
type matchConfig struct {
	zone        cv.SearchZone
	grid        *grid.GridPosition
	metric      cv.Metric
	sorted      bool
	concurrency int
	debug       bool
	outputPath  string
	labels      bool
}

// defaultMatchConfig 默认匹配配置
func defaultMatchConfig() *matchConfig {
	return &matchConfig{
		metric:      globalOptions.Metric,
		sorted:      globalOptions.Sorted,
		concurrency: globalOptions.Concurrency,
		debug:       globalOptions.Debug,
		outputPath:  globalOptions.OutputPath,
		labels:      globalOptions.Labels,
	}
}

func buildMatchConfig(opts []Option) *matchConfig {
	cfg := defaultMatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithZone 限制搜索区域，零值表示整幅源图像
func WithZone(zone cv.SearchZone) Option {
	return func(c *matchConfig) {
		c.zone = zone
	}
}

// WithGrid 以源图像的网格单元格作为搜索区域，优先于 WithZone
func WithGrid(g *grid.GridPosition) Option {
	return func(c *matchConfig) {
		c.grid = g
	}
}

// resolveZone 根据源图像尺寸确定搜索区域并校验
// 网格或区域非法时返回 *cv.ZoneError
func (c *matchConfig) resolveZone(source *cv.Image) (cv.SearchZone, error) {
	zone := c.zone
	if c.grid != nil {
		if err := c.grid.Validate(); err != nil {
			return cv.SearchZone{}, &cv.ZoneError{
				SourceWidth:  source.Width,
				SourceHeight: source.Height,
				Reason:       fmt.Sprintf("网格 %s 无效: %v", c.grid, err),
			}
		}
		zone = c.grid.Zone(source.Width, source.Height)
		if c.debug {
			logGridCells(c.grid, source.Width, source.Height)
		}
	}

	if !zone.IsZero() {
		if err := zone.Validate(source.Width, source.Height); err != nil {
			return cv.SearchZone{}, err
		}
	}
	return zone, nil
}

// WithMetric 设置像素比较方式
func WithMetric(metric cv.Metric) Option {
	return func(c *matchConfig) {
		c.metric = metric
	}
}

// WithSorted 设置是否排序结果
func WithSorted(sorted bool) Option {
	return func(c *matchConfig) {
		c.sorted = sorted
	}
}

// WithConcurrency 限制同时运行的模板任务数
func WithConcurrency(n int) Option {
	return func(c *matchConfig) {
		c.concurrency = n
	}
}

// WithDebug 开启调试输出
func WithDebug(debug bool) Option {
	return func(c *matchConfig) {
		c.debug = debug
	}
}

// WithOutputPath 设置标注结果图路径，空字符串表示不保存
func WithOutputPath(path string) Option {
	return func(c *matchConfig) {
		c.outputPath = path
	}
}

// WithLabels 标注图上绘制模板名称
func WithLabels(labels bool) Option {
	return func(c *matchConfig) {
		c.labels = labels
	}
}

// logGridCells 调试模式下输出网格的全部单元格，选中的单元格带 * 标记
func logGridCells(g *grid.GridPosition, width, height int) {
	for i, cell := range grid.Cells(g.Rows, g.Cols, width, height) {
		row, col := i/g.Cols+1, i%g.Cols+1
		mark := " "
		if row == g.Row && col == g.Col {
			mark = "*"
		}
		logger.Debug("%s 网格 (%d,%d): %+v", mark, row, col, cell)
	}
}
