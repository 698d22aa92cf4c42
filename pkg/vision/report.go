package vision

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/process"
)

// Summary 一次运行的统计摘要
type Summary struct {
	Templates    int           `json:"templates"`
	Matched      int           `json:"matched"`
	Failed       int           `json:"failed"`
	TotalMatches int           `json:"total_matches"`
	Total        time.Duration `json:"total"`
	// MeanTemplate / StdDevTemplate 单模板耗时的均值和标准差
	MeanTemplate   time.Duration `json:"mean_template"`
	StdDevTemplate time.Duration `json:"stddev_template"`
	// Slowest 耗时最长的模板下标，没有模板时为 -1
	Slowest int `json:"slowest"`
}

// Summary 计算统计摘要
func (o *OutputSet) Summary() Summary {
	s := Summary{
		Templates:    len(o.Results),
		Failed:       len(o.Failures),
		TotalMatches: o.TotalMatches(),
		Total:        o.Elapsed,
		Slowest:      -1,
	}

	elapsed := make([]float64, 0, len(o.Results))
	var slowest time.Duration
	for i, r := range o.Results {
		if r.Err != nil {
			s.Failed++
			continue
		}
		if r.Found() {
			s.Matched++
		}
		elapsed = append(elapsed, float64(r.Elapsed))
		if s.Slowest < 0 || r.Elapsed > slowest {
			s.Slowest, slowest = i, r.Elapsed
		}
	}

	switch len(elapsed) {
	case 0:
	case 1:
		s.MeanTemplate = time.Duration(elapsed[0])
	default:
		mean, std := stat.MeanStdDev(elapsed, nil)
		s.MeanTemplate = time.Duration(mean)
		s.StdDevTemplate = time.Duration(std)
	}

	return s
}

// reportDebug 输出调试信息：每个模板的坐标、统计摘要和进程资源
func reportDebug(out *OutputSet) {
	for i, r := range out.Results {
		logger.Info("模板 %d (%s) 匹配坐标: %v", i+1, r.Name, r.Origins)
	}

	s := out.Summary()
	logger.Info("模板 %d 个, 有匹配 %d 个, 失败 %d 个, 匹配总数 %d",
		s.Templates, s.Matched, s.Failed, s.TotalMatches)
	logger.Info("单模板耗时: 均值 %s, 标准差 %s", s.MeanTemplate, s.StdDevTemplate)

	if stats, err := process.Self(); err == nil {
		logger.Debug("进程资源: %s", stats)
	}
}
