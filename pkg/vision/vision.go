// Package vision 提供多模板并行匹配功能
//
// 每个模板一个任务并行运行，模板内部的候选窗口再按行并行评估。
// 结果按模板提交顺序存放，与任务完成顺序无关。
//
// 基本用法:
//
//	out, err := vision.FindTemplates(ctx, "screen.png", "templates/",
//	    vision.WithDebug(true),
//	    vision.WithZone(cv.SearchZone{Left: 0, Top: 0, Width: 800, Height: 600}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, r := range out.Results {
//	    fmt.Printf("模板 %d (%s): %v\n", i, r.Name, r.Origins)
//	}
package vision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/vision/annotate"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// Run 在源图像中并行搜索所有模板
// 搜索区域非法时在开始任何匹配前返回 *cv.ZoneError；单个模板失败记录在对应结果的 Err 中
func Run(ctx context.Context, source *cv.Image, templates []*cv.Template, opts ...Option) (*OutputSet, error) {
	cfg := buildMatchConfig(opts)
	return run(ctx, source, templates, cfg)
}

func run(ctx context.Context, source *cv.Image, templates []*cv.Template, cfg *matchConfig) (*OutputSet, error) {
	if source.Empty() {
		return nil, fmt.Errorf("源图像无效: %w", cv.ErrEmptyImage)
	}
	zone, err := cfg.resolveZone(source)
	if err != nil {
		return nil, err
	}
	cfg.zone = zone

	startTime := time.Now()

	// 每个模板独占一个结果槽位，写入无需加锁
	results := make([]MatchResult, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.concurrency > 0 {
		g.SetLimit(cfg.concurrency)
	}

	for i, tmpl := range templates {
		slot := &results[i]
		slot.Index = i
		if tmpl == nil {
			slot.Err = errors.New("模板为空")
			continue
		}

		slot.Name = tmpl.Name
		slot.Path = tmpl.Path
		slot.Tolerance = tmpl.Tolerance
		slot.Percentage = tmpl.Percentage
		slot.Origins = []Point{}

		if err := (cv.TemplateParams{Tolerance: tmpl.Tolerance, Percentage: tmpl.Percentage}).Validate(); err != nil {
			slot.Err = err
			continue
		}

		g.Go(func() error {
			return matchOne(gctx, source, tmpl, cfg, slot)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &OutputSet{
		Results: results,
		Elapsed: time.Since(startTime),
	}

	for i := range results {
		if results[i].Err != nil {
			logger.Warn("模板 %d (%s) 匹配失败: %v", i, results[i].Name, results[i].Err)
		}
	}
	if cfg.debug {
		logger.Info("模板匹配总耗时: %.6f 秒", out.Elapsed.Seconds())
	}

	return out, nil
}

// matchOne 运行单个模板任务，结果写入该模板自己的槽位
func matchOne(ctx context.Context, source *cv.Image, tmpl *cv.Template, cfg *matchConfig, slot *MatchResult) error {
	startTime := time.Now()

	points, err := cv.NewTemplateMatching(tmpl.Image, source, tmpl.Tolerance, tmpl.Percentage).
		WithZone(cfg.zone).
		WithMatcher(cv.NewPixelMatcher(cfg.metric, tmpl.Tolerance)).
		WithSorted(cfg.sorted).
		FindAllResults(ctx)

	slot.Elapsed = time.Since(startTime)

	if err != nil {
		// 取消会终止整次运行，其余错误只影响本模板
		if ctx.Err() != nil {
			return err
		}
		slot.Err = err
		return nil
	}

	slot.Origins = points

	if cfg.debug {
		logger.LogEvent("tpl", len(points) > 0, slot.Elapsed,
			fmt.Sprintf("%s: %d 个匹配", tmpl.Name, len(points)))
	}
	return nil
}

// FindTemplates 在源图像文件中搜索模板目录下的所有模板
// 路径不存在、源图像无法解码、搜索区域非法都属于致命错误；模板解码失败只跳过该模板
func FindTemplates(ctx context.Context, sourcePath, templateDir string, opts ...Option) (*OutputSet, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, &cv.PathError{Kind: "source", Path: sourcePath}
	}
	return FindTemplatesIn(ctx, sourcePath, templateDir, opts...)
}

// FindTemplatesIn 与 FindTemplates 相同，但源图像可以是文件路径、image.Image、*cv.Image 或 gocv.Mat
func FindTemplatesIn(ctx context.Context, source interface{}, templateDir string, opts ...Option) (*OutputSet, error) {
	cfg := buildMatchConfig(opts)

	if info, err := os.Stat(templateDir); err != nil || !info.IsDir() {
		return nil, &cv.PathError{Kind: "templates", Path: templateDir}
	}

	sourceImg, err := cv.LoadImageInput(source)
	if err != nil {
		return nil, fmt.Errorf("加载源图像失败: %w", err)
	}

	// 搜索区域在加载模板前校验
	zone, err := cfg.resolveZone(sourceImg)
	if err != nil {
		return nil, err
	}
	cfg.zone = zone
	cfg.grid = nil

	set, err := cv.LoadTemplates(templateDir)
	if err != nil {
		return nil, err
	}
	for _, w := range set.Warnings {
		logger.Warn("%s", w)
	}
	for _, f := range set.Failures {
		logger.Error("跳过模板: %v", f)
	}
	if cfg.debug {
		for _, tmpl := range set.Templates {
			logger.Debug("%s - %dx%d", tmpl.Name, tmpl.Image.Width, tmpl.Image.Height)
		}
	}

	out, err := run(ctx, sourceImg, set.Templates, cfg)
	if err != nil {
		return nil, err
	}

	out.Warnings = set.Warnings
	for _, f := range set.Failures {
		out.Failures = append(out.Failures, TemplateFailure{Path: f.Path, Err: f})
	}

	if cfg.debug {
		reportDebug(out)
		if cfg.outputPath != "" {
			saveDebugImage(sourceImg, out, cfg)
		}
	}

	return out, nil
}

// saveDebugImage 保存标注结果图，失败只记录日志
func saveDebugImage(source *cv.Image, out *OutputSet, cfg *matchConfig) {
	saved, err := annotate.Save(cfg.outputPath, source, out.Groups(), annotate.Options{Labels: cfg.labels})
	switch {
	case err != nil:
		logger.Error("%v", err)
	case !saved:
		logger.Info("未在源图像中找到任何模板")
	default:
		logger.Info("标注结果图已保存: %s", cfg.outputPath)
	}
}
