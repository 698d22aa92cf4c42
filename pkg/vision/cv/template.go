package cv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TemplateParams 模板匹配参数
// 文件名约定: <label>_<tolerance>_<percentage>[.ext]
type TemplateParams struct {
	Label      string `json:"label"`
	Tolerance  uint8  `json:"tolerance"`
	Percentage int    `json:"percentage"`
}

// DefaultTemplateParams 默认参数
func DefaultTemplateParams(label string) TemplateParams {
	return TemplateParams{
		Label:      label,
		Tolerance:  DefaultTolerance,
		Percentage: DefaultPercentage,
	}
}

// Validate 检查参数范围
func (p TemplateParams) Validate() error {
	if p.Percentage < 0 || p.Percentage > 100 {
		return fmt.Errorf("百分比超出范围 [0, 100]: %d", p.Percentage)
	}
	return nil
}

// ParseTemplateName 从模板名称（不含扩展名）解析参数
// 少于 3 段时使用默认值；数值解析失败时回退默认值并返回警告
func ParseTemplateName(name string) (TemplateParams, []ParseWarning) {
	parts := strings.Split(name, "_")
	params := DefaultTemplateParams(parts[0])
	if len(parts) < 3 {
		return params, nil
	}

	var warnings []ParseWarning

	if tol, err := strconv.ParseUint(parts[1], 10, 8); err == nil {
		params.Tolerance = uint8(tol)
	} else {
		warnings = append(warnings, ParseWarning{File: name, Field: "tolerance", Value: parts[1]})
	}

	if pct, err := strconv.Atoi(parts[2]); err == nil && pct >= 0 && pct <= 100 {
		params.Percentage = pct
	} else {
		warnings = append(warnings, ParseWarning{File: name, Field: "percentage", Value: parts[2]})
	}

	return params, warnings
}

// Template 待搜索的模板图像及其参数，加载后不可变
type Template struct {
	// Name 模板名称（文件名去掉扩展名）
	Name string
	// Path 模板文件路径，内存模板为空
	Path string
	// Image 模板像素
	Image *Image
	// Tolerance 单通道容差 (0-255)
	Tolerance uint8
	// Percentage 允许不匹配像素的百分比 (0-100)
	Percentage int
}

// TemplateOption 模板选项
type TemplateOption func(*Template)

// NewTemplate 创建内存模板，参数默认从名称解析
func NewTemplate(name string, img *Image, opts ...TemplateOption) *Template {
	params, _ := ParseTemplateName(name)
	t := &Template{
		Name:       name,
		Image:      img,
		Tolerance:  params.Tolerance,
		Percentage: params.Percentage,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithTolerance 设置容差
func WithTolerance(tolerance uint8) TemplateOption {
	return func(t *Template) {
		t.Tolerance = tolerance
	}
}

// WithPercentage 设置不匹配百分比
func WithPercentage(percentage int) TemplateOption {
	return func(t *Template) {
		t.Percentage = percentage
	}
}

// String 返回字符串表示
func (t *Template) String() string {
	return fmt.Sprintf("Template(%s, tol=%d, pct=%d)", t.Name, t.Tolerance, t.Percentage)
}

// TemplateSet 目录加载结果
type TemplateSet struct {
	// Templates 成功加载的模板，按文件名排序，即提交顺序
	Templates []*Template
	// Failures 解码失败的模板
	Failures []*DecodeError
	// Warnings 文件名参数解析警告
	Warnings []ParseWarning
}

// LoadTemplates 加载目录下所有可识别扩展名的图像
// 单个模板解码失败不会中断加载，失败项记录在 Failures 中
func LoadTemplates(dir string) (*TemplateSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取模板目录失败: %w", err)
	}

	set := &TemplateSet{}
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		img, err := ReadImage(path)
		if err != nil {
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				decodeErr = &DecodeError{Path: path, Err: err}
			}
			set.Failures = append(set.Failures, decodeErr)
			continue
		}

		params, warnings := ParseTemplateName(name)
		set.Warnings = append(set.Warnings, warnings...)

		set.Templates = append(set.Templates, &Template{
			Name:       name,
			Path:       path,
			Image:      img,
			Tolerance:  params.Tolerance,
			Percentage: params.Percentage,
		})
	}

	return set, nil
}
