package cv

import (
	"errors"
	"fmt"
)

// ErrPathNotFound 源图像或模板路径不存在
var ErrPathNotFound = errors.New("路径不存在")

// ErrEmptyImage 图像尺寸为 0
var ErrEmptyImage = errors.New("图像为空")

// PathError 路径配置错误
type PathError struct {
	Kind string // "source" 或 "templates"
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s 路径不存在: %s", e.Kind, e.Path)
}

func (e *PathError) Unwrap() error {
	return ErrPathNotFound
}

// ZoneError 搜索区域配置错误，在任何匹配开始前报告
type ZoneError struct {
	Zone         SearchZone
	SourceWidth  int
	SourceHeight int
	Reason       string
}

func (e *ZoneError) Error() string {
	return fmt.Sprintf("搜索区域 %s 无效 (源图像 %dx%d): %s",
		e.Zone, e.SourceWidth, e.SourceHeight, e.Reason)
}

// DecodeError 图像解码失败
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("无法解码图像 %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseWarning 模板文件名中的参数解析失败，已回退到默认值
type ParseWarning struct {
	File  string
	Field string
	Value string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("%s: 无法解析 %s=%q，使用默认值", w.File, w.Field, w.Value)
}

// IsConfigurationError 判断是否为配置类错误（路径或搜索区域）
func IsConfigurationError(err error) bool {
	var zoneErr *ZoneError
	return errors.Is(err, ErrPathNotFound) || errors.As(err, &zoneErr)
}
