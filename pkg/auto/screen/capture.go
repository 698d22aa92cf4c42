// Package screen 提供屏幕截图和图像编码功能，截图可直接作为匹配的源图像
package screen

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/zoeymatch/pkg/permissions"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// ErrPermissionDenied 缺少屏幕录制权限
var ErrPermissionDenied = errors.New("缺少屏幕录制权限")

// Region 屏幕区域（逻辑坐标）
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseRegion 解析 "x,y,width,height" 格式的区域
func ParseRegion(s string) (*Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("区域格式错误，应为 x,y,width,height: %q", s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("区域格式错误: %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil, fmt.Errorf("区域宽高必须为正数: %q", s)
	}
	return &Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// CaptureScreen 截取全屏
func CaptureScreen() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("截屏失败: %w", err)
	}
	return img, nil
}

// CaptureRegion 截取屏幕区域
func CaptureRegion(x, y, width, height int) (image.Image, error) {
	img, err := robotgo.CaptureImg(x, y, width, height)
	if err != nil {
		return nil, fmt.Errorf("截取区域失败: %w", err)
	}
	return img, nil
}

// Capture 截图并转换为匹配用的源图像，region 为 nil 时截取全屏
// 返回的元信息用于把匹配坐标换算回屏幕坐标
func Capture(region *Region) (*cv.Image, CaptureMeta, error) {
	if !permissions.ScreenRecordingGranted() {
		return nil, CaptureMeta{}, ErrPermissionDenied
	}

	var img image.Image
	var err error

	if region != nil {
		img, err = CaptureRegion(region.X, region.Y, region.Width, region.Height)
	} else {
		img, err = CaptureScreen()
	}
	if err != nil {
		return nil, CaptureMeta{}, err
	}

	src := cv.FromImage(img)
	if src.Empty() {
		return nil, CaptureMeta{}, fmt.Errorf("截屏失败: %w", cv.ErrEmptyImage)
	}

	w, h := GetScreenSize()
	return src, BuildCaptureMeta(region, w, h, src.Width, src.Height), nil
}

// GetScreenSize 获取主屏幕逻辑尺寸
func GetScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}

// GetDisplayCount 获取显示器数量
func GetDisplayCount() int {
	return robotgo.DisplaysNum()
}
