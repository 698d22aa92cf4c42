//go:build !darwin

// Package permissions 检查截屏所需的系统权限
package permissions

// ScreenRecordingGranted 非 macOS 系统不需要屏幕录制权限
func ScreenRecordingGranted() bool {
	return true
}

// OpenScreenRecordingSettings 打开屏幕录制设置页面
func OpenScreenRecordingSettings() {}

// Instructions 缺少权限时的提示
func Instructions() string {
	return ""
}
