package screen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/zoeyai/zoeymatch/pkg/permissions"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// ImageToBase64 将图像编码为 data URL
// format: "png" 或 "jpeg"，默认 "png"，匹配依赖逐像素比较，有损格式会引入误差
// quality: JPEG 质量 1-100，默认 80
func ImageToBase64(img image.Image, format string, quality int) (string, error) {
	if img == nil {
		return "", fmt.Errorf("图像为空")
	}

	var buf bytes.Buffer
	var mimeType string

	if format == "" {
		format = "png"
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("PNG 编码失败: %w", err)
		}
		mimeType = "image/png"
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", fmt.Errorf("JPEG 编码失败: %w", err)
		}
		mimeType = "image/jpeg"
	default:
		return "", fmt.Errorf("不支持的图像格式: %s", format)
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// DecodeBase64 解码 data URL 或纯 Base64 字符串为源图像
func DecodeBase64(s string) (*cv.Image, error) {
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("data URL 格式错误")
		}
		s = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &cv.DecodeError{Path: "base64", Err: err}
	}

	img, err := cv.DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, &cv.DecodeError{Path: "base64", Err: err}
	}
	if img.Empty() {
		return nil, &cv.DecodeError{Path: "base64", Err: cv.ErrEmptyImage}
	}
	return img, nil
}

// CaptureScreenToBase64 截取全屏并编码为 PNG data URL
func CaptureScreenToBase64() (string, error) {
	if !permissions.ScreenRecordingGranted() {
		return "", ErrPermissionDenied
	}
	img, err := CaptureScreen()
	if err != nil {
		return "", err
	}
	return ImageToBase64(img, "png", 0)
}
