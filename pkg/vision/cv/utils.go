package cv

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageExtensions 可识别的图像文件扩展名
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsImageFile 根据扩展名判断是否为图像文件
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DecodeImage 从 reader 解码图像
func DecodeImage(r io.Reader) (*Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// ReadImage 读取图像文件，失败时返回 *DecodeError
func ReadImage(filename string) (*Image, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &DecodeError{Path: filename, Err: err}
	}

	img, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Path: filename, Err: err}
	}
	if img.Empty() {
		return nil, &DecodeError{Path: filename, Err: ErrEmptyImage}
	}
	return img, nil
}

// WriteImage 保存为 PNG 文件
func WriteImage(filename string, img image.Image) error {
	// 确保目录存在
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("保存图像失败: %s: %w", filename, err)
	}
	return f.Close()
}

// MatToImage 将 gocv.Mat 转换为 Image
func MatToImage(mat gocv.Mat) (*Image, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat 转换失败: %w", err)
	}
	return FromImage(img), nil
}

// LoadImageInput 加载图像输入
// 支持 string (文件路径)、*Image、image.Image、gocv.Mat
func LoadImageInput(input interface{}) (*Image, error) {
	switch v := input.(type) {
	case string:
		return ReadImage(v)
	case *Image:
		if v.Empty() {
			return nil, ErrEmptyImage
		}
		return v, nil
	case image.Image:
		return FromImage(v), nil
	case gocv.Mat:
		return MatToImage(v)
	case *gocv.Mat:
		return MatToImage(*v)
	default:
		return nil, fmt.Errorf("不支持的图像输入类型: %T", input)
	}
}
