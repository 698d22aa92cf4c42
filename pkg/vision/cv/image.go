package cv

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Pixel 一个像素的 R, G, B, A 四个通道（非预乘）
type Pixel [4]uint8

// Image 不可变的 RGBA 像素网格
// 加载完成后在匹配路径上只读，可被多个 goroutine 同时访问
type Image struct {
	Width  int
	Height int
	// Pix 按行存储，每像素 4 字节，行跨度为 4*Width
	Pix []uint8
}

// NewImage 创建指定尺寸的空白图像
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// NewUniformImage 创建纯色图像
func NewUniformImage(width, height int, p Pixel) *Image {
	img := NewImage(width, height)
	img.Fill(image.Rect(0, 0, width, height), p)
	return img
}

// FromImage 将任意 image.Image 转换为 Image
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	if nrgba, ok := src.(*image.NRGBA); ok && nrgba.Stride == 4*b.Dx() {
		n := 4 * b.Dx() * b.Dy()
		pix := make([]uint8, n)
		copy(pix, nrgba.Pix[:n])
		return &Image{Width: b.Dx(), Height: b.Dy(), Pix: pix}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Image{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// At 返回 (x, y) 处的像素，调用方负责边界检查
func (m *Image) At(x, y int) Pixel {
	i := (y*m.Width + x) * 4
	return Pixel{m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3]}
}

// Set 设置 (x, y) 处的像素，仅用于构造阶段
func (m *Image) Set(x, y int, p Pixel) {
	i := (y*m.Width + x) * 4
	copy(m.Pix[i:i+4], p[:])
}

// Fill 用纯色填充矩形区域（自动裁剪到图像范围）
func (m *Image) Fill(r image.Rectangle, p Pixel) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Set(x, y, p)
		}
	}
}

// SubImage 复制一块区域为新图像
func (m *Image) SubImage(r image.Rectangle) *Image {
	r = r.Intersect(m.Bounds())
	out := NewImage(r.Dx(), r.Dy())
	for y := 0; y < r.Dy(); y++ {
		srcStart := ((r.Min.Y+y)*m.Width + r.Min.X) * 4
		copy(out.Pix[y*out.Width*4:(y+1)*out.Width*4], m.Pix[srcStart:srcStart+r.Dx()*4])
	}
	return out
}

// Bounds 返回图像范围
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// PixelCount 像素总数
func (m *Image) PixelCount() int {
	return m.Width * m.Height
}

// Empty 是否为空图像
func (m *Image) Empty() bool {
	return m == nil || m.Width == 0 || m.Height == 0
}

// ToNRGBA 复制为可修改的 image.NRGBA（用于可视化等匹配路径之外的场景）
func (m *Image) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(m.Bounds())
	copy(dst.Pix, m.Pix)
	return dst
}

// Color 转换为 color.NRGBA
func (p Pixel) Color() color.NRGBA {
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}
