// Package annotate 在源图像上标注匹配位置并保存结果图
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// BoxSize 标注框边长（固定值，与模板尺寸无关）
const BoxSize = 20

// DefaultOutputPath 默认结果图路径
const DefaultOutputPath = "output/result_image.png"

// Group 同一模板的所有匹配位置
type Group struct {
	Label   string
	Origins []cv.Point
}

// Options 标注选项
type Options struct {
	// Color 标注框颜色，默认黑色
	Color color.Color
	// Labels 是否在框上方绘制模板名称
	Labels bool
	// FontSize 标签字号，默认 10
	FontSize float64
}

func (o Options) withDefaults() Options {
	if o.Color == nil {
		o.Color = color.Black
	}
	if o.FontSize <= 0 {
		o.FontSize = 10
	}
	return o
}

// Box 匹配位置的标注框，左上角为匹配窗口左上角
func Box(p cv.Point) cv.Rectangle {
	return cv.NewRectangle(p.X, p.Y, BoxSize, BoxSize)
}

// CountMatches 统计所有分组的匹配总数
func CountMatches(groups []Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Origins)
	}
	return n
}

// Draw 复制源图像并在每个匹配位置绘制空心矩形
func Draw(src *cv.Image, groups []Group, opts Options) *image.RGBA {
	opts = opts.withDefaults()

	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src.ToNRGBA(), image.Point{}, draw.Src)

	for _, g := range groups {
		for _, p := range g.Origins {
			drawHollowRect(dst, Box(p).ToImageRect(), opts.Color)
		}
	}

	if opts.Labels {
		for _, g := range groups {
			for _, p := range g.Origins {
				drawLabel(dst, p, g.Label, opts)
			}
		}
	}

	return dst
}

// Save 绘制标注并保存为 PNG
// 没有任何匹配时不写文件，返回 saved=false
func Save(path string, src *cv.Image, groups []Group, opts Options) (saved bool, err error) {
	if CountMatches(groups) == 0 {
		return false, nil
	}
	if path == "" {
		path = DefaultOutputPath
	}

	if err := cv.WriteImage(path, Draw(src, groups, opts)); err != nil {
		return false, fmt.Errorf("保存结果图失败: %w", err)
	}
	return true, nil
}

// drawHollowRect 绘制 1 像素宽的空心矩形，自动裁剪到图像范围
func drawHollowRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	b := img.Bounds()
	for x := r.Min.X; x < r.Max.X; x++ {
		setIn(img, b, x, r.Min.Y, c)
		setIn(img, b, x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		setIn(img, b, r.Min.X, y, c)
		setIn(img, b, r.Max.X-1, y, c)
	}
}

func setIn(img *image.RGBA, b image.Rectangle, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(b) {
		img.Set(x, y, c)
	}
}

var (
	labelFont     *truetype.Font
	labelFontErr  error
	labelFontOnce sync.Once
)

// loadLabelFont 加载内置 Go Regular 字体
func loadLabelFont() (*truetype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = truetype.Parse(goregular.TTF)
	})
	return labelFont, labelFontErr
}

// drawLabel 在框上方绘制标签，顶部空间不足时画在框下方
func drawLabel(img *image.RGBA, p cv.Point, text string, opts Options) {
	if text == "" {
		return
	}
	f, err := loadLabelFont()
	if err != nil {
		return
	}

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(opts.FontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(opts.Color))
	c.SetHinting(font.HintingFull)

	baseline := p.Y - 2
	if baseline < int(opts.FontSize) {
		baseline = p.Y + BoxSize + int(opts.FontSize)
	}
	c.DrawString(text, freetype.Pt(p.X, baseline))
}
