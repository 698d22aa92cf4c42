package cv

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

var (
	background = Pixel{10, 10, 10, 255}
	blockColor = Pixel{200, 200, 200, 255}
)

// newBlockScene 100x100 背景图，(40,40) 处有 10x10 色块
func newBlockScene() (*Image, *Image) {
	source := NewUniformImage(100, 100, background)
	source.Fill(image.Rect(40, 40, 50, 50), blockColor)
	template := NewUniformImage(10, 10, blockColor)
	return source, template
}

// newNoiseImage 生成随机噪声图像
func newNoiseImage(w, h int, seed int64) *Image {
	r := rand.New(rand.NewSource(seed))
	img := NewImage(w, h)
	r.Read(img.Pix)
	return img
}

func TestPixelsMatchSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		var a, b Pixel
		r.Read(a[:])
		r.Read(b[:])
		tol := uint8(r.Intn(256))

		if PixelsMatch(a, b, tol) != PixelsMatch(b, a, tol) {
			t.Fatalf("PixelsMatch 不对称: a=%v b=%v tol=%d", a, b, tol)
		}
	}
}

func TestPixelsMatchTolerance(t *testing.T) {
	testCases := []struct {
		name string
		a, b Pixel
		tol  uint8
		want bool
	}{
		{"相同像素", Pixel{1, 2, 3, 4}, Pixel{1, 2, 3, 4}, 0, true},
		{"差值等于容差", Pixel{0, 0, 0, 0}, Pixel{30, 30, 30, 30}, 30, true},
		{"单通道超出容差", Pixel{0, 0, 0, 0}, Pixel{0, 0, 31, 0}, 30, false},
		{"alpha 通道参与比较", Pixel{0, 0, 0, 255}, Pixel{0, 0, 0, 0}, 254, false},
		{"容差 255 总是匹配", Pixel{0, 255, 0, 255}, Pixel{255, 0, 255, 0}, 255, true},
		{"无下溢", Pixel{0, 0, 0, 0}, Pixel{255, 0, 0, 0}, 10, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PixelsMatch(tc.a, tc.b, tc.tol); got != tc.want {
				t.Errorf("PixelsMatch(%v, %v, %d) = %v, want %v", tc.a, tc.b, tc.tol, got, tc.want)
			}
			if got := ChannelTolerance(tc.tol).Match(tc.a, tc.b); got != tc.want {
				t.Errorf("ChannelTolerance.Match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeltaETolerance(t *testing.T) {
	gray := Pixel{128, 128, 128, 255}
	nearGray := Pixel{129, 128, 128, 255}
	red := Pixel{255, 0, 0, 255}

	if !DeltaETolerance(0).Match(gray, gray) {
		t.Error("相同像素应匹配")
	}
	if !DeltaETolerance(10).Match(gray, nearGray) {
		t.Error("接近的灰色应在 ΔE 容差内")
	}
	if DeltaETolerance(30).Match(gray, red) {
		t.Error("灰色与红色不应匹配")
	}
	if DeltaETolerance(30).Match(gray, Pixel{128, 128, 128, 0}) {
		t.Error("alpha 差异超出容差不应匹配")
	}

	if _, ok := NewPixelMatcher(MetricCIEDE2000, 5).(DeltaETolerance); !ok {
		t.Error("MetricCIEDE2000 应创建 DeltaETolerance")
	}
	if _, ok := NewPixelMatcher(MetricChannel, 5).(ChannelTolerance); !ok {
		t.Error("MetricChannel 应创建 ChannelTolerance")
	}
}

func TestMismatchBudget(t *testing.T) {
	testCases := []struct {
		pixels, pct, want int
	}{
		{100, 25, 25},
		{100, 0, 0},
		{100, 100, 100},
		{7, 50, 3},
		{0, 50, 0},
	}
	for _, tc := range testCases {
		if got := MismatchBudget(tc.pixels, tc.pct); got != tc.want {
			t.Errorf("MismatchBudget(%d, %d) = %d, want %d", tc.pixels, tc.pct, got, tc.want)
		}
	}
}

// countingMatcher 统计调用次数，总是返回不匹配
type countingMatcher struct {
	calls int
}

func (c *countingMatcher) Match(a, b Pixel) bool {
	c.calls++
	return false
}

func TestEvaluateWindowEarlyExit(t *testing.T) {
	source := NewUniformImage(20, 20, background)
	template := NewUniformImage(10, 10, blockColor)

	m := &countingMatcher{}
	if EvaluateWindow(source, template, Point{}, m, 2) {
		t.Fatal("全部不匹配的窗口不应通过")
	}
	if m.calls != 3 {
		t.Errorf("超过预算后应立即退出: 比较次数 = %d, want 3", m.calls)
	}

	if !EvaluateWindow(source, template, Point{}, ChannelTolerance(0), 100) {
		t.Error("预算等于像素数时应通过")
	}
	if EvaluateWindow(source, template, Point{}, ChannelTolerance(0), 99) {
		t.Error("预算小于不匹配数时不应通过")
	}
}

func TestEvaluateWindowFastPathAgreesWithGeneric(t *testing.T) {
	source := newNoiseImage(30, 30, 7)
	template := source.SubImage(image.Rect(5, 5, 13, 13))

	for _, tol := range []uint8{0, 40, 128} {
		for _, budget := range []int{0, 10, 32, 64} {
			for y := 0; y <= 22; y += 3 {
				for x := 0; x <= 22; x += 3 {
					origin := Point{X: x, Y: y}
					fast := EvaluateWindow(source, template, origin, ChannelTolerance(tol), budget)
					slow := EvaluateWindow(source, template, origin, matcherFunc(func(a, b Pixel) bool {
						return PixelsMatch(a, b, tol)
					}), budget)
					if fast != slow {
						t.Fatalf("快速路径结果不一致: origin=%v tol=%d budget=%d", origin, tol, budget)
					}
				}
			}
		}
	}
}

type matcherFunc func(a, b Pixel) bool

func (f matcherFunc) Match(a, b Pixel) bool { return f(a, b) }

func TestSearchBlockScenario(t *testing.T) {
	source, template := newBlockScene()

	points, err := Search(context.Background(), source, template, 0, 0, SearchZone{})
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if len(points) != 1 || points[0] != (Point{X: 40, Y: 40}) {
		t.Fatalf("结果应只有 (40,40), 实际为 %v", points)
	}
}

func TestSearchFindsEmbeddedTemplate(t *testing.T) {
	source := newNoiseImage(64, 48, 42)
	x0, y0 := 23, 17
	template := source.SubImage(image.Rect(x0, y0, x0+9, y0+6))

	for _, tc := range []struct {
		tol uint8
		pct int
	}{{0, 0}, {30, 25}, {255, 0}} {
		points, err := Search(context.Background(), source, template, tc.tol, tc.pct, SearchZone{})
		if err != nil {
			t.Fatalf("搜索失败: %v", err)
		}
		if !containsPoint(points, Point{X: x0, Y: y0}) {
			t.Errorf("tol=%d pct=%d: 结果应包含 (%d,%d)", tc.tol, tc.pct, x0, y0)
		}
	}
}

func TestSearchExactMatchOnly(t *testing.T) {
	source := newNoiseImage(40, 40, 3)
	// 复制一份模板到第二个位置
	template := source.SubImage(image.Rect(2, 3, 8, 7))
	for y := 0; y < template.Height; y++ {
		for x := 0; x < template.Width; x++ {
			source.Set(30+x, 25+y, template.At(x, y))
		}
	}

	points, err := Search(context.Background(), source, template, 0, 0, SearchZone{})
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}

	want := 0
	for y := 0; y+template.Height <= source.Height; y++ {
		for x := 0; x+template.Width <= source.Width; x++ {
			exact := exactlyEqual(source, template, Point{X: x, Y: y})
			if exact {
				want++
			}
			if exact != containsPoint(points, Point{X: x, Y: y}) {
				t.Errorf("(%d,%d): 精确匹配=%v, 但结果中出现=%v", x, y, exact, !exact)
			}
		}
	}
	if len(points) != want || want < 2 {
		t.Errorf("精确匹配数量 = %d, 结果数量 = %d", want, len(points))
	}
}

func TestSearchPercentage100MatchesEverywhere(t *testing.T) {
	source := newNoiseImage(30, 20, 9)
	template := NewUniformImage(4, 5, blockColor)

	points, err := Search(context.Background(), source, template, 0, 100, SearchZone{})
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	want := (30 - 4 + 1) * (20 - 5 + 1)
	if len(points) != want {
		t.Errorf("percentage=100 时所有窗口都应通过: got %d, want %d", len(points), want)
	}
	if points[0] != (Point{}) || points[len(points)-1] != (Point{X: 26, Y: 15}) {
		t.Errorf("排序结果首尾错误: %v ... %v", points[0], points[len(points)-1])
	}
}

func TestSearchZone(t *testing.T) {
	source, template := newBlockScene()
	ctx := context.Background()

	t.Run("区域包含色块", func(t *testing.T) {
		points, err := Search(ctx, source, template, 0, 0, SearchZone{Left: 30, Top: 30, Width: 25, Height: 25})
		if err != nil {
			t.Fatalf("搜索失败: %v", err)
		}
		if len(points) != 1 || points[0] != (Point{X: 40, Y: 40}) {
			t.Errorf("got %v", points)
		}
	})

	t.Run("窗口必须完全在区域内", func(t *testing.T) {
		points, err := Search(ctx, source, template, 0, 0, SearchZone{Left: 30, Top: 30, Width: 19, Height: 25})
		if err != nil {
			t.Fatalf("搜索失败: %v", err)
		}
		if len(points) != 0 {
			t.Errorf("色块超出区域右边界，不应匹配: %v", points)
		}
	})

	t.Run("区域小于模板", func(t *testing.T) {
		points, err := Search(ctx, source, template, 0, 100, SearchZone{Left: 0, Top: 0, Width: 5, Height: 50})
		if err != nil {
			t.Fatalf("区域小于模板不应报错: %v", err)
		}
		if len(points) != 0 {
			t.Errorf("结果应为空: %v", points)
		}
	})

	t.Run("区域超出源图像尺寸", func(t *testing.T) {
		_, err := Search(ctx, source, template, 0, 0, SearchZone{Width: 101, Height: 50})
		var zoneErr *ZoneError
		if !errors.As(err, &zoneErr) {
			t.Fatalf("应返回 ZoneError, 实际为 %v", err)
		}
		if !IsConfigurationError(err) {
			t.Error("ZoneError 应属于配置错误")
		}
	})

	t.Run("区域偏移后被裁剪", func(t *testing.T) {
		points, err := Search(ctx, source, template, 0, 100, SearchZone{Left: 80, Top: 80, Width: 100, Height: 100})
		if err != nil {
			t.Fatalf("搜索失败: %v", err)
		}
		// 可用区域为 [80,100)，左上角范围 80..90
		if len(points) != 11*11 {
			t.Errorf("got %d origins, want %d", len(points), 11*11)
		}
	})
}

func TestSearchIdempotent(t *testing.T) {
	source := newNoiseImage(50, 50, 11)
	template := source.SubImage(image.Rect(10, 10, 16, 16))

	first, err := NewTemplateMatching(template, source, 60, 30).WithSorted(false).FindAllResults(context.Background())
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	second, err := NewTemplateMatching(template, source, 60, 30).WithSorted(false).FindAllResults(context.Background())
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}

	SortPoints(first)
	SortPoints(second)
	if len(first) != len(second) {
		t.Fatalf("两次结果数量不同: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("两次结果不同: %v vs %v", first[i], second[i])
		}
	}
}

func TestSearchCancelled(t *testing.T) {
	source, template := newBlockScene()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, source, template, 0, 0, SearchZone{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("应返回 context.Canceled, 实际为 %v", err)
	}
}

func TestSearchEmptyImage(t *testing.T) {
	_, err := Search(context.Background(), NewImage(0, 0), NewImage(1, 1), 0, 0, SearchZone{})
	if !errors.Is(err, ErrEmptyImage) {
		t.Errorf("应返回 ErrEmptyImage, 实际为 %v", err)
	}
}

func TestParseSearchZone(t *testing.T) {
	z, err := ParseSearchZone("1, 2,30,40")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if z != (SearchZone{Left: 1, Top: 2, Width: 30, Height: 40}) {
		t.Errorf("解析结果错误: %+v", z)
	}
	if z.String() != "1,2,30,40" {
		t.Errorf("String() = %s", z.String())
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d"} {
		if _, err := ParseSearchZone(bad); err == nil {
			t.Errorf("%q 应解析失败", bad)
		}
	}

	if err := (SearchZone{Left: -1, Width: 5, Height: 5}).Validate(10, 10); err == nil {
		t.Error("负坐标应校验失败")
	}
}

func TestParseTemplateName(t *testing.T) {
	testCases := []struct {
		name         string
		wantTol      uint8
		wantPct      int
		wantLabel    string
		wantWarnings int
	}{
		{"button", 30, 25, "button", 0},
		{"button_10", 30, 25, "button", 0},
		{"button_10_5", 10, 5, "button", 0},
		{"ok_0_100_extra", 0, 100, "ok", 0},
		{"icon_abc_5", 30, 5, "icon", 1},
		{"icon_300_5", 30, 5, "icon", 1},
		{"icon_12_x", 12, 25, "icon", 1},
		{"icon_12_150", 12, 25, "icon", 1},
		{"icon__", 30, 25, "icon", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			params, warnings := ParseTemplateName(tc.name)
			if params.Tolerance != tc.wantTol || params.Percentage != tc.wantPct || params.Label != tc.wantLabel {
				t.Errorf("got %+v, want tol=%d pct=%d label=%s", params, tc.wantTol, tc.wantPct, tc.wantLabel)
			}
			if len(warnings) != tc.wantWarnings {
				t.Errorf("警告数量 = %d, want %d (%v)", len(warnings), tc.wantWarnings, warnings)
			}
		})
	}
}

func TestNewTemplateOptions(t *testing.T) {
	tmpl := NewTemplate("logo_5_50", NewImage(2, 2))
	if tmpl.Tolerance != 5 || tmpl.Percentage != 50 {
		t.Errorf("名称参数解析错误: %s", tmpl)
	}

	tmpl = NewTemplate("logo_5_50", NewImage(2, 2), WithTolerance(7), WithPercentage(1))
	if tmpl.Tolerance != 7 || tmpl.Percentage != 1 {
		t.Errorf("选项未生效: %s", tmpl)
	}
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b_10_5.png"), NewUniformImage(3, 3, blockColor))
	writePNG(t, filepath.Join(dir, "a.png"), NewUniformImage(2, 2, background))
	writePNG(t, filepath.Join(dir, "c_bad_5.png"), NewUniformImage(2, 2, background))
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadTemplates(dir)
	if err != nil {
		t.Fatalf("加载模板失败: %v", err)
	}

	if len(set.Templates) != 3 {
		t.Fatalf("模板数量 = %d, want 3", len(set.Templates))
	}
	names := []string{set.Templates[0].Name, set.Templates[1].Name, set.Templates[2].Name}
	if names[0] != "a" || names[1] != "b_10_5" || names[2] != "c_bad_5" {
		t.Errorf("模板顺序错误: %v", names)
	}
	if set.Templates[1].Tolerance != 10 || set.Templates[1].Percentage != 5 {
		t.Errorf("参数解析错误: %s", set.Templates[1])
	}
	if set.Templates[1].Image.Width != 3 {
		t.Errorf("图像尺寸错误: %d", set.Templates[1].Image.Width)
	}

	if len(set.Failures) != 1 || filepath.Base(set.Failures[0].Path) != "broken.png" {
		t.Errorf("解码失败记录错误: %v", set.Failures)
	}
	if len(set.Warnings) != 1 || set.Warnings[0].Field != "tolerance" {
		t.Errorf("解析警告错误: %v", set.Warnings)
	}

	if _, err := LoadTemplates(filepath.Join(dir, "missing")); err == nil {
		t.Error("不存在的目录应返回错误")
	}
}

func TestReadImageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	src := newNoiseImage(5, 4, 5)
	// 不透明像素在 PNG 往返中保持不变
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}
	writePNG(t, path, src)

	got, err := ReadImage(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if got.Width != 5 || got.Height != 4 {
		t.Fatalf("尺寸错误: %dx%d", got.Width, got.Height)
	}
	if !exactlyEqual(got, src, Point{}) {
		t.Error("像素不一致")
	}

	var decodeErr *DecodeError
	if _, err := ReadImage(filepath.Join(t.TempDir(), "none.png")); !errors.As(err, &decodeErr) {
		t.Errorf("应返回 DecodeError, 实际为 %v", err)
	}
}

func TestLoadImageInput(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 3, 2))
	rgba.Set(1, 1, color.RGBA{R: 255, A: 255})

	img, err := LoadImageInput(rgba)
	if err != nil {
		t.Fatalf("加载 image.Image 失败: %v", err)
	}
	if img.At(1, 1) != (Pixel{255, 0, 0, 255}) {
		t.Errorf("像素转换错误: %v", img.At(1, 1))
	}

	if same, _ := LoadImageInput(img); same != img {
		t.Error("*Image 输入应直接返回")
	}
	if _, err := LoadImageInput(42); err == nil {
		t.Error("不支持的类型应返回错误")
	}
}

func TestSimilarityMap(t *testing.T) {
	source, template := newBlockScene()
	maxDiff := template.PixelCount() * 4 * 255

	m := SimilarityMap(source, template, 0, maxDiff)
	if len(m) != 91 || len(m[0]) != 91 {
		t.Fatalf("相似度图尺寸错误: %dx%d", len(m[0]), len(m))
	}

	p, v := MaxSimilarity(m)
	if p != (Point{X: 40, Y: 40}) || v != maxDiff {
		t.Errorf("最大相似度位置 = %v (%d), want (40,40) (%d)", p, v, maxDiff)
	}

	if SimilarityMap(template, source, 0, maxDiff) != nil {
		t.Error("模板大于源图像时应返回 nil")
	}

	strict := SimilarityMap(source, template, maxDiff, maxDiff)
	if strict[0][0] != 0 || strict[40][40] != maxDiff {
		t.Error("低于阈值的位置应为 0")
	}
}

func containsPoint(points []Point, p Point) bool {
	for _, q := range points {
		if q == p {
			return true
		}
	}
	return false
}

func exactlyEqual(source, template *Image, origin Point) bool {
	for y := 0; y < template.Height; y++ {
		for x := 0; x < template.Width; x++ {
			if source.At(origin.X+x, origin.Y+y) != template.At(x, y) {
				return false
			}
		}
	}
	return true
}

func writePNG(t *testing.T, path string, img *Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img.ToNRGBA()); err != nil {
		t.Fatal(err)
	}
}
