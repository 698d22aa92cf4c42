package screen

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

func TestParseRegion(t *testing.T) {
	testCases := []struct {
		input   string
		want    *Region
		wantErr bool
	}{
		{"0,0,100,50", &Region{X: 0, Y: 0, Width: 100, Height: 50}, false},
		{" 10, 20 ,30,40", &Region{X: 10, Y: 20, Width: 30, Height: 40}, false},
		{"0,0,100", nil, true},
		{"a,0,100,50", nil, true},
		{"0,0,0,50", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseRegion(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseRegion(%q) err = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if tc.want != nil && *got != *tc.want {
				t.Errorf("ParseRegion(%q) = %+v, 期望 %+v", tc.input, got, tc.want)
			}
		})
	}
}

func TestBuildCaptureMeta(t *testing.T) {
	// 2 倍缩放的高分屏
	meta := BuildCaptureMeta(nil, 1440, 900, 2880, 1800)
	if meta.ScaleX != 2 || meta.ScaleY != 2 {
		t.Errorf("缩放应为 2, 实际为 %v/%v", meta.ScaleX, meta.ScaleY)
	}
	if p := meta.ToScreen(cv.Point{X: 200, Y: 101}); p != (cv.Point{X: 100, Y: 51}) {
		t.Errorf("坐标换算错误: %v", p)
	}

	region := &Region{X: 50, Y: 60, Width: 100, Height: 100}
	meta = BuildCaptureMeta(region, 1440, 900, 100, 100)
	if meta.ScaleX != 1 || meta.OffsetX != 50 || meta.OffsetY != 60 {
		t.Errorf("区域元信息错误: %+v", meta)
	}

	got := AdjustPoints([]cv.Point{{X: 0, Y: 0}, {X: 5, Y: 7}}, meta)
	want := []cv.Point{{X: 50, Y: 60}, {X: 55, Y: 67}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AdjustPoints[%d] = %v, 期望 %v", i, got[i], want[i])
		}
	}
}

func TestBase64RoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 40), B: 7, A: 255})
		}
	}

	s, err := ImageToBase64(img, "", 0)
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	if !strings.HasPrefix(s, "data:image/png;base64,") {
		t.Errorf("默认应编码为 PNG: %.30s", s)
	}

	for _, input := range []string{s, s[strings.Index(s, ",")+1:]} {
		decoded, err := DecodeBase64(input)
		if err != nil {
			t.Fatalf("解码失败: %v", err)
		}
		if decoded.Width != 8 || decoded.Height != 6 {
			t.Fatalf("尺寸错误: %dx%d", decoded.Width, decoded.Height)
		}
		if got := decoded.At(3, 2); got != (cv.Pixel{90, 80, 7, 255}) {
			t.Errorf("像素错误: %v", got)
		}
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	var decodeErr *cv.DecodeError

	_, err := DecodeBase64("!!!not base64")
	if !errors.As(err, &decodeErr) {
		t.Errorf("非法 Base64 应返回 *cv.DecodeError, 实际为 %v", err)
	}

	_, err = DecodeBase64("aGVsbG8=")
	if !errors.As(err, &decodeErr) {
		t.Errorf("非图像数据应返回 *cv.DecodeError, 实际为 %v", err)
	}

	if _, err := ImageToBase64(nil, "png", 0); err == nil {
		t.Error("空图像应返回错误")
	}
	if _, err := ImageToBase64(image.NewNRGBA(image.Rect(0, 0, 1, 1)), "gif", 0); err == nil {
		t.Error("不支持的格式应返回错误")
	}
}
