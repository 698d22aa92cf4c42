// Package cv 提供容差模板匹配功能
//
// 匹配流程:
//   - PixelsMatch: 两个像素在每个 RGBA 通道上的绝对差都不超过容差
//   - EvaluateWindow: 统计一个窗口内的不匹配像素，超过预算立即放弃
//   - TemplateMatching: 穷举搜索区域内所有窗口左上角，按行并行评估
//
// 基本用法:
//
//	source, err := cv.ReadImage("screen.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	template, err := cv.ReadImage("button_20_10.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	points, err := cv.Search(ctx, source, template, 20, 10, cv.SearchZone{})
//	for _, p := range points {
//	    fmt.Printf("找到位置: (%d, %d)\n", p.X, p.Y)
//	}
package cv
