package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/zoeyai/zoeymatch/pkg/grpc"
	"github.com/zoeyai/zoeymatch/pkg/vision"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// 列表中最多显示的坐标数
const maxOrigins = 8

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

// reportRow 报告中的一行，本地和远程结果都转换为这个形式
type reportRow struct {
	Index      int
	Name       string
	Tolerance  int
	Percentage int
	Origins    []cv.Point
	Elapsed    time.Duration
	Err        string
}

// report 一次运行的报告
type report struct {
	Title    string
	Rows     []reportRow
	Failures []string
	Warnings []string
	Elapsed  time.Duration
}

// newLocalReport 从本地匹配结果构建报告，mapPoint 用于截屏坐标换算，可为 nil
func newLocalReport(title string, out *vision.OutputSet, mapPoint func(cv.Point) cv.Point) *report {
	r := &report{Title: title, Elapsed: out.Elapsed}

	for _, res := range out.Results {
		row := reportRow{
			Index:      res.Index,
			Name:       res.Name,
			Tolerance:  int(res.Tolerance),
			Percentage: res.Percentage,
			Origins:    res.Origins,
			Elapsed:    res.Elapsed,
		}
		if mapPoint != nil {
			row.Origins = make([]cv.Point, len(res.Origins))
			for i, p := range res.Origins {
				row.Origins[i] = mapPoint(p)
			}
		}
		if res.Err != nil {
			row.Err = res.Err.Error()
		}
		r.Rows = append(r.Rows, row)
	}

	for _, f := range out.Failures {
		r.Failures = append(r.Failures, f.Err.Error())
	}
	for _, w := range out.Warnings {
		r.Warnings = append(r.Warnings, w.String())
	}
	return r
}

// newRemoteReport 从远程匹配响应构建报告
func newRemoteReport(title string, resp *grpc.MatchResponse) *report {
	r := &report{Title: title, Elapsed: fromMillis(resp.ElapsedMs), Warnings: resp.Warnings}

	for _, res := range resp.Results {
		r.Rows = append(r.Rows, reportRow{
			Index:      res.Index,
			Name:       res.Name,
			Tolerance:  res.Tolerance,
			Percentage: res.Percentage,
			Origins:    res.Origins,
			Elapsed:    fromMillis(res.ElapsedMs),
			Err:        res.Error,
		})
	}
	for _, f := range resp.Failures {
		r.Failures = append(r.Failures, f.Path+": "+f.Error)
	}
	return r
}

func fromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// totalMatches 匹配总数
func (r *report) totalMatches() int {
	n := 0
	for _, row := range r.Rows {
		n += len(row.Origins)
	}
	return n
}

// Render 渲染报告
func (r *report) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(r.Title))
	b.WriteString("\n")

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "模板", "容差", "比例", "匹配", "坐标", "耗时").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			return cellStyle
		})

	for _, row := range r.Rows {
		t.Row(
			strconv.Itoa(row.Index+1),
			row.Name,
			strconv.Itoa(row.Tolerance),
			strconv.Itoa(row.Percentage)+"%",
			row.status(),
			formatOrigins(row.Origins),
			fmt.Sprintf("%.1fms", float64(row.Elapsed)/float64(time.Millisecond)),
		)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	for _, w := range r.Warnings {
		b.WriteString(warnStyle.Render("警告: " + w))
		b.WriteString("\n")
	}
	for _, f := range r.Failures {
		b.WriteString(errStyle.Render("跳过: " + f))
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("模板 %d 个, 匹配总数 %d, 总耗时 %.3f 秒",
		len(r.Rows), r.totalMatches(), r.Elapsed.Seconds())
	if r.totalMatches() == 0 {
		summary += " (未在源图像中找到任何模板)"
	}
	b.WriteString(summary)
	b.WriteString("\n")

	return b.String()
}

func (row reportRow) status() string {
	switch {
	case row.Err != "":
		return errStyle.Render("失败: " + row.Err)
	case len(row.Origins) == 0:
		return missStyle.Render("0")
	default:
		return okStyle.Render(strconv.Itoa(len(row.Origins)))
	}
}

// formatOrigins 格式化坐标列表，过长时截断
func formatOrigins(points []cv.Point) string {
	if len(points) == 0 {
		return "-"
	}

	n := len(points)
	if n > maxOrigins {
		n = maxOrigins
	}

	parts := make([]string, 0, n+1)
	for _, p := range points[:n] {
		parts = append(parts, fmt.Sprintf("(%d,%d)", p.X, p.Y))
	}
	if len(points) > maxOrigins {
		parts = append(parts, fmt.Sprintf("... +%d", len(points)-maxOrigins))
	}
	return strings.Join(parts, " ")
}
