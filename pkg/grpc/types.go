// Package grpc 提供匹配服务的 gRPC 服务端和客户端
//
// 服务没有生成代码，请求和响应都是 google.protobuf.Struct，
// 字段与本包中的 JSON 结构一一对应。
package grpc

import (
	"os"
	"runtime"
	"strings"
	"time"

	"google.golang.org/grpc"

	"github.com/zoeyai/zoeymatch/pkg/process"
	"github.com/zoeyai/zoeymatch/pkg/vision"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// Version 版本号
const Version = vision.Version

const (
	// ServiceName gRPC 服务名
	ServiceName = "zoeymatch.MatchService"
	// MatchMethod 匹配方法全名
	MatchMethod = "/" + ServiceName + "/Match"
	// InfoMethod 服务信息方法全名
	InfoMethod = "/" + ServiceName + "/Info"
)

// ClientStatus 客户端状态
type ClientStatus string

const (
	StatusDisconnected ClientStatus = "disconnected"
	StatusConnected    ClientStatus = "connected"
)

// ServerConfig 服务端配置
type ServerConfig struct {
	// Addr 监听地址 (host:port)
	Addr string
	// MaxRecvMsgSize 单个请求的最大字节数，源图像以 Base64 传输时需要足够大
	MaxRecvMsgSize int
	// Concurrency 每个请求同时运行的模板任务数上限，0 表示不限制
	Concurrency int
	// Root 请求中的 source_path 和 template_dir 必须位于该目录下，空表示不限制
	Root string
}

// DefaultServerConfig 默认服务端配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:           "localhost:50052",
		MaxRecvMsgSize: 64 << 20,
		Concurrency:    0,
	}
}

// ClientConfig 客户端配置
type ClientConfig struct {
	// ServerURL 服务端地址 (host:port)
	ServerURL string
	// CallTimeout 单次调用超时，0 表示不设置
	CallTimeout time.Duration
	// DialOptions 额外的连接选项
	DialOptions []grpc.DialOption
}

// DefaultClientConfig 默认客户端配置
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL:   "localhost:50052",
		CallTimeout: 60 * time.Second,
	}
}

// StatusCallback 状态变更回调函数
type StatusCallback func(status ClientStatus)

// MatchRequest 匹配请求
// SourcePath 和 SourceData 二选一，SourceData 为 Base64 或 data URL
type MatchRequest struct {
	SourcePath  string        `json:"source_path,omitempty"`
	SourceData  string        `json:"source_data,omitempty"`
	TemplateDir string        `json:"template_dir"`
	Zone        cv.SearchZone `json:"zone"`
	Grid        string        `json:"grid,omitempty"`
	Metric      string        `json:"metric,omitempty"`
	Unsorted    bool          `json:"unsorted,omitempty"`
	Concurrency int           `json:"concurrency,omitempty"`
}

// TemplateResult 单个模板的结果
type TemplateResult struct {
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	Tolerance  int        `json:"tolerance"`
	Percentage int        `json:"percentage"`
	Origins    []cv.Point `json:"origins"`
	ElapsedMs  float64    `json:"elapsed_ms"`
	Error      string     `json:"error,omitempty"`
}

// TemplateFailure 加载失败的模板
type TemplateFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// MatchResponse 匹配响应，Results 与模板加载顺序一致
type MatchResponse struct {
	Results      []TemplateResult  `json:"results"`
	Failures     []TemplateFailure `json:"failures,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	TotalMatches int               `json:"total_matches"`
	ElapsedMs    float64           `json:"elapsed_ms"`
}

// ServerInfo 服务信息
type ServerInfo struct {
	Version  string `json:"version"`
	Hostname string `json:"hostname"`
	Platform string `json:"platform"`
	Process  string `json:"process,omitempty"`
}

// GetServerInfo 获取当前服务信息
func GetServerInfo() *ServerInfo {
	hostname, _ := os.Hostname()

	platform := strings.ToUpper(runtime.GOOS)
	if platform == "DARWIN" {
		platform = "MACOS"
	}

	info := &ServerInfo{
		Version:  Version,
		Hostname: hostname,
		Platform: platform + "/" + runtime.GOARCH,
	}
	if stats, err := process.Self(); err == nil {
		info.Process = stats.String()
	}
	return info
}
