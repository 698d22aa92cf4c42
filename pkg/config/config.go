package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/grid"
)

// MatchConfig 匹配配置，命令行参数优先级高于配置文件
type MatchConfig struct {
	// TemplateDir 默认模板目录
	TemplateDir string `json:"template_dir"`
	// OutputPath 调试标注图路径
	OutputPath string `json:"output_path"`
	// Zone 搜索区域 "left,top,width,height"，空表示整幅图像
	Zone string `json:"zone,omitempty"`
	// Grid 网格单元格 "rows.cols.row.col"，设置后优先于 Zone
	Grid string `json:"grid,omitempty"`
	// Metric 像素比较方式: channel 或 ciede2000
	Metric string `json:"metric"`
	// Concurrency 同时运行的模板任务数，0 表示不限制
	Concurrency int `json:"concurrency"`
	// Sorted 是否按 (y, x) 排序结果
	Sorted bool `json:"sorted"`
	// Labels 标注图上是否绘制模板名称
	Labels bool `json:"labels"`
	// LogLevel 日志级别
	LogLevel string `json:"log_level"`
	// ServerAddr gRPC 服务监听地址
	ServerAddr string `json:"server_addr"`
}

// DefaultMatchConfig 默认匹配配置
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		TemplateDir: "templates",
		OutputPath:  "output/result_image.png",
		Zone:        "",
		Metric:      string(cv.MetricChannel),
		Concurrency: 0,
		Sorted:      true,
		Labels:      false,
		LogLevel:    "INFO",
		ServerAddr:  "localhost:50052",
	}
}

// Validate 检查配置取值
func (c *MatchConfig) Validate() error {
	if _, ok := cv.ParseMetric(c.Metric); !ok {
		return fmt.Errorf("未知的比较方式: %s", c.Metric)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("并发数不能为负数: %d", c.Concurrency)
	}
	if _, err := c.SearchZone(); err != nil {
		return err
	}
	if _, err := c.GridPosition(); err != nil {
		return err
	}
	return nil
}

// GridPosition 解析网格单元格，未配置时返回 nil
func (c *MatchConfig) GridPosition() (*grid.GridPosition, error) {
	if c.Grid == "" {
		return nil, nil
	}
	return grid.ParseGridPosition(c.Grid)
}

// SearchZone 解析搜索区域，未配置时返回零值
func (c *MatchConfig) SearchZone() (cv.SearchZone, error) {
	if c.Zone == "" {
		return cv.SearchZone{}, nil
	}
	return cv.ParseSearchZone(c.Zone)
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return NewManagerWithDir(filepath.Join(homeDir, ".zoey-match"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认配置
// 缺失的字段保留默认值
func (m *Manager) Load() (*MatchConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultMatchConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultMatchConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultMatchConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return DefaultMatchConfig(), fmt.Errorf("配置文件无效: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *MatchConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*MatchConfig, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(config *MatchConfig) error {
	return defaultManager.Save(config)
}

// Clear 使用默认管理器清除配置
func Clear() error {
	return defaultManager.Clear()
}
