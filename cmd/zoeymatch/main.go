package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/auto/screen"
	"github.com/zoeyai/zoeymatch/pkg/config"
	"github.com/zoeyai/zoeymatch/pkg/grpc"
	"github.com/zoeyai/zoeymatch/pkg/permissions"
	"github.com/zoeyai/zoeymatch/pkg/process"
	"github.com/zoeyai/zoeymatch/pkg/vision"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = vision.Version
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK          = 0
	exitRunFailed   = 1
	exitConfigError = 2
)

// flags 命令行参数
type flags struct {
	source      string
	templates   string
	debug       bool
	zone        string
	grid        string
	useScreen   bool
	region      string
	output      string
	labels      bool
	metric      string
	unsorted    bool
	concurrency int
	cpuCores    int
	logLevel    string
	logFile     string
	serve       bool
	addr        string
	remote      string
	root        string
	save        bool
	showVersion bool
	showHelp    bool
}

func parseFlags(fs *pflag.FlagSet, args []string) (*flags, error) {
	f := &flags{}

	fs.StringVarP(&f.source, "source", "s", "", "源图像路径")
	fs.StringVarP(&f.templates, "templates", "t", "", "模板目录 (默认: templates)")
	fs.BoolVarP(&f.debug, "debug", "d", false, "输出耗时和坐标，并保存标注结果图")
	fs.StringVarP(&f.zone, "zone", "z", "", "搜索区域 left,top,width,height")
	fs.StringVarP(&f.grid, "grid", "g", "", "以网格单元格作为搜索区域 rows.cols.row.col")
	fs.BoolVar(&f.useScreen, "screen", false, "截取屏幕作为源图像")
	fs.StringVar(&f.region, "region", "", "截屏区域 x,y,width,height (配合 --screen)")
	fs.StringVarP(&f.output, "output", "o", "", "标注结果图路径 (默认: output/result_image.png)")
	fs.BoolVar(&f.labels, "labels", false, "在标注结果图上绘制模板名称")
	fs.StringVarP(&f.metric, "metric", "m", "", "像素比较方式: channel 或 ciede2000")
	fs.BoolVar(&f.unsorted, "unsorted", false, "不对匹配坐标排序")
	fs.IntVarP(&f.concurrency, "concurrency", "j", 0, "同时运行的模板任务数 (0 表示不限制)")
	fs.IntVarP(&f.cpuCores, "cpu-cores", "c", process.LogicalCPUs(), "使用的 CPU 核数")
	fs.StringVar(&f.logLevel, "log-level", "", "日志级别: DEBUG, INFO, WARN, ERROR")
	fs.StringVar(&f.logFile, "log-file", "", "同时写入日志文件")
	fs.BoolVar(&f.serve, "serve", false, "以 gRPC 服务方式运行")
	fs.StringVar(&f.addr, "addr", "", "gRPC 服务监听地址 (默认: localhost:50052)")
	fs.StringVar(&f.root, "root", "", "gRPC 服务只允许访问该目录下的源图像和模板 (配合 --serve)")
	fs.StringVar(&f.remote, "remote", "", "把匹配请求发送到远程 gRPC 服务；源图像从本地发送，模板目录按服务端文件系统解析")
	fs.BoolVar(&f.save, "save", false, "保存配置到本地")
	fs.BoolVarP(&f.showVersion, "version", "v", false, "显示版本信息")
	fs.BoolVarP(&f.showHelp, "help", "h", false, "显示帮助信息")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// applyFlags 命令行参数优先级高于配置文件，只覆盖显式指定的参数
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.MatchConfig) {
	if fs.Changed("templates") {
		cfg.TemplateDir = f.templates
	}
	if fs.Changed("zone") {
		cfg.Zone = f.zone
	}
	if fs.Changed("grid") {
		cfg.Grid = f.grid
	}
	if fs.Changed("output") {
		cfg.OutputPath = f.output
	}
	if fs.Changed("labels") {
		cfg.Labels = f.labels
	}
	if fs.Changed("metric") {
		cfg.Metric = f.metric
	}
	if fs.Changed("unsorted") {
		cfg.Sorted = !f.unsorted
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("addr") {
		cfg.ServerAddr = f.addr
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("zoeymatch", pflag.ContinueOnError)
	fs.Usage = func() { printHelp(fs) }

	f, err := parseFlags(fs, args)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		return exitConfigError
	}

	// 显示版本
	if f.showVersion {
		printVersion()
		return exitOK
	}

	// 显示帮助
	if f.showHelp {
		printHelp(fs)
		return exitOK
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("[WARN] 加载配置失败: %v\n", err)
	}
	applyFlags(fs, f, cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		return exitConfigError
	}

	// 保存配置
	if f.save {
		if err := config.Save(cfg); err != nil {
			fmt.Printf("[WARN] 保存配置失败: %v\n", err)
		} else {
			fmt.Printf("[INFO] 配置已保存到 %s\n", config.GetDefaultManager().GetConfigFile())
		}
	}

	setupLogger(cfg, f)
	defer logger.Default().Close()

	if f.cpuCores > 0 {
		runtime.GOMAXPROCS(f.cpuCores)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f.serve {
		return serve(ctx, cfg, f.root)
	}

	if f.source == "" && !f.useScreen {
		fmt.Println("[ERROR] 缺少源图像，请使用 --source 或 --screen 参数指定")
		printHelp(fs)
		return exitConfigError
	}

	if f.remote != "" {
		return matchRemote(ctx, f, cfg)
	}
	return matchLocal(ctx, f, cfg)
}

func setupLogger(cfg *config.MatchConfig, f *flags) {
	level := logger.ParseLevel(cfg.LogLevel)
	if f.debug {
		level = logger.DEBUG
	}
	logger.Default().SetLevel(level)

	if f.logFile != "" {
		if err := logger.Default().SetFile(true, f.logFile); err != nil {
			fmt.Printf("[WARN] 打开日志文件失败: %v\n", err)
		}
	}
}

// matchOptions 根据配置构建匹配选项
func matchOptions(cfg *config.MatchConfig, debug bool) []vision.Option {
	zone, _ := cfg.SearchZone()
	g, _ := cfg.GridPosition()
	metric, _ := cv.ParseMetric(cfg.Metric)

	return []vision.Option{
		vision.WithZone(zone),
		vision.WithGrid(g),
		vision.WithMetric(metric),
		vision.WithSorted(cfg.Sorted),
		vision.WithConcurrency(cfg.Concurrency),
		vision.WithDebug(debug),
		vision.WithOutputPath(cfg.OutputPath),
		vision.WithLabels(cfg.Labels),
	}
}

func matchLocal(ctx context.Context, f *flags, cfg *config.MatchConfig) int {
	opts := matchOptions(cfg, f.debug)

	var (
		out      *vision.OutputSet
		err      error
		title    string
		mapPoint func(cv.Point) cv.Point
	)

	if f.useScreen {
		var region *screen.Region
		if f.region != "" {
			region, err = screen.ParseRegion(f.region)
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				return exitConfigError
			}
		}

		src, meta, err := screen.Capture(region)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			if errors.Is(err, screen.ErrPermissionDenied) {
				fmt.Println(permissions.Instructions())
			}
			return exitRunFailed
		}
		logger.Debug("截屏尺寸: %dx%d, 缩放: %.2fx%.2f", src.Width, src.Height, meta.ScaleX, meta.ScaleY)

		title = fmt.Sprintf("屏幕截图 %dx%d", src.Width, src.Height)
		mapPoint = meta.ToScreen
		out, err = vision.FindTemplatesIn(ctx, src, cfg.TemplateDir, opts...)
		if err != nil {
			return reportError(err)
		}
	} else {
		title = f.source
		out, err = vision.FindTemplates(ctx, f.source, cfg.TemplateDir, opts...)
		if err != nil {
			return reportError(err)
		}
	}

	fmt.Print(newLocalReport(title, out, mapPoint).Render())
	return exitOK
}

func matchRemote(ctx context.Context, f *flags, cfg *config.MatchConfig) int {
	req := &grpc.MatchRequest{
		TemplateDir: cfg.TemplateDir,
		Grid:        cfg.Grid,
		Metric:      cfg.Metric,
		Unsorted:    !cfg.Sorted,
		Concurrency: cfg.Concurrency,
	}
	req.Zone, _ = cfg.SearchZone()

	// 源图像在本地读取，以 Base64 发送；模板目录由服务端解析
	var err error
	req.SourceData, err = encodeRemoteSource(f)
	if err != nil {
		if errors.Is(err, errInvalidRegion) {
			return exitConfigError
		}
		return reportError(err)
	}

	client := grpc.NewClient(&grpc.ClientConfig{ServerURL: f.remote, CallTimeout: grpc.DefaultClientConfig().CallTimeout})
	client.SetStatusCallback(func(status grpc.ClientStatus) {
		logger.Debug("[STATUS] %s", status)
	})
	if err := client.Connect(); err != nil {
		return reportError(err)
	}
	defer client.Close()

	resp, err := client.Match(ctx, req)
	if err != nil {
		return reportError(err)
	}

	fmt.Print(newRemoteReport(f.remote, resp).Render())
	return exitOK
}

var errInvalidRegion = errors.New("截屏区域无效")

// encodeRemoteSource 读取本地源图像并编码为 PNG data URL
func encodeRemoteSource(f *flags) (string, error) {
	if !f.useScreen {
		src, err := cv.ReadImage(f.source)
		if err != nil {
			return "", err
		}
		return screen.ImageToBase64(src.ToNRGBA(), "png", 0)
	}

	if f.region == "" {
		return screen.CaptureScreenToBase64()
	}

	region, err := screen.ParseRegion(f.region)
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		return "", errInvalidRegion
	}
	src, _, err := screen.Capture(region)
	if err != nil {
		return "", err
	}
	return screen.ImageToBase64(src.ToNRGBA(), "png", 0)
}

func serve(ctx context.Context, cfg *config.MatchConfig, root string) int {
	// 打印启动信息
	fmt.Println("========================================")
	fmt.Printf("  Zoey Match v%s\n", Version)
	fmt.Println("========================================")
	fmt.Printf("监听地址: %s\n", cfg.ServerAddr)
	if root != "" {
		fmt.Printf("根目录: %s\n", root)
	}
	fmt.Println("[INFO] 按 Ctrl+C 退出")

	sc := grpc.DefaultServerConfig()
	sc.Addr = cfg.ServerAddr
	sc.Concurrency = cfg.Concurrency
	sc.Root = root
	server := grpc.NewServer(sc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		fmt.Printf("[ERROR] %v\n", err)
		return exitRunFailed
	case <-ctx.Done():
	}

	fmt.Println()
	fmt.Println("[INFO] 正在停止服务...")
	server.Stop()
	fmt.Println("[INFO] 已退出")
	return exitOK
}

// reportError 打印错误并返回退出码，配置类错误返回 2
func reportError(err error) int {
	fmt.Printf("[ERROR] %v\n", err)
	if cv.IsConfigurationError(err) {
		return exitConfigError
	}
	return exitRunFailed
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("Zoey Match v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp(fs *pflag.FlagSet) {
	fmt.Println("Zoey Match - 容差多模板图像匹配工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  zoeymatch [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Print(fs.FlagUsages())
	fmt.Println()
	fmt.Println("模板命名:")
	fmt.Println("  <名称>_<容差>_<比例>.png，例如 button_10_5.png")
	fmt.Println("  缺少参数时使用默认值: 容差 30, 比例 25")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 在截图中搜索模板目录下的所有模板")
	fmt.Println("  zoeymatch -s screen.png -t templates")
	fmt.Println()
	fmt.Println("  # 限定搜索区域并保存标注结果图")
	fmt.Println("  zoeymatch -s screen.png -t templates -z 0,0,800,600 -d")
	fmt.Println()
	fmt.Println("  # 只搜索 3x3 网格的中间格")
	fmt.Println("  zoeymatch -s screen.png -g 3.3.2.2")
	fmt.Println()
	fmt.Println("  # 截取屏幕区域作为源图像")
	fmt.Println("  zoeymatch --screen --region 0,0,1280,720")
	fmt.Println()
	fmt.Println("  # 启动 gRPC 服务")
	fmt.Println("  zoeymatch --serve --addr 0.0.0.0:50052 --root /data/match")
	fmt.Println()
	fmt.Println("  # 远程匹配: 源图像从本地发送，-t 是服务端上的模板目录")
	fmt.Println("  zoeymatch --remote host:50052 -s screen.png -t templates")
	fmt.Println()
	fmt.Printf("配置文件位置: %s\n", config.GetDefaultManager().GetConfigFile())
}
