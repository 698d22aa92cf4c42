package grpc

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zoeyai/zoeymatch/internal/logger"
	"github.com/zoeyai/zoeymatch/pkg/auto/screen"
	"github.com/zoeyai/zoeymatch/pkg/vision"
)

// MatchServiceServer 匹配服务接口
type MatchServiceServer interface {
	Match(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Info(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc 匹配服务描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Match", Handler: matchHandler},
		{MethodName: "Info", Handler: infoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zoeymatch/match.proto",
}

func matchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchServiceServer).Match(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MatchMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MatchServiceServer).Match(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func infoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchServiceServer).Info(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InfoMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MatchServiceServer).Info(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterMatchServiceServer 注册匹配服务
func RegisterMatchServiceServer(s grpc.ServiceRegistrar, srv MatchServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server 匹配服务端
type Server struct {
	config *ServerConfig
	grpc   *grpc.Server
}

// NewServer 创建服务端
func NewServer(config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	s := &Server{config: config}
	s.grpc = grpc.NewServer(
		grpc.MaxRecvMsgSize(config.MaxRecvMsgSize),
		grpc.UnaryInterceptor(logInterceptor),
	)
	RegisterMatchServiceServer(s.grpc, s)
	return s
}

// logInterceptor 记录每次调用的耗时和结果
func logInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	startTime := time.Now()
	resp, err := handler(ctx, req)

	detail := info.FullMethod
	if err != nil {
		detail = fmt.Sprintf("%s: %v", info.FullMethod, err)
	}
	logger.LogEvent("rpc", err == nil, time.Since(startTime), detail)
	return resp, err
}

// Match 执行一次匹配
func (s *Server) Match(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req MatchRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.checkPaths(&req); err != nil {
		return nil, err
	}

	opts, err := req.Options()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if s.config.Concurrency > 0 && (req.Concurrency == 0 || req.Concurrency > s.config.Concurrency) {
		opts = append(opts, vision.WithConcurrency(s.config.Concurrency))
	}

	var out *vision.OutputSet
	switch {
	case req.SourceData != "":
		src, err := screen.DecodeBase64(req.SourceData)
		if err != nil {
			return nil, statusError(err)
		}
		out, err = vision.FindTemplatesIn(ctx, src, req.TemplateDir, opts...)
		if err != nil {
			return nil, statusError(err)
		}
	case req.SourcePath != "":
		out, err = vision.FindTemplates(ctx, req.SourcePath, req.TemplateDir, opts...)
		if err != nil {
			return nil, statusError(err)
		}
	default:
		return nil, status.Error(codes.InvalidArgument, "缺少源图像: source_path 或 source_data")
	}

	resp, err := toStruct(NewMatchResponse(out))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// checkPaths 限制请求只能访问 Root 下的文件，相对路径按 Root 解析
func (s *Server) checkPaths(req *MatchRequest) error {
	if s.config.Root == "" {
		return nil
	}
	root, err := resolvePath(s.config.Root)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}

	targets := []*string{&req.TemplateDir}
	if req.SourceData == "" && req.SourcePath != "" {
		targets = append(targets, &req.SourcePath)
	}
	for _, target := range targets {
		p := *target
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		p, err = resolvePath(p)
		if err != nil || !withinRoot(root, p) {
			return status.Errorf(codes.PermissionDenied, "路径不在服务根目录 %s 下: %s", s.config.Root, *target)
		}
		*target = p
	}
	return nil
}

// resolvePath 返回绝对路径，存在的路径会解析符号链接
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// withinRoot 判断 path 是否等于 root 或位于其下
func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Info 返回服务信息
func (s *Server) Info(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp, err := toStruct(GetServerInfo())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// Serve 在指定 listener 上提供服务，阻塞直到停止
func (s *Server) Serve(lis net.Listener) error {
	logger.Info("匹配服务已启动: %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// ListenAndServe 监听配置地址并提供服务
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", s.config.Addr, err)
	}
	return s.Serve(lis)
}

// Stop 优雅停止服务
func (s *Server) Stop() {
	s.grpc.GracefulStop()
	logger.Info("匹配服务已停止")
}
