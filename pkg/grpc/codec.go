package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zoeyai/zoeymatch/pkg/vision"
	"github.com/zoeyai/zoeymatch/pkg/vision/cv"
	"github.com/zoeyai/zoeymatch/pkg/vision/grid"
)

// toStruct 通过 JSON 把结构体转换为 Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化失败: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("序列化失败: %w", err)
	}
	return structpb.NewStruct(m)
}

// fromStruct 通过 JSON 把 Struct 转换为结构体
func fromStruct(s *structpb.Struct, v interface{}) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}
	return nil
}

// Options 把请求转换为匹配选项
func (r *MatchRequest) Options() ([]vision.Option, error) {
	metric, ok := cv.ParseMetric(r.Metric)
	if !ok {
		return nil, fmt.Errorf("未知的比较方式: %s", r.Metric)
	}
	if r.Concurrency < 0 {
		return nil, fmt.Errorf("并发数不能为负数: %d", r.Concurrency)
	}

	opts := []vision.Option{
		vision.WithZone(r.Zone),
		vision.WithMetric(metric),
		vision.WithSorted(!r.Unsorted),
		vision.WithConcurrency(r.Concurrency),
	}
	if r.Grid != "" {
		g, err := grid.ParseGridPosition(r.Grid)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vision.WithGrid(g))
	}
	return opts, nil
}

// NewMatchResponse 从匹配结果构建响应
func NewMatchResponse(out *vision.OutputSet) *MatchResponse {
	resp := &MatchResponse{
		Results:      make([]TemplateResult, len(out.Results)),
		TotalMatches: out.TotalMatches(),
		ElapsedMs:    millis(out.Elapsed),
	}

	for i, r := range out.Results {
		item := TemplateResult{
			Index:      r.Index,
			Name:       r.Name,
			Tolerance:  int(r.Tolerance),
			Percentage: r.Percentage,
			Origins:    r.Origins,
			ElapsedMs:  millis(r.Elapsed),
		}
		if item.Origins == nil {
			item.Origins = []cv.Point{}
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		resp.Results[i] = item
	}

	for _, f := range out.Failures {
		resp.Failures = append(resp.Failures, TemplateFailure{Path: f.Path, Error: f.Err.Error()})
	}
	for _, w := range out.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// statusError 把匹配错误映射为 gRPC 状态码
func statusError(err error) error {
	var decodeErr *cv.DecodeError

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, cv.ErrPathNotFound):
		return status.Error(codes.NotFound, err.Error())
	case cv.IsConfigurationError(err), errors.As(err, &decodeErr), errors.Is(err, cv.ErrEmptyImage):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
