package grpc

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client 匹配服务客户端
type Client struct {
	config *ClientConfig
	conn   *grpc.ClientConn

	mu             sync.RWMutex
	status         ClientStatus
	statusCallback StatusCallback
}

// NewClient 创建客户端，需要调用 Connect 建立连接
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	return &Client{
		config: config,
		status: StatusDisconnected,
	}
}

// SetStatusCallback 设置状态回调
func (c *Client) SetStatusCallback(cb StatusCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusCallback = cb
}

// Connect 建立连接
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, c.config.DialOptions...)

	conn, err := grpc.NewClient(c.config.ServerURL, opts...)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("连接 %s 失败: %w", c.config.ServerURL, err)
	}
	c.conn = conn
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	return nil
}

// Close 关闭连接
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	c.setStatus(StatusDisconnected)
	return err
}

// IsConnected 是否已连接
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status == StatusConnected
}

// GetStatus 获取状态
func (c *Client) GetStatus() ClientStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Client) setStatus(status ClientStatus) {
	c.mu.Lock()
	c.status = status
	cb := c.statusCallback
	c.mu.Unlock()

	if cb != nil {
		cb(status)
	}
}

// Match 请求一次匹配
func (c *Client) Match(ctx context.Context, req *MatchRequest) (*MatchResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.invoke(ctx, MatchMethod, in, out); err != nil {
		return nil, err
	}

	resp := &MatchResponse{}
	if err := fromStruct(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Info 获取服务信息
func (c *Client) Info(ctx context.Context) (*ServerInfo, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, InfoMethod, &structpb.Struct{}, out); err != nil {
		return nil, err
	}

	info := &ServerInfo{}
	if err := fromStruct(out, info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out *structpb.Struct) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("未连接")
	}

	if c.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
		defer cancel()
	}
	return conn.Invoke(ctx, method, in, out)
}
