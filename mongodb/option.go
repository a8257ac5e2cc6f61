package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// ClientOptions MongoDB 客户端配置选项
type ClientOptions struct {
	Name        string
	Uri         string
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
	PingOnOpen  bool // 建立连接后是否立即验证连通性
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, uri string) *ClientOptions {
	return &ClientOptions{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
		PingOnOpen:  true,
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("mongo client name is required")
	}
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	return nil
}

// Client 带生命周期的 MongoDB 客户端，容器销毁时自动断开连接
type Client struct {
	*mongo.Client
	name    string
	timeout time.Duration
}

// Name 返回客户端名称
func (c *Client) Name() string {
	return c.name
}

// Destroy 断开连接，由容器在关闭时调用
func (c *Client) Destroy() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.Client.Disconnect(ctx)
}

// Open 按配置建立 MongoDB 连接
func Open(opts ClientOptions) (*Client, error) {
	clientOpts := options.Client().ApplyURI(opts.Uri)
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}

	raw, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client '%s': %w", opts.Name, err)
	}

	client := &Client{Client: raw, name: opts.Name, timeout: opts.Timeout}
	if opts.PingOnOpen {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()
		if err := raw.Ping(ctx, readpref.Primary()); err != nil {
			client.Destroy()
			return nil, fmt.Errorf("failed to connect to mongo '%s': %w", opts.Name, err)
		}
	}
	return client, nil
}
