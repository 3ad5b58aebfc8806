package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"staffroster/backend/config"
)

// Client Redis 客户端封装
// 当前用于同步结果通知缓存、月度拉取去重标记与 Token 黑名单
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 同步结果通知缓存 ──
//
// 后台同步任务完成（或彻底失败）后向这里写入一条通知，
// 前端下一次加载日历页时取走并清除。这是后台同步回流到
// 交互层的唯一信号通道。

const (
	syncSuccessPrefix = "sync:success:"
	syncErrorPrefix   = "sync:error:"

	// notificationTTL 通知槽有效期；未被页面消费则自动过期
	notificationTTL = 5 * time.Minute
)

// Notification 同步结果通知载荷
type Notification struct {
	Message string   `json:"message"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed,omitempty"`
	Details []string `json:"details,omitempty"`
}

// PutSyncSuccess 写入成功通知（按触发用户 ID 定位）
func (c *Client) PutSyncSuccess(ctx context.Context, userID string, n *Notification) error {
	return c.putNotification(ctx, syncSuccessPrefix+userID, n)
}

// PutSyncError 写入失败通知
func (c *Client) PutSyncError(ctx context.Context, userID string, n *Notification) error {
	return c.putNotification(ctx, syncErrorPrefix+userID, n)
}

// PullSyncSuccess 取出并清除成功通知；不存在时返回 nil
func (c *Client) PullSyncSuccess(ctx context.Context, userID string) (*Notification, error) {
	return c.pullNotification(ctx, syncSuccessPrefix+userID)
}

// PullSyncError 取出并清除失败通知；不存在时返回 nil
func (c *Client) PullSyncError(ctx context.Context, userID string) (*Notification, error) {
	return c.pullNotification(ctx, syncErrorPrefix+userID)
}

func (c *Client) putNotification(ctx context.Context, key string, n *Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}
	return c.rdb.Set(ctx, key, data, notificationTTL).Err()
}

func (c *Client) pullNotification(ctx context.Context, key string) (*Notification, error) {
	data, err := c.rdb.GetDel(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("解析通知失败: %w", err)
	}
	return &n, nil
}

// ── 月度拉取去重标记 ──
//
// periodic 模式下同一 (用户, 年, 月) 窗口在标记有效期内只派发一次
// 同步任务。标记带 TTL，替代原先的会话内隐式状态。

func monthFetchKey(userID string, year, month int) string {
	return fmt.Sprintf("availability:fetched:%s:%04d-%02d", userID, year, month)
}

// TryMarkMonthFetched 原子地抢占 (用户, 年, 月) 的拉取标记。
// 返回 true 表示本次抢占成功（应派发同步任务），false 表示窗口已被拉取过。
func (c *Client) TryMarkMonthFetched(ctx context.Context, userID string, year, month int, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, monthFetchKey(userID, year, month), time.Now().Format(time.RFC3339), ttl).Result()
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
