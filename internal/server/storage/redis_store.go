package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key 前缀
	lobbyKeyPrefix = "lobby:"
	userLobbyKey   = "lobby:users"

	// 大厅快照过期时间
	lobbyExpiration = 2 * time.Hour
)

// LobbyData 大厅快照（用于 Redis 序列化）
//
// 快照只用于外部观察，进程重启不会据此恢复大厅。
type LobbyData struct {
	Code       string         `json:"code"`
	HostID     string         `json:"host_id"`
	Lifecycle  string         `json:"lifecycle"`
	Players    []PlayerData   `json:"players"`
	Settings   map[string]int `json:"settings"`
	EventCount int            `json:"event_count"`
	CreatedAt  int64          `json:"created_at"`
}

// PlayerData 玩家快照
type PlayerData struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Alive          bool   `json:"alive"`
	Role           string `json:"role"`
	TasksCompleted int    `json:"tasks_completed"`
	TasksTotal     int    `json:"tasks_total"`
}

// RedisStore Redis 存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储，client 为 nil 时所有写操作为空操作
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) disabled() bool {
	return rs == nil || rs.client == nil
}

// --- 大厅快照 ---

// SaveLobby 保存大厅快照
func (rs *RedisStore) SaveLobby(ctx context.Context, code string, data *LobbyData) error {
	if data == nil || rs.disabled() {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化大厅数据失败: %w", err)
	}

	return rs.client.Set(ctx, lobbyKeyPrefix+code, jsonData, lobbyExpiration).Err()
}

// LoadLobby 读取大厅快照，不存在时返回 nil, nil
func (rs *RedisStore) LoadLobby(ctx context.Context, code string) (*LobbyData, error) {
	if rs.disabled() {
		return nil, nil
	}

	data, err := rs.client.Get(ctx, lobbyKeyPrefix+code).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var lobbyData LobbyData
	if err := json.Unmarshal(data, &lobbyData); err != nil {
		return nil, fmt.Errorf("反序列化大厅数据失败: %w", err)
	}

	return &lobbyData, nil
}

// DeleteLobby 删除大厅快照
func (rs *RedisStore) DeleteLobby(ctx context.Context, code string) error {
	if rs.disabled() {
		return nil
	}
	return rs.client.Del(ctx, lobbyKeyPrefix+code).Err()
}

// GetAllLobbyCodes 获取所有大厅代码
func (rs *RedisStore) GetAllLobbyCodes(ctx context.Context) ([]string, error) {
	if rs.disabled() {
		return nil, nil
	}

	var codes []string
	iter := rs.client.Scan(ctx, 0, lobbyKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if key == userLobbyKey {
			continue
		}
		codes = append(codes, key[len(lobbyKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// --- 用户索引 ---

// SetUserLobby 记录用户所在大厅
func (rs *RedisStore) SetUserLobby(ctx context.Context, userID, code string) error {
	if rs.disabled() {
		return nil
	}
	return rs.client.HSet(ctx, userLobbyKey, userID, code).Err()
}

// GetUserLobby 读取用户所在大厅，不存在时返回空字符串
func (rs *RedisStore) GetUserLobby(ctx context.Context, userID string) (string, error) {
	if rs.disabled() {
		return "", nil
	}
	code, err := rs.client.HGet(ctx, userLobbyKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

// DeleteUserLobby 删除用户索引
func (rs *RedisStore) DeleteUserLobby(ctx context.Context, userID string) error {
	if rs.disabled() {
		return nil
	}
	return rs.client.HDel(ctx, userLobbyKey, userID).Err()
}

// Ping 检查连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	if rs.disabled() {
		return nil
	}
	return rs.client.Ping(ctx).Err()
}
