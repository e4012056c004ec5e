package filter

import (
	"context"
	"sync"

	"github.com/rushteam/outfitkit/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的用户。
type BlacklistFilter struct {
	// Users 是内存中的黑名单用户列表
	Users []string

	// Store 用于从存储中读取黑名单（可选）
	Store UserListStore

	// Key 是 Store 中的黑名单 key（可选）
	Key string

	cache userSet
}

// UserListStore 是用户名单存储接口。
type UserListStore interface {
	// GetUserList 获取 key 对应的用户列表
	GetUserList(ctx context.Context, key string) ([]string, error)
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(users []string, storeAdapter *StoreAdapter, key string) *BlacklistFilter {
	var store UserListStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &BlacklistFilter{
		Users: users,
		Store: store,
		Key:   key,
	}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(ctx context.Context, u *core.UserOutfits) (bool, error) {
	if u == nil {
		return true, nil
	}
	set, err := f.cache.load(ctx, f.Users, f.Store, f.Key)
	if err != nil {
		return false, err
	}
	_, ok := set[u.User]
	return ok, nil
}

// userSet 在第一次使用时合并内存名单与 Store 中的名单，之后复用。
// Store 中不存在 key 时视为空名单。
type userSet struct {
	mu  sync.Mutex
	set map[string]struct{}
}

func (c *userSet) load(ctx context.Context, users []string, store UserListStore, key string) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set != nil {
		return c.set, nil
	}
	set := make(map[string]struct{}, len(users))
	for _, id := range users {
		set[id] = struct{}{}
	}
	if store == nil || key == "" {
		c.set = set
		return set, nil
	}
	fromStore, err := store.GetUserList(ctx, key)
	if err != nil && !core.IsNotFound(err) {
		return nil, err
	}
	for _, id := range fromStore {
		set[id] = struct{}{}
	}
	c.set = set
	return set, nil
}

// WhitelistFilter 只保留名单中的用户；名单为空时保留所有用户。
type WhitelistFilter struct {
	Users []string
	Store UserListStore
	Key   string

	cache userSet
}

func NewWhitelistFilter(users []string, storeAdapter *StoreAdapter, key string) *WhitelistFilter {
	var store UserListStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	return &WhitelistFilter{Users: users, Store: store, Key: key}
}

func (f *WhitelistFilter) Name() string {
	return "filter.whitelist"
}

func (f *WhitelistFilter) ShouldFilter(ctx context.Context, u *core.UserOutfits) (bool, error) {
	if u == nil {
		return true, nil
	}
	set, err := f.cache.load(ctx, f.Users, f.Store, f.Key)
	if err != nil {
		return false, err
	}
	if len(set) == 0 {
		return false, nil
	}
	_, ok := set[u.User]
	return !ok, nil
}
