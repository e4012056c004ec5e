package filter

import (
	"context"
	"encoding/json"

	"github.com/rushteam/outfitkit/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的名单存储接口。
// 名单以 JSON 字符串数组保存，例如 ["u1","u2"]。
type StoreAdapter struct {
	store core.Store
}

var _ UserListStore = (*StoreAdapter)(nil)

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetUserList 从 Store 读取用户名单。
func (a *StoreAdapter) GetUserList(ctx context.Context, key string) ([]string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, core.WrapDomainError(core.ModuleFilter, core.ErrorCodeInvalidInput, "decode user list "+key, err)
	}
	return ids, nil
}

// PutUserList 把名单写入 Store。
func (a *StoreAdapter) PutUserList(ctx context.Context, key string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}
