// Package store 提供 core.Store 的实现，作为样本表、物品列表与运行清单的落盘后端。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	sink := persist.NewStoreSink(s, "outfitkit")
package store

import "github.com/rushteam/outfitkit/core"

// ErrNotFound 是 core.ErrStoreNotFound 的别名。
var ErrNotFound = core.ErrStoreNotFound
