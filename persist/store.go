package persist

import (
	"context"

	"github.com/rushteam/outfitkit/core"
)

// StoreSink 把产物写入任意 core.Store，key 为 "<prefix>:<name>"。
type StoreSink struct {
	store       core.Store
	prefix      string
	compression Compression
	ttl         int
}

var (
	_ Sink   = (*StoreSink)(nil)
	_ Source = (*StoreSink)(nil)
)

// NewStoreSink 创建 StoreSink；ttl 单位为秒，0 表示不过期。
func NewStoreSink(store core.Store, prefix string, c Compression, ttl int) *StoreSink {
	return &StoreSink{store: store, prefix: prefix, compression: c, ttl: ttl}
}

// NewStoreSource 返回只读用途的 StoreSink。
func NewStoreSource(store core.Store, prefix string, c Compression) *StoreSink {
	return NewStoreSink(store, prefix, c, 0)
}

// Key 返回名字对应的存储 key。
func (s *StoreSink) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

func (s *StoreSink) PutTable(ctx context.Context, name string, t *Table) error {
	return putTable(ctx, s, name, t)
}

func (s *StoreSink) PutList(ctx context.Context, name string, items []string) error {
	return s.put(ctx, name, marshalList(items))
}

func (s *StoreSink) PutBlob(ctx context.Context, name string, data []byte) error {
	return s.put(ctx, name, data)
}

func (s *StoreSink) GetTable(ctx context.Context, name string) (*Table, error) {
	return getTable(ctx, s, name)
}

func (s *StoreSink) GetList(ctx context.Context, name string) ([]string, error) {
	return getList(ctx, s, name)
}

func (s *StoreSink) GetBlob(ctx context.Context, name string) ([]byte, error) {
	return s.get(ctx, name)
}

// Names 列出前缀下已写入的名字（已排序）。
func (s *StoreSink) Names(ctx context.Context) ([]string, error) {
	prefix := s.Key("")
	keys, err := s.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k[len(prefix):]
	}
	return names, nil
}

func (s *StoreSink) put(ctx context.Context, name string, data []byte) error {
	encoded, err := s.compression.encode(data)
	if err != nil {
		return err
	}
	if s.ttl > 0 {
		return s.store.Set(ctx, s.Key(name), encoded, s.ttl)
	}
	return s.store.Set(ctx, s.Key(name), encoded)
}

func (s *StoreSink) get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.Get(ctx, s.Key(name))
	if core.IsNotFound(err) {
		return nil, notFound(name, err)
	}
	if err != nil {
		return nil, err
	}
	return s.compression.decode(data)
}
