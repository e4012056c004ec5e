package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/registry"
)

// Sink 是数据集产物的写入目标。
//
// 设计原则：
//   - 只关心"按名字写入"，不关心底层是目录、Redis 还是其它存储
//   - 表格、列表、二进制块三种形态覆盖全部产物
//
// 使用场景：
//   - 本地落盘供训练脚本读取（FileSink）
//   - 写入共享 KV 存储供多个训练任务读取（StoreSink）
type Sink interface {
	PutTable(ctx context.Context, name string, t *Table) error
	PutList(ctx context.Context, name string, items []string) error
	PutBlob(ctx context.Context, name string, data []byte) error
}

// Source 是 Sink 的读取端。
type Source interface {
	GetTable(ctx context.Context, name string) (*Table, error)
	GetList(ctx context.Context, name string) ([]string, error)
}

// blobWriter / blobReader 按名字读写原始字节，表格与列表的编解码在其上共享。
type blobWriter interface {
	put(ctx context.Context, name string, data []byte) error
}

type blobReader interface {
	get(ctx context.Context, name string) ([]byte, error)
}

func putTable(ctx context.Context, b blobWriter, name string, t *Table) error {
	data, err := marshalTable(t)
	if err != nil {
		return err
	}
	return b.put(ctx, name, data)
}

func getTable(ctx context.Context, b blobReader, name string) (*Table, error) {
	data, err := b.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return ReadCSV(bytes.NewReader(data))
}

func getList(ctx context.Context, b blobReader, name string) ([]string, error) {
	data, err := b.get(ctx, name)
	if err != nil {
		return nil, err
	}
	return registry.ReadList(bytes.NewReader(data))
}

func notFound(name string, cause error) error {
	return core.WrapDomainError(core.ModulePersist, core.ErrorCodeNotFound,
		fmt.Sprintf("%s not found", name), cause)
}

// FileSink 把产物写到目录中，每个名字一个文件；压缩时文件名追加压缩后缀。
type FileSink struct {
	dir         string
	compression Compression
}

var _ Sink = (*FileSink)(nil)

// NewFileSink 创建（必要时新建目录）FileSink。
func NewFileSink(dir string, c Compression) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileSink{dir: dir, compression: c}, nil
}

func (s *FileSink) Dir() string { return s.dir }

// Path 返回名字对应的文件路径。
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.dir, name+s.compression.Ext())
}

func (s *FileSink) PutTable(ctx context.Context, name string, t *Table) error {
	return putTable(ctx, s, name, t)
}

func (s *FileSink) PutList(ctx context.Context, name string, items []string) error {
	return s.put(ctx, name, marshalList(items))
}

func (s *FileSink) PutBlob(ctx context.Context, name string, data []byte) error {
	return s.put(ctx, name, data)
}

func (s *FileSink) put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := s.compression.encode(data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path(name), encoded, 0o644)
}

// Source 返回读取同一目录的 FileSource。
func (s *FileSink) Source() *FileSource {
	return NewFileSource(s.dir, s.compression)
}

// FileSource 读取 FileSink 写出的目录。
type FileSource struct {
	dir         string
	compression Compression
}

var _ Source = (*FileSource)(nil)

func NewFileSource(dir string, c Compression) *FileSource {
	return &FileSource{dir: dir, compression: c}
}

func (s *FileSource) GetTable(ctx context.Context, name string) (*Table, error) {
	return getTable(ctx, s, name)
}

func (s *FileSource) GetList(ctx context.Context, name string) ([]string, error) {
	return getList(ctx, s, name)
}

// GetBlob 返回原始字节。
func (s *FileSource) GetBlob(ctx context.Context, name string) ([]byte, error) {
	return s.get(ctx, name)
}

func (s *FileSource) get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+s.compression.Ext()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name, err)
	}
	if err != nil {
		return nil, err
	}
	return s.compression.decode(data)
}
