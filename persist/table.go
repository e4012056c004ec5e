// Package persist 负责样本表、物品列表与运行清单的序列化和读写。
//
// 表格是逗号分隔的 CSV：一行表头 "user, <类目...>"，不带行索引；
// 列表每行一个标识。写入目标可以是目录（FileSink）或任意 core.Store（StoreSink）。
package persist

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rushteam/outfitkit/core"
)

// UserColumn 是表格第一列的列名，值为用户在阶段内的序号。
const UserColumn = "user"

// Table 是一张带表头的字符串表。
type Table struct {
	Header []string
	Rows   [][]string
}

// TableFromRows 把样本行转换为表格，表头为 user 加类目名。
func TableFromRows(categories []string, rows []core.Row) *Table {
	t := &Table{
		Header: append([]string{UserColumn}, categories...),
		Rows:   make([][]string, len(rows)),
	}
	for i, r := range rows {
		rec := make([]string, 0, len(r.Items)+1)
		rec = append(rec, strconv.Itoa(r.User))
		rec = append(rec, r.Items...)
		t.Rows[i] = rec
	}
	return t
}

// Categories 返回表头中的类目名。
func (t *Table) Categories() []string {
	if len(t.Header) == 0 {
		return nil
	}
	return append([]string(nil), t.Header[1:]...)
}

// ToRows 把表格解析回样本行。
func (t *Table) ToRows() ([]core.Row, error) {
	if len(t.Header) < 2 || t.Header[0] != UserColumn {
		return nil, core.NewDomainError(core.ModulePersist, core.ErrorCodeInvalidInput,
			fmt.Sprintf("unexpected table header %v", t.Header))
	}
	rows := make([]core.Row, len(t.Rows))
	for i, rec := range t.Rows {
		if len(rec) != len(t.Header) {
			return nil, core.NewDomainError(core.ModulePersist, core.ErrorCodeInvalidInput,
				fmt.Sprintf("row %d has %d fields, want %d", i+1, len(rec), len(t.Header)))
		}
		u, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, core.WrapDomainError(core.ModulePersist, core.ErrorCodeInvalidInput,
				fmt.Sprintf("row %d: bad user index %q", i+1, rec[0]), err)
		}
		rows[i] = core.Row{User: u, Items: append([]string(nil), rec[1:]...)}
	}
	return rows, nil
}

// WriteCSV 写出表头与所有行。
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	return cw.WriteAll(t.Rows)
}

// ReadCSV 读取 WriteCSV 写出的表格。每行字段数必须与表头一致。
func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, core.WrapDomainError(core.ModulePersist, core.ErrorCodeInvalidInput, "malformed csv", err)
	}
	if len(records) == 0 {
		return nil, core.NewDomainError(core.ModulePersist, core.ErrorCodeInvalidInput, "missing csv header")
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

func marshalTable(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalList(items []string) []byte {
	var buf bytes.Buffer
	for _, it := range items {
		buf.WriteString(it)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
