// Package ingest 把原始的搭配记录转换为按用户分组的 Outfit。
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/registry"
)

// ExpandSet 把一条原始搭配（每个类目一个物品列表）展开为 Outfit。
// 只有第一个类目至少一个物品、其余类目恰好一个物品时才展开，
// 第一个类目的每个物品各产生一条 Outfit；否则返回 nil。
func ExpandSet(items [][]string) []core.Outfit {
	if len(items) == 0 || len(items[0]) == 0 {
		return nil
	}
	for _, list := range items[1:] {
		if len(list) != 1 {
			return nil
		}
	}
	out := make([]core.Outfit, 0, len(items[0]))
	for _, first := range items[0] {
		o := make(core.Outfit, len(items))
		o[0] = first
		for n := 1; n < len(items); n++ {
			o[n] = items[n][0]
		}
		out = append(out, o)
	}
	return out
}

// Record 是 JSONL 输入的一行。
type Record struct {
	User  string     `json:"user"`
	Items [][]string `json:"items"`
}

// maxLineSize 限制单行长度。
const maxLineSize = 16 * 1024 * 1024

// ReadJSONL 读取每行一个 Record 的输入。同一用户的多行会累积并去重，
// 用户按首次出现的顺序返回。空行被忽略；格式错误以及无法写入物品列表的标识
// （空串或含换行）返回带行号的 INVALID_INPUT。
func ReadJSONL(r io.Reader, numCategories int) ([]core.UserOutfits, error) {
	var (
		users []core.UserOutfits
		index = make(map[string]int)
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, core.WrapDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput,
				fmt.Sprintf("line %d: malformed record", line), err)
		}
		if rec.User == "" {
			return nil, core.NewDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput,
				fmt.Sprintf("line %d: missing user", line))
		}
		if len(rec.Items) != numCategories {
			return nil, core.NewDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput,
				fmt.Sprintf("line %d: %d item lists, want %d", line, len(rec.Items), numCategories))
		}
		u, ok := index[rec.User]
		if !ok {
			u = len(users)
			index[rec.User] = u
			users = append(users, core.UserOutfits{User: rec.User})
		}
		expanded := ExpandSet(rec.Items)
		for _, o := range expanded {
			for _, it := range o {
				if err := registry.ValidateIdentifier(it); err != nil {
					return nil, core.WrapDomainError(core.ModuleIngest, core.ErrorCodeInvalidInput,
						fmt.Sprintf("line %d: user %s", line, rec.User), err)
				}
			}
		}
		users[u].Outfits = append(users[u].Outfits, expanded...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for u := range users {
		users[u].Outfits = core.Dedup(users[u].Outfits)
	}
	return users, nil
}

// Clip 去掉正样本少于 min 条的用户，保持顺序。
func Clip(users []core.UserOutfits, min int) []core.UserOutfits {
	out := make([]core.UserOutfits, 0, len(users))
	for _, u := range users {
		if len(u.Outfits) >= min {
			out = append(out, u)
		}
	}
	return out
}
