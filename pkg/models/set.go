package models

import (
	"sort"
	"strings"
)

// VersionSet 是无序且去重的版本标识集合。
type VersionSet map[string]struct{}

// NewVersionSet 用给定标识构造集合，空白标识会被忽略。
func NewVersionSet(ids ...string) VersionSet {
	set := make(VersionSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

// Add 加入一个去除首尾空白后的标识，与文件中按行读取的形式一致。
func (s VersionSet) Add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Has 判断标识是否存在。
func (s VersionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Difference 返回 s 中存在而 other 中不存在的标识。
func (s VersionSet) Difference(other VersionSet) VersionSet {
	diff := VersionSet{}
	for id := range s {
		if !other.Has(id) {
			diff[id] = struct{}{}
		}
	}
	return diff
}

// Merge 将 other 的全部标识并入 s。
func (s VersionSet) Merge(other VersionSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Clone 返回副本。
func (s VersionSet) Clone() VersionSet {
	clone := make(VersionSet, len(s))
	clone.Merge(s)
	return clone
}

// Sorted 按字典序返回全部标识。
func (s VersionSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
