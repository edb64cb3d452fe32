package models

// ReleaseType 是正式版在清单中的 type 值。
const ReleaseType = "release"

// Version 描述版本服务 /version/{id} 返回的详情。
type Version struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	JavaVersion          string `json:"java_version,omitempty"`
	DatapackVersion      *int   `json:"datapack_version"`
	ResourcePackVersion  string `json:"resource_pack_version,omitempty"`
	UpdateTitle          string `json:"update_title,omitempty"`
	ReleaseTime          string `json:"release_time,omitempty"`
	ReleaseTimeFormatted string `json:"release_time_formatted,omitempty"`
	ClientURL            string `json:"client_url,omitempty"`
	ServerURL            string `json:"server_url,omitempty"`
	WikiURL              string `json:"wikiurl,omitempty"`
}

// IsRelease 判断是否为正式版，缺失 type 时按正式版处理。
func (v Version) IsRelease() bool {
	return v.Type == "" || v.Type == ReleaseType
}
