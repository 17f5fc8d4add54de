// Package version 提供 SDK 与 CLI 的构建信息。
// 构建时通过 -ldflags 注入，例如:
//
//	-X github.com/Smoke-Cloud/smoke-cloud-sdk/version.gitVersion=v0.3.0
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/gosuri/uitable"
)

// userAgentProduct 是 User-Agent 中的产品名
const userAgentProduct = "smoke-cloud-sdk-go"

var (
	// gitVersion 语义化版本号 vMAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]
	gitVersion = "v0.0.0-master+$Format:%h$"
	// buildDate ISO8601 构建时间
	buildDate = "1970-01-01T00:00:00Z"
	// gitCommit $(git rev-parse HEAD)
	gitCommit = "$Format:%H$"
	// gitTreeState clean 或 dirty
	gitTreeState = ""
)

// Info 构建信息
type Info struct {
	GitVersion   string `json:"gitVersion"`
	GitCommit    string `json:"gitCommit"`
	GitTreeState string `json:"gitTreeState,omitempty"`
	BuildDate    string `json:"buildDate"`
	GoVersion    string `json:"goVersion"`
	Compiler     string `json:"compiler"`
	Platform     string `json:"platform"`
}

// String 返回版本号，工作区有未提交修改时追加 -dirty
func (info Info) String() string {
	if info.GitTreeState == "dirty" {
		return info.GitVersion + "-dirty"
	}
	return info.GitVersion
}

// ShortString 仅返回版本号
func (info Info) ShortString() string {
	return info.GitVersion
}

func (info Info) ToJSON() (string, error) {
	s, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to marshal version info: %w", err)
	}
	return string(s), nil
}

func (info Info) ToJSONIndent() (string, error) {
	s, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal version info: %w", err)
	}
	return string(s), nil
}

// Text 以右对齐表格渲染构建信息
func (info Info) Text() string {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = " "
	table.AddRow("gitVersion:", info.GitVersion)
	table.AddRow("gitCommit:", info.GitCommit)
	if info.GitTreeState != "" {
		table.AddRow("gitTreeState:", info.GitTreeState)
	}
	table.AddRow("buildDate:", info.BuildDate)
	table.AddRow("goVersion:", info.GoVersion)
	table.AddRow("compiler:", info.Compiler)
	table.AddRow("platform:", info.Platform)
	return table.String()
}

// UserAgent 形如 "smoke-cloud-sdk-go/v0.3.0 (linux/amd64; go1.23.4)"
func (info Info) UserAgent() string {
	v := strings.TrimSpace(info.String())
	if v == "" {
		v = "unknown"
	}
	return fmt.Sprintf("%s/%s (%s; %s)", userAgentProduct, v, info.Platform, info.GoVersion)
}

// Get 返回当前二进制的构建信息
func Get() Info {
	return Info{
		GitVersion:   gitVersion,
		GitCommit:    gitCommit,
		GitTreeState: gitTreeState,
		BuildDate:    buildDate,
		GoVersion:    runtime.Version(),
		Compiler:     runtime.Compiler,
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// UserAgent 是所有出站请求默认携带的 User-Agent
func UserAgent() string {
	return Get().UserAgent()
}
