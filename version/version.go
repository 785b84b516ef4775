package version

import (
	"fmt"
	"io"
)

// 构建时通过 -ldflags "-X github.com/dszqbsm/stockdaily/version.GitHash=..." 注入
var (
	BuildTS   = "None"
	GitHash   = "None"
	GitBranch = "None"
	Version   = "None"
)

// GetVersion 返回 版本号-短提交哈希
func GetVersion() string {
	if GitHash == "" || GitHash == "None" {
		return Version
	}
	h := GitHash
	if len(h) > 7 {
		h = h[:7]
	}
	return fmt.Sprintf("%s-%s", Version, h)
}

// UserAgent 是抓取请求默认带上的标识
func UserAgent() string {
	return "stockdaily/" + GetVersion()
}

func Printer(w io.Writer) {
	fmt.Fprintln(w, "Version:          ", GetVersion())
	fmt.Fprintln(w, "Git Branch:       ", GitBranch)
	fmt.Fprintln(w, "Git Commit:       ", GitHash)
	fmt.Fprintln(w, "Build Time (UTC): ", BuildTS)
}
