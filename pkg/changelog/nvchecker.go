package changelog

import (
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/archlog/archlog/internal/utils"
)

// UpstreamURLFromNVChecker extracts the upstream project URL from the
// .nvchecker.toml shipped in a packaging repository. The file carries one
// table per package; depending on the configured source the URL is spelled as
// an owner/repo pair, a project path with a host, a git remote or a plain
// url key. An empty string means the file holds nothing usable.
func UpstreamURLFromNVChecker(content, packageName string) string {
	var sections map[string]map[string]any
	if err := toml.Unmarshal([]byte(content), &sections); err != nil {
		utils.Log.Debug("Could not parse .nvchecker.toml for ", packageName, ": ", err)
		return ""
	}

	section, ok := sections[packageName]
	if !ok {
		utils.Log.Debug("No .nvchecker.toml section for ", packageName)
		return ""
	}

	source, _ := section["source"].(string)
	switch source {
	case "github":
		if repo, ok := section["github"].(string); ok && repo != "" {
			return "https://github.com/" + repo
		}
	case "gitlab":
		if path, ok := section["gitlab"].(string); ok && path != "" {
			host, _ := section["host"].(string)
			if host == "" {
				host = "gitlab.com"
			}
			return "https://" + host + "/" + path
		}
	}

	if u, ok := section["url"].(string); ok && u != "" {
		return u
	}
	if g, ok := section["git"].(string); ok && g != "" {
		return strings.TrimSuffix(g, ".git")
	}
	return ""
}
