package catalog

import "embed"

//go:embed config/*.yaml
var configFiles embed.FS
