package e621

import "regexp"

var (
	postURLPattern   = regexp.MustCompile(`^https://[a-zA-Z0-9.-]+/posts/.+$|^https://[a-zA-Z0-9.-]+/data/sample/.+$`)
	globalURLPattern = regexp.MustCompile(`^https://[a-zA-Z0-9.-]+/?$`)
)
