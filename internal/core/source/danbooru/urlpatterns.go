package danbooru

import "regexp"

var (
	postURLPattern   = regexp.MustCompile(`^https://[a-zA-Z0-9.-]+/posts/.+$|^https://[a-zA-Z0-9.-]+/sample/.+$|^https://[a-zA-Z0-9.-]+/original/.+$`)
	globalURLPattern = regexp.MustCompile(`^https://[a-zA-Z0-9.-]+/?$`)
)
