package gelbooru

import "regexp"

var (
	postURLPattern   = regexp.MustCompile(`page=post.+$|^https://[a-zA-Z0-9.-]+/+samples/.+$`)
	globalURLPattern = regexp.MustCompile(`^https://[a-zA-Z0-9.-]+/?$`)
)
