package szurubooru

import (
	"path/filepath"
	"strings"
)

// defaultThumbnails maps a media file extension to a thumbnail bundled
// under RootFolder, for formats the destination has no way to render a
// preview of itself (spec §4.7.3's "non-web animation format" example).
var defaultThumbnails = map[string]string{
	".swf": "assets/thumbnails/flash.png",
	".mng": "assets/thumbnails/mng.png",
}

// defaultThumbnailPath returns the bundled thumbnail file for mediaPath's
// extension, if one is registered.
func defaultThumbnailPath(rootFolder, mediaPath string) (string, bool) {
	rel, ok := defaultThumbnails[strings.ToLower(filepath.Ext(mediaPath))]
	if !ok {
		return "", false
	}
	return filepath.Join(rootFolder, rel), true
}
