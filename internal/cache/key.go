package cache

import "strings"

// TileKey derives the storage key for a tile:
// {namespace}/tiles/{zoom}/{column}/{row}.{ext}. The namespace is trimmed of
// leading and trailing slashes; an empty namespace omits the prefix entirely.
// Inputs are taken verbatim, so callers must pass clean coordinate tokens.
func TileKey(namespace, zoom, column, row, ext string) string {
	key := "tiles/" + zoom + "/" + column + "/" + row + "." + ext
	ns := strings.Trim(namespace, "/")
	if ns == "" {
		return key
	}
	return ns + "/" + key
}
