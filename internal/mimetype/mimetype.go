// Package mimetype maps file names to the Content-Type served for them.
package mimetype

import "path/filepath"

// Default is returned for unknown or missing extensions.
const Default = "application/octet-stream"

// types is keyed by extension including the leading dot. Lookups are case-sensitive.
var types = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".mp4":  "video/mp4",
}

// Resolve returns the Content-Type for name based on its extension.
func Resolve(name string) string {
	if t, ok := types[filepath.Ext(name)]; ok {
		return t
	}
	return Default
}
