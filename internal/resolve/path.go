package resolve

import (
	"path/filepath"
	"strings"
)

// SiteRootMarker prefixes references that are relative to the site root.
const SiteRootMarker = "#"

// Path maps a directive reference to a filesystem path. It never touches
// the filesystem.
//
//	#include/frame.html  -> <siteRoot>/include/frame.html
//	./frame.html         -> <dir of currentFile>/frame.html
//	/abs/frame.html      -> /abs/frame.html
func Path(ref, currentFile, siteRoot string) string {
	if rest, ok := strings.CutPrefix(ref, SiteRootMarker); ok {
		return filepath.Join(siteRoot, filepath.FromSlash(strings.TrimLeft(rest, "/")))
	}

	p := filepath.FromSlash(ref)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(filepath.Dir(currentFile), p)
}
