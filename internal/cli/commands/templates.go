package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed all:templates
var templateFS embed.FS

// pageTemplate is the starter page written once per language.
const pageTemplate = "templates/page.html"

// copyTemplate copies an embedded template directory to the target path.
// Existing files are kept unless force is set.
func copyTemplate(templateName, targetDir string, force bool) ([]string, error) {
	root := path.Join("templates", templateName)

	var written []string
	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := p[len(root):]
		if rel == "" {
			return nil
		}
		rel = renameSpecialFiles(rel[1:])
		targetPath := filepath.Join(targetDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		ok, err := writeNew(targetPath, content, force)
		if ok {
			written = append(written, rel)
		}
		return err
	})
	return written, err
}

// writeNew writes content to target unless it exists and force is unset.
// It reports whether the file was written.
func writeNew(target string, content []byte, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(target); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return false, err
	}
	if err := os.WriteFile(target, content, 0600); err != nil {
		return false, err
	}
	return true, nil
}

// renameSpecialFiles restores dotfiles, which cannot be embedded by name.
func renameSpecialFiles(rel string) string {
	dir, base := path.Split(rel)
	switch base {
	case "gitignore":
		return dir + ".gitignore"
	default:
		return rel
	}
}
