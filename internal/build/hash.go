package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapsite/internal/config"
)

// siteFingerprint hashes the parts of the site configuration that can change
// rendered output. Settings that only affect how a build runs are left out.
func siteFingerprint(site *config.Site) (string, error) {
	s := *site
	s.Workers = 0
	s.StatePath = ""

	data, err := yaml.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("failed to encode site configuration: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// contentHash hashes a page together with the templates it depends on and
// the site fingerprint. Paths are site-relative. It returns "" when any file
// cannot be read.
func contentHash(root, site, page string, deps []string) string {
	files := append([]string{page}, sortedCopy(deps)...)

	h := sha256.New()
	h.Write([]byte(site))
	h.Write([]byte{0})
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel))) //nolint:gosec // G304: paths come from site discovery
		if err != nil {
			return ""
		}
		h.Write([]byte(rel))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortedCopy(s []string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
