package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		current string
		want    string
	}{
		{"site root marker", "#include/frame.html", "/site/www/home.html", "/site/include/frame.html"},
		{"site root marker with slash", "#/include/frame.html", "/site/www/home.html", "/site/include/frame.html"},
		{"relative to file directory", "./frame.html", "/site/www/home.html", "/site/www/frame.html"},
		{"bare relative", "frame.html", "/site/www/home.html", "/site/www/frame.html"},
		{"parent directory", "../layouts/base.html", "/site/www/home.html", "/site/layouts/base.html"},
		{"absolute", "/templates/base.html", "/site/www/home.html", "/templates/base.html"},
		{"absolute is cleaned", "/templates/../base.html", "/site/www/home.html", "/base.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Path(tt.ref, tt.current, "/site"))
		})
	}
}
