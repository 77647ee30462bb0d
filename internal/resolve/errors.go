package resolve

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsite/internal/markup"
)

// LoadError reports a referenced template that could not be loaded or parsed.
type LoadError struct {
	Directive string        // block or include
	Ref       string        // reference as written
	Path      string        // resolved path
	Origin    markup.Origin // directive that made the reference
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s %q (%s): %v", e.Origin, e.Directive, e.Ref, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// CycleError reports a template that inherits or includes itself.
type CycleError struct {
	Chain []string // files from the page to the repeated file
}

func (e *CycleError) Error() string {
	return "template cycle: " + strings.Join(e.Chain, " -> ")
}

// DirectiveError reports a structural directive that is missing a required
// attribute.
type DirectiveError struct {
	Directive string
	Attribute string
	Origin    markup.Origin
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("%s: <%s> requires a %q attribute", e.Origin, e.Directive, e.Attribute)
}
