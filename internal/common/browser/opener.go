// Package browser opens links in the user's default browser.
package browser

import (
	"context"
	"fmt"

	"meme-workers/internal/common/validation"

	pkgbrowser "github.com/pkg/browser"
)

// Opener hands absolute http(s) links to the platform URL handler. The
// handler receives the link as a single argument and is waited on, so no
// shell parses it and no child is left unreaped.
type Opener struct {
	open func(url string) error
}

func NewOpener() *Opener {
	return &Opener{open: pkgbrowser.OpenURL}
}

// Open refuses anything that is not an absolute http(s) URL, since the
// platform handler would otherwise launch local files and programs.
func (o *Opener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validation.IsValidURL(url) {
		return fmt.Errorf("refusing to open %q: not an absolute http(s) URL", url)
	}
	return o.open(url)
}
