package echoapi

import (
	"html/template"
	"io"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	appfs "github.com/gvpclubconnect/clubconnect/fs"
)

const pagesDir = "assets/templates/pages"

// pageRenderer renders the few HTML pages served outside of the JSON API.
type pageRenderer struct {
	templates *template.Template
}

var _ echo.Renderer = (*pageRenderer)(nil)

func newPageRenderer() *pageRenderer {
	return &pageRenderer{
		templates: template.Must(template.New("").ParseFS(appfs.FS, path.Join(pagesDir, "*.gohtml"))),
	}
}

// Render executes the page named name (file name without extension).
func (r *pageRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	if err := r.templates.ExecuteTemplate(w, name+".gohtml", data); err != nil {
		return errors.Wrapf(err, "rendering page %q", name)
	}
	return nil
}
