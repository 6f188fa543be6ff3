package site

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed assets templates
var embedded embed.FS

// Assets returns the static files served under /assets/.
func Assets() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		// Heading levels start at 1; the first level is not indented.
		"indent": func(level int) int {
			if level <= 1 {
				return 0
			}
			return level - 1
		},
	}
	return template.New("site").Funcs(funcs).ParseFS(embedded, "templates/*.html")
}
