package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/andrebq/secrets/internal/logutil"
)

var (
	//go:embed templates/*.html
	templateFS embed.FS

	//go:embed static
	staticFS embed.FS

	pageNames = []string{"home", "login", "register", "secrets", "submit"}
)

type (
	page struct {
		Title          string
		Authenticated  bool
		GoogleEnabled  bool
		Secrets        []string
		MaxPasswordLen int
		MaxSecretLen   int
	}

	renderer struct {
		pages map[string]*template.Template
	}
)

func loadTemplates() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tpl, err := template.ParseFS(templateFS, "templates/layout.html", fmt.Sprintf("templates/%v.html", name))
		if err != nil {
			return nil, fmt.Errorf("unable to parse template %v, cause %w", name, err)
		}
		r.pages[name] = tpl
	}
	return r, nil
}

func cssFiles() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static/css")
	if err != nil {
		// static/css is embedded at build time
		panic(err)
	}
	return http.FS(sub)
}

func (r *renderer) render(w http.ResponseWriter, req *http.Request, name string, data page) {
	tpl := r.pages[name]
	if tpl == nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	data.MaxPasswordLen = MaxPasswordLen
	data.MaxSecretLen = MaxSecretLen
	// render to memory first so a template error never leaves a half
	// written page behind
	var buf bytes.Buffer
	err := tpl.ExecuteTemplate(&buf, "layout", data)
	if err != nil {
		log := logutil.GetOrDefault(req.Context())
		log.Error().Err(err).Str("page", name).Msg("Unable to render page")
		http.Error(w, "unable to render page, check logs for more information", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
