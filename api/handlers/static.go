package handlers

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed web
var webFS embed.FS

// IndexHandler 返回 GET / 的表单页面，其他路径返回 404
func IndexHandler() http.HandlerFunc {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		panic("embedded index.html missing: " + err.Error())
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = w.Write(page)
	}
}

// StaticHandler 提供 /static/ 下的 JS 与 CSS
func StaticHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic("embedded static dir missing: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
