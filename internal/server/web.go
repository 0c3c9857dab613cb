package server

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
)

//go:embed web
var webFiles embed.FS

// webRoot is the browser client: index.html plus static/.
var webRoot, _ = fs.Sub(webFiles, "web")

// mountWeb serves the browser client at / and its assets under /static/.
func mountWeb(r *mux.Router) {
	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFileFS(w, req, webRoot, "index.html")
	}).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/static/").Handler(http.FileServerFS(webRoot)).Methods(http.MethodGet, http.MethodHead)
}
