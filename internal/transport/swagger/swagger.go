package swagger

import (
	"net/http"

	"github.com/go-chi/chi"
	httpSwagger "github.com/swaggo/http-swagger"
)

// DocumentPath is where the raw OpenAPI document is served, outside /api.
const DocumentPath = "/openapi.yml"

// Mount serves document at DocumentPath and the Swagger UI under /swagger/.
func Mount(r chi.Router, document []byte) {
	r.Get(DocumentPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(document)
	})
	r.Get("/swagger", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Handle("/swagger/*", Handler())
}

// Handler renders the UI against DocumentPath with operations listed but
// collapsed.
func Handler() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(DocumentPath),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DeepLinking(true),
	)
}
