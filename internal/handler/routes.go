package handler

import (
	"net/http"

	"github.com/adboard/adboard/internal/service"
	"github.com/adboard/adboard/internal/view"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, products *service.ProductService, pages *view.Renderer, cookieSecure bool) {
	authHandler := NewAuthHandler(auth, pages, cookieSecure)
	productHandler := NewProductHandler(products, pages)

	optional := func(h http.HandlerFunc) http.Handler { return OptionalAuth(auth, h) }
	required := func(h http.HandlerFunc) http.Handler { return RequireAuth(auth, h) }

	// Public pages.
	mux.Handle("GET /{$}", optional(productHandler.HandleHome))
	mux.HandleFunc("POST /{$}", HandleHomePost)
	mux.Handle("GET /product_details/{id}", optional(productHandler.HandleDetails))
	mux.Handle("POST /product_details/{id}", optional(productHandler.HandleDetails))
	mux.HandleFunc("GET /media/{key}", productHandler.HandleMedia)
	mux.HandleFunc("GET /healthz", HandleHealthz)

	// Account routes.
	mux.HandleFunc("GET /register", authHandler.HandleRegisterPage)
	mux.HandleFunc("POST /register", authHandler.HandleRegister)
	mux.HandleFunc("GET /login", authHandler.HandleLoginPage)
	mux.HandleFunc("POST /login", authHandler.HandleLogin)
	mux.Handle("GET /logout", required(authHandler.HandleLogout))

	// Listing lifecycle, owner only.
	mux.Handle("GET /add_product", required(productHandler.HandleAddPage))
	mux.Handle("POST /add_product", required(productHandler.HandleAdd))
	mux.Handle("GET /edit_product/{id}", required(productHandler.HandleEditPage))
	mux.Handle("POST /edit_product/{id}", required(productHandler.HandleEdit))
	mux.Handle("GET /delete_product/{id}", required(productHandler.HandleDelete))
	mux.Handle("POST /delete_product/{id}", required(productHandler.HandleDelete))

	// Relies on whatever identity is present; anonymous visitors are sent
	// to the login page by the handler itself.
	mux.Handle("GET /my_products", optional(productHandler.HandleMyProducts))
	mux.Handle("POST /my_products", optional(productHandler.HandleMyProducts))

	// Everything else gets the custom 404 page.
	mux.Handle("/", optional(productHandler.HandleNotFound))
}

// HandleHomePost preserves the legacy response of the home route to POST.
func HandleHomePost(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("POST METHOD"))
}
