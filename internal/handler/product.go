package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/adboard/adboard/internal/domain"
	"github.com/adboard/adboard/internal/service"
	"github.com/adboard/adboard/internal/view"
)

// ProductHandler handles listing pages and the listing lifecycle.
type ProductHandler struct {
	products *service.ProductService
	pages    *view.Renderer
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products *service.ProductService, pages *view.Renderer) *ProductHandler {
	return &ProductHandler{products: products, pages: pages}
}

// HandleHome lists all listings, or those matching the q query parameter.
// GET /
func (h *ProductHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	products, err := h.products.Search(r.Context(), query)
	if err != nil {
		slog.Error("list products", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := view.IndexData{
		PageTitle: "All listings",
		UserName:  userName(r),
		Query:     query,
		Products:  products,
	}
	if err := h.pages.IndexPage(w, data); err != nil {
		slog.Error("render index page", "error", err)
	}
}

// HandleAddPage renders the empty listing form.
// GET /add_product
func (h *ProductHandler) HandleAddPage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, view.ProductFormData{
		PageTitle: "Post a listing",
		UserName:  userName(r),
		Action:    "/add_product",
	})
}

// HandleAdd creates a listing for the current user.
// POST /add_product
func (h *ProductHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	input, upload, formErr := parseProductForm(r)
	if formErr != "" {
		h.renderForm(w, r, http.StatusUnprocessableEntity, view.ProductFormData{
			PageTitle: "Post a listing",
			UserName:  user.Name,
			Action:    "/add_product",
			Message:   formErr,
		})
		return
	}

	_, err := h.products.Create(r.Context(), user.ID, input, upload)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.renderForm(w, r, http.StatusUnprocessableEntity, view.ProductFormData{
				PageTitle: "Post a listing",
				UserName:  user.Name,
				Action:    "/add_product",
				Message:   err.Error(),
			})
			return
		}
		slog.Error("create product", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleEditPage loads the listing for editing by its owner.
// GET /edit_product/{id}
func (h *ProductHandler) HandleEditPage(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.products.GetForEdit(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.renderNotFound(w, r)
			return
		}
		slog.Error("load product for edit", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.renderForm(w, r, http.StatusOK, view.ProductFormData{
		PageTitle: "Edit listing",
		UserName:  user.Name,
		Action:    "/edit_product/" + strconv.FormatInt(id, 10),
		Product:   product,
	})
}

// HandleEdit updates an owned listing.
// POST /edit_product/{id}
func (h *ProductHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	action := "/edit_product/" + strconv.FormatInt(id, 10)
	input, upload, formErr := parseProductForm(r)
	if formErr != "" {
		h.renderForm(w, r, http.StatusUnprocessableEntity, view.ProductFormData{
			PageTitle: "Edit listing",
			UserName:  user.Name,
			Action:    action,
			Message:   formErr,
		})
		return
	}

	_, err := h.products.Update(r.Context(), id, user.ID, input, upload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.renderNotFound(w, r)
		case errors.Is(err, domain.ErrInvalidInput):
			h.renderForm(w, r, http.StatusUnprocessableEntity, view.ProductFormData{
				PageTitle: "Edit listing",
				UserName:  user.Name,
				Action:    action,
				Message:   err.Error(),
			})
		default:
			slog.Error("update product", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleDelete deletes an owned listing. A listing owned by someone else
// is refused with 403 (unlike edit, which hides existence with 404).
// GET/POST /delete_product/{id}
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		slog.Error("delete product", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleDetails looks up a listing and redirects to the home page.
// A missing listing renders the 404 page; an existing one redirects without
// rendering a detail body, mirroring the legacy behavior of this route.
// GET/POST /product_details/{id}
func (h *ProductHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.products.GetDetail(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.renderNotFound(w, r)
			return
		}
		slog.Error("load product details", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMyProducts lists the current user's own listings. An owner with no
// listings gets the 404 page rather than an empty list.
// GET/POST /my_products
func (h *ProductHandler) HandleMyProducts(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	products, err := h.products.ListByOwner(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.renderNotFound(w, r)
			return
		}
		slog.Error("list own products", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := view.MyProductsData{
		PageTitle: "My listings",
		UserName:  user.Name,
		Products:  products,
	}
	if err := h.pages.MyProductsPage(w, data); err != nil {
		slog.Error("render my products page", "error", err)
	}
}

// HandleMedia serves stored image bytes.
// GET /media/{key}
func (h *ProductHandler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, err := h.products.GetImage(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		slog.Error("serve image", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleNotFound renders the custom 404 page for unknown routes.
func (h *ProductHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r)
}

func (h *ProductHandler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	data := view.NotFoundData{
		PageTitle: "Oops! Page not found...",
		UserName:  userName(r),
	}
	if err := h.pages.NotFoundPage(w, data); err != nil {
		slog.Error("render not found page", "error", err)
	}
}

func (h *ProductHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, data view.ProductFormData) {
	w.WriteHeader(status)
	if err := h.pages.ProductFormPage(w, data); err != nil {
		slog.Error("render product form", "error", err)
	}
}

// maxMultipartMemory bounds how much of a multipart body is held in memory.
const maxMultipartMemory = 10 << 20

// parseProductForm reads the listing fields and the optional image upload
// from a multipart form. A non-empty string return is a user-facing
// validation message.
func parseProductForm(r *http.Request) (service.ProductInput, *service.ImageUpload, string) {
	var input service.ProductInput

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		// Plain form posts (no file field) are accepted too.
		if err := r.ParseForm(); err != nil {
			return input, nil, "Could not read the submitted form."
		}
	}

	input.Title = r.PostFormValue("title")
	input.Content = r.PostFormValue("content")
	input.ContactNumber = r.PostFormValue("contact_number")

	costStr := r.PostFormValue("cost")
	if costStr != "" {
		cost, err := strconv.ParseInt(costStr, 10, 64)
		if err != nil {
			return input, nil, "Cost must be a whole number."
		}
		input.Cost = cost
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return input, nil, ""
		}
		return input, nil, ""
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return input, nil, "Could not read the uploaded image."
	}

	return input, &service.ImageUpload{Filename: header.Filename, Data: data}, ""
}

// userName returns the display name of the current user, or "" for
// anonymous visitors.
func userName(r *http.Request) string {
	if user := UserFromContext(r.Context()); user != nil {
		return user.Name
	}
	return ""
}

// pathID parses the {id} path segment, replying 400 on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
