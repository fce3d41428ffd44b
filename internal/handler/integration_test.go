package handler_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/adboard/adboard/internal/handler"
)

var gifData = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00;")

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	auth, products, pages := newTestServices(t)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, auth, products, pages, false)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // don't follow redirects automatically
		},
	}
}

func registerAndLogin(t *testing.T, client *http.Client, baseURL, name, email string) {
	t.Helper()
	resp, err := client.PostForm(baseURL+"/register", url.Values{
		"name":                  {name},
		"email":                 {email},
		"password":              {"password123"},
		"password_confirmation": {"password123"},
	})
	if err != nil {
		t.Fatalf("POST /register: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("register: expected 303, got %d", resp.StatusCode)
	}

	resp, err = client.PostForm(baseURL+"/login", url.Values{
		"email":    {email},
		"password": {"password123"},
	})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login: expected 303, got %d", resp.StatusCode)
	}
}

func postListing(t *testing.T, client *http.Client, action string, fields map[string]string, imageName string, imageData []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if imageName != "" {
		fw, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(imageData); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, action, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", action, err)
	}
	return resp
}

func getBody(t *testing.T, client *http.Client, rawURL string) (int, string) {
	t.Helper()
	resp, err := client.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

// extractProductID finds the first numeric id in a /product_details/{id} link.
func extractProductID(t *testing.T, body string) string {
	t.Helper()
	idx := strings.Index(body, "/product_details/")
	if idx == -1 {
		t.Fatal("no product_details link in page body")
	}
	rest := body[idx+len("/product_details/"):]
	end := strings.IndexAny(rest, "\"/ >")
	if end == -1 {
		t.Fatal("unterminated product_details link")
	}
	id := rest[:end]
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		t.Fatalf("non-numeric product id %q", id)
	}
	return id
}

func TestIntegration_RegisterLoginCreateBrowseDelete(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t)

	registerAndLogin(t, client, srv.URL, "User U", "u@example.com")

	// Create listing "Bike".
	resp := postListing(t, client, srv.URL+"/add_product", map[string]string{
		"title":          "Bike",
		"content":        "Red city bike, barely used",
		"cost":           "120",
		"contact_number": "+1 555 0100",
	}, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create listing: expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("create listing: expected redirect to /, got %s", loc)
	}

	// The listing is publicly visible to an anonymous visitor.
	anon := newTestClient(t)
	status, body := getBody(t, anon, srv.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("home: expected 200, got %d", status)
	}
	if !strings.Contains(body, "Bike") {
		t.Fatal("expected listing 'Bike' on the public home page")
	}
	id := extractProductID(t, body)

	// Delete as the owner.
	resp, err := client.Get(srv.URL + "/delete_product/" + id)
	if err != nil {
		t.Fatalf("GET /delete_product: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("delete: expected 303, got %d", resp.StatusCode)
	}

	// The detail route now reports not found.
	status, _ = getBody(t, anon, srv.URL+"/product_details/"+id)
	if status != http.StatusNotFound {
		t.Fatalf("details after delete: expected 404, got %d", status)
	}
}

func TestIntegration_CrossUserOwnership(t *testing.T) {
	srv := newTestServer(t)

	clientA := newTestClient(t)
	registerAndLogin(t, clientA, srv.URL, "User A", "a@example.com")

	resp := postListing(t, clientA, srv.URL+"/add_product", map[string]string{
		"title":          "Lamp",
		"content":        "Desk lamp",
		"cost":           "30",
		"contact_number": "+1 555 0101",
	}, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create listing: expected 303, got %d", resp.StatusCode)
	}

	_, body := getBody(t, clientA, srv.URL+"/")
	id := extractProductID(t, body)

	clientB := newTestClient(t)
	registerAndLogin(t, clientB, srv.URL, "User B", "b@example.com")

	// B cannot load A's listing for editing: 404, not 403.
	status, _ := getBody(t, clientB, srv.URL+"/edit_product/"+id)
	if status != http.StatusNotFound {
		t.Fatalf("edit as non-owner: expected 404, got %d", status)
	}

	// B cannot delete it: 403.
	status, _ = getBody(t, clientB, srv.URL+"/delete_product/"+id)
	if status != http.StatusForbidden {
		t.Fatalf("delete as non-owner: expected 403, got %d", status)
	}

	// The listing remains, and the detail route still resolves for B.
	resp, err := clientB.Get(srv.URL + "/product_details/" + id)
	if err != nil {
		t.Fatalf("GET /product_details: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("details of existing listing: expected 303 redirect, got %d", resp.StatusCode)
	}
}

func TestIntegration_SearchFiltersByQuery(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t)
	registerAndLogin(t, client, srv.URL, "Seller", "seller@example.com")

	for _, listing := range []struct{ title, content string }{
		{"Wooden chair", "Solid oak"},
		{"Bike", "Red city bike"},
	} {
		resp := postListing(t, client, srv.URL+"/add_product", map[string]string{
			"title":          listing.title,
			"content":        listing.content,
			"cost":           "10",
			"contact_number": "+1 555 0102",
		}, "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("create %s: expected 303, got %d", listing.title, resp.StatusCode)
		}
	}

	status, body := getBody(t, client, srv.URL+"/?q=chair")
	if status != http.StatusOK {
		t.Fatalf("search: expected 200, got %d", status)
	}
	if !strings.Contains(body, "Wooden chair") {
		t.Fatal("expected 'Wooden chair' in search results")
	}
	if strings.Contains(body, "Bike") {
		t.Fatal("did not expect 'Bike' in search results for 'chair'")
	}
}

func TestIntegration_CreateWithImageUpload(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t)
	registerAndLogin(t, client, srv.URL, "Photographer", "photo@example.com")

	resp := postListing(t, client, srv.URL+"/add_product", map[string]string{
		"title":          "Camera",
		"content":        "Old film camera",
		"cost":           "80",
		"contact_number": "+1 555 0103",
	}, "camera.gif", gifData)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create with image: expected 303, got %d", resp.StatusCode)
	}

	// The home page references the stored image, and it can be fetched.
	_, body := getBody(t, client, srv.URL+"/")
	idx := strings.Index(body, "/media/")
	if idx == -1 {
		t.Fatal("expected a /media/ image reference on the home page")
	}
	rest := body[idx:]
	end := strings.Index(rest, `"`)
	mediaPath := rest[:end]
	if strings.HasSuffix(mediaPath, "net-photo.png") {
		t.Fatalf("expected a stored upload, got the placeholder: %s", mediaPath)
	}

	status, imageBody := getBody(t, client, srv.URL+mediaPath)
	if status != http.StatusOK {
		t.Fatalf("fetch image: expected 200, got %d", status)
	}
	if imageBody != string(gifData) {
		t.Fatal("served image bytes differ from upload")
	}
}

func TestIntegration_MyProducts(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t)
	registerAndLogin(t, client, srv.URL, "Seller", "seller@example.com")

	// Zero listings renders the not-found page.
	status, _ := getBody(t, client, srv.URL+"/my_products")
	if status != http.StatusNotFound {
		t.Fatalf("my_products with no listings: expected 404, got %d", status)
	}

	resp := postListing(t, client, srv.URL+"/add_product", map[string]string{
		"title":          "Shelf",
		"content":        "Wall shelf",
		"cost":           "15",
		"contact_number": "+1 555 0104",
	}, "", nil)
	resp.Body.Close()

	status, body := getBody(t, client, srv.URL+"/my_products")
	if status != http.StatusOK {
		t.Fatalf("my_products: expected 200, got %d", status)
	}
	if !strings.Contains(body, "Shelf") {
		t.Fatal("expected own listing on my_products page")
	}

	// Anonymous visitors are sent to the login page.
	anon := newTestClient(t)
	resp, err := anon.Get(srv.URL + "/my_products")
	if err != nil {
		t.Fatalf("GET /my_products anonymous: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("anonymous my_products: expected 303, got %d", resp.StatusCode)
	}
}

func TestIntegration_AuthFlows(t *testing.T) {
	srv := newTestServer(t)

	t.Run("duplicate email", func(t *testing.T) {
		client := newTestClient(t)
		form := url.Values{
			"name":                  {"Dup User"},
			"email":                 {"dup@example.com"},
			"password":              {"password123"},
			"password_confirmation": {"password123"},
		}
		resp, err := client.PostForm(srv.URL+"/register", form)
		if err != nil {
			t.Fatalf("first register: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("first register: expected 303, got %d", resp.StatusCode)
		}

		resp, err = client.PostForm(srv.URL+"/register", form)
		if err != nil {
			t.Fatalf("second register: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("duplicate register: expected 422, got %d", resp.StatusCode)
		}
	})

	t.Run("password mismatch", func(t *testing.T) {
		client := newTestClient(t)
		resp, err := client.PostForm(srv.URL+"/register", url.Values{
			"name":                  {"Mismatch"},
			"email":                 {"mismatch@example.com"},
			"password":              {"password123"},
			"password_confirmation": {"different456"},
		})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("mismatched register: expected 422, got %d", resp.StatusCode)
		}

		// No account was created, so login must fail.
		resp, err = client.PostForm(srv.URL+"/login", url.Values{
			"email":    {"mismatch@example.com"},
			"password": {"password123"},
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("login after failed register: expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		client := newTestClient(t)
		registerAndLogin(t, client, srv.URL, "Wrong PW", "wrongpw@example.com")

		resp, err := client.PostForm(srv.URL+"/login", url.Values{
			"email":    {"wrongpw@example.com"},
			"password": {"badpassword"},
		})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("wrong password: expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("logout clears session", func(t *testing.T) {
		client := newTestClient(t)
		registerAndLogin(t, client, srv.URL, "Leaver", "leaver@example.com")

		resp, err := client.Get(srv.URL + "/logout")
		if err != nil {
			t.Fatalf("GET /logout: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("logout: expected 303, got %d", resp.StatusCode)
		}

		// Protected routes now redirect to login.
		resp, err = client.Get(srv.URL + "/add_product")
		if err != nil {
			t.Fatalf("GET /add_product after logout: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("add_product after logout: expected 303, got %d", resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/login" {
			t.Fatalf("expected redirect to /login, got %s", loc)
		}
	})
}

func TestIntegration_EditListing(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t)
	registerAndLogin(t, client, srv.URL, "Editor", "editor@example.com")

	resp := postListing(t, client, srv.URL+"/add_product", map[string]string{
		"title":          "Old chair",
		"content":        "Needs fixing",
		"cost":           "5",
		"contact_number": "+1 555 0105",
	}, "", nil)
	resp.Body.Close()

	_, body := getBody(t, client, srv.URL+"/")
	id := extractProductID(t, body)

	// The edit form is pre-filled with the current values.
	status, body := getBody(t, client, srv.URL+"/edit_product/"+id)
	if status != http.StatusOK {
		t.Fatalf("edit form: expected 200, got %d", status)
	}
	if !strings.Contains(body, "Old chair") {
		t.Fatal("expected edit form to contain the current title")
	}

	resp = postListing(t, client, srv.URL+"/edit_product/"+id, map[string]string{
		"title":          "Restored chair",
		"content":        "Good as new",
		"cost":           "50",
		"contact_number": "+1 555 0105",
	}, "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("edit: expected 303, got %d", resp.StatusCode)
	}

	_, body = getBody(t, client, srv.URL+"/")
	if !strings.Contains(body, "Restored chair") {
		t.Fatal("expected updated title on home page")
	}
	if strings.Contains(body, "Old chair") {
		t.Fatal("old title should be gone after edit")
	}
}

func TestIntegration_UnknownRouteRendersNotFoundPage(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t)

	status, body := getBody(t, client, srv.URL+"/no_such_page")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if !strings.Contains(body, "Oops! Page not found...") {
		t.Fatal("expected the custom 404 page body")
	}
}

func TestIntegration_HomePostLegacyResponse(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t)

	resp, err := client.PostForm(srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("POST /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "POST METHOD" {
		t.Fatalf("expected legacy POST body, got %q", body)
	}
}

func TestIntegration_Healthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Fatalf("expected ok status body, got %q", body)
	}
}
