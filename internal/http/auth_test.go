package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"freshpos/internal/domain"
)

func TestSeededManagerPINIsHashed(t *testing.T) {
	_, deps := newTestApp(t)
	o, err := deps.Auth.Operators.ByID("manager")
	if err != nil {
		t.Fatal(err)
	}
	if o.Hash == managerPIN || !strings.HasPrefix(o.Hash, "$2") {
		t.Fatalf("unexpected hash format: %s", o.Hash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(o.Hash), []byte(managerPIN)); err != nil {
		t.Fatalf("seed hash does not validate the configured PIN: %v", err)
	}
}

func TestLoginSuccessFailAndThrottle(t *testing.T) {
	app, _ := newTestApp(t)
	cl := newClient(t, app)
	cl.get("/login")

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = cl.postForm("/login", url.Values{"operator": {"manager"}, "pin": {"0000"}})
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad pin: want 401, got %d", resp.StatusCode)
	}
	e, ok := findLog(entries, "auth.login.fail")
	if !ok || e.Level != "warn" || e.Fields["operator"] != "manager" {
		t.Fatalf("login failure not logged as security event: %+v", entries)
	}

	if resp = cl.postForm("/login", url.Values{"operator": {"bad id!"}, "pin": {"1357"}}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("malformed operator: want 401, got %d", resp.StatusCode)
	}

	resp = cl.postForm("/login", url.Values{"operator": {"manager"}, "pin": {managerPIN}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/products" {
		t.Fatalf("good pin: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if page := body(t, cl.get("/")); !strings.Contains(page, "Store Manager") {
		t.Fatal("operator name should show on the terminal once logged in")
	}

	// three attempts used; the limiter allows five
	cl.postForm("/login", url.Values{"operator": {"manager"}, "pin": {"0000"}})
	cl.postForm("/login", url.Values{"operator": {"manager"}, "pin": {"0000"}})
	resp = cl.postForm("/login", url.Values{"operator": {"manager"}, "pin": {managerPIN}})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after throttle, got %d", resp.StatusCode)
	}
}

func TestLogoutKeepsTerminalList(t *testing.T) {
	app, _ := newTestApp(t)
	cl := newClient(t, app)
	cl.get("/login")
	cl.postForm("/login", url.Values{"operator": {"manager"}, "pin": {managerPIN}})
	cl.postForm("/scan", url.Values{"barcode": {"42"}})

	resp := cl.postForm("/logout", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("logout: %d", resp.StatusCode)
	}
	page := body(t, cl.get("/"))
	if strings.Contains(page, "Store Manager") {
		t.Fatal("operator still shown after logout")
	}
	if !strings.Contains(page, "Mineral Water") {
		t.Fatal("logout should not drop the open list")
	}
}

func TestCatalogRoutesRequireManager(t *testing.T) {
	app, deps := newTestApp(t)
	if err := deps.Auth.Register("till-1", "Ann", "2468", domain.RoleOperator); err != nil {
		t.Fatal(err)
	}

	anon := newClient(t, app)
	resp := anon.get("/admin/products")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("anonymous: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	op := newClient(t, app)
	op.get("/login")
	op.postForm("/login", url.Values{"operator": {"till-1"}, "pin": {"2468"}})
	var denied *http.Response
	entries := captureLogs(t, func() { denied = op.get("/admin/products") })
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("operator: want 403, got %d", denied.StatusCode)
	}
	if _, ok := findLog(entries, "access.denied.manager"); !ok {
		t.Fatalf("denial not logged: %+v", entries)
	}

	mgr := newClient(t, app)
	mgr.get("/login")
	mgr.postForm("/login", url.Values{"operator": {"manager"}, "pin": {managerPIN}})
	resp = mgr.get("/admin/products")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manager: %d", resp.StatusCode)
	}
	if page := body(t, resp); !strings.Contains(page, "Salmon Fillet") {
		t.Fatalf("catalog page missing products: %s", page)
	}
}
