package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zapcore"

	"freshpos/internal/config"
	"freshpos/internal/http/handlers"
	applog "freshpos/internal/log"
	"freshpos/internal/repos"
)

const managerPIN = "1357"

func testConfig() config.Config {
	return config.Config{
		Port:            "8080",
		DBDSN:           ":memory:",
		LogLevel:        "info",
		DefaultLanguage: "en_US",
		FreshnessWindow: 10 * time.Second,
		TimeZone:        "UTC",
		ManagerPIN:      managerPIN,
		TemplatesDir:    "../../web/templates",
		StaticDir:       "../../web/static",
		MaxUploadBytes:  1 << 20,
		SessionIdle:     time.Hour,
	}
}

func newTestApp(t *testing.T) (*fiber.App, *handlers.Deps) {
	t.Helper()
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	deps := handlers.NewDeps(db, cfg)
	if err := deps.Auth.EnsureManager(cfg.ManagerPIN); err != nil {
		t.Fatal(err)
	}
	return handlers.NewApp(cfg, deps), deps
}

// client replays cookies between requests like a browser tab.
type client struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
	header  http.Header
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app, cookies: map[string]string{}, header: http.Header{}}
}

func (cl *client) do(req *http.Request) *http.Response {
	cl.t.Helper()
	for k, v := range cl.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := cl.app.Test(req, -1)
	if err != nil {
		cl.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		cl.cookies[c.Name] = c.Value
	}
	return resp
}

func (cl *client) get(path string) *http.Response {
	return cl.do(httptest.NewRequest("GET", path, nil))
}

// postForm sends form values plus the CSRF token from the cookie jar.
func (cl *client) postForm(path string, form url.Values) *http.Response {
	cl.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if tok := cl.cookies["csrf_"]; tok != "" && form.Get("csrf") == "" {
		form.Set("csrf", tok)
	}
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) postJSON(path string, body any) *http.Response {
	cl.t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		cl.t.Fatal(err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return cl.do(req)
}

// postFile sends a multipart upload with the CSRF token as a form field.
func (cl *client) postFile(path, field, name string, data []byte) *http.Response {
	cl.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if tok := cl.cookies["csrf_"]; tok != "" {
		_ = mw.WriteField("csrf", tok)
	}
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		cl.t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return cl.do(req)
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// captureLogs swaps the process logger while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	w := &lockedWriter{}
	prev := applog.Use(applog.New(w, zapcore.DebugLevel))
	defer applog.Use(prev)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(w.buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
