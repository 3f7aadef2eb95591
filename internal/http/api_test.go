package handlers_test

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

type apiError struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome"`
}

type apiView struct {
	Lines []struct {
		PLU      int64  `json:"plu"`
		Quantity string `json:"quantity"`
		Subtotal string `json:"subtotal"`
	} `json:"lines"`
	Total     string `json:"total"`
	TotalText string `json:"total_text"`
}

func TestAPIScanAndPay(t *testing.T) {
	app, _ := newTestApp(t)
	cl := newClient(t, app)

	resp := cl.postJSON("/api/v1/scan", map[string]string{"barcode": "201234501500002501"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("scan: %d %s", resp.StatusCode, body(t, resp))
	}
	var added struct {
		Order apiView `json:"order"`
	}
	decode(t, resp, &added)
	if len(added.Order.Lines) != 1 || added.Order.Lines[0].Subtotal != "2.5" || added.Order.Lines[0].Quantity != "1.5" {
		t.Fatalf("amount should override price x weight: %+v", added.Order)
	}

	cl.postJSON("/api/v1/scan", map[string]string{"barcode": "42"})
	var v apiView
	decode(t, cl.get("/api/v1/order"), &v)
	if len(v.Lines) != 2 || v.Lines[0].PLU != 42 || v.Total != "4.5" || v.TotalText != "Pay: $4.50" {
		t.Fatalf("order view: %+v", v)
	}

	resp = cl.postJSON("/api/v1/pay", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay: %d", resp.StatusCode)
	}
	var receipt struct {
		Ref   string `json:"ref"`
		Items int    `json:"items"`
		Total string `json:"total"`
	}
	decode(t, resp, &receipt)
	if _, err := uuid.Parse(receipt.Ref); err != nil || receipt.Items != 2 || receipt.Total != "4.5" {
		t.Fatalf("receipt: %+v", receipt)
	}

	resp = cl.postJSON("/api/v1/pay", nil)
	var e apiError
	decode(t, resp, &e)
	if resp.StatusCode != http.StatusConflict || e.Error != "Nothing to pay" {
		t.Fatalf("second pay: %d %+v", resp.StatusCode, e)
	}
}

func TestAPIScanRejections(t *testing.T) {
	app, _ := newTestApp(t)
	cl := newClient(t, app)

	cases := []struct {
		code    string
		status  int
		outcome string
	}{
		{"", http.StatusBadRequest, "empty_input"},
		{"20123A5001001", http.StatusBadRequest, "malformed"},
		{"31337", http.StatusNotFound, "not_found"},
		// packed 2025-01-01, long past the freshness window
		{"21" + "12345" + "01234" + "12345" + "250101120000" + "1", http.StatusConflict, "expired"},
	}
	for _, c := range cases {
		resp := cl.postJSON("/api/v1/scan", map[string]string{"barcode": c.code})
		var e apiError
		decode(t, resp, &e)
		if resp.StatusCode != c.status || e.Outcome != c.outcome || e.Error == "" {
			t.Fatalf("scan %q: %d %+v", c.code, resp.StatusCode, e)
		}
	}
	var v apiView
	decode(t, cl.get("/api/v1/order"), &v)
	if len(v.Lines) != 0 {
		t.Fatalf("rejections must not add lines: %+v", v)
	}
}

func TestAPITerminalHeader(t *testing.T) {
	app, _ := newTestApp(t)
	a := newClient(t, app)
	b := newClient(t, app)
	id := uuid.NewString()
	a.header.Set("X-Terminal-ID", id)
	b.header.Set("X-Terminal-ID", id)

	a.postJSON("/api/v1/scan", map[string]string{"barcode": "1001"})
	var v apiView
	decode(t, b.get("/api/v1/order"), &v)
	if len(v.Lines) != 1 || v.Lines[0].PLU != 1001 {
		t.Fatalf("terminal header should share the order: %+v", v)
	}
}

func TestAPIDecodeDoesNotTouchOrder(t *testing.T) {
	app, _ := newTestApp(t)
	cl := newClient(t, app)

	var out struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
		Result  struct {
			Format      string   `json:"format"`
			ProductCode *int64   `json:"product_code"`
			Weight      *float64 `json:"weight"`
			ErrorKind   string   `json:"error_kind"`
		} `json:"result"`
	}
	decode(t, cl.get("/api/v1/decode?code=2012345001001"), &out)
	if !out.OK || out.Result.Format != "weight" || *out.Result.ProductCode != 12345 || *out.Result.Weight != 0.1 || out.Result.ErrorKind != "none" {
		t.Fatalf("decode: %+v", out)
	}

	decode(t, cl.get("/api/v1/decode?code=12x"), &out)
	if out.OK || out.Result.ErrorKind != "malformed" || !strings.HasPrefix(out.Message, "Invalid barcode format") {
		t.Fatalf("decode malformed: %+v", out)
	}

	var v apiView
	decode(t, cl.get("/api/v1/order"), &v)
	if len(v.Lines) != 0 {
		t.Fatal("decode must not add lines")
	}
}

func TestAPIProductLookup(t *testing.T) {
	app, _ := newTestApp(t)
	cl := newClient(t, app)

	var p struct {
		PLU   int64   `json:"plu"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	resp := cl.get("/api/v1/products/1002")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lookup: %d", resp.StatusCode)
	}
	decode(t, resp, &p)
	if p.Name != "Banana" || p.Price != 6.5 {
		t.Fatalf("product: %+v", p)
	}
	if resp := cl.get("/api/v1/products/abc"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad plu: %d", resp.StatusCode)
	}
	if resp := cl.get("/api/v1/products/777"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown plu: %d", resp.StatusCode)
	}
}

func barcodePNG(t *testing.T, text string) []byte {
	t.Helper()
	m, err := oned.NewCode128Writer().Encode(text, gozxing.BarcodeFormat_CODE_128, 480, 120, nil)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewGray(m.Bounds())
	draw.Draw(img, img.Bounds(), m, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAPIScanImage(t *testing.T) {
	app, _ := newTestApp(t)
	cl := newClient(t, app)

	resp := cl.postFile("/api/v1/scan/image", "image", "label.png", barcodePNG(t, "2012345001001"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("image scan: %d %s", resp.StatusCode, body(t, resp))
	}
	var v apiView
	decode(t, cl.get("/api/v1/order"), &v)
	if len(v.Lines) != 1 || v.Lines[0].PLU != 12345 {
		t.Fatalf("image scan did not add a line: %+v", v)
	}

	resp = cl.postFile("/api/v1/scan/image", "image", "notes.txt", []byte("hello"))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("text upload: %d", resp.StatusCode)
	}
	resp = cl.postFile("/api/v1/scan/image", "other", "label.png", barcodePNG(t, "42"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing field: %d", resp.StatusCode)
	}
}

func TestAPIManyTerminalsKeepTheirOrders(t *testing.T) {
	app, deps := newTestApp(t)
	codes := []string{"42", "1001", "2001", "1002", "1003"}
	ids := make([]string, len(codes))
	for i, code := range codes {
		cl := newClient(t, app)
		ids[i] = uuid.NewString()
		cl.header.Set("X-Terminal-ID", ids[i])
		if resp := cl.postJSON("/api/v1/scan", map[string]string{"barcode": code}); resp.StatusCode != http.StatusCreated {
			t.Fatalf("scan %s: %d", code, resp.StatusCode)
		}
	}
	for i, id := range ids {
		v := deps.Terminal.View(id)
		if len(v.Lines) != 1 || v.Lines[0].Barcode != codes[i] {
			t.Fatalf("terminal %d: %+v", i, v.Lines)
		}
	}
}
