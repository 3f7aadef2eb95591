package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordScan(t *testing.T) {
	before := testutil.ToFloat64(scansTotal.WithLabelValues("expired", "expiry"))
	RecordScan("expired", "expiry")
	assert.Equal(t, before+1, testutil.ToFloat64(scansTotal.WithLabelValues("expired", "expiry")))

	before = testutil.ToFloat64(scansTotal.WithLabelValues("empty_input", "none"))
	RecordScan("empty_input", "")
	assert.Equal(t, before+1, testutil.ToFloat64(scansTotal.WithLabelValues("empty_input", "none")))
}

func TestRecordPayment(t *testing.T) {
	before := testutil.ToFloat64(paymentsTotal)
	RecordPayment(3, 42.5)
	assert.Equal(t, before+1, testutil.ToFloat64(paymentsTotal))

	SetActiveSessions(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(activeSessions))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/api/v1/products/:plu", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.ErrTeapot })

	ok := httpRequestsTotal.WithLabelValues("GET", "/api/v1/products/:plu", "200")
	before := testutil.ToFloat64(ok)
	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/products/42", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, before+1, testutil.ToFloat64(ok))

	teapot := httpRequestsTotal.WithLabelValues("GET", "/boom", "418")
	before = testutil.ToFloat64(teapot)
	_, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(teapot))
}

func TestMiddlewareLabelsSurviveRequestReuse(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/order", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/order", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Delete("/order", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 20; i++ {
		for _, m := range []string{"GET", "POST", "DELETE"} {
			_, err := app.Test(httptest.NewRequest(m, "/order", nil))
			require.NoError(t, err)
		}
	}
	_, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("DELETE", "/order", "200")), 20.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/order", "200")), 20.0)
}
