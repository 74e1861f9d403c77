package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"

	"contact-api/internal/config"
	"contact-api/internal/logging"
	"contact-api/internal/models"
	"contact-api/internal/notifier/smtptest"
	"contact-api/internal/telemetry"
)

type TestApp struct {
	server   *httptest.Server
	smtp     *smtptest.Server
	recorder *telemetry.TestSpanRecorder
	tp       *trace.TracerProvider
}

func SpawnTestApp(t *testing.T, mutate func(d *config.Delivery)) *TestApp {
	recorder := telemetry.NewTestSpanRecorder()
	tp := telemetry.InitTestTracing(recorder)

	relay := smtptest.NewServer(t)
	delivery := &config.Delivery{
		To:          "inbox@example.com",
		User:        "contact@example.com",
		SMTPHost:    relay.Host,
		SMTPPort:    relay.Port,
		SMTPTimeout: 5 * time.Second,
		Transport:   config.TransportSMTP,
	}
	if mutate != nil {
		mutate(delivery)
	}

	application := Build(&Config{
		ServiceName: "test-api-contact",
		Listen:      "127.0.0.1:0",
		Logger:      logging.NewLoggerWithOutput("info", io.Discard),
		GinMode:     gin.TestMode,
		Delivery:    delivery,
	})
	server := httptest.NewServer(application.GetRouter())

	return &TestApp{
		server:   server,
		smtp:     relay,
		recorder: recorder,
		tp:       tp,
	}
}

func (app *TestApp) Close() {
	app.server.Close()
	_ = app.tp.Shutdown(context.Background())
}

func (app *TestApp) Submit(t *testing.T, req models.SubmissionRequest) *http.Response {
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(
		app.server.URL+"/api/contact/submit",
		"application/json",
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)
	return resp
}

func TestSubmitDelivers(t *testing.T) {
	app := SpawnTestApp(t, nil)
	defer app.Close()

	resp := app.Submit(t, models.SubmissionRequest{Name: "A", Email: "a@b.com", Message: "hi"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.SubmissionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Result)

	messages := app.smtp.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, []string{"inbox@example.com"}, messages[0].To)
	assert.Contains(t, string(messages[0].Data), "Name: A")

	assert.GreaterOrEqual(t, len(app.recorder.GetSpansByOperation("submission.validate")), 1)
	assert.GreaterOrEqual(t, len(app.recorder.GetSpansByOperation("email.send")), 1)
	assert.GreaterOrEqual(t, len(app.recorder.GetSpansByOperation("smtp.send")), 1)
}

func TestSubmitEmptyName(t *testing.T) {
	app := SpawnTestApp(t, nil)
	defer app.Close()

	resp := app.Submit(t, models.SubmissionRequest{Name: "", Email: "a@b.com", Message: "hi"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, models.ErrorResponse{Code: 400, Error: "Bad Request", Message: "Empty name"}, out)

	assert.Empty(t, app.smtp.Messages())
	assert.Empty(t, app.recorder.GetSpansByOperation("email.send"), "no delivery may be attempted")
}

func TestSubmitUnreachableRelay(t *testing.T) {
	port := smtptest.ClosedPort(t)
	app := SpawnTestApp(t, func(d *config.Delivery) {
		d.SMTPHost = "127.0.0.1"
		d.SMTPPort = port
	})
	defer app.Close()

	resp := app.Submit(t, models.SubmissionRequest{Name: "A", Email: "a@b.com", Message: "hi"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var out models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 500, out.Code)
	assert.Equal(t, "Server Error", out.Error)
	assert.Contains(t, out.Message, "failed to connect")
}

func TestSubmitInvalidDestination(t *testing.T) {
	app := SpawnTestApp(t, func(d *config.Delivery) {
		d.To = "not-an-address"
	})
	defer app.Close()

	resp := app.Submit(t, models.SubmissionRequest{Name: "A", Email: "a@b.com", Message: "hi"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var out models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Invalid email destination", out.Message)
	assert.Empty(t, app.smtp.Messages())
}

func TestCORSPreflight(t *testing.T) {
	app := SpawnTestApp(t, nil)
	defer app.Close()

	req, err := http.NewRequest(http.MethodOptions, app.server.URL+"/api/contact/submit", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	app := SpawnTestApp(t, nil)
	defer app.Close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "test-api-contact", out["service"])
}
