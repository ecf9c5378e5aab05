// Package fetchutil builds the shared HTTP client used by platform
// fetchers.
package fetchutil

import (
	"net/http/cookiejar"
	"time"

	"aod-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type ClientOptions struct {
	BaseUrl string
	// defaults to 30s when zero
	Timeout time.Duration
	// name of the otel tracer requests are recorded under
	TracerName string
}

// NewClient returns a resty client with a cookie jar, a cloudflare
// bypass transport and otel instrumentation. Every fetch carries a
// bounded timeout; a cycle that exceeds it is abandoned by the caller.
func NewClient(opts ClientOptions) (*resty.Client, error) {
	client := resty.New()
	if opts.BaseUrl != "" {
		client.SetBaseURL(opts.BaseUrl)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "fetchutil"
	}
	telemetry.InstrumentResty(client, tracerName)

	return client, nil
}
