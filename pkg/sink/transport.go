package sink

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/seb-dataworks/streamsink/pkg/logging"
	log "github.com/sirupsen/logrus"
)

// newInfluxHTTPClient builds the HTTP client used by the InfluxDB writer:
// basic authentication when credentials are set, transport retries, and the
// opt-in certificate validation bypass
func newInfluxHTTPClient(username, password string, retryMax int, timeout time.Duration, insecureSkipVerify bool, logger *log.Logger) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = &logging.Leveled{Logger: logger}
	rc.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: createAuthTransport(username, password, transport),
	}

	return rc.StandardClient()
}

// createAuthTransport wraps rt with basic authentication if credentials are provided
func createAuthTransport(username, password string, rt http.RoundTripper) http.RoundTripper {
	if username != "" && password != "" {
		return &authTransport{
			username:  username,
			password:  password,
			transport: rt,
		}
	}

	return rt
}

// authTransport handles basic authentication for HTTP requests
type authTransport struct {
	username  string
	password  string
	transport http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	reqCopy := req.Clone(req.Context())
	reqCopy.SetBasicAuth(t.username, t.password)

	return t.transport.RoundTrip(reqCopy)
}
