package client

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"

	httptransport "github.com/oshokin/crateflow/internal/transport/http"
	"github.com/oshokin/crateflow/internal/utils"
)

// NewHTTPClient builds the one long-lived HTTP session a Client owns: a
// cookie jar, an optional disabled certificate verification (policy
// setting), and the teacher's logging + user-agent RoundTripper chain
// (spec §4.1 "HTTP session").
func NewHTTPClient(disableSSLVerification bool, userAgent string) *http.Client {
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New never fails with a nil Options.

	//nolint:gosec // InsecureSkipVerify is an explicit, documented policy setting, off by default.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: disableSSLVerification},
	}

	if userAgent == "" {
		userAgent = httptransport.DefaultUserAgent
	}

	roundTripper := httptransport.NewUserAgentInjector(
		httptransport.NewLogTransport(transport, 0),
		utils.NewSimpleUserAgentProvider(userAgent),
	)

	return &http.Client{
		Jar:       jar,
		Timeout:   httptransport.DefaultTimeout,
		Transport: roundTripper,
	}
}
