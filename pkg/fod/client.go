// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fod

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIBaseURL rewrites the hostname of a user supplied Fortify on Demand url
// so that it points to the api host, e.g. https://ams.fortify.com becomes
// https://api.ams.fortify.com. Hosts already starting with "api" are kept.
func APIBaseURL(baseURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL must contain a scheme and a host: %q", baseURL)
	}

	if !strings.HasPrefix(u.Hostname(), "api") {
		host := "api." + u.Hostname()
		if port := u.Port(); port != "" {
			host = net.JoinHostPort(host, port)
		}
		u.Host = host
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// NewHTTPClient returns the unauthenticated client every request of a run goes through.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 10,
		}),
	}
}

// Session is the outcome of the token exchange. It is read-only after creation.
type Session struct {
	BaseURL     *url.URL
	AccessToken string
}

func (s *Session) AuthorizationHeader() string {
	return "Bearer " + s.AccessToken
}

// Client wraps http.Client with bearer authentication and prefixes every
// request path with the api base url of the session.
type Client struct {
	*http.Client // Embedded client provides all http.Client methods
}

func NewClient(session *Session, base *http.Client) *Client {
	if base == nil {
		base = http.DefaultClient
	}
	next := base.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	return &Client{
		Client: &http.Client{
			Timeout:       base.Timeout,
			CheckRedirect: base.CheckRedirect,
			Jar:           base.Jar,
			Transport: &bearerTransport{
				base:    next,
				session: session,
			},
		},
	}
}

type bearerTransport struct {
	base    http.RoundTripper
	session *Session
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", t.session.AuthorizationHeader())

	req.URL.Scheme = t.session.BaseURL.Scheme
	req.URL.Host = t.session.BaseURL.Host
	req.Host = ""

	// If the API URL has a base path, prepend it
	if p := t.session.BaseURL.Path; p != "" && p != "/" {
		req.URL.Path = p + req.URL.Path
		if req.URL.RawPath != "" {
			req.URL.RawPath = p + req.URL.RawPath
		}
	}

	return t.base.RoundTrip(req)
}

// Get issues a GET request for path and decodes the json response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return newHTTPError(0, "could not create request for %s: %s", path, err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return newHTTPError(0, "GET %s failed: %s", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newHTTPError(resp.StatusCode, "GET %s failed: %s", path, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newHTTPError(0, "could not decode response of GET %s: %s", path, err)
	}
	return nil
}
