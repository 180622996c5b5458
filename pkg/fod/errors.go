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
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var ErrMissingCredentials = errors.New("Either client-id and client-secret, or tenant, user and password must be specified")

// HTTPError is returned for every failed exchange with the Fortify on Demand API.
// StatusCode is 0 if the request never produced a response or the body could not be decoded.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

func newHTTPError(statusCode int, format string, args ...any) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

// StatusCode extracts the http status of err, 0 if it does not carry one.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func fromRetrieveError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		msg := string(retrieveErr.Body)
		if retrieveErr.ErrorDescription != "" {
			msg = retrieveErr.ErrorDescription
		} else if retrieveErr.ErrorCode != "" {
			msg = retrieveErr.ErrorCode
		}
		return newHTTPError(retrieveErr.Response.StatusCode, "could not retrieve access token: %s", msg)
	}
	return newHTTPError(0, "could not retrieve access token: %s", err)
}
