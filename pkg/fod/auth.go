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
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Scope requested for every token. Read access to applications and issues is all the exporter needs.
const Scope = "view-apps view-issues"

type GrantType string

const (
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
)

type Credentials struct {
	Tenant   string
	User     string
	Password string

	ClientID     string
	ClientSecret string
}

// Grant selects the oauth2 grant for the provided credentials.
// Client credentials win if both combinations are complete.
func (c Credentials) Grant() (GrantType, error) {
	if c.ClientID != "" && c.ClientSecret != "" {
		return GrantClientCredentials, nil
	}
	if c.Tenant != "" && c.User != "" && c.Password != "" {
		return GrantPassword, nil
	}
	return "", ErrMissingCredentials
}

// Username is the tenant qualified user name expected by the password grant.
func (c Credentials) Username() string {
	return c.Tenant + `\` + c.User
}

// Authenticate exchanges the credentials for a bearer token at {apiBaseURL}/oauth/token.
// The token request itself is sent through httpClient without any authorization header.
func Authenticate(ctx context.Context, apiBaseURL *url.URL, creds Credentials, httpClient *http.Client) (*Session, error) {
	grant, err := creds.Grant()
	if err != nil {
		return nil, err
	}

	tokenURL := apiBaseURL.JoinPath("oauth", "token").String()
	scopes := strings.Fields(Scope)
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	var token *oauth2.Token
	switch grant {
	case GrantClientCredentials:
		conf := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		token, err = conf.Token(ctx)
	case GrantPassword:
		conf := oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: scopes,
		}
		token, err = conf.PasswordCredentialsToken(ctx, creds.Username(), creds.Password)
	}
	if err != nil {
		return nil, fromRetrieveError(err)
	}

	slog.Debug("obtained access token", "grantType", grant, "apiUrl", apiBaseURL.String())
	return &Session{
		BaseURL:     apiBaseURL,
		AccessToken: token.AccessToken,
	}, nil
}
