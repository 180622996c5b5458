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

package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/l3montree-dev/fod2sarif/pkg/fod"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	BaseURL string `json:"baseUrl" mapstructure:"base-url" validate:"required,url"`

	Tenant       string `json:"tenant" mapstructure:"tenant"`
	User         string `json:"user" mapstructure:"user"`
	Password     string `json:"password" mapstructure:"password"`
	ClientID     string `json:"clientId" mapstructure:"client-id"`
	ClientSecret string `json:"clientSecret" mapstructure:"client-secret"`

	ReleaseID string `json:"releaseId" mapstructure:"release-id" validate:"required"`
	Output    string `json:"output" mapstructure:"output" validate:"required"`

	// seconds
	Timeout int `json:"timeout" mapstructure:"timeout"`
	Rate    int `json:"rate" mapstructure:"rate" validate:"gt=0"`
	// milliseconds
	RatePer    int  `json:"ratePer" mapstructure:"rate-per" validate:"gt=0"`
	Concurrent int  `json:"concurrent" mapstructure:"concurrent" validate:"gt=0"`
	Summary    bool `json:"summary" mapstructure:"summary"`

	S3Endpoint  string `json:"s3Endpoint" mapstructure:"s3-endpoint" validate:"required_with=S3Bucket"`
	S3AccessKey string `json:"s3AccessKey" mapstructure:"s3-access-key"`
	S3SecretKey string `json:"s3SecretKey" mapstructure:"s3-secret-key"`
	S3UseSSL    bool   `json:"s3UseSsl" mapstructure:"s3-use-ssl"`
	S3Region    string `json:"s3Region" mapstructure:"s3-region"`
	S3Bucket    string `json:"s3Bucket" mapstructure:"s3-bucket"`
	S3Key       string `json:"s3Key" mapstructure:"s3-key"`
}

var RuntimeBaseConfig Config

var validate = validator.New()

// ParseBaseConfig reads the merged flag, env and file configuration into RuntimeBaseConfig.
// Credential selection happens here, so incomplete credentials fail before any request is sent.
func ParseBaseConfig() error {
	RuntimeBaseConfig = Config{}
	if err := viper.Unmarshal(&RuntimeBaseConfig); err != nil {
		return errors.Wrap(err, "could not parse config")
	}

	if _, err := RuntimeBaseConfig.Credentials().Grant(); err != nil {
		return err
	}

	if RuntimeBaseConfig.BaseURL != "" {
		RuntimeBaseConfig.BaseURL = sanitizeBaseURL(RuntimeBaseConfig.BaseURL)
	}

	if err := validate.Struct(RuntimeBaseConfig); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	if err := isValidOutputPath(RuntimeBaseConfig.Output); err != nil {
		return err
	}

	if RuntimeBaseConfig.Timeout <= 0 {
		RuntimeBaseConfig.Timeout = 60
	}
	return nil
}

func (c Config) Credentials() fod.Credentials {
	return fod.Credentials{
		Tenant:       c.Tenant,
		User:         c.User,
		Password:     c.Password,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}
