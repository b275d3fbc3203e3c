// Copyright 2025- The gateway-adblock-sync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
)

// Provider variants.
const (
	ProviderGateway = "gateway"
	ProviderZone    = "zone"
)

const (
	DefaultAPIBaseURL     = "https://api.cloudflare.com/client/v4"
	DefaultMaxListSize    = 1000
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds every setting of one sync run. Field names map to the
// flag, env and config file keys through the mapstructure tags.
type Config struct {
	Token      string `mapstructure:"api-token" validate:"required"`
	Identifier string `mapstructure:"identifier" validate:"required"`
	Provider   string `mapstructure:"provider" validate:"oneof=gateway zone"`
	APIBaseURL string `mapstructure:"api-base-url" validate:"required,url"`

	ListName string `mapstructure:"list-name" validate:"required"`
	ListURL  string `mapstructure:"list-url" validate:"required,url"`
	WorkDir  string `mapstructure:"work-dir" validate:"required"`

	MaxListSize    int           `mapstructure:"max-list-size" validate:"min=1"`
	RequestTimeout time.Duration `mapstructure:"request-timeout" validate:"gt=0"`
	RunTimeout     time.Duration `mapstructure:"run-timeout" validate:"gte=0"`
	RateLimit      int           `mapstructure:"rate-limit" validate:"gte=0"`
	RetryMax       int           `mapstructure:"retry-max" validate:"gte=0"`

	ExcludeDomains []string `mapstructure:"exclude-domains"`
	Strict         bool     `mapstructure:"strict"`
	DryRun         bool     `mapstructure:"dry-run"`

	PushgatewayURL string `mapstructure:"pushgateway-url" validate:"omitempty,url"`

	LogLevel  string `mapstructure:"log-level" validate:"oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"`
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &syncerr.ConfigError{Err: fmt.Errorf("decode: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once, as a *syncerr.ConfigError.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report keys the way the operator typed them, not Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &syncerr.ConfigError{Err: err}
	}

	var result *multierror.Error
	for _, fe := range verrs {
		result = multierror.Append(result, fieldError(fe))
	}
	return &syncerr.ConfigError{Err: result.ErrorOrNil()}
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Errorf("%s must be a valid URL, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Errorf("%s failed %s=%s (value %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// NamePrefix is the ownership prefix of every remote list and policy
// created for this blocklist, e.g. "[AdBlock-Adaway]".
func (c Config) NamePrefix() string {
	return fmt.Sprintf("[AdBlock-%s]", c.ListName)
}
