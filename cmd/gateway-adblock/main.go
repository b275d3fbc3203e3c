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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gateway-adblock/gateway-adblock-sync/internal/config"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/runner"
	"github.com/gateway-adblock/gateway-adblock-sync/internal/syncerr"
)

const banner = "==============================================================\n" +
	"   ___      _       ___ _         _   \n" +
	"  / _ \\__ _| |_ ___| _ ) |___  __| |__\n" +
	" | (_| / _` |  _/ -_) _ \\ / _ \\/ _| / /\n" +
	"  \\___\\__,_|\\__\\___|___/_\\___/\\__|_\\_\\\n" +
	"                                      \n" +
	"Gateway AdBlock Sync\n" +
	"version: %s (%s)\n" +
	"==============================================================\n"

var (
	Version = "dev"
	GitSha  = "unknown"
)

// binding ties a config key to its flag and environment variables.
type binding struct {
	key   string
	usage string
	def   interface{}
	env   []string
}

var bindings = []binding{
	{"api-token", "Cloudflare API token", "", []string{"ADBLOCK_API_TOKEN", "CF_API_TOKEN"}},
	{"identifier", "Cloudflare account ID (gateway) or zone ID (zone)", "", []string{"ADBLOCK_IDENTIFIER", "CF_IDENTIFIER"}},
	{"provider", "provider variant: gateway or zone", config.ProviderGateway, nil},
	{"api-base-url", "Cloudflare API base URL", config.DefaultAPIBaseURL, nil},
	{"list-name", "blocklist name, used in the remote name prefix", "Adaway", nil},
	{"list-url", "blocklist download URL", "https://adaway.org/hosts.txt", nil},
	{"work-dir", "directory the blocklist is downloaded to", ".", nil},
	{"max-list-size", "maximum items per remote list", config.DefaultMaxListSize, nil},
	{"request-timeout", "timeout of one HTTP request", config.DefaultRequestTimeout, nil},
	{"run-timeout", "timeout of the whole run, 0 for none", time.Duration(0), nil},
	{"rate-limit", "provider API requests per second, 0 for unlimited", 4, nil},
	{"retry-max", "retries of a failed HTTP request, 0 for none", 0, nil},
	{"exclude-domains", "domains (and subdomains) never blocked", []string{}, nil},
	{"strict", "drop entries that are not valid domain names", false, nil},
	{"dry-run", "log mutating API calls instead of sending them", false, nil},
	{"pushgateway-url", "Prometheus Pushgateway URL for run metrics", "", nil},
	{"log-level", "log level: debug, info, warn, error", "info", nil},
	{"log-format", "log format: text or json", "text", nil},
}

func newRootCommand(v *viper.Viper, run func(context.Context, config.Config) error) *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "gateway-adblock",
		Short:         "Sync an ad blocklist into Cloudflare Gateway lists and a block rule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			v.SetConfigFile(cfgFile)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return &syncerr.ConfigError{Err: fmt.Errorf("reading config file '%s': %w", cfgFile, err)}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), banner, Version, GitSha)

			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cfg.RunTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
				defer cancel()
			}
			return run(ctx, cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgFile, "config", "", "path to config file")
	for _, b := range bindings {
		switch def := b.def.(type) {
		case string:
			flags.String(b.key, def, b.usage)
		case int:
			flags.Int(b.key, def, b.usage)
		case bool:
			flags.Bool(b.key, def, b.usage)
		case time.Duration:
			flags.Duration(b.key, def, b.usage)
		case []string:
			flags.StringSlice(b.key, def, b.usage)
		}
	}
	return root
}

// bind registers every flag and environment variable with v. Flags win
// over the environment, which wins over the config file.
func bind(v *viper.Viper, root *cobra.Command) error {
	for _, b := range bindings {
		if err := v.BindPFlag(b.key, root.Flags().Lookup(b.key)); err != nil {
			return fmt.Errorf("failed to bind --%s flag: %w", b.key, err)
		}
		env := b.env
		if env == nil {
			env = []string{envName(b.key)}
		}
		if err := v.BindEnv(append([]string{b.key}, env...)...); err != nil {
			return fmt.Errorf("failed to bind env %v: %w", env, err)
		}
	}
	return nil
}

func envName(key string) string {
	return "ADBLOCK_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func main() {
	v := viper.New()
	root := newRootCommand(v, func(ctx context.Context, cfg config.Config) error {
		_, err := runner.Run(ctx, cfg)
		return err
	})
	if err := bind(v, root); err != nil {
		logrus.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.WithField("exit_code", syncerr.ExitCode(err)).Errorf("sync failed: %v", err)
	}
	os.Exit(syncerr.ExitCode(err))
}
