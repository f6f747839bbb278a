/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/carverauto/healthchecker/pkg/config"
	"github.com/carverauto/healthchecker/pkg/healthcheck"
	"github.com/carverauto/healthchecker/pkg/lifecycle"
	"github.com/carverauto/healthchecker/pkg/version"
)

var errFailedToLoadConfig = errors.New("failed to load config")

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("healthchecker", pflag.ContinueOnError)

	configPath := flags.StringP("config", "c", healthcheck.DefaultConfigPath, "Path to the configuration file")
	verbose := flags.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	quiet := flags.CountP("quiet", "q", "Decrease log verbosity (repeatable)")
	showVersion := flags.BoolP("version", "V", false, "Print the version and exit")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return err
	}

	if *showVersion {
		fmt.Println(version.Banner())
		return nil
	}

	ctx := context.Background()

	cfg := healthcheck.DefaultConfig()
	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	if err := cfg.Logging.ApplyVerbosity(*verbose, *quiet); err != nil {
		return err
	}

	if err := lifecycle.InitializeLogger(cfg.Logging); err != nil {
		return err
	}

	defer func() { _ = lifecycle.ShutdownLogger() }()

	mainLogger, err := lifecycle.CreateComponentLogger("healthchecker", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mainLogger.Info().Str("version", version.GetFullVersion()).Str("config", *configPath).Msg("starting healthchecker")

	svc, err := healthcheck.NewService(cfg, mainLogger)
	if err != nil {
		return err
	}

	return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
		ServiceName: "healthchecker",
		Service:     svc,
		Logger:      mainLogger,
	})
}
