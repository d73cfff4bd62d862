// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/seclab/oidclab/config"
	"github.com/seclab/oidclab/oidc"
	"github.com/seclab/oidclab/spa"
	"github.com/spf13/cobra"
)

func newSPACommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "spa",
		Short: "Serve the OIDC client tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.LoadSPA(root.envFiles...)
			if err != nil {
				return err
			}
			logger := cfg.Log.Logger("spa", os.Stderr)

			oc, err := cfg.OIDCConfig()
			if err != nil {
				return err
			}
			client, err := oidc.NewClient(oc)
			if err != nil {
				return fmt.Errorf("unable to reach provider %s: %w", cfg.Authority, err)
			}
			defer client.Done()

			locales, err := cfg.Locales()
			if err != nil {
				return err
			}
			srv, err := spa.New(client,
				spa.WithLogger(logger),
				spa.WithRequestTTL(cfg.RequestTTL),
				spa.WithUILocales(locales...),
				spa.WithSecureCookies(cfg.CookieSecure),
			)
			if err != nil {
				return err
			}
			logger.Info("starting", "addr", cfg.Addr, "authority", cfg.Authority, "client_id", cfg.ClientID)
			return listenAndServe(ctx, logger, cfg.Addr, srv, cfg.ShutdownTimeout)
		},
	}
}
