// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/seclab/oidclab/api"
	"github.com/seclab/oidclab/config"
	"github.com/seclab/oidclab/guard"
	"github.com/seclab/oidclab/jwt"
	"github.com/spf13/cobra"
)

func newAPICommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the token guarded API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.LoadAPI(root.envFiles...)
			if err != nil {
				return err
			}
			logger := cfg.Log.Logger("api", os.Stderr)

			algs, err := cfg.SigningAlgorithms()
			if err != nil {
				return err
			}
			keySets, err := newKeySets(ctx, cfg)
			if err != nil {
				return err
			}
			g, err := guard.New(keySets[0], cfg.Issuer,
				guard.WithKeySets(keySets[1:]...),
				guard.WithSigningAlgorithms(algs...),
				guard.WithVerifyAudience(cfg.VerifyAudience),
				guard.WithAudiences(cfg.Audiences...),
				guard.WithNormalizedAudiences(cfg.NormalizeAudiences),
				guard.WithClockSkewLeeway(cfg.ClockSkew),
				guard.WithLogger(logger.Named("guard")),
			)
			if err != nil {
				return fmt.Errorf("unable to create guard: %w", err)
			}
			if !cfg.VerifyAudience {
				logger.Warn("audience verification is disabled, tokens issued to any client are accepted")
			}

			srv, err := api.New(g, api.WithLogger(logger), api.WithCORSOrigins(cfg.CORSOrigins...))
			if err != nil {
				return err
			}
			logger.Info("starting", "addr", cfg.Addr, "issuer", cfg.Issuer, "key_sets", len(keySets), "clock_skew", cfg.ClockSkew)
			return listenAndServe(ctx, logger, cfg.Addr, srv, cfg.ShutdownTimeout)
		},
	}
}

// newKeySets returns the configured key sets in the order the guard tries
// them: static public keys first, then the remote JWKS.
func newKeySets(ctx context.Context, cfg *config.API) ([]jwt.KeySet, error) {
	var keySets []jwt.KeySet
	pems, err := cfg.PublicKeys()
	if err != nil {
		return nil, fmt.Errorf("unable to parse public keys: %w", err)
	}
	if len(pems) > 0 {
		ks, err := jwt.NewStaticKeySetFromPEM(pems)
		if err != nil {
			return nil, fmt.Errorf("unable to create static key set: %w", err)
		}
		keySets = append(keySets, ks)
	}
	if !cfg.RemoteKeySet() {
		return keySets, nil
	}

	var ks jwt.KeySet
	switch {
	case cfg.JWKSDiscovery:
		ks, err = jwt.NewOIDCDiscoveryKeySet(ctx, cfg.Issuer, cfg.JWKSCAPEM, jwt.WithRequestsPerMinute(cfg.JWKSRateLimit))
	default:
		ks, err = jwt.NewJSONWebKeySet(ctx, cfg.JWKSEndpoint(), cfg.JWKSCAPEM, jwt.WithRequestsPerMinute(cfg.JWKSRateLimit))
	}
	if err != nil {
		return nil, fmt.Errorf("unable to create key set: %w", err)
	}
	return append(keySets, ks), nil
}
