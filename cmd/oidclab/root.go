// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"runtime"

	"github.com/seclab/oidclab/config"
	"github.com/spf13/cobra"
)

var (
	// Set via ldflags
	version   = "dev"
	gitCommit = "unknown"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	envFiles []string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "oidclab",
		Short: "OAuth2/OIDC authorization code flow lab",
		Long: `oidclab runs the two tiers of an OIDC lab against a Keycloak realm.

  oidclab api   serves GET /data to callers with a valid bearer token
  oidclab spa   signs browsers in with the authorization code flow

Both tiers are configured with environment variables, optionally read from
.env files. Run "oidclab env" to list them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil,
		fmt.Sprintf("env files to load, variables already set win (default %s)", config.DefaultEnvFile))

	cmd.AddCommand(
		newAPICommand(opts),
		newSPACommand(opts),
		newEnvCommand(),
		newVersionCommand(),
	)
	return cmd
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables of both tiers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "api:")
			config.Usage(&config.API{}, out)
			fmt.Fprintln(out, "\nspa:")
			config.Usage(&config.SPA{}, out)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "oidclab version %s\n", version)
			fmt.Fprintf(out, "  git commit: %s\n", gitCommit)
			fmt.Fprintf(out, "  go version: %s\n", runtime.Version())
		},
	}
}
