package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mlte-team/mlte-sub000/internal/state"
	"github.com/mlte-team/mlte-sub000/internal/usecase"

	"github.com/spf13/cobra"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default accounts, policies and custom lists",
		Long: `Create the default admin account, the built-in policies and the default
custom list entries in the configured stores. Running it again is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withState(cmd.Context(), func(st *state.State) error {
				kinds := st.BackendKinds()
				names := make([]string, 0, len(kinds))
				for name := range kinds {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, kinds[name])
				}
				return nil
			})
		},
	}
}

func newReconcileCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Create missing access policies for stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withState(cmd.Context(), func(st *state.State) error {
				created, err := st.ModelService.CreateModelPoliciesIfNeeded(cmd.Context())
				if err != nil {
					return err
				}
				if len(created) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "all model policies present")
					return nil
				}
				for _, id := range created {
					fmt.Fprintf(cmd.OutOrStdout(), "created policy for model %s\n", id)
				}
				return nil
			})
		},
	}
}

func newTokenCmd(root *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token with the password grant",
		Long: `Issue a bearer token for a stored account and print it as JSON.

Example:
  mlte token --username admin --password admin1234`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.withState(cmd.Context(), func(st *state.State) error {
				tok, err := st.TokenService.Grant(cmd.Context(), usecase.PasswordGrant, username, password)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tok)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Account name")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
