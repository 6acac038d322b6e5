package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mfakit/pkg/secrets"
)

func newKeygenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random master key for MFA_ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			key, err := secrets.GenerateEncodedKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, key)
			return err
		},
	}
}
