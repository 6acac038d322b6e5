package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mfakit/core/mfa"
)

func principalFlags(cmd *cobra.Command, p *mfa.Principal) {
	cmd.Flags().StringVar(&p.TenantID, "tenant", "", "tenant ID")
	cmd.Flags().StringVar(&p.ID, "principal", "", "principal ID")
}

func requirePrincipal(p mfa.Principal) error {
	if p.TenantID == "" || p.ID == "" {
		return errMissingPrincipal
	}
	return nil
}

func newStatusCmd(a *app) *cobra.Command {
	var p mfa.Principal
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the MFA state of a principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePrincipal(p); err != nil {
				return err
			}

			rt, err := a.buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			st, err := rt.service.Status(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printStatus(a, p, st)
		},
	}
	principalFlags(cmd, &p)
	return cmd
}

func printStatus(a *app, p mfa.Principal, st *mfa.Status) error {
	lastUsed := "never"
	if st.LastUsedAt != nil {
		lastUsed = st.LastUsedAt.Format(time.RFC3339)
	}
	created := "-"
	if st.Configured {
		created = st.CreatedAt.Format(time.RFC3339)
	}

	_, err := fmt.Fprintf(a.out,
		"tenant:          %s\nprincipal:       %s\nconfigured:      %t\nenabled:         %t\nrecovery codes:  %d\ncreated:         %s\nlast used:       %s\n",
		p.TenantID, p.ID, st.Configured, st.Enabled, st.UnusedRecoveryCodes, created, lastUsed)
	return err
}

func newUnlockCmd(a *app) *cobra.Command {
	var p mfa.Principal
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Clear the failed-attempt counter of a principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePrincipal(p); err != nil {
				return err
			}

			rt, err := a.buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.service.ResetLockout(cmd.Context(), p); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "unlocked %s/%s (lockout mode: %s)\n",
				p.TenantID, p.ID, rt.service.LockoutMode())
			return err
		},
	}
	principalFlags(cmd, &p)
	return cmd
}
