package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/issuance"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/qr"
)

type issueFlags struct {
	credentialType string
	userID         string
	email          string
	qrOut          string
}

func newIssueCmd() *cobra.Command {
	var f issueFlags

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create a credential issuance request",
		Long: `Submit an issuance request to the Verified ID Request Service and print the
deep link and PIN to hand to the holder. Callbacks are only tracked by a
running "vidtool serve", so the request status is not followed here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIssue(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.credentialType, "type", "", "Contract id of the credential to issue")
	cmd.Flags().StringVar(&f.userID, "user", "", "Directory id of the subject")
	cmd.Flags().StringVar(&f.email, "email", "", "Email of the subject")
	cmd.Flags().StringVar(&f.qrOut, "qr-out", "", "Write the QR code PNG to this path")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runIssue(cmd *cobra.Command, f issueFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := newServices(cmd.Context(), cfg, wireOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = svc.store.Close() }()

	res, err := svc.orchestrator.Issue(cmd.Context(), issuance.IssueInput{
		CredentialType: f.credentialType,
		UserID:         f.userID,
		UserEmail:      f.email,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printIssueResult(out, res)

	if f.qrOut != "" {
		png, err := qr.PNG(res.DeepLink, qr.DefaultSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.qrOut, png, 0o600); err != nil {
			return fmt.Errorf("failed to write QR code: %w", err)
		}
		fmt.Fprintf(out, "QR code written to %s\n", f.qrOut)
	}
	return nil
}

func printIssueResult(out io.Writer, res *issuance.IssueResult) {
	printField(out, "Request", res.RequestID, nil)
	printField(out, "Deep link", res.DeepLink, nil)
	if res.PIN != nil {
		printField(out, "PIN", *res.PIN, &pinStyle)
	}
	if res.Expiry != 0 {
		printField(out, "Expires", time.Unix(res.Expiry, 0).UTC().Format(time.RFC3339), nil)
	}
	fmt.Fprintln(out, render(out, noteStyle, res.Message))
}
