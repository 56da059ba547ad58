package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/referral/referral"
)

var (
	promotionCode    string
	memberStatus     string
	apiVersion       string
	membershipNumber string
	contactID        string

	firstName          string
	lastName           string
	email              string
	enrollmentChannel  string
	statementFrequency string
	statementMethod    string
)

// enrollCmd groups the three enrollment modes
var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a member in a referral promotion",
}

var enrollMemberCmd = &cobra.Command{
	Use:   "member",
	Short: "Enroll an existing member by membership number",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll(cmd, referral.ByMembership{MembershipNumber: membershipNumber})
	},
}

var enrollContactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Enroll an existing member by contact ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll(cmd, referral.ByContact{ContactID: contactID})
	},
}

var enrollNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Enroll a person who is not yet a loyalty member",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll(cmd, referral.NewMember{
			FirstName:          firstName,
			LastName:           lastName,
			Email:              email,
			MembershipNumber:   membershipNumber,
			Channel:            referral.EnrollmentChannel(enrollmentChannel),
			StatementFrequency: referral.StatementFrequency(statementFrequency),
			StatementMethod:    referral.StatementMethod(statementMethod),
		})
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.AddCommand(enrollMemberCmd, enrollContactCmd, enrollNewCmd)

	enrollCmd.PersistentFlags().StringVarP(&promotionCode, "promotion", "p", "", "promotion code (required)")
	enrollCmd.PersistentFlags().StringVar(&memberStatus, "status", string(referral.MemberActive), "member status (Active or Inactive)")
	enrollCmd.PersistentFlags().StringVar(&apiVersion, "api-version", "", "override the configured API version")
	enrollCmd.MarkPersistentFlagRequired("promotion")

	enrollMemberCmd.Flags().StringVarP(&membershipNumber, "membership-number", "m", "", "membership number (required)")
	enrollMemberCmd.MarkFlagRequired("membership-number")

	enrollContactCmd.Flags().StringVarP(&contactID, "contact-id", "c", "", "contact ID (required)")
	enrollContactCmd.MarkFlagRequired("contact-id")

	enrollNewCmd.Flags().StringVar(&firstName, "first-name", "", "first name (required)")
	enrollNewCmd.Flags().StringVar(&lastName, "last-name", "", "last name (required)")
	enrollNewCmd.Flags().StringVar(&email, "email", "", "email address (required)")
	enrollNewCmd.Flags().StringVarP(&membershipNumber, "membership-number", "m", "", "membership number to assign (required)")
	enrollNewCmd.Flags().StringVar(&enrollmentChannel, "channel", string(referral.ChannelMobile), "enrollment channel")
	enrollNewCmd.Flags().StringVar(&statementFrequency, "statement-frequency", string(referral.StatementMonthly), "statement frequency (Monthly or Quarterly)")
	enrollNewCmd.Flags().StringVar(&statementMethod, "statement-method", string(referral.StatementEmail), "statement method (Email or Mail)")
	for _, name := range []string{"first-name", "last-name", "email", "membership-number"} {
		enrollNewCmd.MarkFlagRequired(name)
	}
}

func runEnroll(cmd *cobra.Command, id referral.Identity) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}
	if mgr.Program() == "" {
		return fmt.Errorf("instance.program must be configured to enroll members")
	}

	opts := []referral.EnrollOption{referral.WithMemberStatus(referral.MemberStatus(memberStatus))}
	if apiVersion != "" {
		opts = append(opts, referral.WithAPIVersion(apiVersion))
	}

	result, err := mgr.Enroll(cmd.Context(), promotionCode, id, opts...)
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), outputFormat, result)
}
