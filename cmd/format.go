package cmd

import (
	"fmt"
	"strings"

	"github.com/s0up4200/referral/referral"
)

// consoleFormatter renders command results as a tree for the "text" output format
type consoleFormatter struct{}

func treeBranch(isLast bool) (prefix, indent string) {
	if isLast {
		return "╰", "    "
	}
	return "├", "│   "
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// formatBatchReport formats the outcome of a batch submission
func (f consoleFormatter) formatBatchReport(r batchReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%d %s read, %d selected", r.Requested, plural(r.Requested, "event"), r.Selected)
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&sb, ", %d skipped by filter", len(r.Skipped))
	}
	sb.WriteString("\n\n")

	if len(r.Succeeded) > 0 {
		fmt.Fprintf(&sb, "Succeeded (%d):\n", len(r.Succeeded))
		for i, s := range r.Succeeded {
			prefix, indent := treeBranch(i == len(r.Succeeded)-1)
			fmt.Fprintf(&sb, "%s── #%d %s\n", prefix, s.Index, s.ReferralCode)
			if s.Result != nil {
				f.writeEventResult(&sb, indent, s.Result)
			}
		}
		sb.WriteString("\n")
	}

	if len(r.Failed) > 0 {
		fmt.Fprintf(&sb, "Failed (%d):\n", len(r.Failed))
		for i, failure := range r.Failed {
			prefix, indent := treeBranch(i == len(r.Failed)-1)
			fmt.Fprintf(&sb, "%s── #%d %s\n", prefix, failure.Index, failure.ReferralCode)
			fmt.Fprintf(&sb, "%sError: %s\n", indent, failure.Error)
		}
		sb.WriteString("\n")
	}

	if r.Selected == 0 {
		sb.WriteString("No events matched\n")
	}
	return sb.String()
}

func (f consoleFormatter) writeEventResult(sb *strings.Builder, indent string, r *referral.EventResult) {
	if r.ReferralStage != "" {
		fmt.Fprintf(sb, "%sStage: %s\n", indent, r.ReferralStage)
	}
	if len(r.ReferralIDs) > 0 {
		fmt.Fprintf(sb, "%sReferrals: %s\n", indent, strings.Join(r.ReferralIDs, ", "))
	}
	if len(r.ContactIDs) > 0 {
		fmt.Fprintf(sb, "%sContacts: %s\n", indent, strings.Join(r.ContactIDs, ", "))
	}
	if r.VoucherID != "" {
		fmt.Fprintf(sb, "%sVoucher: %s\n", indent, r.VoucherID)
	}
}

// formatEventResult formats a single event submission
func (f consoleFormatter) formatEventResult(r *referral.EventResult) string {
	var sb strings.Builder
	sb.WriteString("Event recorded\n")
	f.writeEventResult(&sb, "  ", r)
	return sb.String()
}

// formatEnrollment formats an enrollment with its transaction journals
func (f consoleFormatter) formatEnrollment(r *referral.EnrollmentResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\nEnrolled in %s\n", r.LoyaltyProgramName)
	fmt.Fprintf(&sb, "  Member: %s\n", r.LoyaltyProgramMemberID)
	if r.MembershipNumber != "" {
		fmt.Fprintf(&sb, "  Membership number: %s\n", r.MembershipNumber)
	}
	if r.ContactID != "" {
		fmt.Fprintf(&sb, "  Contact: %s\n", r.ContactID)
	}
	if r.PromotionReferralCode != "" {
		fmt.Fprintf(&sb, "  Referral code: %s\n", r.PromotionReferralCode)
	}

	if len(r.TransactionJournals) > 0 {
		fmt.Fprintf(&sb, "\n%s (%d):\n", plural(len(r.TransactionJournals), "Transaction journal"), len(r.TransactionJournals))
		for i, j := range r.TransactionJournals {
			prefix, indent := treeBranch(i == len(r.TransactionJournals)-1)
			fmt.Fprintf(&sb, "%s── %s", prefix, j.ID)
			if j.JournalTypeName != "" {
				fmt.Fprintf(&sb, " [%s]", j.JournalTypeName)
			}
			sb.WriteString("\n")
			if j.Status != "" {
				fmt.Fprintf(&sb, "%sStatus: %s\n", indent, j.Status)
			}
			if !j.ActivityDate.IsZero() {
				fmt.Fprintf(&sb, "%sActivity: %s\n", indent, j.ActivityDate.Format("2006-01-02 15:04"))
			}
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// format returns the tree rendering of v, or false when v has none
func (f consoleFormatter) format(v any) (string, bool) {
	switch r := v.(type) {
	case batchReport:
		return f.formatBatchReport(r), true
	case *referral.EventResult:
		return f.formatEventResult(r), true
	case *referral.EnrollmentResult:
		return f.formatEnrollment(r), true
	}
	return "", false
}
