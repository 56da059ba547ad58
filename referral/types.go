package referral

import (
	"fmt"
	"time"
)

// EnrollmentChannel is the channel through which a new member enrolled.
type EnrollmentChannel string

const (
	ChannelCallCenter EnrollmentChannel = "CallCenter"
	ChannelEmail      EnrollmentChannel = "Email"
	ChannelFranchise  EnrollmentChannel = "Franchise"
	ChannelMobile     EnrollmentChannel = "Mobile"
	ChannelPartner    EnrollmentChannel = "Partner"
	ChannelPOS        EnrollmentChannel = "Pos"
	ChannelPrint      EnrollmentChannel = "Print"
	ChannelSocial     EnrollmentChannel = "Social"
	ChannelStore      EnrollmentChannel = "Store"
	ChannelWeb        EnrollmentChannel = "Web"
)

// Valid reports whether c is a known channel.
func (c EnrollmentChannel) Valid() bool {
	switch c {
	case ChannelCallCenter, ChannelEmail, ChannelFranchise, ChannelMobile, ChannelPartner,
		ChannelPOS, ChannelPrint, ChannelSocial, ChannelStore, ChannelWeb:
		return true
	}
	return false
}

// MemberStatus is the loyalty member status sent on enrollment.
type MemberStatus string

const (
	MemberActive   MemberStatus = "Active"
	MemberInactive MemberStatus = "Inactive"
)

// Valid reports whether s is a known status.
func (s MemberStatus) Valid() bool {
	return s == MemberActive || s == MemberInactive
}

// StatementFrequency controls how often transaction journal statements are sent.
type StatementFrequency string

const (
	StatementMonthly   StatementFrequency = "Monthly"
	StatementQuarterly StatementFrequency = "Quarterly"
)

// Valid reports whether f is a known frequency.
func (f StatementFrequency) Valid() bool {
	return f == StatementMonthly || f == StatementQuarterly
}

// StatementMethod controls how transaction journal statements are delivered.
type StatementMethod string

const (
	StatementEmail StatementMethod = "Email"
	StatementMail  StatementMethod = "Mail"
)

// Valid reports whether m is a known method.
func (m StatementMethod) Valid() bool {
	return m == StatementEmail || m == StatementMail
}

// EventType is the kind of referral event.
type EventType string

const (
	EventEnrollment EventType = "Enrollment"
	EventPurchase   EventType = "Purchase"
	EventRefer      EventType = "Refer"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventEnrollment, EventPurchase, EventRefer:
		return true
	}
	return false
}

// ParseEventType maps a case-sensitive wire value onto an EventType.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, s)
	}
	return t, nil
}

// EnrollmentResult is returned by the member enrollment endpoint.
type EnrollmentResult struct {
	ContactID              string               `json:"contactId" yaml:"contactId,omitempty"`
	MembershipNumber       string               `json:"membershipNumber" yaml:"membershipNumber,omitempty"`
	LoyaltyProgramMemberID string               `json:"loyaltyProgramMemberId" yaml:"loyaltyProgramMemberId,omitempty"`
	LoyaltyProgramName     string               `json:"loyaltyProgramName" yaml:"loyaltyProgramName,omitempty"`
	PromotionReferralCode  string               `json:"promotionReferralCode" yaml:"promotionReferralCode,omitempty"`
	TransactionJournals    []TransactionJournal `json:"transactionJournals" yaml:"transactionJournals,omitempty"`
}

// TransactionJournal is a journal entry created by an enrollment.
type TransactionJournal struct {
	ID                     string     `json:"transactionJournalId" yaml:"id,omitempty"`
	ActivityDate           time.Time  `json:"activityDate" yaml:"activityDate"`
	JournalTypeName        string     `json:"journalTypeName" yaml:"journalType,omitempty"`
	JournalSubTypeName     string     `json:"journalSubTypeName" yaml:"journalSubType,omitempty"`
	LoyaltyProgramMemberID string     `json:"loyaltyProgramMemberId" yaml:"loyaltyProgramMemberId,omitempty"`
	ReferredMemberID       string     `json:"referredMemberId" yaml:"referredMemberId,omitempty"`
	Status                 string     `json:"status" yaml:"status,omitempty"`
	ProcessedAt            *time.Time `json:"processedDate" yaml:"processedAt,omitempty"`
}

// EventResult is returned by the referral event endpoint.
type EventResult struct {
	ContactIDs            []string `json:"contactIds" yaml:"contactIds,omitempty"`
	ReferralIDs           []string `json:"referralIds" yaml:"referralIds,omitempty"`
	TransactionJournalIDs []string `json:"transactionjournalIds" yaml:"transactionJournalIds,omitempty"`
	VoucherID             string   `json:"voucherId" yaml:"voucherId,omitempty"`
	ReferralStage         string   `json:"referralStage" yaml:"referralStage,omitempty"`
}

// Event describes a referral event. Zero-valued optional fields are left
// out of the request body.
type Event struct {
	ReferralCode     string     `json:"referralCode" yaml:"referralCode"`
	Type             EventType  `json:"eventType" yaml:"eventType"`
	Emails           []string   `json:"emails,omitempty" yaml:"emails,omitempty"`
	ContactID        string     `json:"contactId,omitempty" yaml:"contactId,omitempty"`
	FirstName        string     `json:"firstName,omitempty" yaml:"firstName,omitempty"`
	LastName         string     `json:"lastName,omitempty" yaml:"lastName,omitempty"`
	JoiningDate      *time.Time `json:"joiningDate,omitempty" yaml:"joiningDate,omitempty"`
	ProductID        string     `json:"productId,omitempty" yaml:"productId,omitempty"`
	PurchaseAmount   float64    `json:"purchaseAmount,omitempty" yaml:"purchaseAmount,omitempty"`
	PurchaseQuantity int        `json:"purchaseQuantity,omitempty" yaml:"purchaseQuantity,omitempty"`
	OrderReferenceID string     `json:"orderReferenceId,omitempty" yaml:"orderReferenceId,omitempty"`

	// ActivityTime defaults to the manager's clock when zero.
	ActivityTime time.Time `json:"activityDateTime,omitempty" yaml:"activityDateTime,omitempty"`
}
