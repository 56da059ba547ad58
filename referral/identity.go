package referral

import (
	"net/mail"
	"strings"
)

// Identity selects how the enrolling member is identified. It is one of
// ByMembership, ByContact or NewMember.
type Identity interface {
	validate() error
	apply(body *enrollmentBody)
	mode() string
}

// ByMembership enrolls an existing member by membership number.
type ByMembership struct {
	MembershipNumber string
}

// ByContact enrolls an existing member by contact ID.
type ByContact struct {
	ContactID string
}

// NewMember enrolls a person who is not yet a loyalty member. Zero-valued
// enums fall back to Mobile, Monthly and Email.
type NewMember struct {
	FirstName        string
	LastName         string
	Email            string
	MembershipNumber string

	Channel            EnrollmentChannel
	StatementFrequency StatementFrequency
	StatementMethod    StatementMethod
}

type enrollmentBody struct {
	MembershipNumber   string                `json:"membershipNumber,omitempty"`
	ContactID          string                `json:"contactId,omitempty"`
	MemberStatus       MemberStatus          `json:"memberStatus"`
	PersonAccount      *personAccountDetails `json:"associatedPersonAccountDetails,omitempty"`
	EnrollmentChannel  EnrollmentChannel     `json:"enrollmentChannel,omitempty"`
	StatementFrequency StatementFrequency    `json:"transactionJournalStatementFrequency,omitempty"`
	StatementMethod    StatementMethod       `json:"transactionJournalStatementMethod,omitempty"`
}

type personAccountDetails struct {
	FirstName             string `json:"firstName"`
	LastName              string `json:"lastName"`
	Email                 string `json:"email"`
	AllowDuplicateRecords string `json:"allowDuplicateRecords"`
}

func (m ByMembership) validate() error {
	if strings.TrimSpace(m.MembershipNumber) == "" {
		return required("membership number")
	}
	return nil
}

func (m ByMembership) apply(b *enrollmentBody) {
	b.MembershipNumber = m.MembershipNumber
}

func (ByMembership) mode() string { return "membership" }

func (c ByContact) validate() error {
	if strings.TrimSpace(c.ContactID) == "" {
		return required("contact ID")
	}
	return nil
}

func (c ByContact) apply(b *enrollmentBody) {
	b.ContactID = c.ContactID
}

func (ByContact) mode() string { return "contact" }

func (n NewMember) withDefaults() NewMember {
	if n.Channel == "" {
		n.Channel = ChannelMobile
	}
	if n.StatementFrequency == "" {
		n.StatementFrequency = StatementMonthly
	}
	if n.StatementMethod == "" {
		n.StatementMethod = StatementEmail
	}
	return n
}

func (n NewMember) validate() error {
	switch {
	case strings.TrimSpace(n.FirstName) == "":
		return required("first name")
	case strings.TrimSpace(n.LastName) == "":
		return required("last name")
	case strings.TrimSpace(n.MembershipNumber) == "":
		return required("membership number")
	}
	if err := validateEmail(n.Email); err != nil {
		return err
	}

	n = n.withDefaults()
	if !n.Channel.Valid() {
		return invalid("enrollment channel", n.Channel)
	}
	if !n.StatementFrequency.Valid() {
		return invalid("statement frequency", n.StatementFrequency)
	}
	if !n.StatementMethod.Valid() {
		return invalid("statement method", n.StatementMethod)
	}
	return nil
}

func (n NewMember) apply(b *enrollmentBody) {
	n = n.withDefaults()
	b.MembershipNumber = n.MembershipNumber
	b.PersonAccount = &personAccountDetails{
		FirstName:             n.FirstName,
		LastName:              n.LastName,
		Email:                 n.Email,
		AllowDuplicateRecords: "false",
	}
	b.EnrollmentChannel = n.Channel
	b.StatementFrequency = n.StatementFrequency
	b.StatementMethod = n.StatementMethod
}

func (NewMember) mode() string { return "new" }

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return required("email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", email)
	}
	return nil
}
