package referral

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/referral/force"
)

// Manager runs referral program operations for one program on one instance.
// It is safe for concurrent use.
type Manager struct {
	client      *force.Client
	instanceURL string
	program     string
	version     string
	logger      zerolog.Logger
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithVersion sets the default API version for all operations.
func WithVersion(v string) Option {
	return func(m *Manager) {
		m.version = v
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager. The program name is only required for
// enrollment operations.
func NewManager(client *force.Client, instanceURL, program string, opts ...Option) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(instanceURL) == "" {
		return nil, fmt.Errorf("instance URL is required")
	}

	m := &Manager{
		client:      client,
		instanceURL: instanceURL,
		program:     program,
		version:     DefaultVersion,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	v, err := NormalizeVersion(m.version)
	if err != nil {
		return nil, err
	}
	m.version = v

	return m, nil
}

// Program returns the referral program name.
func (m *Manager) Program() string {
	return m.program
}

// Version returns the normalized default API version.
func (m *Manager) Version() string {
	return m.version
}

type enrollConfig struct {
	status  MemberStatus
	version string
}

// EnrollOption adjusts a single enrollment.
type EnrollOption func(*enrollConfig)

// WithMemberStatus sets the member status. The default is MemberActive.
func WithMemberStatus(s MemberStatus) EnrollOption {
	return func(c *enrollConfig) {
		c.status = s
	}
}

// WithAPIVersion overrides the API version for one call. A blank version
// keeps the manager's.
func WithAPIVersion(v string) EnrollOption {
	return func(c *enrollConfig) {
		if strings.TrimSpace(v) != "" {
			c.version = v
		}
	}
}

// Enroll enrolls a member in the promotion identified by promotionCode.
func (m *Manager) Enroll(ctx context.Context, promotionCode string, id Identity, opts ...EnrollOption) (*EnrollmentResult, error) {
	cfg := enrollConfig{status: MemberActive, version: m.version}
	for _, opt := range opts {
		opt(&cfg)
	}

	if id == nil {
		return nil, required("identity")
	}
	if err := id.validate(); err != nil {
		return nil, err
	}
	if !cfg.status.Valid() {
		return nil, invalid("member status", cfg.status)
	}

	path, err := Path(EnrollmentResource{Program: m.program, PromotionCode: promotionCode, Version: cfg.version})
	if err != nil {
		return nil, err
	}

	body := enrollmentBody{MemberStatus: cfg.status}
	id.apply(&body)

	m.logger.Debug().
		Str("program", m.program).
		Str("promotion", promotionCode).
		Str("mode", id.mode()).
		Msg("Enrolling member in promotion")

	result, err := post[EnrollmentResult](ctx, m, path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll member: %w", err)
	}

	m.logger.Info().
		Str("promotion", promotionCode).
		Str("membership_number", result.MembershipNumber).
		Int("journals", len(result.TransactionJournals)).
		Msg("Member enrolled")

	return &result, nil
}

// EnrollByMembershipNumber enrolls an existing member by membership number.
func (m *Manager) EnrollByMembershipNumber(ctx context.Context, promotionCode, membershipNumber string, opts ...EnrollOption) (*EnrollmentResult, error) {
	return m.Enroll(ctx, promotionCode, ByMembership{MembershipNumber: membershipNumber}, opts...)
}

// EnrollByContactID enrolls an existing member by contact ID.
func (m *Manager) EnrollByContactID(ctx context.Context, promotionCode, contactID string, opts ...EnrollOption) (*EnrollmentResult, error) {
	return m.Enroll(ctx, promotionCode, ByContact{ContactID: contactID}, opts...)
}

// EnrollNewMember enrolls a person who is not yet a loyalty member.
func (m *Manager) EnrollNewMember(ctx context.Context, promotionCode string, member NewMember, opts ...EnrollOption) (*EnrollmentResult, error) {
	return m.Enroll(ctx, promotionCode, member, opts...)
}

type referralEmails struct {
	Emails []string `json:"emails"`
}

type eventBody struct {
	ReferralCode     string          `json:"referralCode"`
	ReferralEmails   *referralEmails `json:"referralEmails,omitempty"`
	ActivityDateTime string          `json:"activityDateTime"`
	EventType        EventType       `json:"eventType"`
	ContactID        string          `json:"contactId,omitempty"`
	FirstName        string          `json:"firstName,omitempty"`
	LastName         string          `json:"lastName,omitempty"`
	JoiningDate      string          `json:"joiningDate,omitempty"`
	ProductID        string          `json:"productId,omitempty"`
	PurchaseAmount   float64         `json:"purchaseAmount,omitempty"`
	PurchaseQuantity int             `json:"purchaseQuantity,omitempty"`
	OrderReferenceID string          `json:"orderReferenceId,omitempty"`
}

// Validate checks e without sending anything. An empty Type is treated as
// EventRefer.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ReferralCode) == "" {
		return required("referral code")
	}

	t := e.Type
	if t == "" {
		t = EventRefer
	}
	if !t.Valid() {
		return invalid("event type", t)
	}

	for _, email := range e.Emails {
		if err := validateEmail(email); err != nil {
			return err
		}
	}

	switch t {
	case EventRefer:
		if len(e.Emails) == 0 {
			return required("at least one referral email")
		}
	case EventEnrollment:
		if len(e.Emails) == 0 && strings.TrimSpace(e.ContactID) == "" {
			return required("contact ID or referral email")
		}
	case EventPurchase:
		if strings.TrimSpace(e.ProductID) == "" {
			return required("product ID")
		}
	}

	if e.PurchaseAmount < 0 {
		return invalid("purchase amount", e.PurchaseAmount)
	}
	if e.PurchaseQuantity < 0 {
		return invalid("purchase quantity", e.PurchaseQuantity)
	}
	return nil
}

func (m *Manager) eventBody(e Event) eventBody {
	t := e.Type
	if t == "" {
		t = EventRefer
	}
	at := e.ActivityTime
	if at.IsZero() {
		at = m.now()
	}

	body := eventBody{
		ReferralCode:     e.ReferralCode,
		ActivityDateTime: force.FormatDate(at),
		EventType:        t,
		ContactID:        e.ContactID,
		FirstName:        e.FirstName,
		LastName:         e.LastName,
		ProductID:        e.ProductID,
		PurchaseAmount:   e.PurchaseAmount,
		PurchaseQuantity: e.PurchaseQuantity,
		OrderReferenceID: e.OrderReferenceID,
	}
	if len(e.Emails) > 0 {
		body.ReferralEmails = &referralEmails{Emails: e.Emails}
	}
	if e.JoiningDate != nil {
		body.JoiningDate = force.FormatDate(*e.JoiningDate)
	}
	return body
}

// SubmitEvent records a referral event.
func (m *Manager) SubmitEvent(ctx context.Context, e Event) (*EventResult, error) {
	return m.submitEvent(ctx, e, m.version)
}

// SubmitEventVersion records a referral event against a specific API version.
func (m *Manager) SubmitEventVersion(ctx context.Context, e Event, version string) (*EventResult, error) {
	if strings.TrimSpace(version) == "" {
		version = m.version
	}
	return m.submitEvent(ctx, e, version)
}

func (m *Manager) submitEvent(ctx context.Context, e Event, version string) (*EventResult, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	path, err := Path(EventResource{Version: version})
	if err != nil {
		return nil, err
	}

	body := m.eventBody(e)
	m.logger.Debug().
		Str("referral_code", e.ReferralCode).
		Str("event_type", string(body.EventType)).
		Int("emails", len(e.Emails)).
		Msg("Submitting referral event")

	result, err := post[EventResult](ctx, m, path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to submit referral event: %w", err)
	}
	return &result, nil
}

// Refer records a Refer event for the given email addresses.
func (m *Manager) Refer(ctx context.Context, referralCode string, emails ...string) (*EventResult, error) {
	return m.SubmitEvent(ctx, Event{
		ReferralCode: referralCode,
		Type:         EventRefer,
		Emails:       emails,
	})
}

func post[T any](ctx context.Context, m *Manager, path string, body any) (T, error) {
	var zero T
	data, err := json.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := force.NewRequest(m.instanceURL, path, http.MethodPost, data)
	if err != nil {
		return zero, err
	}
	return force.Fetch[T](ctx, m.client, req)
}
