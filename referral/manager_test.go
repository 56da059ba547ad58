package referral

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/referral/force"
)

const instanceURL = "https://instanceUrl"

// recorder is a fake transport that answers every request with the same
// status and body
type recorder struct {
	status int
	body   string

	mu       sync.Mutex
	requests []*force.Request
}

func (r *recorder) Send(ctx context.Context, req *force.Request) (*force.Outcome, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	return &force.Outcome{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recorder) last(t *testing.T) (*force.Request, map[string]any) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	req := r.requests[len(r.requests)-1]

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body(), &body))
	return req, body
}

var fixedNow = time.Date(2023, 9, 7, 10, 20, 30, 0, time.UTC)

func newTestManager(t *testing.T, transport force.Transport, opts ...Option) *Manager {
	t.Helper()
	client, err := force.NewClient(force.StaticToken("AccessToken1234"), transport)
	require.NoError(t, err)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	m, err := NewManager(client, instanceURL, "Friends Program", opts...)
	require.NoError(t, err)
	return m
}

const enrollmentJSON = `{
	"contactId": "003xx",
	"membershipNumber": "M-1",
	"loyaltyProgramMemberId": "0lMxx",
	"loyaltyProgramName": "Friends Program",
	"promotionReferralCode": "M-1SUMMER",
	"transactionJournals": [
		{"transactionJournalId": "0lVxx", "activityDate": "2023-09-07T10:20:30.000Z", "journalTypeName": "Referral", "status": "Processed"},
		{"transactionJournalId": "0lVyy", "activityDate": "2023-09-07", "processedDate": null}
	]
}`

func TestNewManager(t *testing.T) {
	client, err := force.NewClient(force.StaticToken("x"), &recorder{})
	require.NoError(t, err)

	_, err = NewManager(nil, instanceURL, "p")
	assert.Error(t, err)

	_, err = NewManager(client, "", "p")
	assert.Error(t, err)

	_, err = NewManager(client, instanceURL, "p", WithVersion("latest"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	m, err := NewManager(client, instanceURL, "p", WithVersion("59"))
	require.NoError(t, err)
	assert.Equal(t, "v59.0", m.Version())
	assert.Equal(t, "p", m.Program())
}

func TestEnrollByMembershipNumber(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: enrollmentJSON}
	m := newTestManager(t, rec)

	res, err := m.EnrollByMembershipNumber(context.Background(), "SUMMER", "M-1")
	require.NoError(t, err)
	assert.Equal(t, "M-1SUMMER", res.PromotionReferralCode)
	require.Len(t, res.TransactionJournals, 2)
	assert.Equal(t, fixedNow, res.TransactionJournals[0].ActivityDate)
	assert.Equal(t, time.Date(2023, 9, 7, 0, 0, 0, 0, time.UTC), res.TransactionJournals[1].ActivityDate)
	assert.Nil(t, res.TransactionJournals[1].ProcessedAt)

	req, body := rec.last(t)
	assert.Equal(t, http.MethodPost, req.Method())
	assert.Equal(t,
		"https://instanceUrl/services/data/v60.0/referral-programs/Friends%20Program/promotions/SUMMER/member-enrollments",
		req.URL())
	assert.Equal(t, map[string]any{"membershipNumber": "M-1", "memberStatus": "Active"}, body)
}

func TestEnrollByContactID(t *testing.T) {
	rec := &recorder{status: http.StatusCreated, body: enrollmentJSON}
	m := newTestManager(t, rec)

	_, err := m.EnrollByContactID(context.Background(), "SUMMER", "003xx",
		WithMemberStatus(MemberInactive), WithAPIVersion("v61.0"))
	require.NoError(t, err)

	req, body := rec.last(t)
	assert.Contains(t, req.URL(), "/services/data/v61.0/")
	assert.Equal(t, map[string]any{"contactId": "003xx", "memberStatus": "Inactive"}, body)
}

func TestEnrollBlankAPIVersionKeepsManagerVersion(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: enrollmentJSON}
	m := newTestManager(t, rec, WithVersion("57"))

	_, err := m.EnrollByContactID(context.Background(), "SUMMER", "003xx", WithAPIVersion(""))
	require.NoError(t, err)

	req, _ := rec.last(t)
	assert.Contains(t, req.URL(), "/services/data/v57.0/")
}

func TestEnrollNewMember(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: enrollmentJSON}
	m := newTestManager(t, rec)

	_, err := m.EnrollNewMember(context.Background(), "SUMMER", NewMember{
		FirstName:        "Test",
		LastName:         "User",
		Email:            "test@example.com",
		MembershipNumber: "123456",
	})
	require.NoError(t, err)

	_, body := rec.last(t)
	assert.Equal(t, map[string]any{
		"associatedPersonAccountDetails": map[string]any{
			"allowDuplicateRecords": "false",
			"firstName":             "Test",
			"lastName":              "User",
			"email":                 "test@example.com",
		},
		"enrollmentChannel":                    "Mobile",
		"memberStatus":                         "Active",
		"membershipNumber":                     "123456",
		"transactionJournalStatementFrequency": "Monthly",
		"transactionJournalStatementMethod":    "Email",
	}, body)
}

func TestEnrollRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		promo string
		id    Identity
		opts  []EnrollOption
	}{
		{"nil identity", "SUMMER", nil, nil},
		{"empty membership number", "SUMMER", ByMembership{}, nil},
		{"blank contact", "SUMMER", ByContact{ContactID: "  "}, nil},
		{"missing promotion", "", ByContact{ContactID: "003"}, nil},
		{"bad status", "SUMMER", ByContact{ContactID: "003"}, []EnrollOption{WithMemberStatus("Gone")}},
		{"bad version", "SUMMER", ByContact{ContactID: "003"}, []EnrollOption{WithAPIVersion("60.0-beta")}},
		{"new member without email", "SUMMER", NewMember{FirstName: "a", LastName: "b", MembershipNumber: "1"}, nil},
		{"new member bad email", "SUMMER", NewMember{FirstName: "a", LastName: "b", Email: "nope", MembershipNumber: "1"}, nil},
		{"new member bad channel", "SUMMER", NewMember{FirstName: "a", LastName: "b", Email: "a@b.c", MembershipNumber: "1", Channel: "Fax"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{status: http.StatusOK, body: enrollmentJSON}
			m := newTestManager(t, rec)

			_, err := m.Enroll(context.Background(), tt.promo, tt.id, tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, 0, rec.count())
		})
	}
}

func TestEnrollSurfacesAPIErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, force.ErrAuthenticationNeeded},
		{http.StatusForbidden, force.ErrFunctionalityNotEnabled},
		{http.StatusBadRequest, force.ErrResponseUnsuccessful},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec := &recorder{status: tt.status, body: `[{"errorCode":"INVALID_INPUT","message":"Promotion not found."}]`}
			m := newTestManager(t, rec)

			_, err := m.EnrollByContactID(context.Background(), "SUMMER", "003")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRefer(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: `{"contactIds":["003"],"referralIds":["0rf"],"referralStage":"Invited"}`}
	m := newTestManager(t, rec)

	res, err := m.Refer(context.Background(), "M-1SUMMER", "test@gmail.com", "other@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"0rf"}, res.ReferralIDs)
	assert.Equal(t, "Invited", res.ReferralStage)

	req, body := rec.last(t)
	assert.Equal(t, "https://instanceUrl/services/data/v60.0/referral-program/referral-event", req.URL())
	assert.Equal(t, map[string]any{
		"referralCode":     "M-1SUMMER",
		"referralEmails":   map[string]any{"emails": []any{"test@gmail.com", "other@gmail.com"}},
		"activityDateTime": "2023-09-07T10:20:30.000Z",
		"eventType":        "Refer",
	}, body)
}

func TestSubmitPurchaseEvent(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: `{"contactIds":[],"referralIds":[],"voucherId":"0kD"}`}
	m := newTestManager(t, rec)

	joined := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	at := time.Date(2023, 9, 1, 9, 0, 0, 0, time.UTC)
	res, err := m.SubmitEvent(context.Background(), Event{
		ReferralCode:     "M-1SUMMER",
		Type:             EventPurchase,
		ContactID:        "003",
		JoiningDate:      &joined,
		ProductID:        "01t",
		PurchaseAmount:   49.5,
		PurchaseQuantity: 2,
		OrderReferenceID: "ORD-1",
		ActivityTime:     at,
	})
	require.NoError(t, err)
	assert.Equal(t, "0kD", res.VoucherID)

	_, body := rec.last(t)
	assert.Equal(t, map[string]any{
		"referralCode":     "M-1SUMMER",
		"activityDateTime": "2023-09-01T09:00:00.000Z",
		"eventType":        "Purchase",
		"contactId":        "003",
		"joiningDate":      "2023-08-01T00:00:00.000Z",
		"productId":        "01t",
		"purchaseAmount":   49.5,
		"purchaseQuantity": float64(2),
		"orderReferenceId": "ORD-1",
	}, body)
}

func TestSubmitEventVersion(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: `{}`}
	m := newTestManager(t, rec)

	_, err := m.SubmitEventVersion(context.Background(), Event{ReferralCode: "C", Emails: []string{"a@b.c"}}, "58")
	require.NoError(t, err)
	req, _ := rec.last(t)
	assert.Contains(t, req.URL(), "/v58.0/")
}

func TestSubmitEventVersionBlankUsesManagerVersion(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: `{}`}
	m := newTestManager(t, rec, WithVersion("57"))

	for _, version := range []string{"", "  "} {
		_, err := m.SubmitEventVersion(context.Background(), Event{ReferralCode: "C", Emails: []string{"a@b.c"}}, version)
		require.NoError(t, err)
		req, _ := rec.last(t)
		assert.Contains(t, req.URL(), "/v57.0/")
	}
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		ok    bool
	}{
		{"refer", Event{ReferralCode: "C", Emails: []string{"a@b.c"}}, true},
		{"refer needs email", Event{ReferralCode: "C"}, false},
		{"missing code", Event{Emails: []string{"a@b.c"}}, false},
		{"bad email", Event{ReferralCode: "C", Emails: []string{"not an email"}}, false},
		{"unknown type", Event{ReferralCode: "C", Type: "Share", Emails: []string{"a@b.c"}}, false},
		{"enrollment with contact", Event{ReferralCode: "C", Type: EventEnrollment, ContactID: "003"}, true},
		{"enrollment needs someone", Event{ReferralCode: "C", Type: EventEnrollment}, false},
		{"purchase", Event{ReferralCode: "C", Type: EventPurchase, ProductID: "01t"}, true},
		{"purchase needs product", Event{ReferralCode: "C", Type: EventPurchase}, false},
		{"negative amount", Event{ReferralCode: "C", Type: EventPurchase, ProductID: "01t", PurchaseAmount: -1}, false},
		{"negative quantity", Event{ReferralCode: "C", Type: EventPurchase, ProductID: "01t", PurchaseQuantity: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestInvalidEventSendsNothing(t *testing.T) {
	rec := &recorder{status: http.StatusOK, body: `{}`}
	m := newTestManager(t, rec)

	_, err := m.Refer(context.Background(), "C")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, rec.count())
}

func TestParseEventType(t *testing.T) {
	got, err := ParseEventType("Purchase")
	require.NoError(t, err)
	assert.Equal(t, EventPurchase, got)

	_, err = ParseEventType("purchase")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
