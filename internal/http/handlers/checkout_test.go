package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultpay/internal/config"
	"vaultpay/internal/domain/assignment"
	"vaultpay/internal/domain/catalog"
	"vaultpay/internal/domain/client"
	"vaultpay/internal/domain/ledger"
	stripeprovider "vaultpay/internal/provider/stripe"
	"vaultpay/internal/store/repositories"
)

type stubAutomations struct {
	automation *catalog.Automation
}

func (s stubAutomations) FindByID(_ context.Context, id uuid.UUID) (*catalog.Automation, error) {
	if s.automation == nil || s.automation.ID != id {
		return nil, repositories.ErrNotFound
	}
	return s.automation, nil
}

func (s stubAutomations) FindNeedingStripeSync(context.Context) ([]*catalog.Automation, error) {
	return nil, nil
}

func (s stubAutomations) SaveStripeIDs(context.Context, *catalog.Automation) error { return nil }

type stubClients struct {
	client *client.Client
}

func (s stubClients) FindByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	if s.client == nil || s.client.ID != id {
		return nil, repositories.ErrNotFound
	}
	return s.client, nil
}

func (s stubClients) AddToTotalSpent(context.Context, uuid.UUID, ledger.Money) error { return nil }

type stubAssignments struct {
	assignment *assignment.ClientAutomation
	findErr    error
	updated    *assignment.ClientAutomation
}

func (s *stubAssignments) FindByClientAndAutomation(context.Context, uuid.UUID, uuid.UUID) (*assignment.ClientAutomation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.assignment == nil {
		return nil, repositories.ErrNotFound
	}
	return s.assignment, nil
}

func (s *stubAssignments) FindBySubscriptionID(context.Context, string) (*assignment.ClientAutomation, error) {
	return nil, repositories.ErrNotFound
}

func (s *stubAssignments) Update(_ context.Context, a *assignment.ClientAutomation) error {
	s.updated = a
	return nil
}

func checkoutFixture(assignments *stubAssignments) (*CheckoutHandler, uuid.UUID, uuid.UUID) {
	clientID := uuid.New()
	automationID := uuid.New()
	h := NewCheckoutHandler(
		stripeprovider.New(config.StripeCfg{SecretKey: "sk_test_1"}, "https://portal.test"),
		stubAutomations{automation: &catalog.Automation{ID: automationID, Name: "Lead Router", SetupPrice: 10000}},
		stubClients{client: &client.Client{ID: clientID, BusinessName: "Acme Corp"}},
		assignments,
	)
	return h, clientID, automationID
}

func stubSession(context.Context, *catalog.Automation, uuid.UUID, string) (*stripeprovider.CheckoutSession, error) {
	return &stripeprovider.CheckoutSession{ID: "cs_stub_1", URL: "https://checkout.test/cs_stub_1"}, nil
}

func postCheckout(h *CheckoutHandler, clientID, automationID uuid.UUID, create sessionFunc) *httptest.ResponseRecorder {
	body, _ := json.Marshal(checkoutRequest{
		ClientID:     clientID.String(),
		AutomationID: automationID.String(),
	})
	req := httptest.NewRequest("POST", "/api/v1/checkout/setup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.createSession(rec, req, create)
	return rec
}

func TestCheckoutRecordsSessionOnAssignment(t *testing.T) {
	assignments := &stubAssignments{assignment: &assignment.ClientAutomation{ID: uuid.New()}}
	h, clientID, automationID := checkoutFixture(assignments)
	assignments.assignment.ClientID = clientID
	assignments.assignment.AutomationID = automationID

	rec := postCheckout(h, clientID, automationID, stubSession)
	assert.Equal(t, 200, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cs_stub_1", body["sessionId"])
	assert.Equal(t, "https://checkout.test/cs_stub_1", body["url"])

	require.NotNil(t, assignments.updated)
	assert.Equal(t, "cs_stub_1", assignments.updated.StripeSessionID)
}

func TestCheckoutSucceedsWhenAssignmentLookupFails(t *testing.T) {
	assignments := &stubAssignments{findErr: errors.New("db down")}
	h, clientID, automationID := checkoutFixture(assignments)

	// Recording the session is best-effort; the customer still gets their URL.
	rec := postCheckout(h, clientID, automationID, stubSession)
	assert.Equal(t, 200, rec.Code)
	assert.Nil(t, assignments.updated)
}

func TestCheckoutRejectsUnknownAutomation(t *testing.T) {
	h, clientID, _ := checkoutFixture(&stubAssignments{})

	rec := postCheckout(h, clientID, uuid.New(), stubSession)
	assert.Equal(t, 404, rec.Code)
}

func TestCheckoutValidatesIDs(t *testing.T) {
	h, _, _ := checkoutFixture(&stubAssignments{})

	body := []byte(`{"clientId":"not-a-uuid","automationId":"also-not"}`)
	req := httptest.NewRequest("POST", "/api/v1/checkout/setup", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.createSession(rec, req, stubSession)
	assert.Equal(t, 400, rec.Code)
}
