package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultpay/internal/config"
	"vaultpay/internal/domain/event"
)

type stubVerifier struct {
	evt stripeapi.Event
	err error
}

func (v stubVerifier) ConstructEvent(payload []byte, sigHeader, secret string) (stripeapi.Event, error) {
	return v.evt, v.err
}

type stubEventRepo struct {
	saved     []*event.Event
	duplicate bool
	err       error
}

func (r *stubEventRepo) Save(_ context.Context, e *event.Event) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.duplicate {
		return false, nil
	}
	r.saved = append(r.saved, e)
	return true, nil
}

func (r *stubEventRepo) FindByID(context.Context, int64) (*event.Event, error) { return nil, nil }
func (r *stubEventRepo) FindUnprocessed(context.Context, int) ([]*event.Event, error) {
	return nil, nil
}
func (r *stubEventRepo) FindIDsByWindow(context.Context, *time.Time, *time.Time, int) ([]int64, error) {
	return nil, nil
}
func (r *stubEventRepo) MarkProcessed(context.Context, int64, event.ProcessingStatus, string) error {
	return nil
}
func (r *stubEventRepo) MarkForReprocessing(context.Context, int64) error { return nil }
func (r *stubEventRepo) List(context.Context, int, int) ([]*event.Event, error) {
	return nil, nil
}

type stubGuard struct {
	marked map[string]bool
}

func newStubGuard() *stubGuard { return &stubGuard{marked: map[string]bool{}} }

func (g *stubGuard) Seen(_ context.Context, eventID string) bool {
	if g.marked[eventID] {
		return true
	}
	g.marked[eventID] = true
	return false
}

func (g *stubGuard) Forget(_ context.Context, eventID string) {
	delete(g.marked, eventID)
}

var testStripeCfg = config.StripeCfg{SecretKey: "sk_test_1", WebhookSecret: "whsec_1"}

func postWebhook(h *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewBufferString(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.HandleStripe(rec, req)
	return rec
}

func TestWebhookRejectsWhenUnconfigured(t *testing.T) {
	h := NewWebhookHandler(config.StripeCfg{}, stubVerifier{}, nil, &stubEventRepo{})

	rec := postWebhook(h, `{}`, "t=1,v1=abc")
	assert.Equal(t, 500, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "configuration_error", body["error"])
}

func TestWebhookRequiresSignatureHeader(t *testing.T) {
	repo := &stubEventRepo{}
	h := NewWebhookHandler(testStripeCfg, stubVerifier{}, nil, repo)

	rec := postWebhook(h, `{}`, "")
	assert.Equal(t, 400, rec.Code)
	assert.Empty(t, repo.saved)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	repo := &stubEventRepo{}
	h := NewWebhookHandler(testStripeCfg, stubVerifier{err: errors.New("bad hmac")}, nil, repo)

	rec := postWebhook(h, `{}`, "t=1,v1=forged")
	assert.Equal(t, 400, rec.Code)
	assert.Empty(t, repo.saved, "unverified payloads must never be stored")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_signature", body["error"])
}

func TestWebhookAcceptsVerifiedEvent(t *testing.T) {
	repo := &stubEventRepo{}
	verifier := stubVerifier{evt: stripeapi.Event{ID: "evt_1", Type: "checkout.session.completed"}}
	h := NewWebhookHandler(testStripeCfg, verifier, nil, repo)

	rec := postWebhook(h, `{"id":"evt_1"}`, "t=1,v1=good")
	assert.Equal(t, 200, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["received"])

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "evt_1", repo.saved[0].ExternalID)
	assert.Equal(t, event.SourceStripe, repo.saved[0].Source)
	assert.Equal(t, event.ProcessingPending, repo.saved[0].ProcessingStatus)
}

func TestWebhookAcknowledgesDuplicateDelivery(t *testing.T) {
	repo := &stubEventRepo{duplicate: true}
	verifier := stubVerifier{evt: stripeapi.Event{ID: "evt_1", Type: "checkout.session.completed"}}
	h := NewWebhookHandler(testStripeCfg, verifier, nil, repo)

	rec := postWebhook(h, `{"id":"evt_1"}`, "t=1,v1=good")
	assert.Equal(t, 200, rec.Code, "duplicates are acknowledged so the provider stops retrying")
	assert.Empty(t, repo.saved)
}

func TestWebhookGuardIsReleasedWhenStorageFails(t *testing.T) {
	repo := &stubEventRepo{err: errors.New("db down")}
	guard := newStubGuard()
	verifier := stubVerifier{evt: stripeapi.Event{ID: "evt_1", Type: "checkout.session.completed"}}
	h := NewWebhookHandler(testStripeCfg, verifier, guard, repo)

	// First delivery: storage is down, the provider gets a 500 and the
	// duplicate mark must be released so the retry is not absorbed.
	rec := postWebhook(h, `{"id":"evt_1"}`, "t=1,v1=good")
	assert.Equal(t, 500, rec.Code)
	assert.False(t, guard.marked["evt_1"], "mark must not survive a failed store")

	// Retry after storage recovers: the event must actually be stored.
	repo.err = nil
	rec = postWebhook(h, `{"id":"evt_1"}`, "t=1,v1=good")
	assert.Equal(t, 200, rec.Code)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "evt_1", repo.saved[0].ExternalID)
}

func TestWebhookGuardAbsorbsTrueDuplicates(t *testing.T) {
	repo := &stubEventRepo{}
	guard := newStubGuard()
	verifier := stubVerifier{evt: stripeapi.Event{ID: "evt_1", Type: "checkout.session.completed"}}
	h := NewWebhookHandler(testStripeCfg, verifier, guard, repo)

	rec := postWebhook(h, `{"id":"evt_1"}`, "t=1,v1=good")
	assert.Equal(t, 200, rec.Code)
	require.Len(t, repo.saved, 1)

	rec = postWebhook(h, `{"id":"evt_1"}`, "t=1,v1=good")
	assert.Equal(t, 200, rec.Code)
	assert.Len(t, repo.saved, 1, "second delivery is acknowledged without a second store")
}

func TestWebhookReportsStorageFailure(t *testing.T) {
	repo := &stubEventRepo{err: errors.New("db down")}
	verifier := stubVerifier{evt: stripeapi.Event{ID: "evt_1", Type: "checkout.session.completed"}}
	h := NewWebhookHandler(testStripeCfg, verifier, nil, repo)

	rec := postWebhook(h, `{"id":"evt_1"}`, "t=1,v1=good")
	assert.Equal(t, 500, rec.Code, "an unstored event must stay retryable on the provider side")
}
