package echoapi_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/aurorarobotics/aurora/apps/api/echo"
	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/payment"
	"github.com/aurorarobotics/aurora/core/referral"
)

func newWebhookRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	return req
}

func TestRegistrationFlow(t *testing.T) {
	f := newFixture(t)
	editor := f.cookie(t, f.editor)

	// a referral link, visited once
	rec := f.serve(newRequest(http.MethodPost, "/api/admin/referrals", editor, []byte(`{"code":"Ada Camp","owner_name":"Ada Lovelace"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var link referral.Link
	unmarshal(t, rec, &link)
	assert.Equal(t, "ada-camp", link.Code)

	rec = f.serve(newRequest(http.MethodGet, "/r/ada-camp", nil, nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, siteBaseURL+"?ref=ada-camp", rec.Header().Get("Location"))

	// register
	rec = f.serve(newRequest(http.MethodPost, "/api/registrations", nil,
		[]byte(`{"full_name":"Grace Hopper","email":"Grace@Example.com","program":"Robotics Camp","amount":150.5,"referral_code":"ADA-CAMP"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res payment.InitResult
	unmarshal(t, rec, &res)
	require.NotEmpty(t, res.Reference)
	assert.Equal(t, "https://checkout.test/"+res.Reference, res.AuthorizationURL)

	rec = f.serve(newRequest(http.MethodGet, "/api/payments/verify/"+res.Reference, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var status echoapi.PaymentStatus
	unmarshal(t, rec, &status)
	assert.Equal(t, payment.StatusPending, status.Status)
	assert.EqualValues(t, 15050, status.AmountMinor)
	assert.False(t, status.PaidAt.Valid)
	verifyCalls := len(f.gateway.verified)

	// webhook
	success := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"status":"success","amount":15050}}`, res.Reference))
	tests := []struct {
		name      string
		body      []byte
		signature string
		wantCode  int
		wantData  []byte
	}{
		{
			name:      "forged signature",
			body:      success,
			signature: payment.Sign("not-the-secret", success),
			wantCode:  http.StatusUnauthorized,
			wantData:  marchallObj(t, httpErr{Error: payment.ErrInvalidSignature.Error()}),
		},
		{
			name:     "missing signature",
			body:     success,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: payment.ErrInvalidSignature.Error()}),
		},
		{
			name:      "other events are acknowledged",
			body:      []byte(`{"event":"transfer.success","data":{}}`),
			signature: payment.Sign(webhookSecret, []byte(`{"event":"transfer.success","data":{}}`)),
			wantCode:  http.StatusOK,
		},
		{
			name:      "unknown reference",
			body:      []byte(`{"event":"charge.success","data":{"reference":"AUR-NOPE","status":"success","amount":1}}`),
			signature: payment.Sign(webhookSecret, []byte(`{"event":"charge.success","data":{"reference":"AUR-NOPE","status":"success","amount":1}}`)),
			wantCode:  http.StatusNotFound,
		},
		{name: "success", body: success, signature: payment.Sign(webhookSecret, success), wantCode: http.StatusOK},
		{name: "replayed success", body: success, signature: payment.Sign(webhookSecret, success), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(newWebhookRequest(tt.body, tt.signature))
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}

	// paid once, the gateway is not asked again
	rec = f.serve(newRequest(http.MethodGet, "/api/payments/verify/"+res.Reference, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &status)
	assert.Equal(t, payment.StatusSuccess, status.Status)
	assert.True(t, status.PaidAt.Valid)
	assert.Len(t, f.gateway.verified, verifyCalls)

	rec = f.serve(newRequest(http.MethodGet, "/api/admin/registrations?status=paid", editor, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var regs []payment.Registration
	unmarshal(t, rec, &regs)
	require.Len(t, regs, 1)
	assert.Equal(t, "grace@example.com", regs[0].Email)
	assert.Equal(t, "ada-camp", regs[0].ReferralCode.String)

	rec = f.serve(newRequest(http.MethodGet, "/api/admin/referrals/"+link.ID, editor, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &link)
	assert.Equal(t, 1, link.Clicks)
	assert.Equal(t, 1, link.Registrations, "conversion counted once")

	// registration notice, then a single receipt
	var receipts int
	for _, msg := range f.sender.SentMessages() {
		if msg.TemplateName == payment.ReceiptTemplate {
			receipts++
		}
	}
	assert.Equal(t, 1, receipts)
}

func TestWebhook_bodyTooLarge(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"` + strings.Repeat("x", 70<<10) + `"}}`)
	rec := f.serve(newWebhookRequest(body, payment.Sign(webhookSecret, body)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestManualVerify(t *testing.T) {
	f := newFixture(t)
	rec := f.serve(newRequest(http.MethodPost, "/api/registrations", nil,
		[]byte(`{"full_name":"Alan Turing","email":"alan@example.com","program":"Robotics Camp","amount":100}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res payment.InitResult
	unmarshal(t, rec, &res)

	f.gateway.txStatus = payment.StatusAbandoned
	rec = f.serve(newRequest(http.MethodPost, "/api/admin/payments/"+res.Reference+"/verify", f.cookie(t, f.editor), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p payment.Payment
	unmarshal(t, rec, &p)
	assert.Equal(t, payment.StatusAbandoned, p.Status)
	assert.Equal(t, []string{res.Reference}, f.gateway.verified)

	f.run(t, httpTest{
		method:   http.MethodPost,
		path:     "/api/admin/payments/AUR-NOPE/verify",
		cookie:   f.cookie(t, f.editor),
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: payment.ErrNotFound.Error()}),
	})
}

func TestRegistration_rateLimit(t *testing.T) {
	f := newFixture(t, func(conf *core.Config) { conf.RegistrationRateLimit = 1 })

	// the first attempt counts even though it is invalid
	rec := f.serve(newRequest(http.MethodPost, "/api/registrations", nil, []byte(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	rec = f.serve(newRequest(http.MethodPost, "/api/registrations", nil, []byte(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())

	// other endpoints are not limited
	rec = f.serve(newRequest(http.MethodGet, "/health", nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReferralRedirect(t *testing.T) {
	f := newFixture(t)
	editor := f.cookie(t, f.editor)

	rec := f.serve(newRequest(http.MethodPost, "/api/admin/referrals", editor, []byte(`{"code":"paused","owner_name":"Pat"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var link referral.Link
	unmarshal(t, rec, &link)
	rec = f.serve(newRequest(http.MethodPut, "/api/admin/referrals/"+link.ID, editor, []byte(`{"is_active":false}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name         string
		path         string
		wantLocation string
	}{
		{name: "unknown code", path: "/r/nope", wantLocation: siteBaseURL},
		{name: "inactive code", path: "/r/paused", wantLocation: siteBaseURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(newRequest(http.MethodGet, tt.path, nil, nil))
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
		})
	}

	rec = f.serve(newRequest(http.MethodGet, "/api/admin/referrals/"+link.ID, editor, nil))
	unmarshal(t, rec, &link)
	assert.Zero(t, link.Clicks)
	assert.False(t, link.IsActive)
}
