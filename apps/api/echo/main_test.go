package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	echoapi "github.com/aurorarobotics/aurora/apps/api/echo"
	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/mailer"
	"github.com/aurorarobotics/aurora/core/media"
	"github.com/aurorarobotics/aurora/core/payment"
	"github.com/aurorarobotics/aurora/core/referral"
	"github.com/aurorarobotics/aurora/core/student"
	"github.com/aurorarobotics/aurora/core/user"
	appfs "github.com/aurorarobotics/aurora/fs"
	emailsvc "github.com/aurorarobotics/aurora/services/email"
	sessionsvc "github.com/aurorarobotics/aurora/services/session"
	inmemdb "github.com/aurorarobotics/aurora/storage/database/inmem"
	"github.com/aurorarobotics/aurora/storage/objects/disk"
	testutil "github.com/aurorarobotics/aurora/tests"
)

const (
	goodPwd       = "R0b0t!cs#Lab"
	webhookSecret = "sk_test_webhook"
	siteBaseURL   = "https://aurora.test"
)

type fakeGateway struct {
	mu       sync.Mutex
	verified []string
	txStatus string
	txAmount int64
}

func (gw *fakeGateway) Initialize(_ context.Context, req payment.InitRequest) (payment.InitResponse, error) {
	return payment.InitResponse{
		AuthorizationURL: "https://checkout.test/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (gw *fakeGateway) Verify(_ context.Context, reference string) (payment.Transaction, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.verified = append(gw.verified, reference)
	return payment.Transaction{
		Reference:   reference,
		Status:      gw.txStatus,
		AmountMinor: gw.txAmount,
		Raw:         json.RawMessage(`{"status":"` + gw.txStatus + `"}`),
	}, nil
}

type fixture struct {
	conf     *core.Config
	app      echoapi.Server
	usrRepo  user.Repository
	sessions *sessionsvc.MemoryStore
	gateway  *fakeGateway
	sender   *emailsvc.ConsoleSender

	owner  user.User
	editor user.User
}

// newFixture serves the whole API on in-memory storage. configure runs before the server is built.
func newFixture(t *testing.T, configure ...func(conf *core.Config)) *fixture {
	t.Helper()

	conf := core.NewTestConfig()
	conf.SiteBaseURL = siteBaseURL
	conf.Payment.SecretKey = webhookSecret
	conf.Media.Dir = t.TempDir()
	conf.Media.BaseURL = "/media"
	conf.RegistrationRateLimit = 0
	for _, fn := range configure {
		fn(conf)
	}

	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator(t)
	files, err := core.ParseEmailTemplates(appfs.FS, "templates/email", conf, true)
	require.NoError(t, err)

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	sender := emailsvc.NewConsoleSenderMock(conf)
	gateway := &fakeGateway{txStatus: payment.StatusPending}
	sessions := sessionsvc.NewMemoryStore()

	mailerSvc := mailer.NewService(inmemdb.NewMailerRepository(db), sender, nil, files, conf, logger)
	referralSvc := referral.NewService(inmemdb.NewReferralRepository(db))
	usrSvc := user.NewService(usrRepo)

	app := echoapi.NewServer(echoapi.Deps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Sessions:    sessions,
		UserSvc:     usrSvc,
		ContentSvc:  content.NewService(inmemdb.NewContentRepository(db), logger),
		StudentSvc:  student.NewService(inmemdb.NewStudentRepository(db), conf, validate, logger),
		PaymentSvc:  payment.NewService(inmemdb.NewPaymentRepository(db), gateway, referralSvc, mailerSvc, conf, logger),
		ReferralSvc: referralSvc,
		MailerSvc:   mailerSvc,
		MediaSvc:    media.NewService(inmemdb.NewMediaRepository(db), disk.New(conf), conf, logger),

		DisableReqLogs: true,
	}, nil)

	return &fixture{
		conf:     conf,
		app:      app,
		usrRepo:  usrRepo,
		sessions: sessions,
		gateway:  gateway,
		sender:   sender,
		owner:    testutil.CreateUser(t, usrRepo, "Ada Owner", "owner@aurora.test", goodPwd, []string{user.RoleAdminOwner}, true),
		editor:   testutil.CreateUser(t, usrRepo, "Eddie Editor", "editor@aurora.test", goodPwd, []string{user.RoleAdminEditor}, true),
	}
}

// cookie returns a valid session cookie for usr.
func (f *fixture) cookie(t *testing.T, usr user.User) *http.Cookie {
	t.Helper()
	claims := echoapi.GetUserClaims(usr, f.conf.AppName, time.Hour)
	token, err := echoapi.GenerateToken(claims, []byte(f.conf.SecretKey))
	require.NoError(t, err)
	return &http.Cookie{Name: echoapi.SessionCookie, Value: token}
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.app.ServeHTTP(rec, req)
	return rec
}

// run serves tt and checks its response code and data.
func (f *fixture) run(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	rec := f.serve(newRequest(tt.method, tt.path, tt.cookie, tt.body))
	checkCodeAndData(t, tt, rec)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	cookie   *http.Cookie
	wantCode int
	wantData []byte
}

func newRequest(method, path string, cookie *http.Cookie, data []byte) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

// newUploadRequest builds a multipart request with a `file` field and extra form fields.
func newUploadRequest(t *testing.T, path string, cookie *http.Cookie, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
