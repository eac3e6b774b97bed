package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/skripsi/apps/api/echo"
	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/thesis"
	"github.com/trezcool/skripsi/core/user"
	emailsvc "github.com/trezcool/skripsi/services/email"
	"github.com/trezcool/skripsi/services/metrics"
	"github.com/trezcool/skripsi/services/realtime"
	inmemdb "github.com/trezcool/skripsi/storage/database/inmem"
	testutil "github.com/trezcool/skripsi/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(core.NewNopLogger(), true)
	user.LoadCommonPasswords(core.NewNopLogger())
	os.Exit(m.Run())
}

type testApp struct {
	conf      *core.Config
	server    echoapi.Server
	usrRepo   user.Repository
	mailSvc   *emailsvc.ConsoleService
	thesisSvc thesis.Service
	notifSvc  notification.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewTestConfig()
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	thesis.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	app := &testApp{
		conf:    conf,
		usrRepo: inmemdb.NewUserRepository(db),
		mailSvc: emailsvc.NewConsoleServiceMock(conf),
	}

	// set up services
	reg := prometheus.NewRegistry()
	mtr := metrics.New(reg)
	usrSvc := user.NewServiceMock(app.usrRepo, app.mailSvc, conf)
	app.notifSvc = notification.NewServiceMock(
		inmemdb.NewNotificationRepository(db), realtime.NewLocalBroker(), usrSvc, app.mailSvc, mtr,
	)
	app.thesisSvc = thesis.NewService(inmemdb.NewThesisRepository(db), usrSvc, app.notifSvc, mtr, core.NewNopLogger())

	// set up server
	app.server = echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     core.NewNopLogger(),
		UserSvc:    usrSvc,
		ThesisSvc:  app.thesisSvc,
		NotifSvc:   app.notifSvc,
		Validate:   validate,
		Translator: translator,
		Metrics:    mtr,
		Gatherer:   reg,
	})
	return app
}

func (app *testApp) createUser(t *testing.T, name string, roles ...string) user.User {
	t.Helper()
	uname := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	return testutil.CreateUser(t, app.usrRepo, name, uname, uname+"@kampus.ac.id", "", roles, true)
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(app.conf, echoapi.GetUserClaims(app.conf, usr))
	require.NoError(t, err)
	return token
}

// do serves the request & decodes the JSON response into out, if given.
func (app *testApp) do(t *testing.T, method, path, token string, body interface{}, out ...interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.server.ServeHTTP(rec, req)
	if len(out) > 0 && rec.Code < http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out[0]), rec.Body.String())
	}
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
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
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
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

var bgCtx = context.Background()
