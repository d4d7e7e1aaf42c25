package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/asistencia/apps/api/echo"
	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/access"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/projection"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/setting"
	"github.com/trezcool/asistencia/core/user"
	"github.com/trezcool/asistencia/services/email"
	"github.com/trezcool/asistencia/services/logger"
	"github.com/trezcool/asistencia/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app        Server
	conf       *core.Config
	usrRepo    user.Repository
	schoolRepo school.Repository
	attRepo    attendance.Repository
}

func setup(t *testing.T) *testEnv {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	// set up DB & repos
	db := inmemdb.Open()
	env := &testEnv{
		conf:       conf,
		usrRepo:    inmemdb.NewUserRepository(db),
		schoolRepo: inmemdb.NewSchoolRepository(db),
		attRepo:    inmemdb.NewAttendanceRepository(db),
	}

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	tmpls, err := core.ParseEmailTemplates(conf.AppName, conf.FrontendBaseURL)
	require.NoError(t, err)
	mailSvc := emailsvc.NewConsoleServiceMock(tmpls, conf, logger)
	emailsvc.ResetSentMessages()
	validate, translator := core.NewValidator()

	usrSvc := user.NewService(env.usrRepo, inmemdb.NewTokenStore(db), mailSvc, validate, translator, conf.PasswordResetTimeoutDelta)
	schoolSvc := school.NewService(env.schoolRepo, env.usrRepo, validate, translator)
	attSvc := attendance.NewService(env.attRepo, schoolSvc, validate, translator)
	reportSvc := report.NewService(inmemdb.NewReportRepository(db), schoolSvc, mailSvc, logger)

	// set up server
	env.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		SchoolSvc:      schoolSvc,
		AttendanceSvc:  attSvc,
		ReportSvc:      reportSvc,
		SettingSvc:     setting.NewService(inmemdb.NewSettingRepository(db), validate, translator),
		ProjectionSvc:  projection.NewService(attSvc, schoolSvc),
		Guard:          access.NewGuard(schoolSvc, reportSvc),
	})
	return env
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

func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateUserToken(env.conf, usr)
	require.NoError(t, err)
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func itoa(i int) string { return strconv.Itoa(i) }
