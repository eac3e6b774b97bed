package emailsvc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skripsi/core"
)

func newMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Budi", Address: "budi@kampus.ac.id"}},
		Subject:      "Jadwal seminar hasil",
		TemplateName: "notification",
		TemplateData: map[string]string{
			"Name":    "Budi",
			"Title":   "Jadwal seminar hasil",
			"Message": "Seminar hasil dijadwalkan.",
			"Link":    "/proposals/42",
		},
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(core.NewNopLogger(), true)
	svc := NewConsoleServiceMock(conf)

	svc.SendMessages(
		newMessage(),
		&core.EmailMessage{Subject: "no recipient", BodyStr: "ignored"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@b.c"}}, Subject: "no content"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Hello Budi")
	assert.Contains(t, sent[0].TextContent, conf.FrontendBaseURL+"/proposals/42")
	assert.Contains(t, sent[0].HTMLContent, "Seminar hasil dijadwalkan.")

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestConsoleService_Format(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf)

	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "budi@kampus.ac.id"}},
		Subject:     "Hi",
		TextContent: "plain body",
		HTMLContent: "<p>html body</p>",
	}
	require.NoError(t, msg.Attach(strings.NewReader("file content"), "notes.txt", "text/plain"))

	body, err := svc.format(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: ["+conf.AppName+"] Hi")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "plain body")
	assert.Contains(t, body, "<p>html body</p>")
	assert.Contains(t, body, "filename=notes.txt")
	assert.NotContains(t, body, "CC:")
}

func TestSendgridService_Send(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SendgridApiKey = "SG.test"
	core.ParseEmailTemplates(core.NewNopLogger(), true)

	tests := []struct {
		name      string
		statuses  []int
		wantOK    bool
		wantCalls int32
	}{
		{name: "accepted", statuses: []int{http.StatusAccepted}, wantOK: true, wantCalls: 1},
		{name: "retried server error", statuses: []int{http.StatusBadGateway, http.StatusAccepted}, wantOK: true, wantCalls: 2},
		{name: "client error not retried", statuses: []int{http.StatusBadRequest}, wantOK: false, wantCalls: 1},
		{name: "gives up", statuses: []int{500, 500, 500}, wantOK: false, wantCalls: sendgridAttempts},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			var payload map[string]interface{}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				assert.Equal(t, sendgridEndpoint, r.URL.Path)
				assert.Equal(t, "Bearer "+conf.SendgridApiKey, r.Header.Get("Authorization"))
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &payload)
				w.WriteHeader(tc.statuses[n-1])
			}))
			defer srv.Close()

			svc := newSendgridService(conf, core.NewNopLogger(), srv.URL)
			svc.backoff = 0

			msg := newMessage()
			require.NoError(t, msg.Render(conf.FrontendBaseURL))
			assert.Equal(t, tc.wantOK, svc.send(*msg))
			assert.Equal(t, tc.wantCalls, atomic.LoadInt32(&calls))

			pers := payload["personalizations"].([]interface{})[0].(map[string]interface{})
			assert.Equal(t, "["+conf.AppName+"] Jadwal seminar hasil", pers["subject"])
		})
	}
}
