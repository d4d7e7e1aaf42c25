package emailsvc

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
)

type nopLogger struct{ errors []string }

func (l *nopLogger) Debug(string, ...interface{})       {}
func (l *nopLogger) Info(string, ...interface{})        {}
func (l *nopLogger) Warn(string, ...interface{})        {}
func (l *nopLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
func (l *nopLogger) Fatal(string, ...interface{})       {}

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Asistencia",
		DefaultFromEmail: mail.Address{Name: "Asistencia", Address: "noreply@example.com"},
		SendgridApiKey:   "key",
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	tmpls, err := core.ParseEmailTemplates("Asistencia", "http://localhost")
	require.NoError(t, err)
	logger := new(nopLogger)
	svc := NewConsoleServiceMock(tmpls, testConfig(), logger)
	ResetSentMessages()

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Address: "ana@example.com"}},
			Subject:      "Shoes",
			TemplateName: "report",
			TemplateData: map[string]interface{}{"Type": "uniform", "StudentName": "Ana", "Subject": "Shoes", "Body": "Black shoes only"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "ignored"},
		&core.EmailMessage{To: []mail.Address{{Address: "x@example.com"}}, TemplateName: "unknown"},
	)

	sent := Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Black shoes only")
	assert.Contains(t, sent[0].HTMLContent, "Ana")
	assert.Len(t, logger.errors, 1)
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(nil, testConfig(), new(nopLogger)).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Ana", Address: "ana@example.com"}},
		Bcc:         []mail.Address{{Address: "admin@example.com"}},
		Subject:     "Password changed",
		TextContent: "text",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Asistencia] Password changed", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ana@example.com", p.To[0].Address)
	assert.Len(t, p.BCC, 1)
	assert.Equal(t, "noreply@example.com", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Empty(t, m.Categories)

	m = svc.prepare(core.EmailMessage{
		To:           []mail.Address{{Address: "ana@example.com"}},
		Subject:      "Shoes",
		TemplateName: "report",
		TextContent:  "text",
		HTMLContent:  "<p>html</p>",
	})
	assert.Equal(t, []string{"report"}, m.Categories)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/html", m.Content[1].Type)
}

func TestMimeDocument(t *testing.T) {
	date := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	doc, err := mimeDocument(
		mail.Address{Name: "Asistencia", Address: "noreply@example.com"},
		"[Asistencia] Shoes",
		core.EmailMessage{
			To:          []mail.Address{{Name: "Ana", Address: "ana@example.com"}, {Address: "ben@example.com"}},
			TextContent: "Black shoes only",
		},
		date,
	)
	require.NoError(t, err)
	assert.Contains(t, doc, "Subject: [Asistencia] Shoes\r\n")
	assert.Contains(t, doc, "To: \"Ana\" <ana@example.com>, <ben@example.com>\r\n")
	assert.Contains(t, doc, "Date: Mon, 03 Mar 2025 08:00:00 +0000\r\n")
	assert.NotContains(t, doc, "CC:")
	assert.Contains(t, doc, "Content-Type: text/plain; charset=utf-8")
	assert.NotContains(t, doc, "text/html")
	assert.Contains(t, doc, "Black shoes only")
}

func textMessages(n int) []*core.EmailMessage {
	msgs := make([]*core.EmailMessage, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &core.EmailMessage{To: []mail.Address{{Address: "x@example.com"}}, BodyStr: "hi"})
	}
	return msgs
}

func TestDispatcher_bounded(t *testing.T) {
	tmpls, err := core.ParseEmailTemplates("Asistencia", "http://localhost")
	require.NoError(t, err)

	var (
		mu             sync.Mutex
		inFlight, peak int
		delivered      int
	)
	d := newDispatcher(tmpls, new(nopLogger), false)
	deliver := func(core.EmailMessage) error {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		delivered++
		mu.Unlock()
		return nil
	}

	n := 3 * maxInFlight
	d.dispatch(deliver, textMessages(n)...)
	require.NoError(t, d.Drain(context.Background()))

	assert.Equal(t, n, delivered)
	assert.LessOrEqual(t, peak, maxInFlight)
	assert.Positive(t, peak)
}

func TestDispatcher_Drain(t *testing.T) {
	tmpls, err := core.ParseEmailTemplates("Asistencia", "http://localhost")
	require.NoError(t, err)

	release := make(chan struct{})
	d := newDispatcher(tmpls, new(nopLogger), false)
	d.dispatch(func(core.EmailMessage) error {
		<-release
		return nil
	}, textMessages(maxInFlight+2)...)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = d.Drain(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "10 emails not delivered")

	close(release)
	assert.NoError(t, d.Drain(context.Background()))
	assert.Zero(t, d.pending.Load())

	// inline dispatchers have nothing to wait for
	assert.NoError(t, newDispatcher(tmpls, new(nopLogger), true).Drain(context.Background()))
}
