package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

// recorded messages of the console mocks
var (
	sentMu sync.Mutex
	sent   = make([]core.EmailMessage, 0)
)

type consoleService struct {
	dispatcher
	from       mail.Address
	subjPrefix string
	out        io.Writer // nil: record only
}

var _ Service = (*consoleService)(nil)

// NewConsoleService prints the messages as MIME documents on the std logger instead of sending them.
func NewConsoleService(tmpls *core.EmailTemplates, conf *core.Config, logger core.Logger) Service {
	return &consoleService{
		dispatcher: newDispatcher(tmpls, logger, false),
		from:       conf.DefaultFromEmail,
		subjPrefix: subjectPrefix(conf),
		out:        log.Writer(),
	}
}

// NewConsoleServiceMock renders & records the messages synchronously, without printing them.
// See Sent and ResetSentMessages.
func NewConsoleServiceMock(tmpls *core.EmailTemplates, conf *core.Config, logger core.Logger) Service {
	return &consoleService{
		dispatcher: newDispatcher(tmpls, logger, true),
		from:       conf.DefaultFromEmail,
		subjPrefix: subjectPrefix(conf),
	}
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	svc.dispatch(svc.print, messages...)
}

func (svc *consoleService) print(msg core.EmailMessage) error {
	if svc.out == nil {
		sentMu.Lock()
		sent = append(sent, msg)
		sentMu.Unlock()
		return nil
	}
	doc, err := mimeDocument(svc.from, svc.subjPrefix+msg.Subject, msg, time.Now())
	if err != nil {
		return err
	}
	_, err = io.WriteString(svc.out, doc)
	return errors.Wrap(err, "printing email")
}

// mimeDocument renders msg as a multipart/alternative document.
func mimeDocument(from mail.Address, subject string, msg core.EmailMessage, date time.Time) (string, error) {
	var doc strings.Builder
	headers := []struct{ key, value string }{
		{"From", from.String()},
		{"MIME-Version", "1.0"},
		{"Date", date.Format(time.RFC1123Z)},
		{"Subject", subject},
		{"To", joinAddresses(msg.To)},
		{"CC", joinAddresses(msg.Cc)},
		{"BCC", joinAddresses(msg.Bcc)},
	}
	for _, h := range headers {
		if h.value != "" {
			_, _ = fmt.Fprintf(&doc, "%s: %s\r\n", h.key, h.value)
		}
	}

	parts := multipart.NewWriter(&doc)
	_, _ = fmt.Fprintf(&doc, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", parts.Boundary())
	for _, c := range []struct{ typ, body string }{{"text/plain", msg.TextContent}, {"text/html", msg.HTMLContent}} {
		if c.body == "" {
			continue
		}
		w, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {c.typ + "; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", c.typ)
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", c.body)
	}
	if err := parts.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return doc.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	res := make([]string, 0, len(addrs))
	for _, a := range addrs {
		res = append(res, a.String())
	}
	return strings.Join(res, ", ")
}

// ResetSentMessages clears the messages recorded so far.
func ResetSentMessages() {
	sentMu.Lock()
	sent = make([]core.EmailMessage, 0)
	sentMu.Unlock()
}

// Sent returns a copy of the messages recorded so far.
func Sent() []core.EmailMessage {
	sentMu.Lock()
	defer sentMu.Unlock()
	return append([]core.EmailMessage(nil), sent...)
}
