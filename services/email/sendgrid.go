package emailsvc

import (
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/asistencia/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridService struct {
	dispatcher
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ Service = (*sendgridService)(nil)

// NewSendgridService sends the messages through the sendgrid v3 API, retrying when rate limited.
func NewSendgridService(tmpls *core.EmailTemplates, conf *core.Config, logger core.Logger) Service {
	return &sendgridService{
		dispatcher: newDispatcher(tmpls, logger, false),
		key:        conf.SendgridApiKey,
		from:       sgEmail(conf.DefaultFromEmail),
		subjPrefix: subjectPrefix(conf),
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	svc.dispatch(svc.send, messages...)
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

// prepare builds a single personalization; the template name is used as category.
func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, addr := range msg.To {
		p.AddTos(sgEmail(addr))
	}
	for _, addr := range msg.Cc {
		p.AddCCs(sgEmail(addr))
	}
	for _, addr := range msg.Bcc {
		p.AddBCCs(sgEmail(addr))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc *sendgridService) send(msg core.EmailMessage) error {
	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.MakeRequestRetry(req)
	if err != nil {
		return errors.Wrap(err, "sendgrid request")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
