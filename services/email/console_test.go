package emailsvc

import (
	"log"
	"net/mail"
	"os"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tarpaulin/core"
	logsvc "github.com/trezcool/tarpaulin/services/logger"
)

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	conf := &core.Config{AppName: "Tarpaulin", Email: core.EmailConfig{DefaultFrom: "noreply@localhost"}}
	svc := NewConsoleServiceMock(conf, logsvc.NewRollbarLogger(log.New(os.Stdout, "", 0), conf))

	tmpl := template.Must(template.New("hello").Parse("Hello {{.}}!"))
	to := []mail.Address{{Address: "a@b.com"}}
	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "plain", BodyStr: "Hi."},
		&core.EmailMessage{To: to, Subject: "templated", Template: tmpl, TemplateData: "Ada"},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "Hi."},
		&core.EmailMessage{To: to, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Hi.", sent[0].TextContent)
	assert.Equal(t, "Hello Ada!", sent[1].TextContent)
}
