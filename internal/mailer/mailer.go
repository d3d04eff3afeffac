package mailer

import (
	"bytes"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/blogadmin/internal/db"
)

// Notifier 在文章创建后向操作者发送通知邮件。
type Notifier interface {
	PostCreated(to string, post *db.Post) error
}

var messageTemplate = template.Must(template.New("post_created").Parse(`Subject: 新文章已创建: {{.Post.Title}}
From: {{.From}}
To: {{.To}}
Content-Type: text/plain; charset=UTF-8

文章《{{.Post.Title}}》已创建成功。

查看文章: {{.BaseURL}}/admin/posts/{{.Post.ID}}
`))

// SMTPMailer sends notifications through a plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	baseURL  string
}

// New returns an SMTP backed Notifier, or a logging no-op one when no SMTP
// host is configured so that local development works without a relay.
func New(host, port, username, password, from, baseURL string) Notifier {
	if strings.TrimSpace(host) == "" {
		return &disabledMailer{}
	}

	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// PostCreated sends the creation notification to the acting user.
func (m *SMTPMailer) PostCreated(to string, post *db.Post) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("notification recipient is empty")
	}

	msg, err := buildMessage(m.from, to, m.baseURL, post)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
}

func buildMessage(from, to, baseURL string, post *db.Post) ([]byte, error) {
	var buf bytes.Buffer
	err := messageTemplate.Execute(&buf, map[string]interface{}{
		"From":    from,
		"To":      to,
		"BaseURL": baseURL,
		"Post":    post,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type disabledMailer struct{}

func (m *disabledMailer) PostCreated(to string, post *db.Post) error {
	log.Printf("mailer disabled, skipping notification to %s for post %d", to, post.ID)
	return nil
}
