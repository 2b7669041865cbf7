package email

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"text/template"
	"time"
	"unicode"
)

// Template names.
const (
	TemplateBookRequested = "book_requested"
	TemplateBookSold      = "book_sold"
)

// TemplateHeader names the template a rendered message was built from.
const TemplateHeader = "X-Bookxchange-Template"

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + "_subject").Parse(subject)),
		body:    template.Must(template.New(name + "_body").Parse(body)),
	}
}

var templates = map[string]messageTemplate{
	TemplateBookRequested: mustTemplate(TemplateBookRequested,
		`{{.AppName}}: {{.RequesterName}} wants "{{.Title}}"`,
		`Hi {{.SellerName}},

{{.RequesterName}} has requested your listing "{{.Title}}" ({{.Subject}}, {{.Semester}}).
Get in touch with them to arrange the hand-over, then mark the book as sold.

{{.AppName}}
`),
	TemplateBookSold: mustTemplate(TemplateBookSold,
		`{{.AppName}}: "{{.Title}}" has been marked sold`,
		`Hi {{.RequesterName}},

{{.SellerName}} has marked "{{.Title}}" as sold. Happy studying!

{{.AppName}}
`),
}

// Render fills the named template with data and returns the subject and a complete
// plain-text message ready for a Sender.
func Render(templateName, from, to string, data interface{}) (string, []byte, error) {
	tmpl, ok := templates[templateName]
	if !ok {
		return "", nil, fmt.Errorf("unknown email template %q", templateName)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return "", nil, fmt.Errorf("failed to render subject of %s: %w", templateName, err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return "", nil, fmt.Errorf("failed to render body of %s: %w", templateName, err)
	}

	subj := stripControl(strings.TrimSpace(subject.String()))
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", stripControl(to))
	fmt.Fprintf(&sb, "From: %s\r\n", stripControl(from))
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subj))
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "%s: %s\r\n", TemplateHeader, templateName)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))
	return subj, []byte(sb.String()), nil
}

// stripControl drops control characters so a value cannot end its header line.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
