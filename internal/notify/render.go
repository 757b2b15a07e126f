package notify

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/evp-nightshift/messenger/internal/domain"
)

// Envelope is a fully resolved delivery request. Recipient fields come from
// the category mapping captured at submission time.
type Envelope struct {
	Category          string
	RecipientName     string
	RecipientEmail    string
	RecipientPhoneExt string
	SubmitterName     *string
	SubmitterEmail    *string
	SubmitterPhone    *string
	Topic             string
	Body              string
	Timestamp         string
	Anonymous         bool
}

func EnvelopeFromMessage(m *domain.Message) Envelope {
	return Envelope{
		Category:          m.Category,
		RecipientName:     m.RecipientName,
		RecipientEmail:    m.RecipientEmail,
		RecipientPhoneExt: m.RecipientPhoneExt,
		SubmitterName:     m.SubmitterName,
		SubmitterEmail:    m.SubmitterEmail,
		SubmitterPhone:    m.SubmitterPhone,
		Topic:             m.Topic,
		Body:              m.Body,
		Timestamp:         m.Timestamp,
		Anonymous:         m.Anonymous,
	}
}

// Email is what a Mailer transmits. From is filled in by the mailer.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
	Bcc     []string
}

type Branding struct {
	SubjectPrefix string
	SystemName    string
	DefaultSender string
}

func DefaultBranding() Branding {
	return Branding{
		SubjectPrefix: "[Night Shift]",
		SystemName:    "EVP Night Shift Message Sender",
		DefaultSender: "Night Shift Team",
	}
}

var (
	standardGreeting = regexp.MustCompile(`(?i)^Dear\s+[^,\n]+,\s*\n\nI hope this message finds you well\. I am writing to you regarding:\s*\n\n`)
	anyGreeting      = regexp.MustCompile(`(?i)^Dear\s+[^,\n]+,\s*\n\n[^\n]+\n\n`)
)

// splitGreeting separates a leading "Dear ...," salutation (and its opening
// line) from the body proper.
func splitGreeting(body string) (greeting, rest string) {
	for _, re := range []*regexp.Regexp{standardGreeting, anyGreeting} {
		if loc := re.FindStringIndex(body); loc != nil {
			return body[:loc[1]], strings.TrimSpace(body[loc[1]:])
		}
	}
	return "", strings.TrimSpace(body)
}

func escapeLines(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Render builds the anonymous or identified presentation of env. The
// anonymous form never reads the submitter fields.
func Render(env Envelope, b Branding) Email {
	greeting, body := splitGreeting(env.Body)

	var htmlParts, textParts []string
	if greeting != "" {
		htmlParts = append(htmlParts, "<p>"+escapeLines(greeting)+"</p>")
		textParts = append(textParts, greeting)
	}
	if body != "" {
		htmlParts = append(htmlParts, "<p><strong>MESSAGE:</strong></p>\n<p>"+escapeLines(body)+"</p>")
		textParts = append(textParts, "MESSAGE:\n\n"+body)
	}

	email := Email{To: []string{env.RecipientEmail}}

	if env.Anonymous {
		email.Subject = fmt.Sprintf("%s Anonymous Feedback: %s", b.SubjectPrefix, env.Topic)

		notice := fmt.Sprintf("This message was submitted anonymously through the %s system to encourage open and honest feedback. The sender's identity has been protected.", b.SystemName)
		noReply := "If you have any questions or need clarification, please note that this was submitted anonymously and direct response is not available."

		htmlParts = append(htmlParts,
			"<hr>",
			"<p>"+html.EscapeString(notice)+"</p>",
			fmt.Sprintf("<p><small>Submitted: %s<br>Category: %s</small></p>", html.EscapeString(env.Timestamp), html.EscapeString(env.Category)),
			"<p><small>"+html.EscapeString(noReply)+"</small></p>",
		)
		textParts = append(textParts,
			"---\n"+notice,
			fmt.Sprintf("Submitted: %s\nCategory: %s", env.Timestamp, env.Category),
			noReply,
		)
	} else {
		name, addr, phone := deref(env.SubmitterName), deref(env.SubmitterEmail), deref(env.SubmitterPhone)

		sender := name
		if sender == "" {
			sender = b.DefaultSender
		}
		email.Subject = fmt.Sprintf("%s %s - %s", b.SubjectPrefix, env.Topic, sender)

		switch {
		case name != "" && addr != "":
			htmlParts = append(htmlParts, fmt.Sprintf("<p>%s<br>%s</p>", html.EscapeString(name), html.EscapeString(addr)))
			textParts = append(textParts, name+"\n"+addr)
		case addr != "":
			htmlParts = append(htmlParts, "<p>From: "+html.EscapeString(addr)+"</p>")
			textParts = append(textParts, "From: "+addr)
		case name != "":
			htmlParts = append(htmlParts, "<p>"+html.EscapeString(name)+"</p>")
			textParts = append(textParts, name)
		}
		if phone != "" {
			htmlParts = append(htmlParts, "<p>Phone: "+html.EscapeString(phone)+"</p>")
			textParts = append(textParts, "Phone: "+phone)
		}
		if env.RecipientPhoneExt != "" {
			htmlParts = append(htmlParts, "<p>Phone Extension: "+html.EscapeString(env.RecipientPhoneExt)+"</p>")
			textParts = append(textParts, "Phone Extension: "+env.RecipientPhoneExt)
		}

		htmlParts = append(htmlParts,
			"<hr>",
			fmt.Sprintf("<p><small>Submitted via %s<br>Date: %s</small></p>", html.EscapeString(b.SystemName), html.EscapeString(env.Timestamp)),
		)
		textParts = append(textParts, fmt.Sprintf("---\nSubmitted via %s\nDate: %s", b.SystemName, env.Timestamp))

		if addr != "" {
			email.ReplyTo = addr
			email.Bcc = []string{addr}
		}
	}

	email.HTML = strings.Join(htmlParts, "\n")
	email.Text = strings.Join(textParts, "\n\n")
	return email
}
