package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sk-sanagustin/yep-id/internal/models"
)

const layout = `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h2 style="color: #002e6a;">{{.Heading}}</h2>
<p>Dear {{.Name}},</p>
{{.Body}}
<p>Best regards,<br>{{.Organization}}</p>
</div>
</body>
</html>`

var page = template.Must(template.New("page").Parse(layout))

var (
	registrationBody = template.Must(template.New("registration").Parse(`<p>Thank you for registering with {{.Organization}}.</p>
<p>Your registration has been successful. Your unique QR code is attached to this email.</p>
<img src="cid:qrcode" alt="QR code" width="250" height="250">
<ul>
<li><strong>ID:</strong> {{.DisplayID}}</li>
<li><strong>Name:</strong> {{.Name}}</li>
<li><strong>Email:</strong> {{.Email}}</li>
<li><strong>Phone:</strong> {{if .Phone}}{{.Phone}}{{else}}Not provided{{end}}</li>
<li><strong>Registration Date:</strong> {{.Registered}}</li>
</ul>
<p>Please keep this QR code safe. Present it at events so your attendance can be recorded.</p>`))

	attendanceBody = template.Must(template.New("attendance").Parse(`<p>Your attendance for the event <strong>"{{.Event}}"</strong> has been successfully recorded.</p>
<p><strong>Points Earned:</strong> {{.Points}}</p>
<p>Thank you for your participation!</p>`))

	reminderBody = template.Must(template.New("reminder").Parse(`<p>This is a reminder that you have an upcoming event:</p>
<ul>
<li><strong>Event:</strong> {{.Event}}</li>
<li><strong>Date:</strong> {{.Date}}</li>
<li><strong>Time:</strong> {{.Time}}</li>
</ul>
<p>We look forward to seeing you there!</p>`))

	pointsBody = template.Must(template.New("points").Parse(`<p>Your current points status:</p>
<ul>
<li><strong>Total Points:</strong> {{.Total}}</li>
<li><strong>Events Attended:</strong> {{.Events}}</li>
</ul>
<p>Keep up the great participation!</p>`))

	announcementBody = template.Must(template.New("announcement").Parse(`{{range .Paragraphs}}<p>{{.}}</p>
{{end}}`))
)

// EmailNotifier renders participant notifications and hands them to a Mailer.
type EmailNotifier struct {
	mailer       Mailer
	organization string
}

func NewEmailNotifier(mailer Mailer, organization string) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, organization: organization}
}

func (n *EmailNotifier) render(heading, name string, body *template.Template, data any) (string, error) {
	var inner bytes.Buffer
	if err := body.Execute(&inner, data); err != nil {
		return "", err
	}

	var out bytes.Buffer
	err := page.Execute(&out, map[string]any{
		"Heading":      heading,
		"Name":         name,
		"Body":         template.HTML(inner.String()),
		"Organization": n.organization,
	})
	return out.String(), err
}

func (n *EmailNotifier) send(p models.Participant, subject, text, html string, attachments ...Attachment) error {
	if n.mailer == nil {
		return ErrNotConfigured
	}
	if p.Email == "" {
		return fmt.Errorf("participant %s has no email address", p.DisplayID)
	}
	return n.mailer.Send(Message{
		To:          p.Email,
		Subject:     subject,
		Text:        text,
		HTML:        html,
		Attachments: attachments,
	})
}

func (n *EmailNotifier) signature(text string) string {
	return fmt.Sprintf("%s\n\nBest regards,\n%s\n", text, n.organization)
}

func (n *EmailNotifier) NotifyRegistration(p models.Participant, qrPNG []byte) error {
	registered := p.RegisteredAt.Local().Format(time.DateTime)
	html, err := n.render("Welcome, "+p.Name+"!", p.Name, registrationBody, map[string]any{
		"Organization": n.organization,
		"DisplayID":    p.DisplayID,
		"Name":         p.Name,
		"Email":        p.Email,
		"Phone":        p.Phone,
		"Registered":   registered,
	})
	if err != nil {
		return err
	}

	text := n.signature(fmt.Sprintf("Dear %s,\n\nThank you for registering with %s.\nYour ID is %s. Your QR code is attached to this email; present it at events so your attendance can be recorded.\n\nRegistration Date: %s",
		p.Name, n.organization, p.DisplayID, registered))

	var attachments []Attachment
	if len(qrPNG) > 0 {
		attachments = append(attachments, Attachment{
			Filename:    "qrcode.png",
			ContentType: "image/png",
			ContentID:   "qrcode",
			Data:        qrPNG,
		})
	}

	return n.send(p, "Your Registration QR Code - "+n.organization, text, html, attachments...)
}

func (n *EmailNotifier) NotifyAttendance(p models.Participant, event models.Event, pointsEarned int) error {
	html, err := n.render("Attendance Confirmed", p.Name, attendanceBody, map[string]any{
		"Event":  event.Name,
		"Points": pointsEarned,
	})
	if err != nil {
		return err
	}

	text := n.signature(fmt.Sprintf("Dear %s,\n\nYour attendance for the event %q has been successfully recorded.\n\nPoints Earned: %d\n\nThank you for your participation!",
		p.Name, event.Name, pointsEarned))

	return n.send(p, "Attendance Confirmed - "+event.Name, text, html)
}

func (n *EmailNotifier) NotifyReminder(p models.Participant, event models.Event) error {
	html, err := n.render("Event Reminder", p.Name, reminderBody, map[string]any{
		"Event": event.Name,
		"Date":  event.Date,
		"Time":  event.Time,
	})
	if err != nil {
		return err
	}

	text := n.signature(fmt.Sprintf("Dear %s,\n\nThis is a reminder that you have an upcoming event:\n\nEvent: %s\nDate: %s\nTime: %s\n\nWe look forward to seeing you there!",
		p.Name, event.Name, event.Date, event.Time))

	return n.send(p, "Reminder: "+event.Name, text, html)
}

func (n *EmailNotifier) NotifyPoints(p models.Participant, totalPoints, eventsAttended int) error {
	html, err := n.render("Points Update", p.Name, pointsBody, map[string]any{
		"Total":  totalPoints,
		"Events": eventsAttended,
	})
	if err != nil {
		return err
	}

	text := n.signature(fmt.Sprintf("Dear %s,\n\nYour current points status:\n\nTotal Points: %d\nEvents Attended: %d\n\nKeep up the great participation!",
		p.Name, totalPoints, eventsAttended))

	return n.send(p, "Your Points Update - "+n.organization, text, html)
}

func (n *EmailNotifier) Announce(p models.Participant, subject, message string) error {
	html, err := n.render(subject, p.Name, announcementBody, map[string]any{
		"Paragraphs": strings.Split(strings.TrimSpace(message), "\n\n"),
	})
	if err != nil {
		return err
	}

	return n.send(p, subject, n.signature(fmt.Sprintf("Dear %s,\n\n%s", p.Name, message)), html)
}
