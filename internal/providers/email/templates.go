package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// InvitationData fills the team invitation email.
type InvitationData struct {
	To          string
	InviterName string
	CompanyName string
	Role        string
	InviteLink  string
}

// InvitationMessage renders the email sent when someone is invited to a
// company.
func InvitationMessage(data InvitationData) (Message, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, "invitation.html", data); err != nil {
		return Message{}, fmt.Errorf("email: render invitation: %w", err)
	}
	return Message{
		To:       []string{data.To},
		Subject:  fmt.Sprintf("You've been invited to join %s on Aquivis", data.CompanyName),
		HTMLBody: body.String(),
	}, nil
}
