package notify

import (
	"embed"
	"fmt"
	"math"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*
var templateFS embed.FS

type template struct {
	subject string
	text    *pongo2.Template
	html    *pongo2.Template
}

// Renderer turns Messages into Emails using the embedded pongo2 templates.
type Renderer struct {
	site      string
	templates map[Kind]template
}

var subjects = map[Kind]string{
	KindVerification:  "Verify your email address",
	KindPasswordReset: "Reset your password",
}

// NewRenderer parses the embedded templates. site is the product name shown
// in emails.
func NewRenderer(site string) (*Renderer, error) {
	r := &Renderer{site: site, templates: make(map[Kind]template, len(subjects))}

	for kind, subject := range subjects {
		text, err := parseTemplate(string(kind) + ".txt")
		if err != nil {
			return nil, err
		}
		html, err := parseTemplate(string(kind) + ".html")
		if err != nil {
			return nil, err
		}
		r.templates[kind] = template{subject: subject, text: text, html: html}
	}
	return r, nil
}

func parseTemplate(name string) (*pongo2.Template, error) {
	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", name, err)
	}
	tpl, err := pongo2.FromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	return tpl, nil
}

// Render builds the Email for msg. From fields are left empty.
func (r *Renderer) Render(kind Kind, msg Message) (*Email, error) {
	tpl, ok := r.templates[kind]
	if !ok {
		return nil, fmt.Errorf("no template for %q", kind)
	}

	name := msg.Name
	if name == "" {
		name = msg.Email
	}
	ctx := pongo2.Context{
		"site":          r.site,
		"name":          name,
		"email":         msg.Email,
		"link":          msg.Link,
		"expires_hours": int(math.Ceil(msg.ExpiresIn.Hours())),
	}

	text, err := tpl.text.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("rendering %s text: %w", kind, err)
	}
	html, err := tpl.html.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("rendering %s html: %w", kind, err)
	}

	return &Email{
		Kind:      kind,
		AccountID: msg.AccountID,
		To:        msg.Email,
		ToName:    msg.Name,
		Subject:   fmt.Sprintf("[%s] %s", r.site, tpl.subject),
		Text:      text,
		HTML:      html,
	}, nil
}
