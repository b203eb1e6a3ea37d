package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

// Template names.
const (
	TemplateModerationDecision = "moderation_decision"
)

// ModerationDecisionData fills the moderation_decision template.
type ModerationDecisionData struct {
	Name     string
	Entity   string
	Title    string
	Approved bool
}

// Renderer renders embedded templates. Each template name maps to three files:
// <name>_subject.txt, <name>.html and <name>.txt.
type Renderer struct{}

// NewRenderer returns a renderer over the embedded templates.
func NewRenderer() *Renderer { return &Renderer{} }

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (subject, html, text string, err error) {
	subject, err = r.renderFile(name+"_subject.txt", data, false)
	if err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	html, err = r.renderFile(name+".html", data, true)
	if err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	text, err = r.renderFile(name+".txt", data, false)
	if err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return strings.TrimSpace(subject), html, text, nil
}

// Message renders name for recipient to.
func (r *Renderer) Message(to, name string, data any) (Message, error) {
	subject, html, text, err := r.Render(name, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: html, Text: text}, nil
}

func (r *Renderer) renderFile(name string, data any, html bool) (string, error) {
	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if html {
		t, err := htmltemplate.New(name).Parse(string(raw))
		if err != nil {
			return "", err
		}
		if err := t.Execute(&buf, data); err != nil {
			return "", err
		}
	} else {
		t, err := texttemplate.New(name).Parse(string(raw))
		if err != nil {
			return "", err
		}
		if err := t.Execute(&buf, data); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
