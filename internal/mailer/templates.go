package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateVerifyEmail   = "verify_email"
	TemplateResetPassword = "reset_password"
)

// Templates renders the transactional emails sent by the auth flows.
type Templates struct {
	tmpl        *template.Template
	verifyURL   string
	resetURL    string
	productName string
}

func NewTemplates(productName, verifyURL, resetURL string) (*Templates, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Templates{tmpl: tmpl, verifyURL: verifyURL, resetURL: resetURL, productName: productName}, nil
}

type linkData struct {
	Product string
	Link    string
	Code    string
	TTL     string
}

// VerifyEmail returns the subject and body for an address confirmation email.
func (t *Templates) VerifyEmail(email, code, ttl string) (string, string, error) {
	link, err := withQuery(t.verifyURL, url.Values{"email": {email}, "code": {code}})
	if err != nil {
		return "", "", err
	}
	body, err := t.render(TemplateVerifyEmail, linkData{Product: t.productName, Link: link, Code: code, TTL: ttl})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("Verify your %s email address", t.productName), body, nil
}

// ResetPassword returns the subject and body for a password reset email.
func (t *Templates) ResetPassword(userID, code, ttl string) (string, string, error) {
	link, err := withQuery(t.resetURL, url.Values{"userId": {userID}, "code": {code}})
	if err != nil {
		return "", "", err
	}
	body, err := t.render(TemplateResetPassword, linkData{Product: t.productName, Link: link, Code: code, TTL: ttl})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("Reset your %s password", t.productName), body, nil
}

func (t *Templates) render(name string, data linkData) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func withQuery(base string, q url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse link base %q: %w", base, err)
	}
	existing := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			existing.Add(k, v)
		}
	}
	u.RawQuery = existing.Encode()
	return u.String(), nil
}
