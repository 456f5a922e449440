package format

import "strings"

// DefaultTemplate attributes a message body to its sender.
const DefaultTemplate = "[{sender}] {body}"

// Formatter renders relayed messages using a template with {sender} and
// {body} placeholders.
type Formatter struct {
	template string
}

// New returns a Formatter for template, falling back to DefaultTemplate.
func New(template string) *Formatter {
	if template == "" {
		template = DefaultTemplate
	}
	return &Formatter{template: template}
}

// Format substitutes sender and body in a single pass, so placeholder text
// inside either value is left as is.
func (f *Formatter) Format(sender, body string) string {
	r := strings.NewReplacer("{sender}", sender, "{body}", body)
	return r.Replace(f.template)
}

// Template returns the configured template.
func (f *Formatter) Template() string {
	return f.template
}
