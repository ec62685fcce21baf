package wikifuse

// Converter converts HTML fragments to Markdown.
type Converter interface {
	// Convert transforms an HTML fragment, such as a sanitized description
	// extracted in html mode, into Markdown.
	Convert(html string) (string, error)
}
