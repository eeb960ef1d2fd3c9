package service

import (
	"html/template"
	"io"

	"github.com/Laisky/errors/v2"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
)

var previewTpl = template.Must(template.New("preview").Funcs(template.FuncMap{
	"markdown": renderMarkdown,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; color: #1f2937; }
article { border-left: 3px solid #7C3AED; padding: 0 1rem; margin-bottom: 2rem; }
time { color: #6b7280; font-size: .9rem; }
img { max-width: 100%; border-radius: 6px; }
.embed { display: block; margin: .5rem 0; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
{{- range .Entries }}
<article>
<time>{{ .Date }}</time>
<div class="text">{{ markdown .Text }}</div>
{{- range .Media.Items }}
{{- if eq .Type "image" }}
<img src="{{ .URL }}" alt="" loading="lazy">
{{- else }}
<a class="embed" data-platform="{{ .Platform }}" href="{{ .URL }}" target="_blank" rel="noopener">{{ .URL }}</a>
{{- end }}
{{- end }}
</article>
{{- else }}
<p>No entries yet.</p>
{{- end }}
</body>
</html>
`))

// renderMarkdown renders user text, raw html in the source is dropped
func renderMarkdown(text string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML | html.Safelink,
	})

	return template.HTML(markdown.ToHTML([]byte(text), p, renderer)) // nolint: gosec
}

// RenderPreview writes entries as an html page, newest first
func RenderPreview(w io.Writer, title string, entries []*model.Entry) error {
	newestFirst := make([]*model.Entry, len(entries))
	for i, e := range entries {
		newestFirst[len(entries)-1-i] = e
	}

	if err := previewTpl.Execute(w, struct {
		Title   string
		Entries []*model.Entry
	}{
		Title:   title,
		Entries: newestFirst,
	}); err != nil {
		return errors.Wrap(err, "render preview")
	}

	return nil
}
