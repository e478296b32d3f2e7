package server

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"daily_story_server/generator"
)

const storyPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 42rem; margin: 3rem auto; padding: 0 1rem; color: #222; }
h1 { font-size: 1.8rem; margin-bottom: 0.2rem; }
.subtitle { color: #666; font-style: italic; margin-top: 0; }
blockquote { border-left: 3px solid #b58900; margin: 1.5rem 0; padding: 0.2rem 1rem; color: #555; font-style: italic; }
.error { background: #fdecea; border: 1px solid #f5c6cb; color: #721c24; padding: 0.8rem 1rem; border-radius: 4px; }
.meta { color: #999; font-size: 0.85rem; margin-top: 2rem; }
pre.raw { white-space: pre-wrap; background: #f7f7f7; padding: 1rem; border-radius: 4px; }
</style>
</head>
<body>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if .Name}}
<h1>{{.Name}}</h1>
{{if .Subtitle}}<p class="subtitle">{{.Subtitle}}</p>{{end}}
<div class="story">{{.ContentHTML}}</div>
{{if .Quote}}<blockquote>{{.Quote}}</blockquote>{{end}}
{{else if .Text}}
<pre class="raw">{{.Text}}</pre>
{{end}}
{{if .IsProcessing}}<p class="meta">A new story is being written right now. Refresh in a moment.</p>{{end}}
{{if .LastModified}}<p class="meta">Generated {{.LastModified}}</p>{{end}}
</body>
</html>
`

type storyPage struct {
	Title        string
	Name         string
	Subtitle     string
	ContentHTML  template.HTML
	Quote        string
	Text         string
	Error        string
	IsProcessing bool
	LastModified string
}

// StoryRenderer turns a result snapshot into a server-rendered share page.
// Story content passes through markdown conversion and an HTML sanitizer;
// degraded raw text is escaped by the template and never parsed as HTML.
type StoryRenderer struct {
	sanitizer *bluemonday.Policy
	tmpl      *template.Template
}

func NewStoryRenderer() *StoryRenderer {
	return &StoryRenderer{
		sanitizer: bluemonday.UGCPolicy(),
		tmpl:      template.Must(template.New("story").Parse(storyPageTemplate)),
	}
}

func (sr *StoryRenderer) Render(w http.ResponseWriter, res *generator.Result) error {
	page := storyPage{
		Title:        "Story of the Day",
		Text:         res.Text,
		Error:        res.Error,
		IsProcessing: res.IsProcessing,
	}
	if res.LastModified != nil {
		page.LastModified = res.LastModified.UTC().Format(time.RFC3339)
	}
	if res.Story != nil {
		html, err := sr.markdownToHTML(res.Story.Content)
		if err != nil {
			return err
		}
		page.Name = res.Story.Name
		page.Subtitle = res.Story.Title
		page.Quote = res.Story.ShareableQuote
		page.ContentHTML = template.HTML(html)
		if res.Story.Title != "" {
			page.Title = res.Story.Title
		}
	}

	// Render into a buffer so a template failure can still become a 500.
	var buf bytes.Buffer
	if err := sr.tmpl.Execute(&buf, page); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}

func (sr *StoryRenderer) markdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return string(sr.sanitizer.SanitizeBytes(buf.Bytes())), nil
}
