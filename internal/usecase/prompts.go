package usecase

import (
	"embed"
	"strings"
	"text/template"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	answerPrompt = mustParse("templates/answer_prompt.txt")
	reactPrompt  = mustParse("templates/react_prompt.txt")
)

func mustParse(name string) *template.Template {
	content, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return template.Must(template.New(name).Parse(string(content)))
}

func render(tmpl *template.Template, data any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
