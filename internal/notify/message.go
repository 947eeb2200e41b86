package notify

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var frPrinter = message.NewPrinter(language.French)

// Pluralize renders n followed by the singular noun when n is 1 and the
// plural noun otherwise, zero included. n uses French digit grouping.
func Pluralize(n int, singular, plural string) string {
	noun := plural
	if n == 1 {
		noun = singular
	}
	return frPrinter.Sprintf("%d", n) + " " + noun
}

// MessageData is interpolated into the notification body.
type MessageData struct {
	FileURL    string
	ReportURL  string
	DocURL     string
	ErrorCount int
	RowCount   int
}

var messageTmpl = template.Must(template.New("notification").Funcs(template.FuncMap{
	"errors": func(n int) string { return Pluralize(n, "erreur", "erreurs") },
	"rows":   func(n int) string { return Pluralize(n, "ligne", "lignes") },
}).Parse(`Bonjour,

Nous avons validé le fichier {{.FileURL}} par rapport au schéma qu'il doit respecter et avons détecté {{errors .ErrorCount}} sur {{rows .RowCount}}.

Le rapport de validation détaillé est consultable ici : {{.ReportURL}}

La documentation du schéma est disponible ici : {{.DocURL}}

Corriger ces erreurs améliorera la qualité du fichier consolidé. N'hésitez pas à répondre à cette discussion pour toute question.

Ce message a été envoyé automatiquement.`))

// RenderMessage builds the comment body for d.
func RenderMessage(d MessageData) (string, error) {
	var sb strings.Builder
	if err := messageTmpl.Execute(&sb, d); err != nil {
		return "", eris.Wrap(err, "notify: render message")
	}
	return sb.String(), nil
}
