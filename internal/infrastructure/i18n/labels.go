// Package i18n localizes the status labels of the presentation layer.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var statusLabels = map[string]map[language.Tag]string{
	"BillStatusDraft": {
		language.English: "Draft",
		language.French:  "Brouillon",
	},
	"BillStatusValidated": {
		language.English: "Validated",
		language.French:  "Validée",
	},
	"BillStatusNotPaid": {
		language.English: "Unpaid",
		language.French:  "Impayée",
	},
	"BillShortStatusPaid": {
		language.English: "Paid",
		language.French:  "Payée",
	},
	"BillStatusClosedPaidPartially": {
		language.English: "Partially paid",
		language.French:  "Paiement partiel",
	},
	"BillStatusCanceled": {
		language.English: "Canceled",
		language.French:  "Abandonnée",
	},
	"BillStatusConvertedToReduc": {
		language.English: "Converted to reduction",
		language.French:  "Convertie en réduction",
	},
}

// Supported lists the languages with a translation, default first
var Supported = []language.Tag{language.English, language.French}

// Translator resolves label keys for a requested language
type Translator struct {
	catalog  *catalog.Builder
	matcher  language.Matcher
	fallback language.Tag
}

// NewTranslator builds the label catalog. defaultLang is used when a request
// names no supported language.
func NewTranslator(defaultLang string) (*Translator, error) {
	fallback := language.English
	if defaultLang != "" {
		tag, err := language.Parse(defaultLang)
		if err != nil {
			return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
		}
		fallback = tag
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, translations := range statusLabels {
		for tag, text := range translations {
			if err := b.SetString(tag, key, text); err != nil {
				return nil, fmt.Errorf("set %s/%s: %w", tag, key, err)
			}
		}
	}

	tags := append([]language.Tag{fallback}, Supported...)
	return &Translator{
		catalog:  b,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
	}, nil
}

// Match picks the best supported language for an Accept-Language header or
// a lang query value
func (t *Translator) Match(preferences ...string) language.Tag {
	var wanted []language.Tag
	for _, p := range preferences {
		if p == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 {
		return t.fallback
	}
	return t.resolve(wanted...)
}

func (t *Translator) resolve(wanted ...language.Tag) language.Tag {
	tag, _, _ := t.matcher.Match(wanted...)
	base, _ := tag.Base()
	return language.Make(base.String())
}

// Label translates a label key into the supported language closest to tag.
// Keys without a translation are returned as is.
func (t *Translator) Label(tag language.Tag, key string) string {
	p := message.NewPrinter(t.resolve(tag), message.Catalog(t.catalog))
	return p.Sprintf(key)
}
