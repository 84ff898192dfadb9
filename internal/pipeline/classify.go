package pipeline

import (
	"strings"

	"github.com/formworks/formfill-cli/internal/model"
)

// derivedDatePhrases mark date fields whose value is the moment of filling,
// not a date found in any document. Compared in folded form.
var derivedDatePhrases = []string{
	"unterzeichnungsdatum",
	"unterschriftsdatum",
	"datum der unterschrift",
	"datum der unterzeichnung",
	"heutiges datum",
	"signing date",
	"date of signing",
	"date of signature",
	"today's date",
}

// orgNamePhrases mark text fields asking for the organization's name.
var orgNamePhrases = []string{
	"firmenname",
	"firma",
	"unternehmen",
	"organisation",
	"organization",
	"company name",
	"name des tragers",
	"trager",
	"einrichtung",
	"arbeitgeber",
	"institution",
}

// containsPhrase reports whether the folded label contains any of the
// given folded phrases.
func containsPhrase(foldedLabel string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(foldedLabel, p) {
			return true
		}
	}
	return false
}

// hasToken reports whether the folded label contains word as a standalone
// token. "Geburtsort" must not count as the token "ort".
func hasToken(foldedLabel, word string) bool {
	for _, tok := range strings.FieldsFunc(foldedLabel, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if tok == word {
			return true
		}
	}
	return false
}

// ClassifyField decides how a field is resolved before any document
// matching happens. Typed fields (choice, number, boolean) classify by
// declared type; date and text fields classify by label phrases, so a
// signing-date field derives from the wall clock instead of searching
// documents for a date that is not there.
func ClassifyField(field model.FieldDescriptor) model.FieldSemanticKind {
	label := foldText(field.Label)

	switch field.ExpectedType {
	case model.FieldTypeChoice:
		return model.KindChoice
	case model.FieldTypeNumber:
		return model.KindNumber
	case model.FieldTypeBoolean:
		return model.KindBoolean
	case model.FieldTypeDate:
		if containsPhrase(label, derivedDatePhrases) || strings.TrimSpace(label) == "datum" {
			return model.KindDerivedDate
		}
		return model.KindDate
	}

	// Text fields: signature-place, organization name, or plain literal.
	if hasToken(label, "ort") || containsPhrase(label, []string{"place of signing", "place of signature"}) {
		return model.KindDerivedLocation
	}
	if containsPhrase(label, orgNamePhrases) {
		return model.KindOrgName
	}
	return model.KindLiteralText
}
