package pipeline

import "github.com/formworks/formfill-cli/internal/model"

// Built-in demo data for offline runs. The documents are shaped like
// pdftotext output of real paperwork: label-colon pairs, address blocks,
// ragged line breaks.

const stubContractText = `ARBEITSVERTRAG

zwischen der

Lichtblick Solartechnik GmbH
Borsigstraße 9, 21465 Reinbek
- nachfolgend "Arbeitgeber" genannt -

und

Frau Anna Schmidt
Eichenweg 12, 22043 Hamburg
- nachfolgend "Arbeitnehmerin" genannt -

§ 1 Beginn des Arbeitsverhältnisses

Das Arbeitsverhältnis beginnt am 01.09.2024 und wird auf unbestimmte
Zeit geschlossen. Die Probezeit beträgt sechs Monate.

§ 2 Tätigkeit

Die Arbeitnehmerin wird als Projektingenieurin eingestellt.

§ 3 Arbeitszeit

Die regelmäßige wöchentliche Arbeitszeit beträgt 40 Stunden.
Die Beschäftigung erfolgt in Vollzeit.

§ 4 Vergütung

Das Bruttomonatsgehalt beträgt 4.850,00 Euro.

Reinbek, den 15.08.2024`

const stubMasterDataText = `STAMMDATENBLATT

Firmenname: Lichtblick Solartechnik GmbH
Handelsregister: HRB 112233, Amtsgericht Lübeck
Sitz der Gesellschaft ist Reinbek.

Geschäftsführer: Dr. Jan Petersen
Ansprechpartnerin Personal: Frau Maria Lange
Telefon: 040 5550 1234
E-Mail: personal@lichtblick-solar.example

USt-IdNr.: DE312457896`

const stubPersonalText = `PERSONALBOGEN

Name: Anna Schmidt
Geburtsdatum: 14.05.1992
Geburtsort: Hamburg
Staatsangehörigkeit: deutsch
Anschrift: Eichenweg 12, 22043 Hamburg
E-Mail: anna.schmidt@example.org
Telefon: 0171 2345678

Krankenkasse: Techniker Krankenkasse
Gesetzlich versichert: Ja
Steuer-ID: 12 345 678 901`

// StubCorpus returns the built-in demo corpus.
func StubCorpus() model.DocumentCorpus {
	return model.DocumentCorpus{
		{ID: "arbeitsvertrag", Text: stubContractText, Kind: model.DocOrganization},
		{ID: "personalbogen", Text: stubPersonalText, Kind: model.DocPersonal},
		{ID: "stammdatenblatt", Text: stubMasterDataText, Kind: model.DocOrganization},
	}
}

// StubSchema returns a demo schema covering every semantic kind the
// resolver distinguishes.
func StubSchema() *model.FormSchema {
	return &model.FormSchema{
		Name: "demo-antrag",
		Fields: []model.FieldDescriptor{
			{
				ID:           "arbeitgeber",
				Label:        "Name des Arbeitgebers",
				ExpectedType: model.FieldTypeText,
				ContextHints: "Firma, Unternehmen",
				Required:     true,
			},
			{
				ID:           "position",
				Label:        "Position",
				ExpectedType: model.FieldTypeText,
				ContextHints: "Tätigkeit, Stellenbezeichnung",
			},
			{
				ID:           "eintrittsdatum",
				Label:        "Eintrittsdatum",
				ExpectedType: model.FieldTypeDate,
				ContextHints: "Beginn des Arbeitsverhältnisses",
				Required:     true,
			},
			{
				ID:           "wochenstunden",
				Label:        "Wöchentliche Arbeitszeit",
				ExpectedType: model.FieldTypeNumber,
				ContextHints: "Arbeitszeit, Stunden",
			},
			{
				ID:           "beschaeftigungsart",
				Label:        "Art der Beschäftigung",
				ExpectedType: model.FieldTypeChoice,
				Constraints:  &model.Constraints{Choices: []string{"Vollzeit", "Teilzeit", "Minijob"}},
			},
			{
				ID:           "email",
				Label:        "E-Mail-Adresse",
				ExpectedType: model.FieldTypeText,
				ContextHints: "Kontakt",
			},
			{
				ID:           "versichert",
				Label:        "Gesetzlich krankenversichert",
				ExpectedType: model.FieldTypeBoolean,
				ContextHints: "versichert, Krankenkasse",
			},
			{
				ID:           "unterschriftsdatum",
				Label:        "Unterzeichnungsdatum",
				ExpectedType: model.FieldTypeDate,
			},
			{
				ID:           "ort",
				Label:        "Ort",
				ExpectedType: model.FieldTypeText,
			},
		},
	}
}

// StubInterpreterResponses cans the fallback answers for the demo schema,
// keyed by a substring of the prompt they answer.
func StubInterpreterResponses() map[string]string {
	return map[string]string{
		"Form field: Position": `{"value": "Projektingenieurin", "confidence": 0.86, "source_document_id": "arbeitsvertrag", "reasoning": "§ 2 states the role"}`,
	}
}
