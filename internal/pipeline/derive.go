package pipeline

import (
	"regexp"
	"strings"
	"time"

	"github.com/formworks/formfill-cli/internal/model"
)

// Derivation certainty signal values. A synthesized candidate carries this
// single signal, so at the default confidence floor of 0.6 the tiers land
// on fixed confidences:
//
//	clock/registered seat  0.875 → 0.95
//	address found anywhere 0.625 → 0.85
//	configured fallback    0.0   → 0.60
const (
	certaintyClock    = 0.875
	certaintyAddress  = 0.625
	certaintyFallback = 0.0
)

// DeriveDate synthesizes the fill-time date in the field's declared format.
func DeriveDate(field model.FieldDescriptor, now time.Time) (model.ExtractionCandidate, error) {
	layout, err := model.DateLayout(field.DateFormat())
	if err != nil {
		return model.ExtractionCandidate{}, err
	}
	return model.ExtractionCandidate{
		FieldID:          field.ID,
		Value:            now.Format(layout),
		SourceDocumentID: model.SourceSynthesized,
		Signals:          model.Signals{model.SignalDerivation: certaintyClock},
	}, nil
}

// cityAfterPostalRe captures the city following a five-digit postal code,
// the most reliable place marker in German paperwork.
var cityAfterPostalRe = regexp.MustCompile(`\b\d{5}\s+([A-ZÄÖÜ][A-Za-zÄÖÜäöüß]+(?:[ -][A-ZÄÖÜ][A-Za-zÄÖÜäöüß]+)?)`)

// seatRe captures the registered seat from phrases like "Sitz der
// Gesellschaft ist Hamburg" or "Sitz: Hamburg".
var seatRe = regexp.MustCompile(`(?i)\bSitz(?:\s+der\s+Gesellschaft)?(?:\s+ist\b|\s*:)\s*([A-ZÄÖÜ][A-Za-zÄÖÜäöüß-]+)`)

// locationFalsePositives are capitalized tokens the address patterns keep
// matching that are never a signing place.
var locationFalsePositives = map[string]bool{
	"gmbh": true, "strasse": true, "str": true, "email": true,
	"e-mail": true, "tel": true, "telefon": true, "fax": true,
	"www": true, "deutschland": true, "germany": true,
}

// DeriveLocation synthesizes the signing place. It prefers the registered
// seat or postal city from organization documents, then any address found
// in the corpus, then the configured fallback.
func DeriveLocation(field model.FieldDescriptor, corpus model.DocumentCorpus, fallback string) model.ExtractionCandidate {
	if city, docID := findCity(corpus, true); city != "" {
		return locationCandidate(field, city, docID, certaintyClock)
	}
	if city, docID := findCity(corpus, false); city != "" {
		return locationCandidate(field, city, docID, certaintyAddress)
	}
	return locationCandidate(field, fallback, model.SourceSynthesized, certaintyFallback)
}

func locationCandidate(field model.FieldDescriptor, city, docID string, certainty float64) model.ExtractionCandidate {
	return model.ExtractionCandidate{
		FieldID:          field.ID,
		Value:            city,
		SourceDocumentID: docID,
		Signals:          model.Signals{model.SignalDerivation: certainty},
	}
}

// findCity scans the corpus for a plausible city name. With orgOnly set,
// only organization documents are considered.
func findCity(corpus model.DocumentCorpus, orgOnly bool) (city, docID string) {
	for _, doc := range corpus {
		if orgOnly && doc.Kind != model.DocOrganization {
			continue
		}
		for _, re := range []*regexp.Regexp{seatRe, cityAfterPostalRe} {
			for _, m := range re.FindAllStringSubmatch(doc.Text, -1) {
				c := cleanCity(m[1])
				if c != "" {
					return c, doc.ID
				}
			}
		}
	}
	return "", ""
}

// cleanCity strips punctuation and rejects known non-city tokens.
func cleanCity(raw string) string {
	c := strings.Trim(normalizeValue(raw), ".,;:")
	if c == "" || locationFalsePositives[foldText(c)] {
		return ""
	}
	return c
}
