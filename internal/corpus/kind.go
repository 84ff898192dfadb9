package corpus

import (
	"regexp"
	"strings"

	"github.com/formworks/formfill-cli/internal/model"
)

// Filename tokens that identify a document's issuer regardless of content.
// Personal tokens are checked first: "personalstammdaten" is about the
// person even though "stammdaten" alone names company master data.
var (
	personalFileTokens = []string{"personal", "lebenslauf", "ausweis", "bewerbung", "cv"}
	orgFileTokens      = []string{"vertrag", "bescheinigung", "firmen", "firma", "unternehmen", "träger", "trager", "arbeitgeber", "stammdaten", "profil", "handelsregister"}
)

// Content signals. Legal-form suffixes are matched case-sensitively so
// prose like "per se" never counts as a company suffix.
var (
	legalSuffixRe  = regexp.MustCompile(`\b(?:GmbH|gGmbH|mbH|AG|SE|KG|OHG|UG)\b|e\.\s?V\.`)
	letterheadRe   = regexp.MustCompile(`(?m)^\s*\d{5}\s+\p{Lu}`)
	personalLineRe = regexp.MustCompile(`(?i)\b(?:geburtsdatum|geboren|lebenslauf|familienstand|staatsangehörigkeit|staatsangehorigkeit)\b`)
)

// DetectKind classifies a document by issuer. Filename tokens win over
// content signals; when neither side dominates the kind stays generic.
func DetectKind(name, text string) model.DocumentKind {
	lower := strings.ToLower(name)
	for _, tok := range personalFileTokens {
		if strings.Contains(lower, tok) {
			return model.DocPersonal
		}
	}
	for _, tok := range orgFileTokens {
		if strings.Contains(lower, tok) {
			return model.DocOrganization
		}
	}

	orgScore := 0
	if legalSuffixRe.MatchString(text) {
		orgScore++
	}
	if letterheadRe.MatchString(text) {
		orgScore++
	}
	personalScore := len(personalLineRe.FindAllString(text, 3))

	switch {
	case orgScore > personalScore:
		return model.DocOrganization
	case personalScore > orgScore:
		return model.DocPersonal
	default:
		return model.DocGeneric
	}
}
