package model

import "time"

// DocumentKind classifies a source document by its issuer. The kind steers
// matcher tie-breaking and the location derivation tiers: an employment
// contract is organization-issued, an ID card extract is personal.
type DocumentKind string

const (
	DocGeneric      DocumentKind = "generic"
	DocOrganization DocumentKind = "organization"
	DocPersonal     DocumentKind = "personal"
)

// Document is one source text in the corpus.
type Document struct {
	ID   string       `json:"id"`
	Text string       `json:"text"`
	Kind DocumentKind `json:"kind,omitempty"`
}

// DocumentCorpus is the ordered, read-only set of source documents for one
// run. Corpus order is significant: it is the final tie-break between
// equally ranked candidates.
type DocumentCorpus []Document

// Get returns the document with the given id.
func (c DocumentCorpus) Get(id string) (Document, bool) {
	for _, d := range c {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// IndexOf returns the corpus position of a document id, or -1 when unknown.
// Synthesized candidates have no corpus position.
func (c DocumentCorpus) IndexOf(id string) int {
	for i, d := range c {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// DocumentCache is one cached text extraction, keyed by the checksum of the
// source file so a changed scan re-extracts.
type DocumentCache struct {
	Checksum    string    `json:"checksum"`
	Path        string    `json:"path"`
	Text        string    `json:"text"`
	ExtractedAt time.Time `json:"extracted_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
