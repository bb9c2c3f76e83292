// internal/sdmx/types.go
package sdmx

import "strings"

// DefaultLocale is preferred when a localized text has to be collapsed to one string.
const DefaultLocale = "en"

// LocalizedText is one (locale, text) pair of a multilingual SDMX name.
type LocalizedText struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

// LocalizedTexts is the ordered list of translations attached to an artefact.
type LocalizedTexts []LocalizedText

// Preferred returns the text for locale, falling back to the first entry.
func (l LocalizedTexts) Preferred(locale string) string {
	for _, t := range l {
		if strings.EqualFold(t.Locale, locale) {
			return t.Text
		}
	}
	if len(l) == 0 {
		return ""
	}
	return l[0].Text
}

// EnglishOrFirst returns the English text or, if missing, the first one.
func (l LocalizedTexts) EnglishOrFirst() string {
	return l.Preferred(DefaultLocale)
}

// Reference points at a maintainable artefact (data structure, code list, concept scheme).
type Reference struct {
	ID       string `json:"id"`
	AgencyID string `json:"agencyId,omitempty"`
	Version  string `json:"version,omitempty"`
	Class    string `json:"class,omitempty"`
	Package  string `json:"package,omitempty"`

	// ParentID is set for item references (a concept inside a scheme).
	ParentID string `json:"parentId,omitempty"`
}

// IsZero reports whether the reference carries no id.
func (r Reference) IsZero() bool {
	return r.ID == ""
}

// Header is the header of a structure message. Its ID doubles as the version
// fingerprint of a harvest.
type Header struct {
	ID       string `json:"id"`
	Prepared string `json:"prepared,omitempty"`
	Sender   string `json:"sender,omitempty"`
}

// Fingerprint returns the message id, or the preparation timestamp when the
// registry left the id empty.
func (h Header) Fingerprint() string {
	if h.ID != "" {
		return h.ID
	}
	return h.Prepared
}

// Dataflow is a catalogue entry bound to exactly one data structure.
type Dataflow struct {
	ID        string         `json:"id"`
	AgencyID  string         `json:"agencyId,omitempty"`
	Version   string         `json:"version,omitempty"`
	Names     LocalizedTexts `json:"names"`
	Structure Reference      `json:"structure"`
}

// Code is one permissible value of a dimension.
type Code struct {
	ID    string         `json:"id"`
	Names LocalizedTexts `json:"names,omitempty"`
}

// DisplayName returns the English name of the code, the first name, or the id.
func (c Code) DisplayName() string {
	if n := c.Names.EnglishOrFirst(); n != "" {
		return n
	}
	return c.ID
}

// Dimension is one axis of a data structure. Codes is empty when the code
// list could not be resolved. A measure dimension enumerates the concepts
// of a concept scheme.
type Dimension struct {
	ID       string    `json:"id"`
	Position int       `json:"position"`
	Codes    []Code    `json:"codes,omitempty"`
	CodeList Reference `json:"codeList"`
	Time     bool      `json:"time,omitempty"`
	Measure  bool      `json:"measure,omitempty"`
}

// DataStructure is a resolved data structure definition.
type DataStructure struct {
	ID         string         `json:"id"`
	AgencyID   string         `json:"agencyId,omitempty"`
	Version    string         `json:"version,omitempty"`
	Names      LocalizedTexts `json:"names,omitempty"`
	Dimensions []Dimension    `json:"dimensions"`
}

// Dimension returns the dimension with the given id.
func (d *DataStructure) Dimension(id string) (Dimension, bool) {
	for _, dim := range d.Dimensions {
		if dim.ID == id {
			return dim, true
		}
	}
	return Dimension{}, false
}
