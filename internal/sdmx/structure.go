// internal/sdmx/structure.go
package sdmx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformedMessage  = errors.New("MALFORMED_STRUCTURE_MESSAGE")
	ErrStructureNotFound = errors.New("STRUCTURE_NOT_FOUND")
)

// Catalogue is the decoded root message of a registry: its header plus every
// dataflow it advertises, in document order.
type Catalogue struct {
	Header    Header
	Dataflows []Dataflow
}

// SDMX-ML 2.1 structure message. Element names are matched on their local
// part only, so the message/structure/common namespace prefixes do not matter.
type structureMessage struct {
	XMLName    xml.Name      `xml:"Structure"`
	Header     xmlHeader     `xml:"Header"`
	Structures xmlStructures `xml:"Structures"`
}

type xmlHeader struct {
	ID       string `xml:"ID"`
	Prepared string `xml:"Prepared"`
	Sender   struct {
		ID string `xml:"id,attr"`
	} `xml:"Sender"`
}

type xmlStructures struct {
	Dataflows      []xmlDataflow      `xml:"Dataflows>Dataflow"`
	Codelists      []xmlCodelist      `xml:"Codelists>Codelist"`
	ConceptSchemes []xmlConceptScheme `xml:"Concepts>ConceptScheme"`
	DataStructures []xmlDataStructure `xml:"DataStructures>DataStructure"`
}

type xmlText struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

type xmlRef struct {
	ID                   string `xml:"id,attr"`
	AgencyID             string `xml:"agencyID,attr"`
	Version              string `xml:"version,attr"`
	Class                string `xml:"class,attr"`
	Package              string `xml:"package,attr"`
	MaintainableParentID string `xml:"maintainableParentID,attr"`
}

type xmlDataflow struct {
	ID        string    `xml:"id,attr"`
	AgencyID  string    `xml:"agencyID,attr"`
	Version   string    `xml:"version,attr"`
	Names     []xmlText `xml:"Name"`
	Structure xmlRef    `xml:"Structure>Ref"`
}

type xmlCodelist struct {
	ID       string    `xml:"id,attr"`
	AgencyID string    `xml:"agencyID,attr"`
	Version  string    `xml:"version,attr"`
	Codes    []xmlCode `xml:"Code"`
}

type xmlCode struct {
	ID    string    `xml:"id,attr"`
	Names []xmlText `xml:"Name"`
}

type xmlConceptScheme struct {
	ID       string       `xml:"id,attr"`
	AgencyID string       `xml:"agencyID,attr"`
	Version  string       `xml:"version,attr"`
	Concepts []xmlConcept `xml:"Concept"`
}

type xmlConcept struct {
	ID          string    `xml:"id,attr"`
	Names       []xmlText `xml:"Name"`
	Enumeration xmlRef    `xml:"CoreRepresentation>Enumeration>Ref"`
}

type xmlDataStructure struct {
	ID            string           `xml:"id,attr"`
	AgencyID      string           `xml:"agencyID,attr"`
	Version       string           `xml:"version,attr"`
	Names         []xmlText        `xml:"Name"`
	DimensionList xmlDimensionList `xml:"DataStructureComponents>DimensionList"`
}

const (
	elemDimension        = "Dimension"
	elemMeasureDimension = "MeasureDimension"
	elemTimeDimension    = "TimeDimension"
)

type xmlDimension struct {
	Kind        string `xml:"-"`
	ID          string `xml:"id,attr"`
	Position    int    `xml:"position,attr"`
	Concept     xmlRef `xml:"ConceptIdentity>Ref"`
	Enumeration xmlRef `xml:"LocalRepresentation>Enumeration>Ref"`
}

// xmlDimensionList keeps Dimension, MeasureDimension and TimeDimension
// children in document order.
type xmlDimensionList struct {
	Components []xmlDimension
}

func (l *xmlDimensionList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elemDimension, elemMeasureDimension, elemTimeDimension:
				var dim xmlDimension
				if err := d.DecodeElement(&dim, &t); err != nil {
					return err
				}
				dim.Kind = t.Name.Local
				l.Components = append(l.Components, dim)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func decodeMessage(r io.Reader) (*structureMessage, error) {
	var msg structureMessage
	if err := xml.NewDecoder(r).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// DecodeCatalogue decodes a registry root message listing dataflows.
func DecodeCatalogue(r io.Reader) (*Catalogue, error) {
	msg, err := decodeMessage(r)
	if err != nil {
		return nil, err
	}

	cat := &Catalogue{
		Header: Header{
			ID:       msg.Header.ID,
			Prepared: msg.Header.Prepared,
			Sender:   msg.Header.Sender.ID,
		},
		Dataflows: make([]Dataflow, 0, len(msg.Structures.Dataflows)),
	}
	for _, df := range msg.Structures.Dataflows {
		if df.ID == "" {
			continue
		}
		cat.Dataflows = append(cat.Dataflows, Dataflow{
			ID:        df.ID,
			AgencyID:  df.AgencyID,
			Version:   df.Version,
			Names:     toTexts(df.Names),
			Structure: toReference(df.Structure),
		})
	}
	return cat, nil
}

// DecodeStructure decodes a data structure message (with its child code lists
// and concept schemes) and resolves the code list of every dimension.
// When structureID is empty the first data structure of the message is used.
func DecodeStructure(r io.Reader, structureID string) (*DataStructure, error) {
	msg, err := decodeMessage(r)
	if err != nil {
		return nil, err
	}

	var dsd *xmlDataStructure
	for i := range msg.Structures.DataStructures {
		candidate := &msg.Structures.DataStructures[i]
		if structureID == "" || candidate.ID == structureID {
			dsd = candidate
			break
		}
	}
	if dsd == nil {
		return nil, fmt.Errorf("%w: %q", ErrStructureNotFound, structureID)
	}

	idx := newItemIndex(msg.Structures)

	out := &DataStructure{
		ID:         dsd.ID,
		AgencyID:   dsd.AgencyID,
		Version:    dsd.Version,
		Names:      toTexts(dsd.Names),
		Dimensions: make([]Dimension, 0, len(dsd.DimensionList.Components)),
	}
	for _, d := range dsd.DimensionList.Components {
		out.Dimensions = append(out.Dimensions, idx.resolveDimension(d))
	}
	return out, nil
}

// itemIndex looks up code lists and concepts referenced by dimensions.
type itemIndex struct {
	codelists map[string][]Code
	concepts  map[string]xmlRef
	// schemes holds concept schemes as code lists; measure dimensions
	// enumerate concepts.
	schemes map[string][]Code
}

func newItemIndex(s xmlStructures) *itemIndex {
	idx := &itemIndex{
		codelists: make(map[string][]Code),
		concepts:  make(map[string]xmlRef),
		schemes:   make(map[string][]Code),
	}
	for _, cl := range s.Codelists {
		codes := make([]Code, 0, len(cl.Codes))
		for _, c := range cl.Codes {
			if c.ID == "" {
				continue
			}
			codes = append(codes, Code{ID: c.ID, Names: toTexts(c.Names)})
		}
		idx.codelists[maintainableKey(cl.AgencyID, cl.ID, cl.Version)] = codes
		// Unversioned fallback; the first list with a given id wins.
		if _, ok := idx.codelists[cl.ID]; !ok {
			idx.codelists[cl.ID] = codes
		}
	}
	for _, cs := range s.ConceptSchemes {
		items := make([]Code, 0, len(cs.Concepts))
		for _, c := range cs.Concepts {
			if c.ID == "" {
				continue
			}
			items = append(items, Code{ID: c.ID, Names: toTexts(c.Names)})
			idx.concepts[cs.ID+"."+c.ID] = c.Enumeration
			if _, ok := idx.concepts[c.ID]; !ok {
				idx.concepts[c.ID] = c.Enumeration
			}
		}
		idx.schemes[maintainableKey(cs.AgencyID, cs.ID, cs.Version)] = items
		if _, ok := idx.schemes[cs.ID]; !ok {
			idx.schemes[cs.ID] = items
		}
	}
	return idx
}

func (idx *itemIndex) resolveDimension(d xmlDimension) Dimension {
	dim := Dimension{
		ID:       d.ID,
		Position: d.Position,
		Time:     d.Kind == elemTimeDimension,
		Measure:  d.Kind == elemMeasureDimension,
	}

	ref := d.Enumeration
	if ref.ID == "" {
		ref = idx.conceptEnumeration(d.Concept)
	}
	if ref.ID == "" {
		return dim
	}

	dim.CodeList = toReference(ref)
	dim.Codes = idx.codes(ref)
	return dim
}

func (idx *itemIndex) conceptEnumeration(concept xmlRef) xmlRef {
	if concept.ID == "" {
		return xmlRef{}
	}
	if concept.MaintainableParentID != "" {
		if ref, ok := idx.concepts[concept.MaintainableParentID+"."+concept.ID]; ok {
			return ref
		}
	}
	return idx.concepts[concept.ID]
}

func (idx *itemIndex) codes(ref xmlRef) []Code {
	lists := idx.codelists
	if ref.Class == "ConceptScheme" {
		lists = idx.schemes
	}
	if codes, ok := lists[maintainableKey(ref.AgencyID, ref.ID, ref.Version)]; ok {
		return codes
	}
	return lists[ref.ID]
}

func maintainableKey(agency, id, version string) string {
	return agency + ":" + id + "(" + version + ")"
}

func toTexts(in []xmlText) LocalizedTexts {
	if len(in) == 0 {
		return nil
	}
	out := make(LocalizedTexts, 0, len(in))
	for _, t := range in {
		out = append(out, LocalizedText{Locale: t.Lang, Text: t.Value})
	}
	return out
}

func toReference(r xmlRef) Reference {
	return Reference{
		ID:       r.ID,
		AgencyID: r.AgencyID,
		Version:  r.Version,
		Class:    r.Class,
		Package:  r.Package,
		ParentID: r.MaintainableParentID,
	}
}
