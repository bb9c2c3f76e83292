// internal/record/builder.go
package record

import (
	"net/url"
	"strings"
	"time"

	"sdmx-harvester/internal/harvest"
	"sdmx-harvester/internal/sdmx"
)

type Config struct {
	SourceName   string
	RestBaseURL  string
	GeoDimension string
	Publisher    string
	Language     string
	Formats      []string
	RightsName   string
	RightsURI    string
	LogoURL      string
}

// Builder turns extracted items into documents.
type Builder struct {
	cfg Config
	now func() time.Time
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg, now: time.Now}
}

// WithClock replaces the clock used for the publication year.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build creates the document for one item.
func (b *Builder) Build(item harvest.Item) *Document {
	name := NameOf(item.Names, item.DataflowID)
	identifier := b.Identifier(item.Structure.ID, item.Combination)

	doc := &Document{
		Identifier:      Identifier{Value: identifier, Type: "URL"},
		Titles:          []Title{{Value: FormatTitle(name, item.Combination)}},
		Descriptions:    []Description{{Value: FormatDescription(name, item.Combination), Type: DescriptionTypeAbstract}},
		Subjects:        b.subjects(item.Combination),
		Publisher:       b.cfg.Publisher,
		PublicationYear: b.now().Year(),
		Language:        b.cfg.Language,
		Formats:         append([]string(nil), b.cfg.Formats...),
		ResourceType: ResourceType{
			Value:   ResourceTypeStatisticalData,
			General: ResourceTypeGeneralDataset,
		},
		ResearchData: []ResearchData{{URL: identifier, Title: name}},
		Provenance: Provenance{
			Source:      b.cfg.SourceName,
			DataflowID:  item.DataflowID,
			StructureID: item.Structure.ID,
			Dimensions:  item.Combination.Map(),
		},
	}

	if b.cfg.RightsName != "" {
		doc.RightsList = []Rights{{Value: b.cfg.RightsName, Language: "en-US", URI: b.cfg.RightsURI}}
	}
	if b.cfg.GeoDimension != "" {
		if geo, ok := item.Combination.Get(b.cfg.GeoDimension); ok {
			doc.GeoLocations = []GeoLocation{{Place: geo.DisplayName()}}
		}
	}
	if b.cfg.LogoURL != "" {
		doc.WebLinks = []WebLink{{Name: "Logo", URL: b.cfg.LogoURL, Type: WebLinkTypeProviderLogo}}
	}

	return doc
}

// Identifier is <restBaseUrl>/<structureId>?<dim>=<code>&... in combination
// order. An empty combination has no query.
func (b *Builder) Identifier(structureID string, comb harvest.Combination) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(b.cfg.RestBaseURL, "/"))
	sb.WriteByte('/')
	sb.WriteString(url.PathEscape(structureID))

	for i, sel := range comb {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(sel.Dimension))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(sel.Code.ID))
	}
	return sb.String()
}

// FormatTitle is "<name> (<dim>: <code name>, ...)", or the name alone.
func FormatTitle(name string, comb harvest.Combination) string {
	if len(comb) == 0 {
		return name
	}
	parts := make([]string, len(comb))
	for i, sel := range comb {
		parts[i] = sel.Dimension + ": " + sel.Code.DisplayName()
	}
	return name + " (" + strings.Join(parts, ", ") + ")"
}

// FormatDescription is the name followed by one "<dim>: <code name>" line per
// dimension.
func FormatDescription(name string, comb harvest.Combination) string {
	lines := make([]string, 0, len(comb)+1)
	lines = append(lines, name)
	for _, sel := range comb {
		lines = append(lines, sel.Dimension+": "+sel.Code.DisplayName())
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) subjects(comb harvest.Combination) []Subject {
	if len(comb) == 0 {
		return nil
	}
	out := make([]Subject, len(comb))
	for i, sel := range comb {
		out[i] = Subject{Value: sel.Dimension, Language: b.cfg.Language}
	}
	return out
}

// NameOf returns the display name of a dataflow.
func NameOf(names sdmx.LocalizedTexts, fallback string) string {
	if n := names.EnglishOrFirst(); n != "" {
		return n
	}
	return fallback
}
