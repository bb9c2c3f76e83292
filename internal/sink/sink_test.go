package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sdmx-harvester/internal/record"
)

func testDocs() []*record.Document {
	mk := func(geo string) *record.Document {
		return &record.Document{
			Identifier:      record.Identifier{Value: "https://registry.example.org/data/DSD_nama_10_gdp?GEO=" + geo, Type: "URL"},
			Titles:          []record.Title{{Value: "GDP (GEO: " + geo + ")"}},
			Publisher:       "Eurostat",
			PublicationYear: 2019,
			ResourceType:    record.ResourceType{Value: record.ResourceTypeStatisticalData, General: record.ResourceTypeGeneralDataset},
			Provenance: record.Provenance{
				Source:      "eurostat",
				DataflowID:  "nama_10_gdp",
				StructureID: "DSD_nama_10_gdp",
				Dimensions:  map[string]string{"GEO": geo},
			},
		}
	}
	return []*record.Document{mk("DE"), mk("FR")}
}

func TestDocumentID(t *testing.T) {
	a := DocumentID("https://x/DSD_a?GEO=DE")
	assert.Equal(t, a, DocumentID("https://x/DSD_a?GEO=DE"))
	assert.NotEqual(t, a, DocumentID("https://x/DSD_a?GEO=FR"))
	assert.Len(t, a, 36)
}
