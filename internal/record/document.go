// internal/record/document.go
package record

// Document is a DataCite style metadata record for one dimension
// combination of a dataflow. Identifier doubles as the data access link.
type Document struct {
	Identifier      Identifier     `json:"identifier"`
	Titles          []Title        `json:"titles"`
	Descriptions    []Description  `json:"descriptions,omitempty"`
	Subjects        []Subject      `json:"subjects,omitempty"`
	GeoLocations    []GeoLocation  `json:"geoLocations,omitempty"`
	Publisher       string         `json:"publisher"`
	PublicationYear int            `json:"publicationYear"`
	Language        string         `json:"language,omitempty"`
	Formats         []string       `json:"formats,omitempty"`
	RightsList      []Rights       `json:"rightsList,omitempty"`
	ResourceType    ResourceType   `json:"resourceType"`
	ResearchData    []ResearchData `json:"researchData,omitempty"`
	WebLinks        []WebLink      `json:"webLinks,omitempty"`
	Provenance      Provenance     `json:"provenance"`
}

type Identifier struct {
	Value string `json:"value"`
	Type  string `json:"identifierType"`
}

type Title struct {
	Value    string `json:"value"`
	Language string `json:"lang,omitempty"`
}

const DescriptionTypeAbstract = "Abstract"

type Description struct {
	Value    string `json:"value"`
	Type     string `json:"descriptionType"`
	Language string `json:"lang,omitempty"`
}

type Subject struct {
	Value    string `json:"value"`
	Language string `json:"lang,omitempty"`
}

type GeoLocation struct {
	Place string `json:"geoLocationPlace"`
}

type Rights struct {
	Value    string `json:"value"`
	Language string `json:"lang,omitempty"`
	URI      string `json:"rightsURI,omitempty"`
}

const (
	ResourceTypeStatisticalData = "Statistical Data"
	ResourceTypeGeneralDataset  = "Dataset"
)

type ResourceType struct {
	Value   string `json:"value"`
	General string `json:"resourceTypeGeneral"`
}

type ResearchData struct {
	URL   string `json:"researchDataURL"`
	Title string `json:"researchDataTitle"`
}

const WebLinkTypeProviderLogo = "ProviderLogoURL"

type WebLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"webLinkType"`
}

// Provenance ties a record back to the harvested dataflow.
type Provenance struct {
	Source      string            `json:"source"`
	DataflowID  string            `json:"dataflowId"`
	StructureID string            `json:"structureId"`
	Dimensions  map[string]string `json:"dimensions"`
}
