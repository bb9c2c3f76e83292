// internal/workers/harvest/harvest-dataflows/models.go
package harvestdataflows

import "sdmx-harvester/internal/pipeline"

type Input struct {
	Force  bool `json:"force"`
	DryRun bool `json:"dryRun"`
}

// Output is written back as process variables.
type Output struct {
	HarvestStatus string           `json:"harvestStatus"`
	HarvestReport *pipeline.Report `json:"harvestReport"`
}
