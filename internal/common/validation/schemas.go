package validation

// RecordSchema is the minimum shape every harvested record must have
// before it reaches a sink.
const RecordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["identifier", "titles", "publisher", "publicationYear", "resourceType", "provenance"],
  "properties": {
    "identifier": {
      "type": "object",
      "required": ["value", "identifierType"],
      "properties": {
        "value": {"type": "string", "minLength": 1, "pattern": "^https?://"},
        "identifierType": {"type": "string", "enum": ["URL"]}
      }
    },
    "titles": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["value"],
        "properties": {"value": {"type": "string", "minLength": 1}}
      }
    },
    "descriptions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["value", "descriptionType"],
        "properties": {
          "value": {"type": "string"},
          "descriptionType": {"type": "string"}
        }
      }
    },
    "publisher": {"type": "string", "minLength": 1},
    "publicationYear": {"type": "integer", "minimum": 1000, "maximum": 9999},
    "formats": {"type": "array", "items": {"type": "string"}},
    "resourceType": {
      "type": "object",
      "required": ["value", "resourceTypeGeneral"],
      "properties": {
        "value": {"type": "string"},
        "resourceTypeGeneral": {"type": "string"}
      }
    },
    "researchData": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["researchDataURL"],
        "properties": {"researchDataURL": {"type": "string", "minLength": 1}}
      }
    },
    "provenance": {
      "type": "object",
      "required": ["dataflowId", "structureId"],
      "properties": {
        "source": {"type": "string"},
        "dataflowId": {"type": "string", "minLength": 1},
        "structureId": {"type": "string", "minLength": 1},
        "dimensions": {"type": "object", "additionalProperties": {"type": "string"}}
      }
    }
  }
}`

// HarvestInputSchema describes the variables accepted by the harvest job.
const HarvestInputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "force": {"type": "boolean"},
    "dryRun": {"type": "boolean"}
  }
}`
