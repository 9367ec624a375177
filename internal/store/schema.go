package store

// recordSchemaURL is the resource name the schema is registered under.
const recordSchemaURL = "faultline://schemas/error-record.json"

// recordSchema describes one element of the upstream JSON array.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "type", "timestamp", "severity"],
  "properties": {
    "id":        {"type": "integer"},
    "type":      {"type": "string", "minLength": 1},
    "user":      {"type": ["string", "null"]},
    "timestamp": {"type": ["string", "number"]},
    "severity":  {"type": "string", "pattern": "^(?i)(critical|high|medium|low)$"},
    "content":   {"type": ["string", "null"]},
    "message":   {"type": ["string", "null"]},
    "filename":  {"type": ["string", "null"]},
    "code":      {"type": ["integer", "null"]}
  }
}`
