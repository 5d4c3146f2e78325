// Package common provides shared utilities and default configuration.
package common

// DefaultKVValue represents a default key/value pair for the Badger KV
// store.
type DefaultKVValue struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// GetDefaultKVValues returns the list of default KV values. Nothing in
// this module calls it, so these values are not written to any store.
func GetDefaultKVValues() []DefaultKVValue {
	return []DefaultKVValue{
		{
			Key:         "us_only",
			Value:       "true",
			Description: "Discovery Orchestrator admission filter: US-only companies",
		},
		{
			Key:         "pipeline_enabled",
			Value:       "true",
			Description: "Whether the periodic full pipeline run is enabled",
		},
	}
}
