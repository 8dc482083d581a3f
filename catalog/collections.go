package catalog

import (
	"encoding/json"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/store"
)

type props map[string]any

func field(typ string) props { return props{"type": typ} }

// Collections returns the catalog collections with their Elasticsearch
// mappings. dims sizes the tool description vector.
func Collections(dims int) []store.Collection {
	discoveries := props{
		"api_url":          field("keyword"),
		"discovered_at":    field("date"),
		"api_name":         field("text"),
		"api_description":  field("text"),
		"base_url":         field("keyword"),
		"openapi_spec_url": field("keyword"),
		"has_openapi_spec": field("boolean"),
		"auth_type":        field("keyword"),
		"endpoints": props{
			"type": "nested",
			"properties": props{
				"path":         field("keyword"),
				"method":       field("keyword"),
				"summary":      field("text"),
				"description":  field("text"),
				"parameters":   props{"type": "object", "enabled": false},
				"request_body": props{"type": "object", "enabled": false},
				"responses":    props{"type": "object", "enabled": false},
			},
		},
		"total_endpoints":  field("integer"),
		"discovery_status": field("keyword"),
		"error_message":    field("text"),
	}

	tools := props{
		"tool_id":      field("keyword"),
		"tool_name":    field("keyword"),
		"display_name": field("text"),
		"description":  field("text"),
		model.EmbeddingField: props{
			"type":       "dense_vector",
			"dims":       dims,
			"index":      true,
			"similarity": "cosine",
		},
		"api_base_url":            field("keyword"),
		"auth_type":               field("keyword"),
		"generated_at":            field("date"),
		"updated_at":              field("date"),
		"source_api_discovery_id": field("keyword"),
		"tool_code":               props{"type": "text", "index": false},
		"mcp_server_code":         props{"type": "text", "index": false},
		"readme":                  field("text"),
		"endpoints_count":         field("integer"),
		"categories":              field("keyword"),
		"tags":                    field("keyword"),
		"usage_count":             field("integer"),
		"last_used":               field("date"),
		"success_rate":            field("float"),
		"avg_execution_time_ms":   field("float"),
		"rating":                  field("float"),
		"review_count":            field("integer"),
		"is_verified":             field("boolean"),
		"generation_time_seconds": field("float"),
		"generation_errors":       field("text"),
	}

	usageLogs := props{
		"log_id":            field("keyword"),
		"tool_id":           field("keyword"),
		"timestamp":         field("date"),
		"user_query":        field("text"),
		"execution_success": field("boolean"),
		"execution_time_ms": field("float"),
		"error_message":     field("text"),
		"agent_id":          field("keyword"),
	}

	return []store.Collection{
		{Name: model.CollectionDiscoveries, Mapping: mapping(discoveries)},
		{Name: model.CollectionTools, Mapping: mapping(tools)},
		{Name: model.CollectionUsageLogs, Mapping: mapping(usageLogs)},
	}
}

func mapping(properties props) string {
	data, err := json.Marshal(props{"mappings": props{"properties": properties}})
	if err != nil {
		panic(err)
	}
	return string(data)
}
