package riskresponse

import (
	"strings"
	"time"

	"github.com/c360/stixgraph/schema"
)

// STIX interchange types emitted by the converters. Responses map onto
// course-of-action objects; risks have no standard STIX type and use a
// custom object type.
const (
	stixCourseOfAction = "course-of-action"
	stixRisk           = "x-darklight-risk"
	stixSpecVersion    = "2.1"
)

// convertRiskResponse renders a materialized response as a STIX
// course-of-action JSON object.
func convertRiskResponse(inst schema.Instance) (map[string]any, error) {
	obj := stixEnvelope(stixCourseOfAction, inst)
	copyValue(obj, inst, "name", "name")
	copyValue(obj, inst, "description", "description")
	copyValue(obj, inst, "response_type", "x_response_type")
	copyValue(obj, inst, "lifecycle", "x_lifecycle")
	if labels, ok := inst.Values["labels"].([]string); ok && len(labels) > 0 {
		obj["labels"] = labels
	}
	return obj, nil
}

// convertRisk renders a materialized risk as a custom STIX object.
func convertRisk(inst schema.Instance) (map[string]any, error) {
	obj := stixEnvelope(stixRisk, inst)
	copyValue(obj, inst, "name", "name")
	copyValue(obj, inst, "description", "description")
	copyValue(obj, inst, "statement", "x_statement")
	copyValue(obj, inst, "risk_status", "x_risk_status")
	if deadline, ok := inst.Values["deadline"].(time.Time); ok {
		obj["x_deadline"] = deadline.UTC().Format(time.RFC3339)
	}
	return obj, nil
}

// stixEnvelope builds the fields every converted object carries. The
// derived identifier already has STIX "type--uuid" shape; only its type
// segment is rewritten to the interchange type name.
func stixEnvelope(stixType string, inst schema.Instance) map[string]any {
	id := inst.ID
	if sep := strings.Index(id, "--"); sep > 0 {
		id = stixType + id[sep:]
	}
	obj := map[string]any{
		"type":         stixType,
		"spec_version": stixSpecVersion,
		"id":           id,
	}
	if created, ok := inst.Values["created"].(time.Time); ok {
		obj["created"] = created.UTC().Format(time.RFC3339)
	}
	if modified, ok := inst.Values["modified"].(time.Time); ok {
		obj["modified"] = modified.UTC().Format(time.RFC3339)
	}
	return obj
}

// copyValue copies a non-empty string attribute under its interchange
// name.
func copyValue(obj map[string]any, inst schema.Instance, attr, key string) {
	if v, ok := inst.Values[attr].(string); ok && v != "" {
		obj[key] = v
	}
}
