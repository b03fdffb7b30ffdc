package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/pkg/utils"
)

// parseJSONReply decodes a reply the model wrote as a JSON object. List
// fields accept arrays or scalars and confidence accepts numeric strings.
func parseJSONReply(body string) (entities.ParsedAnalysis, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return entities.ParsedAnalysis{}, err
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[utils.NormalizeLabel(k)] = v
	}

	sources := jsonList(fields[keySources])
	if len(sources) == 0 {
		sources = jsonList(fields[keySourcesLong])
	}

	recommendation := jsonText(fields[keyRecommendation])
	priority := entities.Priority(strings.ToUpper(jsonText(fields[keyPriority])))
	if !priority.Valid() {
		priority = MapRecommendation(recommendation)
	}
	if recommendation == "" {
		recommendation = string(priority)
	}

	return entities.ParsedAnalysis{
		Priority:        priority,
		Reasons:         jsonList(fields[keyReasons]),
		Pending:         jsonList(fields[keyPending]),
		Sources:         sources,
		Confidence:      jsonConfidence(fields, keyConfidence),
		InitialAnalysis: jsonText(fields[keyInitialAnalysis]),
		OriginalLabel:   recommendation,
	}, nil
}

func jsonList(v any) []string {
	items := []string{}
	switch value := v.(type) {
	case nil:
	case []any:
		for _, item := range value {
			if s := jsonText(item); s != "" {
				items = append(items, s)
			}
		}
	default:
		if s := jsonText(value); s != "" {
			items = append(items, s)
		}
	}
	return items
}

func jsonText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", value))
	}
}

// jsonConfidence returns the default when the field is absent and nil when
// it is present but not numeric.
func jsonConfidence(fields map[string]any, key string) *float64 {
	v, ok := fields[key]
	if !ok || v == nil {
		c := defaultConfidence
		return &c
	}
	switch value := v.(type) {
	case float64:
		return &value
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}
