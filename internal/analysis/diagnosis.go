// Package analysis turns vision model replies into plant health verdicts and
// supplies a local guess when the model cannot be reached.
package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/example/agrisense/internal/models"
)

const (
	unknownCrop         = "unknown"
	noDisease           = "none"
	unidentifiedDisease = "unidentified disease"
	unknownDisease      = "unknown"
)

var (
	healthyCare = []string{
		"Continue regular watering",
		"Maintain appropriate sunlight exposure",
		"Apply balanced fertilizer as needed",
	}
	genericTreatment = []string{
		"Remove affected parts",
		"Apply appropriate fungicide/pesticide",
		"Improve air circulation",
		"Adjust watering practices",
		"Consult with a local agricultural extension service",
	}
)

// Diagnosis is a structured plant health verdict.
type Diagnosis struct {
	CropName        string              `json:"crop_name"`
	HealthStatus    models.HealthStatus `json:"health_status"`
	DiseaseName     string              `json:"disease_name"`
	Recommendations []string            `json:"recommendations"`
}

// CleanCropName reduces a crop identification reply to a single lower-case
// word.
func CleanCropName(reply string) string {
	fields := strings.Fields(strings.ToLower(reply))
	if len(fields) == 0 {
		return unknownCrop
	}
	name := strings.Trim(fields[0], ".,;:!?\"'`*")
	if name == "" {
		return unknownCrop
	}
	return name
}

type rawDiagnosis struct {
	status    string
	disease   string
	treatment []string
}

// ParseDiagnosis reads a diagnosis reply into a normalized Diagnosis. A JSON
// object anywhere in the reply takes precedence over the line format.
func ParseDiagnosis(crop, reply string) Diagnosis {
	raw, err := parseJSONReply(reply)
	if err != nil {
		raw = parseLineReply(reply)
	}
	return normalize(crop, raw)
}

func normalize(crop string, raw rawDiagnosis) Diagnosis {
	status := models.HealthStatus(strings.ToLower(strings.TrimSpace(raw.status)))
	disease := strings.TrimSpace(raw.disease)
	noName := disease == "" || strings.EqualFold(disease, noDisease)

	switch status {
	case models.HealthHealthy, models.HealthDiseased:
	default:
		if noName {
			status = models.HealthAtRisk
		} else {
			status = models.HealthDiseased
		}
	}

	switch status {
	case models.HealthHealthy:
		disease = noDisease
	case models.HealthDiseased:
		if noName {
			disease = unidentifiedDisease
		}
	case models.HealthAtRisk:
		if disease == "" {
			disease = unknownDisease
		}
	}

	recs := cleanRecommendations(raw.treatment)
	if len(recs) == 0 {
		if status == models.HealthHealthy {
			recs = append([]string(nil), healthyCare...)
		} else {
			recs = append([]string(nil), genericTreatment...)
		}
	}

	return Diagnosis{
		CropName:        crop,
		HealthStatus:    status,
		DiseaseName:     disease,
		Recommendations: recs,
	}
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)]|\(\d+\))\s*`)

func cleanRecommendations(lines []string) []string {
	var out []string
	for _, line := range lines {
		for _, part := range strings.Split(line, "\n") {
			part = strings.TrimSpace(listMarker.ReplaceAllString(part, ""))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseLineReply(reply string) rawDiagnosis {
	var raw rawDiagnosis
	capturing := false
	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "health_status:"):
			raw.status = afterColon(line)
			capturing = false
		case strings.Contains(lower, "disease_name:"):
			raw.disease = afterColon(line)
			capturing = false
		case strings.Contains(lower, "treatment:"):
			capturing = true
			if v := afterColon(line); v != "" {
				raw.treatment = append(raw.treatment, v)
			}
		case capturing:
			raw.treatment = append(raw.treatment, strings.TrimSpace(line))
		}
	}
	return raw
}

func afterColon(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.Trim(value, " \t\r*`\"'[]")
}

type jsonDiagnosis struct {
	HealthStatus string          `json:"health_status"`
	DiseaseName  string          `json:"disease_name"`
	Treatment    json.RawMessage `json:"treatment"`
}

func parseJSONReply(reply string) (rawDiagnosis, error) {
	obj, err := extractJSON(reply)
	if err != nil {
		return rawDiagnosis{}, err
	}
	var parsed jsonDiagnosis
	if err := json.Unmarshal(obj, &parsed); err != nil {
		return rawDiagnosis{}, err
	}
	if parsed.HealthStatus == "" && parsed.DiseaseName == "" {
		return rawDiagnosis{}, errors.New("json reply has no diagnosis fields")
	}

	raw := rawDiagnosis{status: parsed.HealthStatus, disease: parsed.DiseaseName}
	if len(parsed.Treatment) > 0 {
		var list []string
		var text string
		switch {
		case json.Unmarshal(parsed.Treatment, &list) == nil:
			raw.treatment = list
		case json.Unmarshal(parsed.Treatment, &text) == nil:
			raw.treatment = []string{text}
		}
	}
	return raw, nil
}

// extractJSON returns the first balanced JSON object embedded in text.
func extractJSON(text string) (json.RawMessage, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil, errors.New("no JSON found in text")
	}

	depth := 0
	inString := false
	escaped := false
	end := -1

scan:
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				end = i + 1
				break scan
			}
		}
	}
	if end == -1 {
		return nil, errors.New("no matching closing brace found")
	}

	candidate := []byte(text[start:end])
	if !json.Valid(candidate) {
		return nil, errors.New("extracted text is not valid JSON")
	}
	return json.RawMessage(bytes.TrimSpace(candidate)), nil
}
