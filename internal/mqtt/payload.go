package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/usecase"
)

var errMissingValue = errors.New("value is required")

type wireReading struct {
	SensorID  string            `json:"sensor_id"`
	Type      models.SensorType `json:"type"`
	Value     *float64          `json:"value"`
	Unit      string            `json:"unit"`
	Location  string            `json:"location"`
	Timestamp json.RawMessage   `json:"timestamp"`
}

// DecodeReading parses a reading payload. A missing sensor_id is taken from
// the topic segment after "sensors". Timestamps may be RFC 3339 strings or
// unix epochs in seconds or milliseconds.
func DecodeReading(topic string, payload []byte) (usecase.Reading, error) {
	var w wireReading
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&w); err != nil {
		return usecase.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if w.Value == nil {
		return usecase.Reading{}, errMissingValue
	}

	id := strings.TrimSpace(w.SensorID)
	if id == "" {
		id = SensorIDFromTopic(topic)
	}
	if id == "" {
		return usecase.Reading{}, fmt.Errorf("no sensor id in payload or topic %q", topic)
	}

	ts, err := parseTimestamp(w.Timestamp)
	if err != nil {
		return usecase.Reading{}, err
	}

	return usecase.Reading{
		SensorID:  id,
		Type:      w.Type,
		Value:     *w.Value,
		Unit:      w.Unit,
		Location:  w.Location,
		Timestamp: ts,
	}, nil
}

// SensorIDFromTopic extracts the sensor id from topics shaped like
// agrisense/sensors/<id>/reading.
func SensorIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "sensors" && parts[i+1] != "+" && parts[i+1] != "#" {
			return parts[i+1]
		}
	}
	return ""
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
		}
		return ts.UTC(), nil
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp: %w", err)
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	return time.Unix(int64(n), 0).UTC(), nil
}
