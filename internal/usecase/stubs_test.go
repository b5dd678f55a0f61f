package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/repository"
)

type stubCache struct {
	setErrs   []error
	getErrs   []error
	getValues []string
	setKeys   []string
	setValues []interface{}
	getKeys   []string
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	s.setValues = append(s.setValues, value)
	if len(s.setErrs) == 0 {
		return nil
	}
	err := s.setErrs[0]
	s.setErrs = s.setErrs[1:]
	return err
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	var value string
	if len(s.getValues) > 0 {
		value = s.getValues[0]
		s.getValues = s.getValues[1:]
	}
	var err error
	if len(s.getErrs) > 0 {
		err = s.getErrs[0]
		s.getErrs = s.getErrs[1:]
	}
	return value, err
}

func (s *stubCache) Ping(ctx context.Context) error { return nil }

type transientRedisError struct{}

func (transientRedisError) Error() string   { return "redis transient" }
func (transientRedisError) Timeout() bool   { return true }
func (transientRedisError) Temporary() bool { return true }

type recordedEvent struct {
	eventType string
	data      any
}

type stubNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *stubNotifier) Notify(eventType string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{eventType, data})
}

func (s *stubNotifier) count(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

// stubFarm is an in-memory FarmStore.
type stubFarm struct {
	sensors map[string]models.SensorData
	history []models.HistoricalData
	crops   map[string]models.Crop
	zones   map[string]models.IrrigationZone
	team    []models.TeamMember
	alerts  []models.Alert
	saveErr error
}

func newStubFarm() *stubFarm {
	return &stubFarm{
		sensors: map[string]models.SensorData{},
		crops:   map[string]models.Crop{},
		zones:   map[string]models.IrrigationZone{},
	}
}

func (s *stubFarm) ListSensors(ctx context.Context) ([]models.SensorData, error) {
	out := make([]models.SensorData, 0, len(s.sensors))
	for _, v := range s.sensors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubFarm) GetSensor(ctx context.Context, id string) (*models.SensorData, error) {
	v, ok := s.sensors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (s *stubFarm) SaveReading(ctx context.Context, reading *models.SensorData) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sensors[reading.ID] = *reading
	s.history = append(s.history, models.HistoricalData{SensorType: reading.Type, Timestamp: reading.Timestamp, Value: reading.Value})
	return nil
}

func (s *stubFarm) History(ctx context.Context, sensorType models.SensorType, since time.Time) ([]models.HistoricalData, error) {
	var out []models.HistoricalData
	for _, h := range s.history {
		if (sensorType == "" || h.SensorType == sensorType) && !h.Timestamp.Before(since) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *stubFarm) ListCrops(ctx context.Context, filter repository.CropFilter) ([]models.Crop, error) {
	var out []models.Crop
	for _, c := range s.crops {
		if filter.Status != "" && c.HealthStatus != filter.Status {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(c.Name+" "+c.Type+" "+c.Location), q) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubFarm) GetCrop(ctx context.Context, id string) (*models.Crop, error) {
	c, ok := s.crops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *stubFarm) UpdateCropHealth(ctx context.Context, id string, status models.HealthStatus) error {
	c, ok := s.crops[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.HealthStatus = status
	s.crops[id] = c
	return nil
}

func (s *stubFarm) ListZones(ctx context.Context) ([]models.IrrigationZone, error) {
	out := make([]models.IrrigationZone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubFarm) SetZoneAutomation(ctx context.Context, id string, enabled bool) (*models.IrrigationZone, error) {
	z, ok := s.zones[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	z.AutomationEnabled = enabled
	s.zones[id] = z
	return &z, nil
}

func (s *stubFarm) ActivateZone(ctx context.Context, id string, at time.Time) error {
	z, ok := s.zones[id]
	if !ok {
		return repository.ErrNotFound
	}
	z.Status = models.ZoneActive
	z.LastActivated = &at
	s.zones[id] = z
	return nil
}

func (s *stubFarm) SetAllZonesStatus(ctx context.Context, status models.ZoneStatus, at time.Time) ([]models.IrrigationZone, error) {
	for id, z := range s.zones {
		z.Status = status
		if status == models.ZoneActive {
			t := at
			z.LastActivated = &t
		}
		s.zones[id] = z
	}
	return s.ListZones(ctx)
}

func (s *stubFarm) ListTeam(ctx context.Context) ([]models.TeamMember, error) {
	return s.team, nil
}

func (s *stubFarm) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range s.alerts {
		if !a.Dismissed {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubFarm) CreateAlert(ctx context.Context, alert *models.Alert) error {
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *stubFarm) MarkAlertRead(ctx context.Context, id string) error {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *stubFarm) DismissAlert(ctx context.Context, id string) error {
	for i := range s.alerts {
		if s.alerts[i].ID == id && !s.alerts[i].Dismissed {
			s.alerts[i].Dismissed = true
			return nil
		}
	}
	return repository.ErrNotFound
}
