package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/awap/internal/models"
)

const (
	SettingString  = "string"
	SettingBoolean = "boolean"
	SettingNumber  = "number"
)

type SettingsStore interface {
	ListSettings(ctx context.Context) ([]models.Setting, error)
	UpsertSettings(ctx context.Context, settings []models.Setting) error
}

type SettingsService struct {
	store SettingsStore
	audit *AuditService
	now   func() time.Time
}

// SettingValue is a setting as returned to clients, with Value decoded
// according to Type.
type SettingValue struct {
	Value     any       `json:"value"`
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewSettingsService(store SettingsStore, audit *AuditService) *SettingsService {
	return &SettingsService{store: store, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SettingsService) Get(ctx context.Context) (map[string]SettingValue, error) {
	rows, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]SettingValue, len(rows))
	for _, r := range rows {
		out[r.Key] = SettingValue{Value: decodeSetting(r.Value, r.Type), Type: r.Type, Category: r.Category, UpdatedAt: r.UpdatedAt}
	}
	return out, nil
}

// Update upserts every key in one transaction and returns the new state.
// Existing keys keep their type and category; new keys infer a type from the
// JSON value and land in the general category.
func (s *SettingsService) Update(ctx context.Context, actorID int64, values map[string]json.RawMessage) (map[string]SettingValue, error) {
	if len(values) == 0 {
		return nil, NewInvalidError("Invalid settings data")
	}
	existing, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]models.Setting, len(existing))
	for _, st := range existing {
		known[st.Key] = st
	}

	now := s.now()
	var updatedBy *int64
	if actorID > 0 {
		updatedBy = &actorID
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := make([]models.Setting, 0, len(keys))
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			return nil, NewInvalidError("Invalid settings data")
		}
		var decoded any
		if err := json.Unmarshal(values[key], &decoded); err != nil {
			return nil, WithDetails(NewInvalidError("Invalid settings data"), fmt.Sprintf("%s: %v", key, err))
		}
		typ, category := inferSettingType(decoded), "general"
		if prev, ok := known[key]; ok {
			typ, category = prev.Type, prev.Category
		}
		text, err := encodeSetting(decoded, typ)
		if err != nil {
			return nil, WithDetails(NewInvalidError("Invalid settings data"), fmt.Sprintf("%s: %v", key, err))
		}
		batch = append(batch, models.Setting{Key: key, Value: text, Type: typ, Category: category, UpdatedBy: updatedBy, UpdatedAt: now})
	}
	if err := s.store.UpsertSettings(ctx, batch); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, AuditEntry{
		Time: now, ActorID: actorID, Action: ActionSettingsUpdate,
		TargetType: "system_settings", Details: "Updated " + strings.Join(keys, ", "),
	})
	return s.Get(ctx)
}

func inferSettingType(v any) string {
	switch v.(type) {
	case bool:
		return SettingBoolean
	case float64:
		return SettingNumber
	default:
		return SettingString
	}
}

// encodeSetting turns a decoded JSON value into the stored text form,
// checking it fits typ.
func encodeSetting(v any, typ string) (string, error) {
	switch typ {
	case SettingBoolean:
		switch b := v.(type) {
		case bool:
			return strconv.FormatBool(b), nil
		case string:
			pb, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return "", fmt.Errorf("expected boolean, got %q", b)
			}
			return strconv.FormatBool(pb), nil
		}
		return "", fmt.Errorf("expected boolean")
	case SettingNumber:
		switch n := v.(type) {
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return "", fmt.Errorf("expected number, got %q", n)
			}
			return strconv.FormatFloat(f, 'f', -1, 64), nil
		}
		return "", fmt.Errorf("expected number")
	default:
		switch x := v.(type) {
		case string:
			return x, nil
		case nil:
			return "", nil
		case bool:
			return strconv.FormatBool(x), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		default:
			b, err := json.Marshal(x)
			if err != nil {
				return "", err
			}
			return string(b), nil
		}
	}
}

// decodeSetting converts stored text back to a typed value. Unparseable
// values fall back to the raw string.
func decodeSetting(raw, typ string) any {
	switch typ {
	case SettingBoolean:
		return raw == "true"
	case SettingNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	default:
		return raw
	}
}
