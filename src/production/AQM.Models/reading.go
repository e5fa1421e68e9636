package aqmmodels

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

const (
	// DeviceIDKey and TimestampKey are the attribute names of the composite key
	// (partition key and sort key) in every backend.
	DeviceIDKey  = "deviceId"
	TimestampKey = "timestamp"
)

// Reading is one sensor sample. Metrics is schema-less: any subset of channels
// may be present and unknown ones are kept as-is.
type Reading struct {
	DeviceID  string
	Timestamp int64 // epoch milliseconds, assigned at ingestion
	Metrics   map[string]interface{}
}

// Item returns the flat stored shape of the reading:
// {"deviceId": ..., "timestamp": ..., <metric>: <value>, ...}
func (r Reading) Item() map[string]interface{} {
	item := make(map[string]interface{}, len(r.Metrics)+2)
	for k, v := range r.Metrics {
		item[k] = v
	}
	item[DeviceIDKey] = r.DeviceID
	item[TimestampKey] = r.Timestamp
	return item
}

// ReadingFromItem rebuilds a Reading from its flat stored shape.
func ReadingFromItem(item map[string]interface{}) (Reading, error) {
	deviceID, ok := item[DeviceIDKey].(string)
	if !ok || deviceID == "" {
		return Reading{}, fmt.Errorf("item has no %s", DeviceIDKey)
	}
	ts, err := toMillis(item[TimestampKey])
	if err != nil {
		return Reading{}, fmt.Errorf("item %s: %w", deviceID, err)
	}

	metrics := make(map[string]interface{}, len(item))
	for k, v := range item {
		if k == DeviceIDKey || k == TimestampKey {
			continue
		}
		metrics[k] = v
	}

	return Reading{DeviceID: deviceID, Timestamp: ts, Metrics: metrics}, nil
}

// Metric returns a numeric metric value. Absent or non-numeric channels report ok=false.
func (r Reading) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	if !ok || v == nil {
		return 0, false
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Item())
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	var item map[string]interface{}
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	parsed, err := ReadingFromItem(item)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func toMillis(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("timestamp %v is not an integer", t)
		}
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		return strconv.ParseInt(t, 10, 64)
	case nil:
		return 0, fmt.Errorf("missing %s", TimestampKey)
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	default:
		return 0, fmt.Errorf("metric value %T is not numeric", v)
	}
}
