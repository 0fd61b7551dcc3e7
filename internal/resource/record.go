package resource

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Attributes holds the schema-checked field values of a record. Strings are
// string, integers are int64, cleared optional fields are nil.
type Attributes map[string]any

func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return maps.Clone(a)
}

// Record is one row of a resource collection. It marshals flat, with the
// attributes next to id and the timestamps.
type Record struct {
	ID         int64
	Attributes Attributes
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Attributes)+3)
	for k, v := range r.Attributes {
		out[k] = v
	}
	out["id"] = r.ID
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*r = Record{Attributes: Attributes{}}
	for k, v := range raw {
		var err error
		switch k {
		case "id":
			err = json.Unmarshal(v, &r.ID)
		case "createdAt":
			err = json.Unmarshal(v, &r.CreatedAt)
		case "updatedAt":
			err = json.Unmarshal(v, &r.UpdatedAt)
		default:
			var val any
			err = json.Unmarshal(v, &val)
			if n, ok := val.(float64); ok {
				val = int64(n)
			}
			r.Attributes[k] = val
		}
		if err != nil {
			return fmt.Errorf("decode record field %q: %w", k, err)
		}
	}
	return nil
}
