package crops

import (
	"encoding/json"
	"testing"
)

type optionalProbe struct {
	Year  Optional[int]     `json:"year"`
	Area  Optional[float64] `json:"area"`
	State Optional[string]  `json:"state"`
}

func TestOptionalTracksPresence(t *testing.T) {
	var p optionalProbe
	if err := json.Unmarshal([]byte(`{"year": 2001, "area": null}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Year.Set || p.Year.Value != 2001 {
		t.Fatalf("year: want=set(2001) got=%+v", p.Year)
	}
	if p.Area.Set {
		t.Fatalf("area: null must decode as absent, got=%+v", p.Area)
	}
	if p.State.Set {
		t.Fatalf("state: missing key must decode as absent, got=%+v", p.State)
	}
}

func TestOptionalZeroValueIsSupplied(t *testing.T) {
	var p optionalProbe
	if err := json.Unmarshal([]byte(`{"area": 0}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Area.Set || p.Area.Value != 0 {
		t.Fatalf("area: want=set(0) got=%+v", p.Area)
	}
}

func TestOptionalRejectsWrongType(t *testing.T) {
	var p optionalProbe
	if err := json.Unmarshal([]byte(`{"year": "soon"}`), &p); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestOptionalMarshal(t *testing.T) {
	b, err := json.Marshal(optionalProbe{Year: Some(1999)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"year":1999,"area":null,"state":null}`
	if string(b) != want {
		t.Fatalf("marshal: want=%s got=%s", want, b)
	}
}
