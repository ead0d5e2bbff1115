package indicator

import (
	"encoding/json"
	"testing"
)

func TestValue_JSON_NullForUndefined(t *testing.T) {
	s := Series{Undefined(), Val(1.5), Val(2)}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[null,1.5,2]" {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var back Series
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[0].Defined {
		t.Error("null decoded as defined")
	}
	if !back[1].Defined || back[1].V != 1.5 {
		t.Errorf("value decoded wrong: %+v", back[1])
	}
}

func TestSeries_Last(t *testing.T) {
	if Series(nil).Last().Defined {
		t.Error("empty series Last should be undefined")
	}
	s := Series{Undefined(), Val(3)}
	if got := s.Last(); !got.Defined || got.V != 3 {
		t.Errorf("Last = %+v, want defined 3", got)
	}
}

func TestSeries_FirstDefined(t *testing.T) {
	if got := (Series{Undefined(), Undefined()}).FirstDefined(); got != -1 {
		t.Errorf("FirstDefined = %d, want -1", got)
	}
	if got := (Series{Undefined(), Val(1), Val(2)}).FirstDefined(); got != 1 {
		t.Errorf("FirstDefined = %d, want 1", got)
	}
}
