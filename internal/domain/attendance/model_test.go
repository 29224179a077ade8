package attendance

import (
	"testing"
	"time"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"valid", Record{ClassID: "c", EnrolledStudentID: "s", SessionDate: "2025-03-07"}, false},
		{"no class", Record{EnrolledStudentID: "s", SessionDate: "2025-03-07"}, true},
		{"no student", Record{ClassID: "c", SessionDate: "2025-03-07"}, true},
		{"bad date", Record{ClassID: "c", EnrolledStudentID: "s", SessionDate: "7/3/25"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.record.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecord_Mark(t *testing.T) {
	t1 := time.Date(2025, 3, 7, 18, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	var r Record

	if r.Mark(false, "inst", t1) {
		t.Error("absent mark should not transition")
	}
	if !r.CheckedInAt.IsZero() {
		t.Error("CheckedInAt set for absent")
	}
	if !r.Mark(true, "inst", t1) {
		t.Error("false -> true should transition")
	}
	if !r.CheckedInAt.Equal(t1) {
		t.Errorf("CheckedInAt = %v", r.CheckedInAt)
	}
	if r.Mark(true, "inst", t2) {
		t.Error("true -> true should not transition")
	}
	if !r.CheckedInAt.Equal(t1) {
		t.Error("CheckedInAt changed on repeat mark")
	}
	r.Mark(false, "inst", t2)
	if r.Present || !r.UpdatedAt.Equal(t2) {
		t.Errorf("after unmark: %+v", r)
	}
}
