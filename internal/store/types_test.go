package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
)

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Record)
		field  string
	}{
		{"valid", func(r *Record) {}, ""},
		{"empty_id", func(r *Record) { r.ID = "" }, "ID"},
		{"no_foreground", func(r *Record) { r.Foreground = "" }, "Foreground"},
		{"no_background", func(r *Record) { r.Background = "" }, "Background"},
		{"zero_layers", func(r *Record) { r.Layers = 0 }, "Layers"},
		{"too_many_layers", func(r *Record) { r.Layers = shadow.MaxLayers + 1 }, "Layers"},
		{"zero_timestamp", func(r *Record) { r.Timestamp = time.Time{} }, "Timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := createTestRecord("render-1")
			tt.mutate(rec)
			err := rec.Validate()

			if tt.field == "" {
				if err != nil {
					t.Errorf("Expected valid record, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestRecordToInfo(t *testing.T) {
	rec := createTestRecord("render-info")
	info := rec.ToInfo()

	if info.ID != rec.ID || info.Foreground != rec.Foreground || info.Background != rec.Background {
		t.Errorf("Info mismatch: %+v", info)
	}
	if info.Light != rec.Light {
		t.Errorf("Light mismatch: %+v", info.Light)
	}
	if !info.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp mismatch")
	}
}

func TestNewRecordFromResult(t *testing.T) {
	fg, _ := raster.New(10, 10)
	bg, _ := raster.New(40, 40)
	res, err := shadow.Synthesize(context.Background(), shadow.Inputs{Foreground: fg, Background: bg},
		shadow.Params{Light: shadow.Light{Angle: 400, Elevation: 30, Intensity: 0.5}, Layers: 3})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	rec := NewRecord("render-new", "fg.png", "bg.png", "", res)
	if err := rec.Validate(); err != nil {
		t.Fatalf("NewRecord produced invalid record: %v", err)
	}
	if rec.Light.Angle != 40 {
		t.Errorf("Record should carry the normalized light, got angle %v", rec.Light.Angle)
	}
	if rec.Layers != 3 {
		t.Errorf("Layers = %d, want 3", rec.Layers)
	}
	if rec.DropShadow != res.DropShadow.String() {
		t.Errorf("DropShadow = %q", rec.DropShadow)
	}
}
