package permissions

import (
	"reflect"
	"testing"

	"github.com/petems/localmedia/internal/media"
)

func TestForConstraints(t *testing.T) {
	tests := []struct {
		name string
		in   media.Constraints
		want []Source
	}{
		{"audio and video", media.Constraints{Audio: true, Video: true}, []Source{Microphone, Camera}},
		{"audio only", media.Constraints{Audio: true}, []Source{Microphone}},
		{"nothing", media.Constraints{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ForConstraints(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	if Denied.String() != "denied" {
		t.Errorf("unexpected string %q", Denied.String())
	}
	if Status(42).String() != "unknown" {
		t.Errorf("unexpected string %q", Status(42).String())
	}
}
