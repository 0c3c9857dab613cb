package role

import (
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		hints Hints
		want  DeviceRole
	}{
		{"desktop agent", Hints{UserAgent: "Mozilla/5.0 (X11; Linux x86_64)"}, PC},
		{"iphone", Hints{UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)"}, Mobile},
		{"android lower case", Hints{UserAgent: "localbridge/dev (android)"}, Mobile},
		{"opera mini", Hints{UserAgent: "Opera Mini/8.0"}, Mobile},
		{"narrow viewport", Hints{UserAgent: "desktop", ViewportWidth: 767}, Mobile},
		{"boundary viewport", Hints{UserAgent: "desktop", ViewportWidth: 768}, PC},
		{"unknown viewport", Hints{UserAgent: "desktop", ViewportWidth: 0}, PC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.hints); got != tt.want {
				t.Errorf("Detect(%+v) = %q, want %q", tt.hints, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if r, err := Parse(" Mobile "); err != nil || r != Mobile {
		t.Errorf("Parse(Mobile) = %q, %v", r, err)
	}
	if r, err := Parse("pc"); err != nil || r != PC {
		t.Errorf("Parse(pc) = %q, %v", r, err)
	}
	if _, err := Parse("tablet"); err == nil {
		t.Error("expected error for tablet")
	}
}

func TestEndpointsSwapOnToggle(t *testing.T) {
	for _, r := range []DeviceRole{PC, Mobile} {
		toggled := r.Peer()
		if r.ReadPath() != toggled.WritePath() {
			t.Errorf("%s reads %s but peer writes %s", r, r.ReadPath(), toggled.WritePath())
		}
		if r.WritePath() != toggled.ReadPath() {
			t.Errorf("%s writes %s but peer reads %s", r, r.WritePath(), toggled.ReadPath())
		}
		if r.Labels().Display == toggled.Labels().Display {
			t.Errorf("display label did not change on toggle from %s", r)
		}
	}
	if PC.ReadPath() != "/api/clipboard/mobile" || PC.WritePath() != "/api/clipboard/pc" {
		t.Errorf("pc paths: read %s write %s", PC.ReadPath(), PC.WritePath())
	}
}

func TestLabels(t *testing.T) {
	pc := PC.Labels()
	want := Labels{
		Display:     "Mobile Clipboard Content:",
		Input:       "Set PC Clipboard:",
		Placeholder: "Enter text to copy to PC clipboard",
		SetButton:   "Copy to PC",
		CopyButton:  "Copy to PC clipboard",
	}
	if pc != want {
		t.Errorf("pc labels = %+v, want %+v", pc, want)
	}
	m := Mobile.Labels()
	if m.Display != "PC Clipboard Content:" || m.Placeholder != "Enter text to copy to mobile clipboard" || m.SetButton != "Copy to Mobile" {
		t.Errorf("mobile labels = %+v", m)
	}
}

func TestStorePersistsRole(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "state.toml"))

	if _, ok, err := s.Load(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	if got, err := s.Resolve(Hints{UserAgent: "iPad"}); err != nil || got != Mobile {
		t.Fatalf("Resolve without state = %q, %v", got, err)
	}

	if err := s.Save(PC); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Resolve(Hints{UserAgent: "iPad"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != PC {
		t.Errorf("persisted role should win over detection, got %q", got)
	}
}
