package periph

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeSysfs lays out the attribute files a board with the default wiring has.
func fakeSysfs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{
		"class/gpio/gpio13", "class/gpio/gpio11", "class/gpio/gpio5",
		"class/leds/usr_led",
		"class/pwm/pwmchip0/pwm0",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "class/gpio/gpio5/value"), []byte("1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func readAttr(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestNoopController(t *testing.T) {
	ctrl := newNoop(discardLogger(), true)

	// Should never panic
	ctrl.SetOutput("red", true)
	ctrl.SetDuty("buzzer", 2048)

	if !ctrl.ReadInput("button_a") {
		t.Error("noop input should read as released (high)")
	}
	if ch := ctrl.Available(); len(ch.Outputs)+len(ch.PWM)+len(ch.Inputs) != 0 {
		t.Errorf("Available() = %v, want empty", ch)
	}
}

func TestSysfsSetOutput(t *testing.T) {
	root := fakeSysfs(t)
	s, err := newSysfs(SysfsOptions{
		Root:    root,
		Outputs: []Mapping{{"red", "13"}, {"user", "usr_led"}},
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatalf("newSysfs() failed: %v", err)
	}

	tests := []struct {
		channel string
		on      bool
		file    string
		want    string
	}{
		{"red", true, "class/gpio/gpio13/value", "1"},
		{"red", false, "class/gpio/gpio13/value", "0"},
		{"user", true, "class/leds/usr_led/brightness", "1"},
	}

	for _, tt := range tests {
		s.SetOutput(tt.channel, tt.on)
		if got := readAttr(t, root, tt.file); got != tt.want {
			t.Errorf("SetOutput(%s, %v): %s = %q, want %q", tt.channel, tt.on, tt.file, got, tt.want)
		}
	}

	// Unknown channel is dropped, not fatal
	s.SetOutput("nonexistent", true)
}

func TestSysfsSetDuty(t *testing.T) {
	root := fakeSysfs(t)
	s, err := newSysfs(SysfsOptions{
		Root:     root,
		PWM:      []Mapping{{"buzzer", "0:0"}},
		MaxDuty:  4095,
		PeriodNs: 4095000,
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("newSysfs() failed: %v", err)
	}

	s.SetDuty("buzzer", 2048)
	if got := readAttr(t, root, "class/pwm/pwmchip0/pwm0/duty_cycle"); got != "2048000" {
		t.Errorf("duty_cycle = %q, want 2048000", got)
	}

	s.SetDuty("buzzer", 60000)
	if got := readAttr(t, root, "class/pwm/pwmchip0/pwm0/duty_cycle"); got != "4095000" {
		t.Errorf("duty_cycle = %q, want clamp to period", got)
	}

	s.SetDuty("buzzer", 0)
	if got := readAttr(t, root, "class/pwm/pwmchip0/pwm0/duty_cycle"); got != "0" {
		t.Errorf("duty_cycle = %q, want 0", got)
	}
}

func TestSysfsReadInput(t *testing.T) {
	root := fakeSysfs(t)
	s, err := newSysfs(SysfsOptions{
		Root:      root,
		Inputs:    []Mapping{{"button_a", "5"}, {"button_b", "6"}},
		ActiveLow: true,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatalf("newSysfs() failed: %v", err)
	}

	if !s.ReadInput("button_a") {
		t.Error("button_a should read high")
	}

	valuePath := filepath.Join(root, "class/gpio/gpio5/value")
	if err := os.WriteFile(valuePath, []byte("0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if s.ReadInput("button_a") {
		t.Error("button_a should read low after write")
	}

	// A failed read repeats the last good level
	if err := os.Remove(valuePath); err != nil {
		t.Fatal(err)
	}
	if s.ReadInput("button_a") {
		t.Error("failed read should repeat last level (low)")
	}

	// gpio6 never existed: idle level
	if !s.ReadInput("button_b") {
		t.Error("unreadable input should default to high")
	}
}

func TestSysfsMissing(t *testing.T) {
	root := fakeSysfs(t)
	s, err := newSysfs(SysfsOptions{
		Root:    root,
		Outputs: []Mapping{{"red", "13"}, {"blue", "12"}},
		PWM:     []Mapping{{"buzzer", "0:0"}, {"horn", "1:0"}},
		Inputs:  []Mapping{{"button_a", "5"}},
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatalf("newSysfs() failed: %v", err)
	}

	// gpio13/value does not exist until first write; gpio12 and pwmchip1 are absent
	missing := s.Missing()
	if len(missing) != 3 {
		t.Errorf("Missing() = %v, want 3 entries", missing)
	}
}

func TestNewSysfsBadInput(t *testing.T) {
	_, err := newSysfs(SysfsOptions{Root: t.TempDir(), Inputs: []Mapping{{"button_a", "usr_led"}}})
	if err == nil {
		t.Fatal("expected error for non-numeric input target")
	}
}

func TestSimRecordsChanges(t *testing.T) {
	var now time.Duration
	s := NewSim(SimOptions{
		Outputs:   []string{"red"},
		PWM:       []string{"buzzer"},
		Inputs:    []string{"button_a"},
		IdleInput: true,
		Clock:     func() time.Duration { return now },
	})

	s.SetOutput("red", true)
	now = 100 * time.Millisecond
	s.SetDuty("buzzer", 9000)

	if !s.Output("red") {
		t.Error("red should be on")
	}
	if got := s.Duty("buzzer"); got != DefaultMaxDuty {
		t.Errorf("Duty() = %d, want clamp to %d", got, DefaultMaxDuty)
	}

	h := s.History()
	if len(h) != 2 {
		t.Fatalf("History() len = %d, want 2", len(h))
	}
	if h[1].At != 100*time.Millisecond || h[1].Kind != KindPWM {
		t.Errorf("History()[1] = %+v", h[1])
	}
}

func TestSimPressRelease(t *testing.T) {
	s := NewSim(SimOptions{Inputs: []string{"button_a"}, IdleInput: true})

	if !s.ReadInput("button_a") {
		t.Fatal("released pull-up input should read high")
	}
	s.Press("button_a")
	if s.ReadInput("button_a") {
		t.Error("pressed pull-up input should read low")
	}
	s.Release("button_a")
	if !s.ReadInput("button_a") {
		t.Error("input should read high after release")
	}

	if err := s.Tap("button_z", time.Millisecond); err == nil {
		t.Error("Tap on unknown input should fail")
	}

	if err := s.Tap("button_a", time.Millisecond); err != nil {
		t.Fatalf("Tap() failed: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for !s.ReadInput("button_a") {
		if time.Now().After(deadline) {
			t.Fatal("Tap did not release the input")
		}
		time.Sleep(time.Millisecond)
	}
}
