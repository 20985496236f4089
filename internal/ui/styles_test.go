package ui

import (
	"strings"
	"testing"
)

func TestFormatControl(t *testing.T) {
	tests := []struct {
		name string
		key  string
		desc string
		want string
	}{
		{
			name: "basic control",
			key:  "q",
			desc: "Quit",
			want: "q Quit",
		},
		{
			name: "longer key",
			key:  "Space",
			desc: "Pause trace",
			want: "Space Pause trace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatControl(tt.key, tt.desc)
			// Check that it contains both key and description
			if !strings.Contains(got, tt.key) {
				t.Errorf("FormatControl() missing key %q", tt.key)
			}
			if !strings.Contains(got, tt.desc) {
				t.Errorf("FormatControl() missing description %q", tt.desc)
			}
		})
	}
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		status    string
	}{
		{
			name:      "connected status",
			connected: true,
			status:    "Tracing wayland-1",
		},
		{
			name:      "disconnected status",
			connected: false,
			status:    "Disconnected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatStatus(tt.connected, tt.status)

			// Should contain the status text
			if !strings.Contains(got, tt.status) {
				t.Errorf("FormatStatus() missing status text %q", tt.status)
			}

			// Should have different indicators
			if tt.connected && !strings.Contains(got, "●") {
				t.Errorf("FormatStatus() connected=true should contain filled circle")
			}
			if !tt.connected && !strings.Contains(got, "○") {
				t.Errorf("FormatStatus() connected=false should contain empty circle")
			}
		})
	}
}

func TestFormatResult(t *testing.T) {
	ok := FormatResult(true, "socket", "")
	if !strings.Contains(ok, IconSuccess) || !strings.Contains(ok, "socket") {
		t.Errorf("FormatResult(true) = %q", ok)
	}

	failed := FormatResult(false, "keyboard", "permission denied")
	if !strings.Contains(failed, IconError) {
		t.Errorf("FormatResult(false) missing error icon: %q", failed)
	}
	if !strings.Contains(failed, "permission denied") {
		t.Errorf("FormatResult(false) missing message: %q", failed)
	}
}

func TestFormatTableAlignsColumns(t *testing.T) {
	out := FormatTable(
		[]string{"PATH", "TYPE"},
		[][]string{
			{"/dev/input/event3", "keyboard"},
			{"/dev/input/event12", "pointer"},
		},
	)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("FormatTable() produced %d lines, want 3", len(lines))
	}
	// Second column starts at the same offset on every row.
	col := strings.Index(lines[1], "keyboard")
	if col < 0 || strings.Index(lines[2], "pointer") != col {
		t.Errorf("columns not aligned:\n%s", out)
	}
}

func TestCreateSeparator(t *testing.T) {
	tests := []struct {
		name  string
		width int
		char  string
		want  int
	}{
		{"explicit", 10, "=", 10},
		{"defaults", 0, "", 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateSeparator(tt.width, tt.char)
			char := tt.char
			if char == "" {
				char = "─"
			}
			if n := strings.Count(got, char); n != tt.want {
				t.Errorf("CreateSeparator() has %d runes, want %d", n, tt.want)
			}
		})
	}
}
