package condition

import (
	"testing"
	"time"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "Empty", text: ""},
		{name: "Time Of Day", text: "now.Hour() < 18"},
		{name: "Action Restriction", text: `action == "read" && resource == "database"`},
		{name: "Agent Prefix", text: `agent_id startsWith "prod-"`},
		{name: "Not Bool", text: `"just a string"`, wantErr: true},
		{name: "Unknown Identifier", text: "tide == high", wantErr: true},
		{name: "Syntax Error", text: "action ==", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("Compile(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	env := Env{
		AgentID:  "a1",
		Action:   "read",
		Resource: "database",
		Now:      time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "Nil Program Matches", text: "", want: true},
		{name: "Hour Below Cutoff", text: "now.Hour() < 18", want: true},
		{name: "Hour Above Cutoff", text: "now.Hour() > 18", want: false},
		{name: "Triple Match", text: `agent_id == "a1" && action == "read"`, want: true},
		{name: "Resource Mismatch", text: `resource == "api"`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := Compile(tt.text)
			if err != nil {
				t.Fatalf("Compile(%q) unexpected error: %v", tt.text, err)
			}
			got, err := Evaluate(program, env)
			if err != nil {
				t.Fatalf("Evaluate(%q) unexpected error: %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
