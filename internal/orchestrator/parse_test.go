package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Request
		wantErr bool
	}{
		{
			name: "plain text becomes explain",
			line: "  how does the retry loop work? ",
			want: Request{Command: CommandExplain, Context: "how does the retry loop work?"},
		},
		{
			name: "command with args and flags",
			line: "/implement login form --persona-frontend --magic --think-hard",
			want: Request{
				Command: CommandImplement,
				Args:    []string{"login", "form"},
				Context: "login form",
				Flags:   Flags{Persona: PersonaFrontend, Magic: true, ThinkHard: true},
			},
		},
		{
			name: "capability switches",
			line: "/analyze --all-mcp --no-mcp --safe-mode --answer-only",
			want: Request{
				Command: CommandAnalyze,
				Flags:   Flags{All: true, None: true, SafeMode: true, AnswerOnly: true},
			},
		},
		{
			name: "unknown flags are ignored",
			line: "/test --validate --uc",
			want: Request{Command: CommandTest},
		},
		{name: "empty line", line: "   ", wantErr: true},
		{name: "unknown command", line: "/deploy now", wantErr: true},
		{name: "unknown persona", line: "/build --persona-wizard", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequestLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
