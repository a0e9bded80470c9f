package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/engramd/internal/services"
)

func TestFormatStatusline(t *testing.T) {
	tests := []struct {
		name   string
		status *services.Status
		want   string
	}{
		{
			name:   "unreachable",
			status: nil,
			want:   "\033[31m\U0001f534\033[0m engramd unreachable",
		},
		{
			name: "healthy",
			status: &services.Status{
				Engrams:        4,
				ByStatus:       map[string]int{"active": 4},
				JournalEntries: 2,
			},
			want: "\U0001f7e2 │ \U0001f9e04/4 │ \U0001f4d32",
		},
		{
			name: "pending candidates and packs",
			status: &services.Status{
				Engrams:         5,
				ByStatus:        map[string]int{"active": 3, "candidate": 2},
				Packs:           1,
				Recommendations: []string{"promote"},
			},
			want: "\U0001f7e1 │ \U0001f9e03/5 │ \U0001f3312 │ \U0001f4e61 │ \U0001f4d30",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatStatusline(tt.status))
		})
	}
}

func TestStatuslineCmd_Server(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(services.Status{Engrams: 1, ByStatus: map[string]int{"active": 1}})
	}))
	defer server.Close()

	out, err := execute(t, t.TempDir(), "", "statusline", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "\U0001f9e01/1")

	server.Close()
	out, err = execute(t, t.TempDir(), "", "statusline", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "unreachable")
}

func TestStatuslineCmd_Local(t *testing.T) {
	root := t.TempDir()
	learnJSON(t, root, "Keep functions short")

	out, err := execute(t, root, "", "statusline")
	require.NoError(t, err)
	assert.Contains(t, out, "\U0001f9e00/1")
	assert.Contains(t, out, "\U0001f3311")
}
