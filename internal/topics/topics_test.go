package topics

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"modes.md":          {Data: []byte("# Modes\n\nLive or plain.\n")},
		"nested/limits.txt": {Data: []byte("Limits apply.")},
		"ignored.json":      {Data: []byte("{}")},
	}
}

// upper is a renderer that makes its effect visible
type upper struct{}

func (upper) Render(content string, ext string) (string, error) {
	return "[" + ext + "]" + content, nil
}

func TestLoad(t *testing.T) {
	m, err := Load(testFS())
	require.NoError(t, err)

	assert.Equal(t, []string{"limits", "modes"}, m.Names())

	topic, ok := m.Get("modes")
	require.True(t, ok)
	assert.Equal(t, ".md", topic.Ext)
	assert.Contains(t, topic.Content, "Live or plain.")

	_, ok = m.Get("ignored")
	assert.False(t, ok)
}

func TestLoadCustomExtensions(t *testing.T) {
	m, err := Load(testFS(), ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{"ignored"}, m.Names())
}

func TestInstall(t *testing.T) {
	m, err := Load(testFS())
	require.NoError(t, err)

	newRoot := func() (*cobra.Command, *bytes.Buffer) {
		root := &cobra.Command{Use: "app", Run: func(*cobra.Command, []string) {}}
		root.AddCommand(&cobra.Command{Use: "serve", Short: "Serve things", Run: func(*cobra.Command, []string) {}})
		m.Install(root, func(*cobra.Command) Renderer { return upper{} })
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		return root, &out
	}

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"topic list", []string{"help", "topics"}, "Available help topics:\n  limits\n  modes\n", false},
		{"markdown topic", []string{"help", "modes"}, "[.md]# Modes", false},
		{"text topic", []string{"help", "limits"}, "[.txt]Limits apply.", false},
		{"command help", []string{"help", "serve"}, "Serve things", false},
		{"unknown", []string{"help", "nope"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, out := newRoot()
			root.SetArgs(tt.args)
			err := root.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestRenderers(t *testing.T) {
	out, err := PlainRenderer{}.Render("# Title", ".md")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)

	out, err = GlamourRenderer{}.Render("plain text", ".txt")
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = GlamourRenderer{Width: 40}.Render("# Title\n\nSome **bold** words.", ".md")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}
