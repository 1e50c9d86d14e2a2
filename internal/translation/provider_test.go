package translation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const enquiryJSON = `{
  "name": "auto-accept",
  "type": "enquiry",
  "rules": [
    {"condition": "true", "action": {"name": "autoProcess", "parameters": ["accept"]}}
  ]
}`

const enquiryYAML = `name: tag-staff
type: enquiry
rules:
  - condition: "'staff' in groups"
    action:
      name: addAttribute
      parameters: [role, /, staff]
`

func writeProfile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadSystemProfiles(t *testing.T) {
	t.Run("loads json and yaml as read only", func(t *testing.T) {
		dir := t.TempDir()
		writeProfile(t, dir, "a.json", enquiryJSON)
		writeProfile(t, dir, "b.yaml", enquiryYAML)
		writeProfile(t, dir, "README.md", "ignored")

		sp, err := LoadSystemProfiles(dir, ProfileTypeEnquiry)
		require.NoError(t, err)
		list := sp.List()
		require.Len(t, list, 2)
		assert.Equal(t, "auto-accept", list[0].Name)
		assert.Equal(t, "tag-staff", list[1].Name)
		assert.Equal(t, ProfileModeReadOnly, list[0].Mode)

		p, ok := sp.Get("tag-staff")
		require.True(t, ok)
		assert.Equal(t, []string{"role", "/", "staff"}, p.Rules[0].Action.Parameters)
	})

	t.Run("type mismatch fails", func(t *testing.T) {
		dir := t.TempDir()
		writeProfile(t, dir, "a.json", enquiryJSON)
		_, err := LoadSystemProfiles(dir, ProfileTypeRegistration)
		assert.ErrorContains(t, err, "expected registration")
	})

	t.Run("duplicate names fail", func(t *testing.T) {
		dir := t.TempDir()
		writeProfile(t, dir, "a.json", enquiryJSON)
		writeProfile(t, dir, "b.json", enquiryJSON)
		_, err := LoadSystemProfiles(dir, ProfileTypeEnquiry)
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("no directory configured", func(t *testing.T) {
		sp, err := LoadSystemProfiles("", ProfileTypeEnquiry)
		require.NoError(t, err)
		assert.Empty(t, sp.List())
	})
}
