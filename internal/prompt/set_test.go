package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSetYAML = `
name: street-audit
prompts:
  - id: people
    text: Are there people in the image?
    result_type: yes_no
  - text: Describe what they are doing.
    result_type: text
    parent_id: people
    condition: "yes"
  - id: cars
    text: Find every car.
    result_type: bounding_box
`

func TestLoadSet(t *testing.T) {
	set, err := LoadSet("street-audit.yaml", []byte(sampleSetYAML))
	require.NoError(t, err)
	require.Equal(t, "street-audit", set.Name)
	require.Len(t, set.Prompts, 3)

	// Prompts without an explicit id get a generated one.
	require.NotEmpty(t, set.Prompts[1].ID)
	require.Equal(t, "people", set.Prompts[1].ParentID)

	forest, err := set.Forest()
	require.NoError(t, err)
	require.Equal(t, 3, forest.Len())
	require.Len(t, forest.TopLevel(), 2)
}

func TestLoadSetRejectsBadParent(t *testing.T) {
	_, err := LoadSet("bad.yaml", []byte(`
name: bad
prompts:
  - id: orphan
    text: Child with missing parent.
    result_type: text
    parent_id: ghost
    condition: "yes"
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parent")
}

func TestLoadSetRoundTrip(t *testing.T) {
	set, err := LoadSet("street-audit.yaml", []byte(sampleSetYAML))
	require.NoError(t, err)

	data, err := set.Marshal()
	require.NoError(t, err)

	again, err := LoadSet("roundtrip", data)
	require.NoError(t, err)
	require.Equal(t, set.Name, again.Name)
	require.Len(t, again.Prompts, len(set.Prompts))
}
