package output

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/astrofront/astrofront/internal/server/handlers"
)

// YAMLFormatter renders a status snapshot as YAML.
type YAMLFormatter struct{}

// FormatStatus renders the snapshot as YAML. The value round-trips through a
// map so YAML keys match the JSON wire names instead of Go field names.
func (f *YAMLFormatter) FormatStatus(status *handlers.StatusResponse) (string, error) {
	if status == nil {
		return "", nil
	}

	encoded, err := json.Marshal(status)
	if err != nil {
		return "", err
	}

	var doc map[string]any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return "", err
	}

	rendered, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}

	return strings.TrimRight(string(rendered), "\n"), nil
}
