package output

import (
	"encoding/json"

	"github.com/astrofront/astrofront/internal/server/handlers"
)

// JSONFormatter renders a status snapshot as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatStatus renders the snapshot with the wire field names.
func (f *JSONFormatter) FormatStatus(status *handlers.StatusResponse) (string, error) {
	if status == nil {
		return "", nil
	}

	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(status, "", "  ")
	} else {
		data, err = json.Marshal(status)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
