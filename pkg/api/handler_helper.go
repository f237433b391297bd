package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dd0wney/infrasim/pkg/level"
)

// errBodyTooLarge is reported when MaxBytesReader trips mid-read.
var errBodyTooLarge = errors.New("request body too large")

// requestFormat picks the document format: an explicit ?format= wins,
// then the Content-Type, then sniffing.
func requestFormat(r *http.Request) (level.Format, error) {
	if name := r.URL.Query().Get("format"); name != "" {
		return level.ParseFormat(name)
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return level.FormatAuto, nil
	}
	switch mediaType {
	case "application/json":
		return level.FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return level.FormatYAML, nil
	default:
		return level.FormatAuto, nil
	}
}

// readDocument reads the request body and its format. The returned status
// is the one to answer with when err is non-nil.
func readDocument(r *http.Request) ([]byte, level.Format, int, error) {
	format, err := requestFormat(r)
	if err != nil {
		return nil, 0, http.StatusBadRequest, err
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, 0, http.StatusRequestEntityTooLarge, errBodyTooLarge
		}
		return nil, 0, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err)
	}
	return data, format, 0, nil
}

// intParam parses an optional integer query parameter.
func intParam(q url.Values, name string, def int64) (int64, bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, false, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %q is not an integer", name, raw)
	}
	return n, true, nil
}
