package intelligence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"
)

const maxPayloadBytes = 10 << 20

// decodeJSON reads exactly one JSON object into dst. Unknown fields are an
// error: every writable field is declared on the input type.
func decodeJSON(r io.Reader, dst interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("empty request body")
		}
		if errors.Is(err, ErrValidation) {
			return err
		}
		return invalid("%s", strings.TrimPrefix(err.Error(), "json: "))
	}
	if dec.More() {
		return invalid("request body must hold a single JSON object")
	}
	return nil
}

// Form fields that clear their column when sent empty.
var clearingFormFields = map[string]bool{
	"closed_date":   true,
	"lead_agent_id": true,
	"image":         true,
	"photo":         true,
	"last_seen":     true,
}

// Form fields that are ignored when sent empty.
var optionalFormFields = map[string]bool{
	"opened_date": true,
	"date_time":   true,
	"priority":    true,
	"status":      true,
}

// formJSON turns submitted form values into the equivalent JSON object so
// forms go through the same strict decoding as JSON bodies.
func formJSON(values map[string][]string) ([]byte, error) {
	obj := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		switch {
		case v == "" && clearingFormFields[key]:
			obj[key] = nil
		case v == "" && optionalFormFields[key]:
		default:
			obj[key] = v
		}
	}
	return json.Marshal(obj)
}

// decodeRequest reads the body as JSON, or as a form when allowForm is set
// and the request says it carries one.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, allowForm bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		if !allowForm {
			return invalid("expected a JSON body")
		}
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxPayloadBytes); err != nil {
				return invalid("bad form: %v", err)
			}
			if files := r.MultipartForm.File; len(files) > 0 {
				names := make([]string, 0, len(files))
				for name := range files {
					names = append(names, name)
				}
				sort.Strings(names)
				return invalid("file uploads are not accepted: %s", strings.Join(names, ", "))
			}
		} else if err := r.ParseForm(); err != nil {
			return invalid("bad form: %v", err)
		}
		data, err := formJSON(r.PostForm)
		if err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
		return decodeJSON(bytes.NewReader(data), dst)
	default:
		return decodeJSON(r.Body, dst)
	}
}
