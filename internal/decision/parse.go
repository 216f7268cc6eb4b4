package decision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"meme-workers/internal/common/errors"

	"github.com/kaptinlin/jsonrepair"
)

// absentMarkers are strategy-field values that agents emit for "not set".
var absentMarkers = map[string]bool{"": true, "none": true, "null": true, "nil": true, "n/a": true}

// optionalFields are the strategy fields that may be absent.
var optionalFields = []string{"search", "link", "template_key"}

// ParseRaw turns agent output into a JSON-compatible document with
// canonical lower-case keys. raw may be a JSON object (decoded map or
// struct) or its text; malformed text is repaired before decoding.
func ParseRaw(raw interface{}) (map[string]interface{}, error) {
	var doc map[string]interface{}

	switch v := raw.(type) {
	case nil:
		return nil, errors.NewSchemaError("decision is required", "decision")
	case map[string]interface{}:
		doc = v
	case string:
		parsed, err := decodeText([]byte(v))
		if err != nil {
			return nil, err
		}
		doc = parsed
	case []byte:
		parsed, err := decodeText(v)
		if err != nil {
			return nil, err
		}
		doc = parsed
	case json.RawMessage:
		parsed, err := decodeText(v)
		if err != nil {
			return nil, err
		}
		doc = parsed
	default:
		// Typed values round-trip through JSON.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.NewSchemaError(fmt.Sprintf("decision is not serializable: %v", err), "decision")
		}
		parsed, err := decodeText(b)
		if err != nil {
			return nil, err
		}
		doc = parsed
	}

	return normalizeKeys(doc)
}

func decodeText(data []byte) (map[string]interface{}, error) {
	data = stripFences(bytes.TrimSpace(data))
	if len(data) == 0 {
		return nil, errors.NewSchemaError("decision is empty", "decision")
	}

	var out interface{}
	if err := unmarshalJSON(data, &out); err != nil {
		return nil, errors.NewSchemaError(fmt.Sprintf("decision is not valid JSON: %v", err), "decision")
	}

	// Agents sometimes double-encode the record as a JSON string.
	if s, ok := out.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "{") {
		return decodeText([]byte(s))
	}

	doc, ok := out.(map[string]interface{})
	if !ok {
		return nil, errors.NewSchemaError(fmt.Sprintf("decision must be an object, got %T", out), "decision")
	}
	return doc, nil
}

// unmarshalJSON retries with jsonrepair when data has a syntax error.
func unmarshalJSON(data []byte, v interface{}) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return rerr
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

// stripFences removes a surrounding markdown code fence.
func stripFences(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("```")) {
		return data
	}
	data = bytes.TrimPrefix(data, []byte("```"))
	if nl := bytes.IndexByte(data, '\n'); nl >= 0 {
		data = data[nl+1:]
	}
	data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte("```"))
	return bytes.TrimSpace(data)
}

// normalizeKeys maps doc onto canonical keys. Raw keys are visited in
// sorted order; when two of them land on the same field, an absent value
// yields to a set one and two different set values are a schema error.
func normalizeKeys(doc map[string]interface{}) (map[string]interface{}, error) {
	raw := make([]string, 0, len(doc))
	for k := range doc {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	out := make(map[string]interface{}, len(doc))
	from := make(map[string]string, len(doc))
	for _, k := range raw {
		key := canonicalKey(k)
		v := doc[k]
		prev, dup := from[key]
		if !dup {
			out[key], from[key] = v, k
			continue
		}
		switch {
		case isAbsent(v):
		case isAbsent(out[key]):
			out[key], from[key] = v, k
		case !reflect.DeepEqual(out[key], v):
			return nil, errors.NewSchemaError(
				fmt.Sprintf("decision keys %q and %q both set %s with different values", prev, k, key), key)
		}
	}

	for _, f := range optionalFields {
		s, ok := out[f].(string)
		if !ok {
			continue
		}
		if absentMarkers[strings.ToLower(strings.TrimSpace(s))] {
			out[f] = nil
		} else {
			out[f] = strings.TrimSpace(s)
		}
	}
	return out, nil
}

func isAbsent(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && absentMarkers[strings.ToLower(strings.TrimSpace(s))]
}

func canonicalKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.NewReplacer("-", "_", " ", "_").Replace(k)
	switch k {
	case "templatekey", "template_id":
		return "template_key"
	case "query", "search_query":
		return "search"
	case "url", "meme_link":
		return "link"
	case "lines", "texts":
		return "text"
	}
	return k
}
