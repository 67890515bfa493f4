package archive

import (
	"encoding/json"

	"go.trai.ch/zerr"
)

// TransformJSON applies object-level transforms to JSON entries and returns
// how many entries matched. Rewritten entries are re-marshaled with sorted
// keys, keeping the output deterministic.
func TransformJSON(path string, transforms map[string]func(map[string]any) (map[string]any, error)) (int, error) {
	raw := make(map[string]func([]byte) ([]byte, error), len(transforms))
	for name, fn := range transforms {
		raw[name] = jsonTransform(fn)
	}
	return Transform(path, raw)
}

func jsonTransform(fn func(map[string]any) (map[string]any, error)) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, zerr.Wrap(err, "failed to parse JSON entry")
		}
		obj, err := fn(obj)
		if err != nil {
			return nil, err
		}
		out, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return nil, zerr.Wrap(err, "failed to serialize JSON entry")
		}
		return append(out, '\n'), nil
	}
}
