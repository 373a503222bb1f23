package scene

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidScene is returned when a raw snapshot fails shape validation.
var ErrInvalidScene = errors.New("invalid scene")

// CleanScene is a validated, JSON-serializable whiteboard snapshot. It keeps
// every drawable field (elements, embedded files, view state) and drops
// ephemeral presence state the drawing widget attaches at runtime.
type CleanScene struct {
	Elements []json.RawMessage          `json:"elements"`
	AppState map[string]json.RawMessage `json:"appState"`
	Files    map[string]json.RawMessage `json:"files"`
}

// InitPayload is the shape the drawing widget accepts as initial data.
// All fields are always present, empty collections when there is nothing.
type InitPayload struct {
	Elements []json.RawMessage          `json:"elements"`
	AppState map[string]json.RawMessage `json:"appState"`
	Files    map[string]json.RawMessage `json:"files"`
}

// appState keys that hold live, non-serializable widget state.
var ephemeralAppStateKeys = map[string]bool{
	"collaborators": true,
}

// Sanitize validates a raw snapshot and strips non-serializable fields.
// The top level must be a JSON object; elements must be an array of objects;
// appState and files must be objects. Anything else is ErrInvalidScene —
// rejected at the boundary, never partially persisted.
func Sanitize(raw json.RawMessage) (CleanScene, error) {
	if len(raw) == 0 {
		return CleanScene{}, fmt.Errorf("%w: empty payload", ErrInvalidScene)
	}
	// Unmarshal treats null as a no-op on struct targets, so it would slip
	// past the object check below.
	if isJSONNull(raw) {
		return CleanScene{}, fmt.Errorf("%w: not a JSON object: null", ErrInvalidScene)
	}

	var snapshot struct {
		Elements json.RawMessage `json:"elements"`
		AppState json.RawMessage `json:"appState"`
		Files    json.RawMessage `json:"files"`
	}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return CleanScene{}, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidScene, err)
	}

	clean := CleanScene{
		Elements: []json.RawMessage{},
		AppState: map[string]json.RawMessage{},
		Files:    map[string]json.RawMessage{},
	}

	if len(snapshot.Elements) > 0 && !isJSONNull(snapshot.Elements) {
		var elements []json.RawMessage
		if err := json.Unmarshal(snapshot.Elements, &elements); err != nil {
			return CleanScene{}, fmt.Errorf("%w: elements is not an array: %v", ErrInvalidScene, err)
		}
		for i, el := range elements {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(el, &obj); err != nil {
				return CleanScene{}, fmt.Errorf("%w: element %d is not an object: %v", ErrInvalidScene, i, err)
			}
		}
		clean.Elements = elements
	}

	if len(snapshot.AppState) > 0 && !isJSONNull(snapshot.AppState) {
		var state map[string]json.RawMessage
		if err := json.Unmarshal(snapshot.AppState, &state); err != nil {
			return CleanScene{}, fmt.Errorf("%w: appState is not an object: %v", ErrInvalidScene, err)
		}
		for key, val := range state {
			if ephemeralAppStateKeys[key] {
				continue
			}
			clean.AppState[key] = val
		}
	}

	if len(snapshot.Files) > 0 && !isJSONNull(snapshot.Files) {
		var files map[string]json.RawMessage
		if err := json.Unmarshal(snapshot.Files, &files); err != nil {
			return CleanScene{}, fmt.Errorf("%w: files is not an object: %v", ErrInvalidScene, err)
		}
		clean.Files = files
	}

	return clean, nil
}

// SanitizeToJSON sanitizes raw and re-marshals the clean scene, which is how
// responses and scene drafts are persisted.
func SanitizeToJSON(raw json.RawMessage) (json.RawMessage, error) {
	clean, err := Sanitize(raw)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("marshal clean scene: %w", err)
	}
	return data, nil
}

// Decode turns a persisted clean scene into a widget init payload. It is
// total: missing fields default to empty collections and an unreadable blob
// decodes to an empty scene.
func Decode(clean json.RawMessage) InitPayload {
	payload := InitPayload{
		Elements: []json.RawMessage{},
		AppState: map[string]json.RawMessage{},
		Files:    map[string]json.RawMessage{},
	}
	if len(clean) == 0 {
		return payload
	}

	var snapshot CleanScene
	if err := json.Unmarshal(clean, &snapshot); err != nil {
		return payload
	}
	if snapshot.Elements != nil {
		payload.Elements = snapshot.Elements
	}
	if snapshot.AppState != nil {
		payload.AppState = snapshot.AppState
	}
	if snapshot.Files != nil {
		payload.Files = snapshot.Files
	}
	return payload
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
