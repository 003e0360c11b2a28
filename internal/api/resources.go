package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// configNodeID is the id of the single /config node.
const configNodeID = "0"

// handleFullState returns every resource in one object.
func (s *Server) handleFullState(w http.ResponseWriter, _ *http.Request) {
	state := map[string]any{
		"lights":  nodeMap(s.registry.List(resource.PrefixLights)),
		"sensors": nodeMap(s.registry.List(resource.PrefixSensors)),
		"groups":  nodeMap(s.registry.List(resource.PrefixGroups)),
	}
	if n, err := s.registry.Get(resource.PrefixConfig, configNodeID); err == nil {
		state["config"] = nodeObject(n)
	}
	writeJSON(w, http.StatusOK, state)
}

// handleGetConfig returns the gateway configuration object.
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	n, err := s.registry.Get(resource.PrefixConfig, configNodeID)
	if err != nil {
		writeNotAvailable(w, resource.PrefixConfig)
		return
	}
	writeJSON(w, http.StatusOK, nodeObject(n))
}

func (s *Server) handleList(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, nodeMap(s.registry.List(prefix)))
	}
}

func (s *Server) handleGet(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		n, err := s.registry.Get(prefix, id)
		if err != nil {
			writeNotAvailable(w, prefix+"/"+id)
			return
		}
		writeJSON(w, http.StatusOK, nodeObject(n))
	}
}

func (s *Server) handleDelete(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		address := prefix + "/" + id
		if err := s.registry.Delete(r.Context(), prefix, id); err != nil {
			if errors.Is(err, device.ErrNodeNotFound) {
				writeNotAvailable(w, address)
				return
			}
			s.logger.Error("deleting node failed", "address", address, "error", err)
			writeInternalError(w, address, "failed to delete")
			return
		}
		writeJSON(w, http.StatusOK, []any{successItem(address + " deleted")})
	}
}

// handlePutAttributes renames a node. Groups also accept "lights" to
// replace the member list.
func (s *Server) handlePutAttributes(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		address := prefix + "/" + id

		if _, err := s.registry.Get(prefix, id); err != nil {
			writeNotAvailable(w, address)
			return
		}
		body, err := decodeObject(r.Body)
		if err != nil || len(body) == 0 {
			writeInvalidJSON(w, address)
			return
		}

		var results []any
		ok := false
		for _, key := range sortedKeys(body) {
			raw := body[key]
			switch {
			case key == "name":
				var name string
				if err := json.Unmarshal(raw, &name); err != nil || device.ValidateName(name) != nil {
					results = append(results, invalidValue(address+"/name", key, raw))
					continue
				}
				if _, err := s.registry.SetItem(r.Context(), prefix, id, resource.AttrName, resource.StringValue(name)); err != nil {
					results = append(results, invalidValue(address+"/name", key, raw))
					continue
				}
				results = append(results, successItem(map[string]any{address + "/name": name}))
				ok = true

			case key == "lights" && prefix == resource.PrefixGroups:
				var ids []string
				if err := json.Unmarshal(raw, &ids); err != nil {
					results = append(results, invalidValue(address+"/lights", key, raw))
					continue
				}
				members, err := s.registry.SetMembers(r.Context(), id, ids)
				if err != nil {
					s.logger.Warn("persisting group members failed", "group", id, "error", err)
				}
				if members == nil {
					members = []string{}
				}
				results = append(results, successItem(map[string]any{address + "/lights": members}))
				ok = true

			default:
				results = append(results, notAvailable(address+"/"+key, key))
			}
		}
		writeResults(w, results, ok)
	}
}

// handlePutItems writes state or config items of a node. Every key of the
// body is attempted; the response lists one entry per key.
func (s *Server) handlePutItems(prefix, category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		address := fmt.Sprintf("%s/%s/%s", prefix, id, category)

		node, err := s.registry.Get(prefix, id)
		if err != nil {
			writeNotAvailable(w, prefix+"/"+id)
			return
		}
		body, err := decodeObject(r.Body)
		if err != nil || len(body) == 0 {
			writeInvalidJSON(w, address)
			return
		}

		keys := sortedKeys(body)
		results := make([]any, len(keys))
		var updates []device.ItemUpdate
		var pending []int // index into keys of each update
		for i, key := range keys {
			suffix := category + "/" + key
			itemAddr := address + "/" + key

			it := node.Resource.Item(suffix)
			if it == nil || !it.IsPublic() || device.IsHidden(suffix) {
				results[i] = notAvailable(itemAddr, key)
				continue
			}
			if device.IsReadOnly(suffix) {
				results[i] = errorItem(ErrTypeParameterReadOnly, itemAddr,
					fmt.Sprintf("parameter, %s, not modifiable", key))
				continue
			}
			v, ok := decodeValue(body[key])
			if !ok {
				results[i] = invalidValue(itemAddr, key, body[key])
				continue
			}
			updates = append(updates, device.ItemUpdate{Suffix: suffix, Value: v})
			pending = append(pending, i)
		}

		ok := false
		if len(updates) > 0 {
			applied, err := s.registry.SetItems(r.Context(), prefix, id, updates)
			if err != nil {
				writeNotAvailable(w, prefix+"/"+id)
				return
			}
			for j, res := range applied {
				i := pending[j]
				key := keys[i]
				itemAddr := address + "/" + key
				if res.Err != nil {
					results[i] = invalidValue(itemAddr, key, body[key])
					continue
				}
				results[i] = successItem(map[string]any{itemAddr: res.Value})
				ok = true
			}
		}
		writeResults(w, results, ok)
	}
}

// handleGroupAction applies state items to every member light of a group.
// "scene" is stored on the group itself.
func (s *Server) handleGroupAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	address := fmt.Sprintf("%s/%s/%s", resource.PrefixGroups, id, categoryAction)

	group, err := s.registry.Get(resource.PrefixGroups, id)
	if err != nil {
		writeNotAvailable(w, resource.PrefixGroups+"/"+id)
		return
	}
	body, err := decodeObject(r.Body)
	if err != nil || len(body) == 0 {
		writeInvalidJSON(w, address)
		return
	}

	var results []any
	ok := false
	for _, key := range sortedKeys(body) {
		itemAddr := address + "/" + key
		v, valid := decodeValue(body[key])
		if !valid {
			results = append(results, invalidValue(itemAddr, key, body[key]))
			continue
		}

		if key == "scene" {
			stored, err := s.registry.SetItem(r.Context(), resource.PrefixGroups, id, resource.ActionScene, v)
			if err != nil {
				results = append(results, invalidValue(itemAddr, key, body[key]))
				continue
			}
			results = append(results, successItem(map[string]any{itemAddr: stored}))
			ok = true
			continue
		}

		suffix := categoryState + "/" + key
		if _, known := resource.LookupDescriptor(suffix); !known || device.IsReadOnly(suffix) {
			results = append(results, notAvailable(itemAddr, key))
			continue
		}

		// Members without the item are skipped. The action fails when no
		// member took the value.
		applied, rejected := 0, 0
		for _, lightID := range group.Members {
			_, err := s.registry.SetItem(r.Context(), resource.PrefixLights, lightID, suffix, v)
			switch {
			case err == nil:
				applied++
			case errors.Is(err, device.ErrInvalidValue):
				rejected++
			}
		}
		if applied == 0 {
			if rejected > 0 {
				results = append(results, invalidValue(itemAddr, key, body[key]))
			} else {
				results = append(results, notAvailable(itemAddr, key))
			}
			continue
		}
		results = append(results, successItem(map[string]any{itemAddr: v}))
		ok = true
	}
	writeResults(w, results, ok)
}

// sensorRequest is the body of POST /sensors.
type sensorRequest struct {
	Name         string                     `json:"name"`
	Type         string                     `json:"type"`
	ModelID      string                     `json:"modelid"`
	Manufacturer string                     `json:"manufacturername"`
	SwVersion    string                     `json:"swversion"`
	UniqueID     string                     `json:"uniqueid"`
	State        map[string]json.RawMessage `json:"state"`
	Config       map[string]json.RawMessage `json:"config"`
}

// handleCreateSensor adds a CLIP sensor. Initial state and config values
// are applied after creation; invalid ones are ignored.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	address := resource.PrefixSensors

	var req sensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSON(w, address)
		return
	}

	missing := []string{}
	for field, v := range map[string]string{
		"name": req.Name, "type": req.Type, "modelid": req.ModelID,
		"manufacturername": req.Manufacturer, "swversion": req.SwVersion,
	} {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		writeError(w, http.StatusBadRequest, ErrTypeMissingParameter, address,
			"missing parameters in body: "+strings.Join(missing, ", "))
		return
	}
	if !strings.HasPrefix(req.Type, "CLIP") {
		writeError(w, http.StatusBadRequest, ErrTypeInvalidValue, address+"/type",
			fmt.Sprintf("invalid value, %s, for parameter, type", req.Type))
		return
	}

	for _, category := range []string{categoryState, categoryConfig} {
		values := req.State
		if category == categoryConfig {
			values = req.Config
		}
		for _, key := range sortedKeys(values) {
			if _, ok := decodeValue(values[key]); !ok {
				writeJSON(w, http.StatusBadRequest, []any{invalidValue(address+"/"+category+"/"+key, key, values[key])})
				return
			}
		}
	}

	n, err := s.registry.Add(r.Context(), device.NodeSpec{
		Prefix:       resource.PrefixSensors,
		Type:         req.Type,
		Name:         req.Name,
		UniqueID:     req.UniqueID,
		Manufacturer: req.Manufacturer,
		ModelID:      req.ModelID,
		SwVersion:    req.SwVersion,
	})
	switch {
	case errors.Is(err, device.ErrUnknownType):
		writeError(w, http.StatusBadRequest, ErrTypeInvalidValue, address+"/type",
			fmt.Sprintf("invalid value, %s, for parameter, type", req.Type))
		return
	case errors.Is(err, device.ErrInvalidName):
		writeError(w, http.StatusBadRequest, ErrTypeInvalidValue, address+"/name",
			fmt.Sprintf("invalid value, %s, for parameter, name", req.Name))
		return
	case err != nil:
		s.logger.Error("adding sensor failed", "error", err)
		writeInternalError(w, address, "failed to add sensor")
		return
	}

	var updates []device.ItemUpdate
	for category, values := range map[string]map[string]json.RawMessage{categoryState: req.State, categoryConfig: req.Config} {
		for key, raw := range values {
			suffix := category + "/" + key
			if v, _ := decodeValue(raw); !device.IsReadOnly(suffix) && !device.IsHidden(suffix) {
				updates = append(updates, device.ItemUpdate{Suffix: suffix, Value: v})
			}
		}
	}
	if len(updates) > 0 {
		//nolint:errcheck // the node was just added; per-item failures are ignored
		s.registry.SetItems(r.Context(), resource.PrefixSensors, n.ID, updates)
	}

	writeJSON(w, http.StatusOK, []any{successItem(map[string]string{"id": n.ID})})
}

// groupRequest is the body of POST /groups.
type groupRequest struct {
	Name   string   `json:"name"`
	Lights []string `json:"lights"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	address := resource.PrefixGroups

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidJSON(w, address)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrTypeMissingParameter, address, "missing parameters in body: name")
		return
	}

	n, err := s.registry.Add(r.Context(), device.NodeSpec{
		Prefix:  resource.PrefixGroups,
		Type:    "LightGroup",
		Name:    req.Name,
		Members: req.Lights,
	})
	if errors.Is(err, device.ErrInvalidName) {
		writeError(w, http.StatusBadRequest, ErrTypeInvalidValue, address+"/name",
			fmt.Sprintf("invalid value, %s, for parameter, name", req.Name))
		return
	}
	if err != nil {
		s.logger.Error("adding group failed", "error", err)
		writeInternalError(w, address, "failed to add group")
		return
	}
	writeJSON(w, http.StatusOK, []any{successItem(map[string]string{"id": n.ID})})
}

func invalidValue(address, key string, raw json.RawMessage) map[string]any {
	return errorItem(ErrTypeInvalidValue, address,
		fmt.Sprintf("invalid value, %s, for parameter, %s", strings.TrimSpace(string(raw)), key))
}

func notAvailable(address, key string) map[string]any {
	return errorItem(ErrTypeParameterNotAvailable, address,
		fmt.Sprintf("parameter, %s, not available", key))
}

// writeResults answers 200 when at least one entry succeeded, 400 otherwise.
func writeResults(w http.ResponseWriter, results []any, anySuccess bool) {
	status := http.StatusOK
	if !anySuccess {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, results)
}

// decodeValue parses a request value. A JSON null is refused: storing it
// would clear the item and its timestamps.
func decodeValue(raw json.RawMessage) (resource.Value, bool) {
	var v resource.Value
	if err := json.Unmarshal(raw, &v); err != nil || v.IsNull() {
		return resource.Null(), false
	}
	return v, true
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
