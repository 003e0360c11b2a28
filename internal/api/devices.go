package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// handleListDevices returns the device unique ids, [] when there are none.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.DeviceIDs())
}

// handleGetDevice merges every light and sensor of a physical device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uniqueid")
	writeJSON(w, http.StatusOK, deviceObject(s.registry.Device(uniqueID)))
}

// handlePutInstallCode stores a Zigbee 3.0 install code.
//
// Body: {"installcode": "<hex>"}. The code is trimmed and echoed back.
func (s *Server) handlePutInstallCode(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uniqueid")
	address := fmt.Sprintf("/devices/%s/installcode", uniqueID)

	body, err := decodeObject(r.Body)
	if err != nil || len(body) == 0 {
		writeInvalidJSON(w, address)
		return
	}

	raw, ok := body["installcode"]
	if !ok {
		writeError(w, http.StatusBadRequest, ErrTypeMissingParameter, address, "missing parameters in body")
		return
	}

	var code string
	if err := json.Unmarshal(raw, &code); err != nil || strings.TrimSpace(code) == "" {
		writeError(w, http.StatusBadRequest, ErrTypeInvalidValue, address,
			fmt.Sprintf("invalid value, %s, for parameter, installcode", strings.TrimSpace(string(raw))))
		return
	}
	code = strings.TrimSpace(code)

	if err := s.registry.SetInstallCode(r.Context(), uniqueID, code); err != nil {
		s.logger.Error("storing install code failed", "uniqueid", uniqueID, "error", err)
		writeInternalError(w, address, "failed to store install code")
		return
	}

	writeJSON(w, http.StatusOK, []any{successItem(map[string]string{"installcode": code})})
}

// decodeObject reads a JSON object body. Each value is kept raw so callers
// can tell strings from other JSON types.
func decodeObject(body io.Reader) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}
