package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

func addNode(t *testing.T, registry *device.Registry, spec device.NodeSpec) *device.Node {
	t.Helper()
	n, err := registry.Add(context.Background(), spec)
	if err != nil {
		t.Fatalf("Add(%+v) error: %v", spec, err)
	}
	return n
}

func decodeObjectBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &obj); err != nil {
		t.Fatalf("unmarshal: %v; body: %s", err, w.Body.String())
	}
	return obj
}

// successOf returns the success entry at i, failing when it is an error.
func successOf(t *testing.T, list []map[string]json.RawMessage, i int) any {
	t.Helper()
	raw, ok := list[i]["success"]
	if !ok {
		t.Fatalf("entry %d is not a success: %s", i, list[i]["error"])
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal success: %v", err)
	}
	return v
}

func TestListLights(t *testing.T) {
	srv, registry := testServer(t)

	w := do(t, srv, http.MethodGet, apiPath("/lights"), "")
	if w.Code != http.StatusOK || w.Body.String() != "{}\n" {
		t.Fatalf("empty list = %d %q, want 200 {}", w.Code, w.Body.String())
	}

	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"})
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "Dimmable light", Name: "Desk"})

	obj := decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath("/lights"), ""))
	if len(obj) != 2 {
		t.Fatalf("len = %d, want 2", len(obj))
	}
	desk, ok := obj["2"].(map[string]any)
	if !ok {
		t.Fatalf("light 2 missing: %v", obj)
	}
	if desk["name"] != "Desk" || desk["type"] != "Dimmable light" {
		t.Errorf("light 2 = %v", desk)
	}
}

func TestGetLight(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{
		Prefix:       resource.PrefixLights,
		Type:         "Dimmable light",
		UniqueID:     "00:21:2e:ff:ff:00:aa:01-01",
		Manufacturer: "dresden elektronik",
		ModelID:      "FLS-PP3",
	})

	w := do(t, srv, http.MethodGet, apiPath("/lights/1"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	obj := decodeObjectBody(t, w)
	want := map[string]any{
		"name":             "Dimmable light 1",
		"type":             "Dimmable light",
		"uniqueid":         "00:21:2e:ff:ff:00:aa:01-01",
		"manufacturername": "dresden elektronik",
		"modelid":          "FLS-PP3",
	}
	if !reflect.DeepEqual(obj, want) {
		t.Errorf("light = %v, want %v", obj, want)
	}
}

func TestGetLight_NotFound(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv, http.MethodGet, apiPath("/lights/7"), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	e := errorOf(t, decodeList(t, w), 0)
	if e.Type != ErrTypeResourceNotAvailable || e.Address != "/lights/7" {
		t.Errorf("error = %+v", e)
	}
}

func TestPutLightState(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "Dimmable light"})

	w := do(t, srv, http.MethodPut, apiPath("/lights/1/state"),
		`{"on":true,"bri":120,"reachable":false,"bogus":1,"alert":"select"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	list := decodeList(t, w)
	if len(list) != 5 {
		t.Fatalf("len = %d, want 5: %s", len(list), w.Body.String())
	}

	// Entries follow key order: alert, bogus, bri, on, reachable.
	if got := successOf(t, list, 0); !reflect.DeepEqual(got, map[string]any{"/lights/1/state/alert": "select"}) {
		t.Errorf("alert = %v", got)
	}
	if e := errorOf(t, list, 1); e.Type != ErrTypeParameterNotAvailable || e.Address != "/lights/1/state/bogus" {
		t.Errorf("bogus = %+v", e)
	}
	if got := successOf(t, list, 2); !reflect.DeepEqual(got, map[string]any{"/lights/1/state/bri": float64(120)}) {
		t.Errorf("bri = %v", got)
	}
	if got := successOf(t, list, 3); !reflect.DeepEqual(got, map[string]any{"/lights/1/state/on": true}) {
		t.Errorf("on = %v", got)
	}
	if e := errorOf(t, list, 4); e.Type != ErrTypeParameterReadOnly || e.Description != "parameter, reachable, not modifiable" {
		t.Errorf("reachable = %+v", e)
	}

	n, err := registry.Get(resource.PrefixLights, "1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !n.Resource.ToBool(resource.StateOn) || n.Resource.ToNumber(resource.StateBri) != 120 {
		t.Errorf("stored on=%v bri=%d", n.Resource.ToBool(resource.StateOn), n.Resource.ToNumber(resource.StateBri))
	}

	state := decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath("/lights/1"), ""))["state"]
	if !reflect.DeepEqual(state, map[string]any{"on": true, "bri": float64(120), "alert": "select"}) {
		t.Errorf("state = %v", state)
	}
}

func TestPutLightState_Errors(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "Dimmable light"})

	tests := []struct {
		name     string
		path     string
		body     string
		status   int
		errType  int
		address  string
		describe string
	}{
		{
			name: "invalid json", path: "/lights/1/state", body: `{"on":`,
			status: http.StatusBadRequest, errType: ErrTypeInvalidJSON, address: "/lights/1/state",
		},
		{
			name: "empty object", path: "/lights/1/state", body: `{}`,
			status: http.StatusBadRequest, errType: ErrTypeInvalidJSON, address: "/lights/1/state",
		},
		{
			name: "invalid value", path: "/lights/1/state", body: `{"bri":"dim"}`,
			status: http.StatusBadRequest, errType: ErrTypeInvalidValue, address: "/lights/1/state/bri",
			describe: `invalid value, "dim", for parameter, bri`,
		},
		{
			name: "unknown light", path: "/lights/9/state", body: `{"on":true}`,
			status: http.StatusNotFound, errType: ErrTypeResourceNotAvailable, address: "/lights/9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPut, apiPath(tt.path), tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tt.status, w.Body.String())
			}
			e := errorOf(t, decodeList(t, w), 0)
			if e.Type != tt.errType || e.Address != tt.address {
				t.Errorf("error = %+v, want type %d at %s", e, tt.errType, tt.address)
			}
			if tt.describe != "" && e.Description != tt.describe {
				t.Errorf("description = %q, want %q", e.Description, tt.describe)
			}
		})
	}
}

func TestPutSensorConfig_HiddenItem(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixSensors, Type: "ZHAPresence"})

	w := do(t, srv, http.MethodPut, apiPath("/sensors/1/config"), `{"duration":60,"usertest":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	list := decodeList(t, w)
	if got := successOf(t, list, 0); !reflect.DeepEqual(got, map[string]any{"/sensors/1/config/duration": float64(60)}) {
		t.Errorf("duration = %v", got)
	}
	if e := errorOf(t, list, 1); e.Type != ErrTypeParameterNotAvailable {
		t.Errorf("usertest = %+v, want type %d", e, ErrTypeParameterNotAvailable)
	}

	config := decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath("/sensors/1"), ""))["config"].(map[string]any)
	if _, ok := config["usertest"]; ok {
		t.Error("hidden item usertest rendered")
	}
	if config["on"] != true {
		t.Errorf("config.on = %v, want true", config["on"])
	}
}

func TestPutAttributes(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"})

	w := do(t, srv, http.MethodPut, apiPath("/lights/1"), `{"name":"Hallway","color":"red"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	list := decodeList(t, w)
	if e := errorOf(t, list, 0); e.Type != ErrTypeParameterNotAvailable || e.Address != "/lights/1/color" {
		t.Errorf("color = %+v", e)
	}
	if got := successOf(t, list, 1); !reflect.DeepEqual(got, map[string]any{"/lights/1/name": "Hallway"}) {
		t.Errorf("name = %v", got)
	}

	n, _ := registry.Get(resource.PrefixLights, "1")
	if n.Name() != "Hallway" {
		t.Errorf("Name() = %q, want Hallway", n.Name())
	}

	w = do(t, srv, http.MethodPut, apiPath("/lights/1"), `{"name":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank name status = %d, want 400", w.Code)
	}
	if e := errorOf(t, decodeList(t, w), 0); e.Type != ErrTypeInvalidValue {
		t.Errorf("blank name = %+v", e)
	}
}

func TestDeleteLight(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"})

	w := do(t, srv, http.MethodDelete, apiPath("/lights/1"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if got := successOf(t, decodeList(t, w), 0); got != "/lights/1 deleted" {
		t.Errorf("success = %v", got)
	}
	if registry.Count(resource.PrefixLights) != 0 {
		t.Error("light still registered")
	}

	if w := do(t, srv, http.MethodDelete, apiPath("/lights/1"), ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCreateSensor(t *testing.T) {
	srv, registry := testServer(t)

	w := do(t, srv, http.MethodPost, apiPath("/sensors"), `{
		"name": "Away flag",
		"type": "CLIPGenericFlag",
		"modelid": "flag",
		"manufacturername": "gateway",
		"swversion": "1.0",
		"state": {"flag": true},
		"config": {"url": "http://example.invalid"}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if got := successOf(t, decodeList(t, w), 0); !reflect.DeepEqual(got, map[string]any{"id": "1"}) {
		t.Errorf("success = %v", got)
	}

	n, err := registry.Get(resource.PrefixSensors, "1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if n.Name() != "Away flag" || n.Type != "CLIPGenericFlag" {
		t.Errorf("node = %s %s", n.Name(), n.Type)
	}
	if !n.Resource.ToBool(resource.StateFlag) {
		t.Error("state/flag not applied")
	}
	if n.Resource.ToString(resource.ConfigURL) != "http://example.invalid" {
		t.Errorf("config/url = %q", n.Resource.ToString(resource.ConfigURL))
	}
}

func TestCreateSensor_Errors(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name    string
		body    string
		errType int
		address string
		desc    string
	}{
		{
			name: "invalid json", body: `[1,2]`,
			errType: ErrTypeInvalidJSON, address: "/sensors",
		},
		{
			name: "missing parameters", body: `{"name":"x","type":"CLIPGenericFlag"}`,
			errType: ErrTypeMissingParameter, address: "/sensors",
			desc: "missing parameters in body: manufacturername, modelid, swversion",
		},
		{
			name: "not a clip sensor", body: `{"name":"x","type":"ZHATemperature","modelid":"m","manufacturername":"m","swversion":"1"}`,
			errType: ErrTypeInvalidValue, address: "/sensors/type",
		},
		{
			name: "unknown clip type", body: `{"name":"x","type":"CLIPNothing","modelid":"m","manufacturername":"m","swversion":"1"}`,
			errType: ErrTypeInvalidValue, address: "/sensors/type",
		},
		{
			name: "null initial state", body: `{"name":"x","type":"CLIPGenericFlag","modelid":"m","manufacturername":"m","swversion":"1","state":{"flag":null}}`,
			errType: ErrTypeInvalidValue, address: "/sensors/state/flag",
			desc: "invalid value, null, for parameter, flag",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, apiPath("/sensors"), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
			e := errorOf(t, decodeList(t, w), 0)
			if e.Type != tt.errType || e.Address != tt.address {
				t.Errorf("error = %+v, want type %d at %s", e, tt.errType, tt.address)
			}
			if tt.desc != "" && e.Description != tt.desc {
				t.Errorf("description = %q, want %q", e.Description, tt.desc)
			}
		})
	}

	if w := do(t, srv, http.MethodGet, apiPath("/sensors"), ""); len(decodeObjectBody(t, w)) != 0 {
		t.Errorf("rejected requests left sensors behind: %s", w.Body.String())
	}
}

func TestGroups(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"})
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "Dimmable light"})

	w := do(t, srv, http.MethodPost, apiPath("/groups"), `{"name":"Living","lights":["1","2","9"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d; body: %s", w.Code, w.Body.String())
	}
	if got := successOf(t, decodeList(t, w), 0); !reflect.DeepEqual(got, map[string]any{"id": "1"}) {
		t.Errorf("create success = %v", got)
	}

	group := decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath("/groups/1"), ""))
	if group["id"] != "1" || group["name"] != "Living" {
		t.Errorf("group = %v", group)
	}
	if !reflect.DeepEqual(group["lights"], []any{"1", "2"}) {
		t.Errorf("lights = %v, want [1 2]", group["lights"])
	}

	w = do(t, srv, http.MethodPut, apiPath("/groups/1/action"), `{"on":true,"scene":"evening"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("action status = %d; body: %s", w.Code, w.Body.String())
	}
	for _, id := range []string{"1", "2"} {
		n, _ := registry.Get(resource.PrefixLights, id)
		if !n.Resource.ToBool(resource.StateOn) {
			t.Errorf("light %s not switched on", id)
		}
	}

	group = decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath("/groups/1"), ""))
	state, _ := group["state"].(map[string]any)
	if state["all_on"] != true || state["any_on"] != true {
		t.Errorf("group state = %v", group["state"])
	}
	action, _ := group["action"].(map[string]any)
	if action["scene"] != "evening" {
		t.Errorf("group action = %v", group["action"])
	}

	w = do(t, srv, http.MethodPut, apiPath("/groups/1"), `{"lights":["2"]}`)
	if got := successOf(t, decodeList(t, w), 0); !reflect.DeepEqual(got, map[string]any{"/groups/1/lights": []any{"2"}}) {
		t.Errorf("set lights = %v", got)
	}
}

func TestGroupAction_UnknownParameter(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixGroups, Type: "LightGroup", Name: "Empty"})

	w := do(t, srv, http.MethodPut, apiPath("/groups/1/action"), `{"nonsense":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if e := errorOf(t, decodeList(t, w), 0); e.Type != ErrTypeParameterNotAvailable {
		t.Errorf("error = %+v", e)
	}
}

func TestPutLightState_NullRejected(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "Dimmable light"})

	if w := do(t, srv, http.MethodPut, apiPath("/lights/1/state"), `{"on":true,"bri":100}`); w.Code != http.StatusOK {
		t.Fatalf("setup status = %d; body: %s", w.Code, w.Body.String())
	}
	before, _ := registry.Get(resource.PrefixLights, "1")
	lastSet := before.Resource.Item(resource.StateOn).LastSet()

	w := do(t, srv, http.MethodPut, apiPath("/lights/1/state"), `{"on":null,"bri":null}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
	}
	list := decodeList(t, w)
	for i, key := range []string{"bri", "on"} {
		e := errorOf(t, list, i)
		if e.Type != ErrTypeInvalidValue || e.Address != "/lights/1/state/"+key {
			t.Errorf("%s = %+v", key, e)
		}
		if e.Description != "invalid value, null, for parameter, "+key {
			t.Errorf("%s description = %q", key, e.Description)
		}
	}

	n, _ := registry.Get(resource.PrefixLights, "1")
	if !n.Resource.ToBool(resource.StateOn) || n.Resource.ToNumber(resource.StateBri) != 100 {
		t.Errorf("stored on=%v bri=%d, want unchanged", n.Resource.ToBool(resource.StateOn), n.Resource.ToNumber(resource.StateBri))
	}
	if !n.Resource.Item(resource.StateOn).LastSet().Equal(lastSet) {
		t.Error("lastSet changed by a rejected write")
	}
	state := decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath("/lights/1"), ""))["state"]
	if !reflect.DeepEqual(state, map[string]any{"on": true, "bri": float64(100)}) {
		t.Errorf("state = %v", state)
	}
}

func TestGroupAction_NoMemberTakesValue(t *testing.T) {
	srv, registry := testServer(t)
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"})
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "Dimmable light"})
	onOff := addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixGroups, Type: "LightGroup", Name: "Switches"})
	empty := addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixGroups, Type: "LightGroup", Name: "Empty"})
	if _, err := registry.SetMembers(context.Background(), onOff.ID, []string{"1"}); err != nil {
		t.Fatalf("SetMembers() error: %v", err)
	}

	tests := []struct {
		name     string
		group    string
		body     string
		wantType int
	}{
		{"bri on on/off lights", onOff.ID, `{"bri":100}`, ErrTypeParameterNotAvailable},
		{"on for empty group", empty.ID, `{"on":true}`, ErrTypeParameterNotAvailable},
		{"null value", onOff.ID, `{"on":null}`, ErrTypeInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPut, apiPath("/groups/"+tt.group+"/action"), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
			if e := errorOf(t, decodeList(t, w), 0); e.Type != tt.wantType {
				t.Errorf("error = %+v, want type %d", e, tt.wantType)
			}
		})
	}

	n, _ := registry.Get(resource.PrefixLights, "1")
	if n.Resource.ToBool(resource.StateOn) {
		t.Error("light 1 switched by a failed action")
	}
}

func TestFullStateAndConfig(t *testing.T) {
	srv, registry := testServer(t)

	if w := do(t, srv, http.MethodGet, apiPath("/config"), ""); w.Code != http.StatusNotFound {
		t.Errorf("config without node = %d, want 404", w.Code)
	}

	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixConfig, Type: "Gateway", ID: configNodeID, Name: "Gateway"})
	addNode(t, registry, device.NodeSpec{Prefix: resource.PrefixLights, Type: "On/Off light"})

	cfg := decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath("/config"), ""))
	if cfg["name"] != "Gateway" {
		t.Errorf("config = %v", cfg)
	}

	state := decodeObjectBody(t, do(t, srv, http.MethodGet, apiPath(""), ""))
	for _, key := range []string{"lights", "sensors", "groups", "config"} {
		if _, ok := state[key]; !ok {
			t.Errorf("full state missing %q", key)
		}
	}
	if lights := state["lights"].(map[string]any); len(lights) != 1 {
		t.Errorf("lights = %v", lights)
	}
}
