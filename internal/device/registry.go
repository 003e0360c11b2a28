package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ItemUpdate is one write in a batch.
type ItemUpdate struct {
	Suffix string
	Value  resource.Value
}

// ItemResult reports the outcome of one write in a batch.
type ItemResult struct {
	Suffix string
	Value  resource.Value
	Err    error
}

// Registry owns every node of the gateway.
//
// All resource mutation happens while mu is held, so the registry acts as the
// single owner the resource package expects. Readers receive deep copies.
// A nil Repository disables persistence.
type Registry struct {
	repo    Repository
	nodes   map[string]map[string]*Node // prefix -> id -> node
	mu      sync.RWMutex
	sinks   []EventSink
	sinksMu sync.RWMutex
	logger  Logger
	metrics Metrics
	clock   resource.Clock
	loc     *time.Location
}

// NewRegistry creates a new node registry.
// The repository is used for persistence and may be nil.
func NewRegistry(repo Repository) *Registry {
	r := &Registry{
		repo:    repo,
		nodes:   make(map[string]map[string]*Node),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		clock:   resource.SystemClock,
		loc:     time.Local,
	}
	for prefix := range validPrefixes {
		r.nodes[prefix] = make(map[string]*Node)
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetMetrics sets the metrics recorder for the registry.
func (r *Registry) SetMetrics(m Metrics) {
	r.metrics = m
}

// SetClock sets the clock used for item timestamps of nodes created after
// the call.
func (r *Registry) SetClock(c resource.Clock) {
	r.clock = c
}

// SetLocation sets the zone Time attributes are rendered in.
func (r *Registry) SetLocation(loc *time.Location) {
	if loc != nil {
		r.loc = loc
	}
}

// Subscribe registers a sink for registry events.
func (r *Registry) Subscribe(sink EventSink) {
	r.sinksMu.Lock()
	r.sinks = append(r.sinks, sink)
	r.sinksMu.Unlock()
}

func (r *Registry) resourceOptions() []resource.Option {
	return []resource.Option{resource.WithClock(r.clock), resource.WithLocation(r.loc)}
}

// LoadAll replaces the in-memory nodes with the repository contents.
// Item values and timestamps are restored without change detection.
// This should be called on application startup.
func (r *Registry) LoadAll(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	records, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading nodes: %w", err)
	}

	nodes := make(map[string]map[string]*Node, len(validPrefixes))
	for prefix := range validPrefixes {
		nodes[prefix] = make(map[string]*Node)
	}

	for _, rec := range records {
		if _, ok := nodes[rec.Prefix]; !ok {
			r.logger.Warn("skipping node with unknown prefix", "prefix", rec.Prefix, "id", rec.ID)
			continue
		}
		node := r.restoreNode(rec)
		nodes[rec.Prefix][rec.ID] = node
	}

	r.mu.Lock()
	r.nodes = nodes
	r.reportCountsLocked()
	r.mu.Unlock()

	r.logger.Info("nodes loaded", "count", len(records))
	return nil
}

func (r *Registry) restoreNode(rec NodeRecord) *Node {
	var res *resource.Resource
	if tmpl, ok := LookupTemplate(rec.Prefix, rec.Type); ok {
		built, err := tmpl.Build(r.resourceOptions()...)
		if err == nil {
			res = built
		}
	}
	if res == nil {
		r.logger.Warn("no template for node type", "prefix", rec.Prefix, "id", rec.ID, "type", rec.Type)
		res = resource.New(rec.Prefix, r.resourceOptions()...)
	}

	for _, ir := range rec.Items {
		it, err := res.AddItem(ir.DataType, ir.Suffix)
		if err != nil {
			r.logger.Warn("skipping persisted item", "prefix", rec.Prefix, "id", rec.ID, "suffix", ir.Suffix, "error", err)
			continue
		}
		it.Restore(ir.Num, ir.Str, ir.LastSet, ir.LastChanged)
		it.SetIsPublic(ir.IsPublic)
		for _, h := range ir.Rules {
			it.InRule(h)
		}
	}

	return &Node{
		ID:       rec.ID,
		Type:     rec.Type,
		Resource: res,
		Members:  slices.Clone(rec.Members),
	}
}

// Add creates a node from the template for spec.Prefix and spec.Type.
// Returns ErrUnknownPrefix, ErrUnknownType, ErrInvalidName or ErrNodeExists.
// The returned node is a deep copy.
func (r *Registry) Add(ctx context.Context, spec NodeSpec) (*Node, error) {
	if err := ValidatePrefix(spec.Prefix); err != nil {
		return nil, err
	}
	tmpl, ok := LookupTemplate(spec.Prefix, spec.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownType, spec.Prefix, spec.Type)
	}
	if spec.Name != "" {
		if err := ValidateName(spec.Name); err != nil {
			return nil, err
		}
	}

	res, err := tmpl.Build(r.resourceOptions()...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	byID := r.nodes[spec.Prefix]

	id := spec.ID
	if id == "" {
		id = nextID(byID)
	}
	if _, exists := byID[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s/%s", ErrNodeExists, spec.Prefix, id)
	}

	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", tmpl.Type, id)
	}
	setText(res, resource.AttrName, name)
	setText(res, resource.AttrUniqueID, spec.UniqueID)
	setText(res, resource.AttrManufacturerName, spec.Manufacturer)
	setText(res, resource.AttrModelID, spec.ModelID)
	setText(res, resource.AttrSwVersion, spec.SwVersion)
	if it := res.Item(resource.AttrType); it != nil {
		it.SetString(tmpl.Type)
	}
	if spec.Prefix == resource.PrefixSensors {
		if it := res.Item(resource.ConfigOn); it != nil {
			it.SetValue(resource.BoolValue(true))
		}
	}

	node := &Node{ID: id, Type: tmpl.Type, Resource: res}

	var events []Event
	now := r.clock.Now()
	if spec.Prefix == resource.PrefixGroups {
		setText(res, resource.AttrClass, "Other")
		node.Members = r.knownLightsLocked(spec.Members)
		events, _ = r.refreshGroupLocked(node, now)
	}

	if err := r.saveLocked(ctx, node); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	byID[id] = node
	r.reportCountsLocked()
	out := node.DeepCopy()
	r.mu.Unlock()

	lifecycle := []Event{{Resource: spec.Prefix, ID: id, What: resource.EventAdded, Timestamp: now}}
	if spec.Prefix == resource.PrefixGroups {
		lifecycle = append(lifecycle, Event{Resource: spec.Prefix, ID: id, What: resource.EventValidGroup, Timestamp: now})
	}
	r.emit(append(lifecycle, events...))

	r.logger.Info("node added", "prefix", spec.Prefix, "id", id, "type", tmpl.Type)
	return out, nil
}

func setText(res *resource.Resource, suffix, value string) {
	if value == "" {
		return
	}
	if it := res.Item(suffix); it != nil {
		it.SetString(value)
	}
}

// nextID returns the smallest integer id greater than every numeric id in use.
func nextID(byID map[string]*Node) string {
	highest := 0
	for id := range byID {
		if n, err := strconv.Atoi(id); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

// Get retrieves a node by prefix and id.
// Returns ErrNodeNotFound if the node does not exist.
// The returned node is a deep copy; callers can safely modify it.
func (r *Registry) Get(prefix, id string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[prefix][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNodeNotFound, prefix, id)
	}
	return node.DeepCopy(), nil
}

// List returns every node of a prefix ordered by id.
// The returned nodes are deep copies; callers can safely modify them.
func (r *Registry) List(prefix string) []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked(prefix)
}

func (r *Registry) listLocked(prefix string) []*Node {
	byID := r.nodes[prefix]
	out := make([]*Node, 0, len(byID))
	for _, n := range byID {
		out = append(out, n.DeepCopy())
	}
	sortNodes(out)
	return out
}

// sortNodes orders numerically where both ids are numbers.
func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		a, errA := strconv.Atoi(nodes[i].ID)
		b, errB := strconv.Atoi(nodes[j].ID)
		if errA == nil && errB == nil {
			return a < b
		}
		return nodes[i].ID < nodes[j].ID
	})
}

// Delete removes a node. Deleting a light also removes it from every group.
func (r *Registry) Delete(ctx context.Context, prefix, id string) error {
	r.mu.Lock()

	if _, ok := r.nodes[prefix][id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrNodeNotFound, prefix, id)
	}

	if r.repo != nil {
		if err := r.repo.Delete(ctx, prefix, id); err != nil && !errors.Is(err, ErrNodeNotFound) {
			r.mu.Unlock()
			return fmt.Errorf("deleting node: %w", err)
		}
	}
	delete(r.nodes[prefix], id)

	now := r.clock.Now()
	events := []Event{{Resource: prefix, ID: id, What: resource.EventDeleted, Timestamp: now}}

	if prefix == resource.PrefixLights {
		for _, g := range r.nodes[resource.PrefixGroups] {
			if !slices.Contains(g.Members, id) {
				continue
			}
			g.Members = slices.DeleteFunc(g.Members, func(m string) bool { return m == id })
			groupEvents, _ := r.refreshGroupLocked(g, now)
			events = append(events, groupEvents...)
			if err := r.saveLocked(ctx, g); err != nil {
				r.logger.Warn("failed to persist group membership", "group", g.ID, "error", err)
			}
		}
	}
	r.reportCountsLocked()
	r.mu.Unlock()

	r.emit(events)
	r.logger.Info("node deleted", "prefix", prefix, "id", id)
	return nil
}

// SetItem writes the item addressed by path, which may be a bare suffix or a
// full path such as "/lights/1/state/on". It returns the stored value.
//
// Returns ErrNodeNotFound, ErrItemNotFound or ErrInvalidValue.
func (r *Registry) SetItem(ctx context.Context, prefix, id, path string, v resource.Value) (resource.Value, error) {
	r.mu.Lock()
	node, ok := r.nodes[prefix][id]
	if !ok {
		r.mu.Unlock()
		return resource.Null(), fmt.Errorf("%w: %s/%s", ErrNodeNotFound, prefix, id)
	}
	stored, events, err := r.setItemLocked(ctx, node, path, v)
	r.mu.Unlock()

	r.emit(events)
	return stored, err
}

// SetItems applies a batch of writes to one node. Every update is attempted;
// individual failures are reported in the results. The error is only set
// when the node does not exist.
func (r *Registry) SetItems(ctx context.Context, prefix, id string, updates []ItemUpdate) ([]ItemResult, error) {
	r.mu.Lock()
	node, ok := r.nodes[prefix][id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s/%s", ErrNodeNotFound, prefix, id)
	}

	results := make([]ItemResult, 0, len(updates))
	var events []Event
	for _, u := range updates {
		stored, evs, err := r.setItemLocked(ctx, node, u.Suffix, u.Value)
		results = append(results, ItemResult{Suffix: u.Suffix, Value: stored, Err: err})
		events = append(events, evs...)
	}
	r.mu.Unlock()

	r.emit(events)
	return results, nil
}

func (r *Registry) setItemLocked(ctx context.Context, node *Node, path string, v resource.Value) (resource.Value, []Event, error) {
	prefix := node.Prefix()

	d, ok := resource.LookupDescriptor(path)
	if !ok {
		return resource.Null(), nil, fmt.Errorf("%w: %s", ErrItemNotFound, path)
	}
	it := node.Resource.Item(d.Suffix)
	if it == nil {
		return resource.Null(), nil, fmt.Errorf("%w: %s", ErrItemNotFound, d.Suffix)
	}

	prev := it.ToValue()

	if !it.SetValue(v) {
		r.metrics.ItemWrite(prefix, false)
		return it.ToValue(), nil, fmt.Errorf("%w: %v for %s", ErrInvalidValue, v, d.Suffix)
	}
	r.metrics.ItemWrite(prefix, true)

	stored := it.ToValue()
	changed := !prev.Equal(stored)
	now := r.clock.Now()

	saved := []*resource.Item{it}
	var events []Event
	if changed {
		events = append(events, Event{Resource: prefix, ID: node.ID, What: d.Suffix, Value: stored, Timestamp: now})
	}

	if prefix == resource.PrefixSensors && strings.HasPrefix(d.Suffix, "state/") && d.Suffix != resource.StateLastUpdated {
		if lu := node.Resource.Item(resource.StateLastUpdated); lu != nil {
			lu.SetValue(resource.TimeValue(now))
			saved = append(saved, lu)
		}
	}

	for _, s := range saved {
		r.saveItemLocked(ctx, node, s)
	}

	if changed && prefix == resource.PrefixLights && d.Suffix == resource.StateOn {
		for _, g := range r.nodes[resource.PrefixGroups] {
			if slices.Contains(g.Members, node.ID) {
				events = append(events, r.recomputeGroupLocked(ctx, g, now)...)
			}
		}
	}

	r.logger.Debug("item set", "prefix", prefix, "id", node.ID, "suffix", d.Suffix, "changed", changed)
	return stored, events, nil
}

// recomputeGroupLocked refreshes a stored group and persists the items that
// changed.
func (r *Registry) recomputeGroupLocked(ctx context.Context, g *Node, now time.Time) []Event {
	events, changed := r.refreshGroupLocked(g, now)
	for _, it := range changed {
		r.saveItemLocked(ctx, g, it)
	}
	return events
}

// refreshGroupLocked derives state/any_on and state/all_on of a group from
// its member lights.
func (r *Registry) refreshGroupLocked(g *Node, now time.Time) ([]Event, []*resource.Item) {
	lights := r.nodes[resource.PrefixLights]

	anyOn := false
	allOn := len(g.Members) > 0
	for _, id := range g.Members {
		l, ok := lights[id]
		if !ok {
			allOn = false
			continue
		}
		on := l.Resource.ToBool(resource.StateOn)
		anyOn = anyOn || on
		allOn = allOn && on
	}

	events := []Event{{Resource: resource.PrefixGroups, ID: g.ID, What: resource.EventCheckGroupAnyOn, Timestamp: now}}
	var changed []*resource.Item
	for _, upd := range []struct {
		suffix string
		value  bool
	}{
		{resource.StateAnyOn, anyOn},
		{resource.StateAllOn, allOn},
	} {
		it := g.Resource.Item(upd.suffix)
		if it == nil {
			continue
		}
		prev := it.ToValue()
		it.SetValue(resource.BoolValue(upd.value))
		if !prev.Equal(it.ToValue()) {
			changed = append(changed, it)
			events = append(events, Event{
				Resource:  resource.PrefixGroups,
				ID:        g.ID,
				What:      upd.suffix,
				Value:     it.ToValue(),
				Timestamp: now,
			})
		}
	}
	return events, changed
}

// SetMembers replaces the member lights of a group. Unknown light ids are
// dropped.
func (r *Registry) SetMembers(ctx context.Context, groupID string, lightIDs []string) ([]string, error) {
	r.mu.Lock()
	g, ok := r.nodes[resource.PrefixGroups][groupID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s/%s", ErrNodeNotFound, resource.PrefixGroups, groupID)
	}

	g.Members = r.knownLightsLocked(lightIDs)
	events, _ := r.refreshGroupLocked(g, r.clock.Now())
	err := r.saveLocked(ctx, g)
	members := slices.Clone(g.Members)
	r.mu.Unlock()

	r.emit(events)
	return members, err
}

func (r *Registry) knownLightsLocked(ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := r.nodes[resource.PrefixLights][id]; ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// MarkRule records that rule handle references an item of a node.
func (r *Registry) MarkRule(ctx context.Context, prefix, id, suffix string, handle int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	node, ok := r.nodes[prefix][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNodeNotFound, prefix, id)
	}
	it := node.Resource.Item(suffix)
	if it == nil {
		return fmt.Errorf("%w: %s", ErrItemNotFound, suffix)
	}
	it.InRule(handle)
	r.saveItemLocked(ctx, node, it)
	return nil
}

// DeviceIDs returns the distinct device parts of the unique ids of all
// lights and sensors, sorted.
func (r *Registry) DeviceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, prefix := range []string{resource.PrefixLights, resource.PrefixSensors} {
		for _, n := range r.nodes[prefix] {
			uid := n.UniqueID()
			if uid == "" {
				continue
			}
			seen[DeviceIDFromUniqueID(uid)] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Device merges all lights, then all sensors, whose unique id starts with
// uniqueID. The first non-empty manufacturer, model id and software version
// win.
func (r *Registry) Device(uniqueID string) *DeviceView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := &DeviceView{UniqueID: uniqueID, Sub: []*Node{}}
	for _, prefix := range []string{resource.PrefixLights, resource.PrefixSensors} {
		for _, n := range r.listLocked(prefix) {
			if !strings.HasPrefix(n.UniqueID(), uniqueID) {
				continue
			}
			if view.Manufacturer == "" {
				view.Manufacturer = n.Manufacturer()
			}
			if view.ModelID == "" {
				view.ModelID = n.ModelID()
			}
			if view.SwVersion == "" {
				view.SwVersion = n.SwVersion()
			}
			view.Sub = append(view.Sub, n)
		}
	}
	return view
}

// SetInstallCode stores a Zigbee install code for a device.
func (r *Registry) SetInstallCode(ctx context.Context, uniqueID, code string) error {
	if r.repo != nil {
		if err := r.repo.SaveInstallCode(ctx, uniqueID, code); err != nil {
			return err
		}
	}
	r.logger.Info("install code stored", "uniqueid", uniqueID)
	return nil
}

// Count returns the number of nodes of a prefix.
func (r *Registry) Count(prefix string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes[prefix])
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		ByPrefix: make(map[string]int),
		ByType:   make(map[string]int),
	}
	for prefix, byID := range r.nodes {
		stats.ByPrefix[prefix] = len(byID)
		stats.TotalNodes += len(byID)
		for _, n := range byID {
			stats.ByType[n.Type]++
		}
	}
	return stats
}

func (r *Registry) saveLocked(ctx context.Context, node *Node) error {
	if r.repo == nil {
		return nil
	}
	if err := r.repo.Save(ctx, RecordFromNode(node)); err != nil {
		return fmt.Errorf("saving node: %w", err)
	}
	return nil
}

// saveItemLocked persists one item. Failures are logged; the in-memory value
// stays authoritative.
func (r *Registry) saveItemLocked(ctx context.Context, node *Node, it *resource.Item) {
	if r.repo == nil {
		return
	}
	if err := r.repo.SaveItem(ctx, node.Prefix(), node.ID, recordFromItem(it)); err != nil {
		r.logger.Warn("failed to persist item",
			"prefix", node.Prefix(), "id", node.ID, "suffix", it.Suffix(), "error", err)
	}
}

func (r *Registry) reportCountsLocked() {
	for prefix, byID := range r.nodes {
		r.metrics.NodeCount(prefix, len(byID))
	}
}

func (r *Registry) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	r.sinksMu.RLock()
	sinks := slices.Clone(r.sinks)
	r.sinksMu.RUnlock()

	for _, e := range events {
		for _, s := range sinks {
			s.HandleEvent(e)
		}
	}
}
