package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// NodeRecord is the persisted form of a node.
type NodeRecord struct {
	Prefix  string
	ID      string
	Type    string
	Members []string
	Items   []ItemRecord
}

// ItemRecord is the persisted form of one item.
// Zero timestamps mean the item was never set.
type ItemRecord struct {
	Suffix      string
	DataType    resource.DataType
	Num         int64
	Str         string
	LastSet     time.Time
	LastChanged time.Time
	IsPublic    bool
	Rules       []int
}

// Repository defines the interface for node persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// List retrieves every node with its items.
	List(ctx context.Context) ([]NodeRecord, error)

	// Save inserts or replaces a node and all of its items.
	Save(ctx context.Context, rec NodeRecord) error

	// SaveItem inserts or replaces a single item of an existing node.
	SaveItem(ctx context.Context, prefix, id string, item ItemRecord) error

	// Delete removes a node and its items.
	// Returns ErrNodeNotFound if the node does not exist.
	Delete(ctx context.Context, prefix, id string) error

	// SaveInstallCode records an install code for a device unique id.
	SaveInstallCode(ctx context.Context, uniqueID, code string) error
}

// RecordFromNode converts a node to its persisted form.
func RecordFromNode(n *Node) NodeRecord {
	rec := NodeRecord{
		Prefix:  n.Prefix(),
		ID:      n.ID,
		Type:    n.Type,
		Members: append([]string(nil), n.Members...),
	}
	for _, it := range n.Resource.Items() {
		rec.Items = append(rec.Items, recordFromItem(it))
	}
	return rec
}

func recordFromItem(it *resource.Item) ItemRecord {
	return ItemRecord{
		Suffix:      it.Suffix(),
		DataType:    it.Descriptor().Type,
		Num:         it.ToNumber(),
		Str:         rawString(it),
		LastSet:     it.LastSet(),
		LastChanged: it.LastChanged(),
		IsPublic:    it.IsPublic(),
		Rules:       it.RulesInvolved(),
	}
}

// rawString returns the stored text of textual items. Time items are kept
// numerically so their rendered form is not persisted.
func rawString(it *resource.Item) string {
	if it.Descriptor().Type.IsTextual() {
		return it.ToString()
	}
	return ""
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List retrieves every node with its items, ordered by prefix and id.
func (r *SQLiteRepository) List(ctx context.Context) ([]NodeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT prefix, id, type, members
		FROM nodes
		ORDER BY prefix, CAST(id AS INTEGER), id`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var records []NodeRecord
	index := make(map[string]int)
	for rows.Next() {
		var rec NodeRecord
		var membersJSON string
		if err := rows.Scan(&rec.Prefix, &rec.ID, &rec.Type, &membersJSON); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		if err := json.Unmarshal([]byte(membersJSON), &rec.Members); err != nil {
			return nil, fmt.Errorf("unmarshalling members: %w", err)
		}
		index[nodeKey(rec.Prefix, rec.ID)] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT prefix, node_id, suffix, data_type, num, str,
			last_set, last_changed, is_public, rules
		FROM node_items
		ORDER BY prefix, node_id, position`)
	if err != nil {
		return nil, fmt.Errorf("querying node items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var prefix, nodeID string
		item, err := scanItem(itemRows, &prefix, &nodeID)
		if err != nil {
			return nil, fmt.Errorf("scanning node item: %w", err)
		}
		i, ok := index[nodeKey(prefix, nodeID)]
		if !ok {
			continue
		}
		records[i].Items = append(records[i].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node items: %w", err)
	}

	return records, nil
}

// Save inserts or replaces a node and all of its items in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, rec NodeRecord) error {
	membersJSON, err := json.Marshal(nonNil(rec.Members))
	if err != nil {
		return fmt.Errorf("marshalling members: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (prefix, id, type, members, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (prefix, id) DO UPDATE SET
			type = excluded.type,
			members = excluded.members,
			updated_at = excluded.updated_at`,
		rec.Prefix, rec.ID, rec.Type, string(membersJSON), now, now)
	if err != nil {
		return fmt.Errorf("upserting node: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM node_items WHERE prefix = ? AND node_id = ?", rec.Prefix, rec.ID); err != nil {
		return fmt.Errorf("clearing node items: %w", err)
	}

	for pos, item := range rec.Items {
		if err := upsertItem(ctx, tx, rec.Prefix, rec.ID, pos, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing node: %w", err)
	}
	return nil
}

// SaveItem inserts or replaces a single item. The item keeps its position if
// it already exists and is appended otherwise.
func (r *SQLiteRepository) SaveItem(ctx context.Context, prefix, id string, item ItemRecord) error {
	var pos int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(
			(SELECT position FROM node_items WHERE prefix = ? AND node_id = ? AND suffix = ?),
			(SELECT COUNT(*) FROM node_items WHERE prefix = ? AND node_id = ?))`,
		prefix, id, item.Suffix, prefix, id).Scan(&pos)
	if err != nil {
		return fmt.Errorf("locating item position: %w", err)
	}

	return upsertItem(ctx, r.db, prefix, id, pos, item)
}

// Delete removes a node and its items.
func (r *SQLiteRepository) Delete(ctx context.Context, prefix, id string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM node_items WHERE prefix = ? AND node_id = ?", prefix, id); err != nil {
		return fmt.Errorf("deleting node items: %w", err)
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM nodes WHERE prefix = ? AND id = ?", prefix, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNodeNotFound
	}
	return nil
}

// SaveInstallCode records an install code, replacing any previous one.
func (r *SQLiteRepository) SaveInstallCode(ctx context.Context, uniqueID, code string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO install_codes (unique_id, code, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (unique_id) DO UPDATE SET code = excluded.code, created_at = excluded.created_at`,
		uniqueID, code, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving install code: %w", err)
	}
	return nil
}

// execer is implemented by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertItem(ctx context.Context, db execer, prefix, id string, pos int, item ItemRecord) error {
	rulesJSON, err := json.Marshal(nonNil(item.Rules))
	if err != nil {
		return fmt.Errorf("marshalling rules: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO node_items (
			prefix, node_id, suffix, position, data_type, num, str,
			last_set, last_changed, is_public, rules
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (prefix, node_id, suffix) DO UPDATE SET
			data_type = excluded.data_type,
			num = excluded.num,
			str = excluded.str,
			last_set = excluded.last_set,
			last_changed = excluded.last_changed,
			is_public = excluded.is_public,
			rules = excluded.rules`,
		prefix, id, item.Suffix, pos, item.DataType.String(), item.Num, item.Str,
		nullableTime(item.LastSet), nullableTime(item.LastChanged),
		boolToInt(item.IsPublic), string(rulesJSON),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrNodeNotFound
		}
		return fmt.Errorf("upserting item %s: %w", item.Suffix, err)
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(scanner rowScanner, prefix, nodeID *string) (ItemRecord, error) {
	var item ItemRecord
	var dataType, rulesJSON string
	var lastSet, lastChanged sql.NullString
	var isPublic int

	err := scanner.Scan(
		prefix,
		nodeID,
		&item.Suffix,
		&dataType,
		&item.Num,
		&item.Str,
		&lastSet,
		&lastChanged,
		&isPublic,
		&rulesJSON,
	)
	if err != nil {
		return ItemRecord{}, err
	}

	item.DataType, err = resource.ParseDataType(dataType)
	if err != nil {
		return ItemRecord{}, err
	}
	item.IsPublic = isPublic != 0

	if item.LastSet, err = parseNullableTime(lastSet); err != nil {
		return ItemRecord{}, fmt.Errorf("parsing last_set: %w", err)
	}
	if item.LastChanged, err = parseNullableTime(lastChanged); err != nil {
		return ItemRecord{}, fmt.Errorf("parsing last_changed: %w", err)
	}
	if err := json.Unmarshal([]byte(rulesJSON), &item.Rules); err != nil {
		return ItemRecord{}, fmt.Errorf("unmarshalling rules: %w", err)
	}
	return item, nil
}

func nodeKey(prefix, id string) string {
	return prefix + "/" + id
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// nullableTime stores zero times as NULL and others as RFC3339 with
// nanoseconds so millisecond timestamps survive a round trip.
func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseNullableTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s.String)
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isForeignKeyError checks if an error is a SQLite foreign key violation.
func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

var _ Repository = (*SQLiteRepository)(nil)
