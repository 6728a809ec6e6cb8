package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"entgo.io/ent"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/abhisek/solveur/ent/schema"
)

const llmRequestEventsTable = "llm_request_events"

// tables lists every ent-managed table, built from the ent schema definitions.
func tables() ([]*schema.Table, error) {
	t, err := tableFor(llmRequestEventsTable, entschema.LLMRequestEvent{})
	if err != nil {
		return nil, err
	}
	return []*schema.Table{t}, nil
}

// tableFor converts an ent schema (mixins included) into a migration table
// with an auto-increment integer primary key.
func tableFor(name string, s ent.Interface) (*schema.Table, error) {
	var (
		fields  []ent.Field
		indexes []ent.Index
	)
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	t := schema.NewTable(name).
		AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})
	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, d.Name, d.Err)
		}
		c := &schema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional,
		}
		if d.StorageKey != "" {
			c.Name = d.StorageKey
		}
		// Function defaults such as time.Now are applied on insert.
		if d.Default != nil && reflect.TypeOf(d.Default).Kind() != reflect.Func {
			c.Default = d.Default
		}
		t.AddColumn(c)
	}

	prefix := strings.ReplaceAll(name, "_", "")
	for _, idx := range indexes {
		d := idx.Descriptor()
		idxName := d.StorageKey
		if idxName == "" {
			idxName = prefix + "_" + strings.Join(d.Fields, "_")
		}
		t.AddIndex(idxName, d.Unique, d.Fields)
	}
	return t, nil
}

// migrate creates or extends the tables in append-only mode.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	ts, err := tables()
	if err != nil {
		return err
	}
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	return m.Create(ctx, ts...)
}
