package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo on top of the ent SQL driver and the
// shared sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
	now func() time.Time
}

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "request_id", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
	"request_body", "response_body",
}

// llmEventRow mirrors one llm_request_events row for entsql.ScanSlice.
type llmEventRow struct {
	ID           int          `sql:"id"`
	Sequence     int64        `sql:"sequence"`
	Timestamp    sql.NullTime `sql:"timestamp"`
	RequestID    string       `sql:"request_id"`
	Provider     string       `sql:"provider"`
	Model        string       `sql:"model"`
	Purpose      string       `sql:"purpose"`
	InputTokens  int          `sql:"input_tokens"`
	OutputTokens int          `sql:"output_tokens"`
	LatencyMs    int64        `sql:"latency_ms"`
	Success      bool         `sql:"success"`
	ErrorMessage string       `sql:"error_message"`
	RequestBody  string       `sql:"request_body"`
	ResponseBody string       `sql:"response_body"`
}

func (r llmEventRow) record() LLMRequestEventRecord {
	return LLMRequestEventRecord{
		ID:        r.ID,
		Sequence:  r.Sequence,
		Timestamp: r.Timestamp.Time.UTC(),
		LLMRequestEventData: LLMRequestEventData{
			RequestID:    r.RequestID,
			Provider:     r.Provider,
			Model:        r.Model,
			Purpose:      r.Purpose,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			LatencyMs:    r.LatencyMs,
			Success:      r.Success,
			ErrorMessage: r.ErrorMessage,
			RequestBody:  r.RequestBody,
			ResponseBody: r.ResponseBody,
		},
	}
}

func (r *eventRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *eventRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := r.builder().Insert(llmRequestEventsTable).
		Columns(llmEventColumns[1:]...).
		Values(
			seqNum, r.clock().UTC(), data.RequestID, data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage,
			data.RequestBody, data.ResponseBody,
		).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}

	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error) {
	b := r.builder()
	sel := b.Select(llmEventColumns...).From(b.Table(llmRequestEventsTable))
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", opts.To.UTC()))
	}
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	rows, err := r.selectEvents(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	records := make([]LLMRequestEventRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error) {
	b := r.builder()
	sel := b.Select(llmEventColumns...).
		From(b.Table(llmRequestEventsTable)).
		Where(entsql.EQ("id", id))

	rows, err := r.selectEvents(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("get LLM event %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := rows[0].record()
	return &rec, nil
}

func (r *eventRepo) selectEvents(ctx context.Context, sel *entsql.Selector) ([]llmEventRow, error) {
	var out []llmEventRow
	if err := r.scan(ctx, sel, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// scan runs sel and scans every row into dst, a pointer to a slice.
func (r *eventRepo) scan(ctx context.Context, sel *entsql.Selector, dst any) error {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	return entsql.ScanSlice(rows, dst)
}

// usageRow is the aggregate shape shared by the purpose and model rollups.
type usageRow struct {
	Key          string  `sql:"group_key"`
	Calls        int     `sql:"calls"`
	Successes    int     `sql:"successes"`
	InputTokens  int     `sql:"input_tokens"`
	OutputTokens int     `sql:"output_tokens"`
	AvgLatency   float64 `sql:"avg_latency"`
}

func (r *eventRepo) usageBy(ctx context.Context, column string) ([]usageRow, error) {
	b := r.builder()
	sel := b.Select(
		entsql.As(column, "group_key"),
		entsql.As(entsql.Count("*"), "calls"),
		entsql.As(entsql.Sum("success"), "successes"),
		entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
		entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
		entsql.As(entsql.Avg("latency_ms"), "avg_latency"),
	).
		From(b.Table(llmRequestEventsTable)).
		GroupBy(column).
		OrderBy(entsql.Desc("calls"), column)

	var out []usageRow
	if err := r.scan(ctx, sel, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error) {
	rows, err := r.usageBy(ctx, "purpose")
	if err != nil {
		return nil, fmt.Errorf("query usage by purpose: %w", err)
	}
	stats := make([]LLMUsageStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, LLMUsageStats{
			Purpose:      row.Key,
			Calls:        row.Calls,
			Failures:     row.Calls - row.Successes,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
			AvgLatencyMs: int64(row.AvgLatency),
		})
	}
	return stats, nil
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error) {
	rows, err := r.usageBy(ctx, "model")
	if err != nil {
		return nil, fmt.Errorf("query usage by model: %w", err)
	}
	usage := make([]LLMModelUsage, 0, len(rows))
	for _, row := range rows {
		usage = append(usage, LLMModelUsage{
			Model:        row.Key,
			Calls:        row.Calls,
			InputTokens:  row.InputTokens,
			OutputTokens: row.OutputTokens,
		})
	}
	return usage, nil
}
