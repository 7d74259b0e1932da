package event

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"ytetl/internal/flatten"
	"ytetl/internal/metrics"
	"ytetl/internal/objstore"
	"ytetl/internal/sink"
)

// Status of one notification entry.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusWritten Status = "written"
	StatusFailed  Status = "failed"
)

// ReasonNoRecords is the Response.Reason for a notification without records.
const ReasonNoRecords = "no-records"

// EntryResult reports what happened to one object.
type EntryResult struct {
	Key    string `json:"key"`
	Status Status `json:"status"`
	Rows   int    `json:"rows,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Response is the function's return value.
type Response struct {
	OK      bool          `json:"ok"`
	Reason  string        `json:"reason,omitempty"`
	Results []EntryResult `json:"results,omitempty"`
}

// Writer is the subset of sink.IncrementalWriter the handler uses.
type Writer interface {
	EnsureDatabase(ctx context.Context) error
	Write(ctx context.Context, b sink.Batch) (sink.WriteResult, error)
}

// Handler processes notifications. One Handler lives for the whole process
// so that the database check runs once per cold start.
type Handler struct {
	Store  objstore.Store
	Writer Writer
	// FailFast aborts the invocation on the first failed entry.
	FailFast bool
	// Job labels metrics.
	Job string
	Log zerolog.Logger

	mu      sync.Mutex
	dbReady bool
}

func (h *Handler) ensureDatabase(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dbReady {
		return nil
	}
	done := metrics.Timer(h.Job, metrics.StepEnsureDB)
	err := h.Writer.EnsureDatabase(ctx)
	done(err)
	if err != nil {
		return err
	}
	h.dbReady = true
	return nil
}

// Handle processes every record of ev in order. It returns an error only for
// a malformed notification, a failed database check, or, with FailFast, the
// first failed entry.
func (h *Handler) Handle(ctx context.Context, ev events.S3Event) (Response, error) {
	h.Log.Info().Int("records", len(ev.Records)).Msg("start: json to parquet, youtube categories")
	if len(ev.Records) == 0 {
		h.Log.Warn().Msg("start: no records in event; use an S3 put trigger")
		return Response{OK: false, Reason: ReasonNoRecords}, nil
	}

	done := metrics.Timer(h.Job, metrics.StepDecode)
	refs, err := DecodeNotification(ev, h.Log)
	done(err)
	if err != nil {
		return Response{}, err
	}

	if err := h.ensureDatabase(ctx); err != nil {
		return Response{}, err
	}

	resp := Response{OK: true, Results: make([]EntryResult, 0, len(refs))}
	for _, ref := range refs {
		res, err := h.processOne(ctx, ref)
		resp.Results = append(resp.Results, res)
		if err == nil {
			continue
		}
		resp.OK = false
		if h.FailFast {
			return resp, err
		}
		h.Log.Error().Err(err).Str("key", ref.Key).Msg("process: entry failed, continuing with next")
	}
	return resp, nil
}

func (h *Handler) processOne(ctx context.Context, ref ObjectRef) (EntryResult, error) {
	log := h.Log.With().Str("bucket", ref.Bucket).Str("key", ref.Key).Logger()
	log.Info().Msg("process: processing object")
	out := EntryResult{Key: ref.Key}

	body, err := h.Store.Get(ctx, ref.URI())
	if err != nil {
		err = errors.Wrapf(err, "event: get %s", ref.URI())
		out.Status, out.Error = StatusFailed, err.Error()
		return out, err
	}
	log.Debug().Int("bytes", len(body)).Msg("process: object read")

	start := time.Now()
	flat := flatten.Flattener{Log: log}.Flatten(body)
	metrics.RecordStep(h.Job, metrics.StepFlatten, nil, time.Since(start))
	if flat.Empty() {
		log.Warn().Str("reason", flat.Reason).Msg("process: nothing to write; skipping")
		out.Status = StatusEmpty
		return out, nil
	}
	metrics.RecordRow(h.Job, "flattened", int64(len(flat.Rows)))

	done := metrics.Timer(h.Job, metrics.StepWrite)
	wr, err := h.Writer.Write(ctx, sink.Batch{Fields: flat.Fields(), Rows: flat.Records()})
	done(err)
	if err != nil {
		out.Status, out.Error = StatusFailed, err.Error()
		return out, err
	}
	metrics.RecordRow(h.Job, "written", int64(wr.Rows))
	metrics.RecordFiles(h.Job, int64(len(wr.Files)))
	out.Status, out.Rows = StatusWritten, wr.Rows
	return out, nil
}
