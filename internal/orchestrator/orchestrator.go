// Package orchestrator is the entry point for one inbound message: it
// deduplicates, serialises per session, runs the pipeline and commits the
// session state.
package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Chative-commerce/server/internal/agent/graph"
	"github.com/Chative-commerce/server/internal/agent/graph/nodes"
	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/session"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

// MsgDuplicate is returned for a message id that was already processed.
const MsgDuplicate = "Mensagem já processada."

const tracerName = "github.com/Chative-commerce/server/orchestrator"

// DefaultProcessedCacheSize bounds the in-process set of handled message ids.
const DefaultProcessedCacheSize = 4096

// Request is one inbound message.
type Request struct {
	UserID      string
	MessageID   string
	Text        string
	TenantID    string
	Personality string
	File        []byte
	MimeType    string
	Latitude    *float64
	Longitude   *float64
}

// Config wires the collaborators. Interactions and Catalog may be nil.
type Config struct {
	Runner       graph.Runner
	Sessions     session.Store
	Catalog      model.Catalog
	Interactions model.InteractionLog
	Locker       *session.Locker
	// Location is the store clock used for the daily greeting.
	Location *time.Location
	Now      func() time.Time
	// ProcessedCacheSize defaults to DefaultProcessedCacheSize.
	ProcessedCacheSize int
}

type Orchestrator struct {
	runner       graph.Runner
	sessions     session.Store
	catalog      model.Catalog
	interactions model.InteractionLog
	locker       *session.Locker
	loc          *time.Location
	now          func() time.Time
	tracer       trace.Tracer
	// processed holds ids committed by this process. It covers the gap until
	// the interaction log records them.
	processed *lru.Cache[string, struct{}]
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("orchestrator: runner is nil")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("orchestrator: session store is nil")
	}
	size := cfg.ProcessedCacheSize
	if size <= 0 {
		size = DefaultProcessedCacheSize
	}
	processed, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: processed cache: %w", err)
	}
	o := &Orchestrator{
		runner:       cfg.Runner,
		sessions:     cfg.Sessions,
		catalog:      cfg.Catalog,
		interactions: cfg.Interactions,
		locker:       cfg.Locker,
		loc:          cfg.Location,
		now:          cfg.Now,
		tracer:       otel.Tracer(tracerName),
		processed:    processed,
	}
	if o.locker == nil {
		o.locker = session.NewLocker()
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// ProcessMessage handles one message end to end. Pipeline failures become
// the generic reply; the returned error is only set when ctx ended before
// the session could be committed. A run that already wrote a confirmed
// order is always committed, even when ctx ended meanwhile.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req Request) (*model.AIResponse, error) {
	key := session.Key(req.UserID, req.TenantID)
	ctx, span := o.tracer.Start(ctx, "orchestrator.process_message", trace.WithAttributes(
		attribute.String("session_id", key),
		attribute.String("tenant_id", req.TenantID),
		attribute.String("message_id", req.MessageID),
	))
	defer span.End()

	log := logx.With("session_id", key, "tenant_id", req.TenantID, "message_id", req.MessageID)

	if o.isDuplicate(ctx, req.MessageID) {
		log.Info().Msg("duplicate message ignored")
		span.SetAttributes(attribute.Bool("duplicate", true))
		return duplicateReply(), nil
	}

	unlock, err := o.locker.LockContext(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("request cancelled while waiting for session")
		span.SetStatus(codes.Error, "cancelled")
		return &model.AIResponse{ResponseText: nodes.MsgGeneric}, err
	}
	defer unlock()

	// A retry of the same id may have waited on the lock behind the first run.
	if o.isDuplicate(ctx, req.MessageID) {
		log.Info().Msg("duplicate message ignored after lock")
		span.SetAttributes(attribute.Bool("duplicate", true))
		return duplicateReply(), nil
	}

	sess, err := o.sessions.Load(ctx, key)
	if err != nil || sess == nil {
		log.Warn().Err(err).Msg("session load failed, starting fresh")
		sess = &session.Session{Order: model.NewOrderState()}
	}

	tenant := o.tenant(ctx, req.TenantID)
	storeName := req.TenantID
	personality := strings.TrimSpace(req.Personality)
	if tenant != nil {
		storeName = tenant.DisplayName()
		if personality == "" {
			personality = tenant.Personality
		}
	}

	resp := o.run(ctx, model.QueryInput{
		SessionID:   key,
		UserID:      req.UserID,
		TenantID:    req.TenantID,
		MessageID:   req.MessageID,
		Text:        req.Text,
		Personality: personality,
		StoreName:   storeName,
		File:        req.File,
		MimeType:    req.MimeType,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Order:       sess.Order.Clone(),
	})

	if err := ctx.Err(); err != nil {
		if !resp.Committed {
			log.Warn().Err(err).Msg("request cancelled, session left unchanged")
			span.SetStatus(codes.Error, "cancelled")
			return &model.AIResponse{ResponseText: nodes.MsgGeneric}, err
		}
		log.Warn().Err(err).Msg("request cancelled after order was stored, committing session")
		ctx = context.WithoutCancel(ctx)
	}

	now := o.now().In(o.loc)
	if resp.Formulated {
		resp.ResponseText = session.Greet(resp.ResponseText, storeName, sess.LastInteraction, now)
		sess.LastInteraction = now
	}
	if resp.Order != nil {
		sess.Order = resp.Order
	}
	if err := o.sessions.Save(ctx, key, sess); err != nil {
		log.Error().Err(err).Msg("saving session failed")
	}
	if req.MessageID != "" {
		o.processed.Add(req.MessageID, struct{}{})
	}

	span.SetAttributes(
		attribute.Bool("human_handoff", resp.HumanHandoff),
		attribute.Bool("send_menu", resp.SendMenu),
		attribute.String("order_status", string(sess.Order.Status)),
	)
	return resp, nil
}

func duplicateReply() *model.AIResponse {
	return &model.AIResponse{ResponseText: MsgDuplicate, Duplicate: true}
}

func (o *Orchestrator) isDuplicate(ctx context.Context, messageID string) bool {
	if messageID == "" {
		return false
	}
	if o.processed.Contains(messageID) {
		return true
	}
	if o.interactions == nil {
		return false
	}
	seen, err := o.interactions.Exists(ctx, messageID)
	if err != nil {
		logx.Warn().Err(err).Str("message_id", messageID).Msg("duplicate check failed")
		return false
	}
	return seen
}

func (o *Orchestrator) tenant(ctx context.Context, tenantID string) *model.Tenant {
	if o.catalog == nil {
		return nil
	}
	t, err := o.catalog.GetTenant(ctx, tenantID)
	if err != nil {
		logx.Warn().Err(err).Str("tenant_id", tenantID).Msg("tenant lookup failed")
		return nil
	}
	return t
}

// run invokes the pipeline. Errors and panics yield the generic reply with
// no order change.
func (o *Orchestrator) run(ctx context.Context, in model.QueryInput) (resp *model.AIResponse) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().
				Str("session_id", in.SessionID).
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("pipeline panicked")
			resp = &model.AIResponse{ResponseText: nodes.MsgGeneric}
		}
	}()

	out, err := o.runner.Invoke(ctx, in)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logx.Error().Err(err).Str("session_id", in.SessionID).Str("tenant_id", in.TenantID).Msg("pipeline failed")
		return &model.AIResponse{ResponseText: nodes.MsgGeneric}
	}
	return out
}
