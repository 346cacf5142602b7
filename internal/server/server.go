// Package server implements the annstore gRPC annotation service
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nainya/annstore/internal/logger"
	"github.com/nainya/annstore/internal/metrics"
	"github.com/nainya/annstore/pkg/annotator"
	"github.com/nainya/annstore/pkg/span"
	"github.com/nainya/annstore/pkg/storage"
)

// TypeSource returns the type configuration for documents in dir
type TypeSource func(dir string) (annotator.TypeConfig, error)

// Options configures a Server
type Options struct {
	// DataDir is the collection root; document paths in requests are
	// relative to it
	DataDir string
	Store   *storage.Store
	Types   TypeSource

	Metrics *metrics.Metrics // optional
	Logger  *logger.Logger
}

// Server implements AnnotationServiceServer. Every request opens the
// document, applies one operation and closes it again, writing it back
// when it changed. Requests for the same document are serialized.
type Server struct {
	dataDir string
	store   *storage.Store
	types   TypeSource
	metrics *metrics.Metrics
	log     *logger.Logger

	docLocks sync.Map // absolute path -> *sync.Mutex
}

var _ AnnotationServiceServer = (*Server)(nil)

// NewServer creates a server
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("server: a store is required")
	}
	if opts.Types == nil {
		return nil, fmt.Errorf("server: a type source is required")
	}
	dataDir, err := filepath.Abs(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("server: data dir: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		dataDir: dataDir,
		store:   opts.Store,
		types:   opts.Types,
		metrics: opts.Metrics,
		log:     log,
	}, nil
}

// ========== Request plumbing ==========

// docPath resolves the "document" field of req inside the data directory
func (s *Server) docPath(req *structpb.Struct) (string, error) {
	name := stringField(req, "document")
	if name == "" {
		return "", status.Error(codes.InvalidArgument, "document is required")
	}
	if !filepath.IsLocal(name) {
		return "", status.Errorf(codes.InvalidArgument, "document %q is outside the collection", name)
	}
	return storage.Resolve(filepath.Join(s.dataDir, name))
}

func (s *Server) lockDoc(path string) func() {
	m, _ := s.docLocks.LoadOrStore(path, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// editFunc applies one operation and returns its changes plus extra
// response fields
type editFunc func(e *annotator.Engine) (*annotator.Changes, map[string]any, error)

// edit runs fn against the requested document and writes the result back
func (s *Server) edit(ctx context.Context, op string, req *structpb.Struct, fn editFunc) (*structpb.Struct, error) {
	path, err := s.docPath(req)
	if err != nil {
		return nil, toStatus(err)
	}
	unlock := s.lockDoc(path)
	defer unlock()

	log := s.log.DocLogger(op, path)
	sess, err := s.store.Open(path)
	if err != nil {
		return nil, toStatus(err)
	}
	types, err := s.types(filepath.Dir(path))
	if err != nil {
		sess.Discard()
		return nil, toStatus(err)
	}

	eng := annotator.New(sess.Document(), types, log.Zerolog())
	eng.OnOperation = func(name string, d time.Duration, err error) {
		if s.metrics != nil {
			s.metrics.RecordOperation(name, d, err)
		}
	}

	start := time.Now()
	ch, extra, err := fn(eng)
	changes := 0
	if ch != nil {
		changes = ch.Len()
	}
	s.log.LogDocOperation(op, path, time.Since(start), changes, err)
	if err != nil {
		sess.Discard()
		return nil, toStatus(err)
	}

	if err := sess.Close(ctx); err != nil {
		sess.Discard()
		log.Error("write failed").Err(err).Send()
		return nil, toStatus(err)
	}

	resp := map[string]any{
		"annotations": sess.Document().String(),
		"edited":      []any{},
		"warnings":    []any{},
	}
	if ch != nil {
		resp["edited"] = references(ch.Edited())
		resp["warnings"] = stringList(ch.Warnings())
	}
	for k, v := range extra {
		resp[k] = v
	}
	return newStruct(resp)
}

// view opens the requested document read-only for the duration of fn
func (s *Server) view(req *structpb.Struct, fn func(sess *storage.Session) (map[string]any, error)) (*structpb.Struct, error) {
	path, err := s.docPath(req)
	if err != nil {
		return nil, toStatus(err)
	}
	unlock := s.lockDoc(path)
	defer unlock()

	sess, err := s.store.Open(path)
	if err != nil {
		return nil, toStatus(err)
	}
	defer sess.Discard()

	resp, err := fn(sess)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(resp)
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func stringField(req *structpb.Struct, key string) string {
	if v, ok := req.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// jsonField returns a field as JSON text. Clients may send structured
// values or the JSON text itself as a string.
func jsonField(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", nil
	}
	if sv, isString := v.GetKind().(*structpb.Value_StringValue); isString {
		return sv.StringValue, nil
	}
	data, err := json.Marshal(v.AsInterface())
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "%s: %v", key, err)
	}
	return string(data), nil
}

func requireFields(req *structpb.Struct, keys ...string) error {
	for _, k := range keys {
		if stringField(req, k) == "" {
			return status.Errorf(codes.InvalidArgument, "%s is required", k)
		}
	}
	return nil
}

func references(refs [][]string) []any {
	out := make([]any, len(refs))
	for i, ref := range refs {
		out[i] = stringList(ref)
	}
	return out
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func offsetList(spans []span.Span) []any {
	out := make([]any, len(spans))
	for i, sp := range spans {
		out[i] = []any{float64(sp.Start), float64(sp.End)}
	}
	return out
}

// ========== Span Operations ==========

func (s *Server) CreateSpan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(req, "type"); err != nil {
		return nil, err
	}
	sr, err := spanRequest(req)
	if err != nil {
		return nil, toStatus(err)
	}

	return s.edit(ctx, "create_span", req, func(e *annotator.Engine) (*annotator.Changes, map[string]any, error) {
		res, err := e.CreateSpan(sr)
		if err != nil {
			return nil, nil, err
		}
		extra := map[string]any{
			"rejected": res.Rejected,
			"undo":     undoMap(res.Undo),
		}
		if res.Event != nil {
			extra["id"] = res.Event.ID
		} else if res.TextBound != nil {
			extra["id"] = res.TextBound.ID
		}
		return res.Changes, extra, nil
	})
}

func spanRequest(req *structpb.Struct) (annotator.SpanRequest, error) {
	sr := annotator.SpanRequest{
		ID:      stringField(req, "id"),
		Type:    stringField(req, "type"),
		Comment: stringField(req, "comment"),
	}

	raw, err := jsonField(req, "offsets")
	if err != nil {
		return sr, err
	}
	if raw == "" {
		return sr, status.Error(codes.InvalidArgument, "offsets is required")
	}
	if sr.Offsets, err = annotator.ParseOffsets(raw); err != nil {
		return sr, err
	}

	if raw, err = jsonField(req, "attributes"); err != nil {
		return sr, err
	}
	if sr.Attributes, err = annotator.ParseAttributes(raw); err != nil {
		return sr, err
	}

	if raw, err = jsonField(req, "normalizations"); err != nil {
		return sr, err
	}
	if sr.Normalizations, err = annotator.ParseNormalizations(raw); err != nil {
		return sr, err
	}
	return sr, nil
}

func undoMap(u annotator.Undo) map[string]any {
	attrs := make(map[string]any, len(u.Attributes))
	for k, v := range u.Attributes {
		attrs[k] = v
	}
	norms := make([]any, len(u.Normalizations))
	for i, n := range u.Normalizations {
		norms[i] = []any{n.RefDB, n.RefID, n.RefText}
	}
	return map[string]any{
		"action":         u.Action,
		"id":             u.ID,
		"offsets":        offsetList(u.Offsets),
		"type":           u.Type,
		"attributes":     attrs,
		"normalizations": norms,
		"comment":        u.Comment,
	}
}

func (s *Server) DeleteSpan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(req, "id"); err != nil {
		return nil, err
	}
	id := stringField(req, "id")
	return s.edit(ctx, "delete_span", req, func(e *annotator.Engine) (*annotator.Changes, map[string]any, error) {
		ch, err := e.DeleteSpan(id)
		return ch, nil, err
	})
}

// ========== Arc Operations ==========

func (s *Server) CreateArc(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(req, "origin", "target", "type"); err != nil {
		return nil, err
	}
	raw, err := jsonField(req, "attributes")
	if err != nil {
		return nil, err
	}
	attrs, err := annotator.ParseAttributes(raw)
	if err != nil {
		return nil, toStatus(err)
	}
	ar := annotator.ArcRequest{
		Origin:     stringField(req, "origin"),
		Target:     stringField(req, "target"),
		Type:       stringField(req, "type"),
		OldType:    stringField(req, "old_type"),
		OldTarget:  stringField(req, "old_target"),
		Attributes: attrs,
		Comment:    stringField(req, "comment"),
	}
	return s.edit(ctx, "create_arc", req, func(e *annotator.Engine) (*annotator.Changes, map[string]any, error) {
		ch, err := e.CreateArc(ar)
		return ch, nil, err
	})
}

func (s *Server) DeleteArc(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(req, "origin", "target", "type"); err != nil {
		return nil, err
	}
	origin, target, typ := stringField(req, "origin"), stringField(req, "target"), stringField(req, "type")
	return s.edit(ctx, "delete_arc", req, func(e *annotator.Engine) (*annotator.Changes, map[string]any, error) {
		ch, err := e.DeleteArc(origin, target, typ)
		return ch, nil, err
	})
}

func (s *Server) ReverseArc(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(req, "origin", "target", "type"); err != nil {
		return nil, err
	}
	origin, target, typ := stringField(req, "origin"), stringField(req, "target"), stringField(req, "type")
	return s.edit(ctx, "reverse_arc", req, func(e *annotator.Engine) (*annotator.Changes, map[string]any, error) {
		ch, err := e.ReverseArc(origin, target, typ)
		return ch, nil, err
	})
}

// ========== Event Operations ==========

func (s *Server) SplitEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireFields(req, "id"); err != nil {
		return nil, err
	}
	raw, err := jsonField(req, "roles")
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, status.Error(codes.InvalidArgument, "roles is required")
	}
	roles, err := annotator.ParseRoles(raw)
	if err != nil {
		return nil, toStatus(err)
	}
	id := stringField(req, "id")
	return s.edit(ctx, "split_event", req, func(e *annotator.Engine) (*annotator.Changes, map[string]any, error) {
		ch, err := e.SplitEvent(id, roles)
		return ch, nil, err
	})
}

// ========== Status Operations ==========

func (s *Server) GetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.view(req, func(sess *storage.Session) (map[string]any, error) {
		return map[string]any{"status": sess.Document().Status()}, nil
	})
}

func (s *Server) SetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	st := stringField(req, "status")
	return s.edit(ctx, "set_status", req, func(e *annotator.Engine) (*annotator.Changes, map[string]any, error) {
		ch, err := e.SetStatus(st)
		return ch, map[string]any{"status": st}, err
	})
}

// ========== Document Operations ==========

func (s *Server) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.view(req, func(sess *storage.Session) (map[string]any, error) {
		doc := sess.Document()
		failed := make([]any, len(doc.FailedLines()))
		for i, n := range doc.FailedLines() {
			failed[i] = float64(n)
		}
		var problems []string
		for _, err := range doc.SanityCheck() {
			problems = append(problems, err.Error())
		}
		return map[string]any{
			"annotations":  doc.String(),
			"status":       doc.Status(),
			"read_only":    doc.ReadOnly(),
			"has_text":     doc.HasText(),
			"failed_lines": failed,
			"problems":     stringList(problems),
			"mtime":        sess.ModTime().Format(time.RFC3339Nano),
			"ctime":        sess.ChangeTime().Format(time.RFC3339Nano),
		}, nil
	})
}
