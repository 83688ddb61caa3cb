package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docgate/internal/model"
	"docgate/internal/storage"
	"docgate/internal/transform"
)

const (
	outcomeOK = "ok"

	tracerName = "docgate/internal/service"
)

// TransformService runs one transformation per request.
type TransformService interface {
	// Transform validates req, saves the upload into a fresh workspace and
	// applies the requested transformation there.
	// On success the caller owns the returned workspace and must release it
	// once the result has been delivered. On error no workspace is returned
	// and nothing is left behind in scratch storage.
	Transform(ctx context.Context, req model.Request) (*model.Result, storage.Workspace, error)
}

// Option customizes a TransformService.
type Option func(*transformService)

// WithMetrics records transformation metrics on m.
func WithMetrics(m *Metrics) Option {
	return func(s *transformService) { s.metrics = m }
}

// WithTracer overrides the tracer used for transformation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *transformService) { s.tracer = t }
}

type transformService struct {
	store   storage.Storage
	reg     *transform.Registry
	log     logrus.FieldLogger
	metrics *Metrics
	tracer  trace.Tracer
}

// NewTransformService constructs a TransformService backed by store and the
// capabilities in reg.
func NewTransformService(store storage.Storage, reg *transform.Registry, log logrus.FieldLogger, opts ...Option) TransformService {
	s := &transformService{
		store:  store,
		reg:    reg,
		log:    log.WithField("component", "transform"),
		tracer: otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *transformService) Transform(ctx context.Context, req model.Request) (res *model.Result, ws storage.Workspace, err error) {
	kind := req.Kind.String()
	log := s.log.WithFields(logrus.Fields{"kind": kind, "filename": req.File.Name()})
	start := time.Now()

	defer func() {
		outcome := outcomeOK
		if err != nil {
			outcome = transform.KindOf(err).String()
		}
		s.metrics.observe(kind, outcome, time.Since(start).Seconds())
	}()

	c, err := s.reg.Get(req.Kind)
	if err != nil {
		return nil, nil, err
	}
	if req.File.Reader == nil {
		return nil, nil, &transform.Error{Kind: transform.Validation, Err: transform.ErrMissingFile}
	}
	if err := c.Validate(req.Params); err != nil {
		log.WithError(err).Debug("transform rejected")
		return nil, nil, err
	}

	ctx, span := s.tracer.Start(ctx, "transform."+kind, trace.WithAttributes(
		attribute.String("docgate.kind", kind),
		attribute.String("docgate.filename", req.File.Name()),
		attribute.Int64("docgate.input_size", req.File.Size),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	w, err := s.store.Acquire(ctx, kind)
	if err != nil {
		log.WithError(err).Error("acquire workspace failed")
		return nil, nil, &transform.Error{Kind: transform.Internal, Op: "acquire workspace", Err: err}
	}
	handedOff := false
	defer func() {
		if !handedOff {
			_ = w.Release()
		}
	}()

	name := req.File.Name()
	inPath, size, err := w.Save("input_"+name, req.File.Reader)
	if err != nil {
		log.WithError(err).Error("save upload failed")
		return nil, nil, &transform.Error{Kind: transform.Internal, Op: "save upload", Err: err}
	}
	log = log.WithFields(logrus.Fields{"workspace": w.ID(), "dir": w.Dir()})
	log.WithField("size", size).Debug("transform started")

	res, err = c.Apply(ctx, w, transform.Input{Path: inPath, Name: name, Stem: req.File.Stem()}, req.Params)
	elapsed := time.Since(start)
	if err != nil {
		entry := log.WithError(err).WithField("duration_ms", elapsed.Milliseconds())
		if transform.IsAuth(err) || transform.IsValidation(err) || errors.Is(err, context.Canceled) {
			entry.Info("transform rejected")
		} else {
			entry.Error("transform failed")
		}
		return nil, nil, err
	}

	span.SetAttributes(attribute.Int64("docgate.output_size", res.Size))
	log.WithFields(logrus.Fields{
		"duration_ms": elapsed.Milliseconds(),
		"output":      res.DownloadName,
		"output_size": res.Size,
	}).Info("transform finished")

	handedOff = true
	return res, w, nil
}
