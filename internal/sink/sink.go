// Package sink records completed-page lifecycle events (URL, final status,
// pdf_path, timings) for downstream consumers. It is explicitly not used
// for Frontier persistence or restore — a Sink only ever appends, it never feeds
// state back into the engine.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kestrel-labs/pageforge/internal/types"
)

// Sink receives one lifecycle event per URL status transition the engine
// considers interesting. Implementations must not block the scheduler for
// long: the engine calls Record synchronously from the scheduler's
// lifecycle hook, with a 5-second context deadline, so a slow Sink delays
// the scheduler goroutine that emitted the event.
type Sink interface {
	Record(ctx context.Context, ev types.LifecycleEvent) error
	Close() error
}

// NullSink discards every event; the default when no sink is configured.
type NullSink struct{}

func (NullSink) Record(ctx context.Context, ev types.LifecycleEvent) error { return nil }
func (NullSink) Close() error                                             { return nil }

// FileSink appends newline-delimited JSON lifecycle events to a file.
type FileSink struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	logger *slog.Logger
}

// NewFileSink opens (creating if needed) path for append.
func NewFileSink(path string, logger *slog.Logger) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink file: %w", err)
	}
	return &FileSink{file: f, enc: json.NewEncoder(f), logger: logger.With("component", "file_sink")}, nil
}

type fileSinkRecord struct {
	Kind         string    `json:"kind"`
	URLID        string    `json:"url_id"`
	URL          string    `json:"url"`
	Status       string    `json:"status"`
	PDFPath      string    `json:"pdf_path,omitempty"`
	ContentBytes int       `json:"content_bytes,omitempty"`
	Error        string    `json:"error,omitempty"`
	Duration     string    `json:"duration"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s *FileSink) Record(ctx context.Context, ev types.LifecycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := fileSinkRecord{
		Kind:         ev.Kind.String(),
		URLID:        ev.URLID,
		URL:          ev.URL,
		Status:       ev.Status.String(),
		PDFPath:      ev.PDFPath,
		ContentBytes: ev.ContentBytes,
		Duration:     ev.Duration.String(),
		Timestamp:    ev.Timestamp,
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	return s.enc.Encode(rec)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MongoSink writes lifecycle events to a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoSink connects to uri and targets database.collection.
func NewMongoSink(uri, database, collection string, logger *slog.Logger) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_sink"),
	}, nil
}

func (s *MongoSink) Record(ctx context.Context, ev types.LifecycleEvent) error {
	doc := map[string]any{
		"kind":          ev.Kind.String(),
		"url_id":        ev.URLID,
		"url":           ev.URL,
		"status":        ev.Status.String(),
		"pdf_path":      ev.PDFPath,
		"content_bytes": ev.ContentBytes,
		"duration":      ev.Duration.String(),
		"timestamp":     ev.Timestamp,
	}
	if ev.Err != nil {
		doc["error"] = ev.Err.Error()
	}

	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.collection.InsertOne(ictx, doc); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	s.mu.Lock()
	s.count++
	s.logger.Debug("lifecycle event recorded", "url", ev.URL, "total", s.count)
	s.mu.Unlock()
	return nil
}

func (s *MongoSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// MultiSink fans events out to multiple backends, reporting the first
// error while still delivering to every backend.
type MultiSink struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewMultiSink(logger *slog.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger.With("component", "multi_sink")}
}

func (s *MultiSink) Record(ctx context.Context, ev types.LifecycleEvent) error {
	var firstErr error
	for _, sk := range s.sinks {
		if err := sk.Record(ctx, ev); err != nil {
			s.logger.Error("sink record failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiSink) Close() error {
	var firstErr error
	for _, sk := range s.sinks {
		if err := sk.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
