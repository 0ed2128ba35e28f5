// SPDX-License-Identifier: Apache-2.0

// Command stubserver serves a synthetic project snapshot over the same
// HTTP surface the snapshot service exposes. It exists for local testing
// of the sync engine:
//
//	stubserver -addr :8080 -blocks 16
//	snapsync -base-url http://localhost:8080 demo head demo.sqlite3
package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/soundpool/snapsync/internal/codec"
	"github.com/soundpool/snapsync/internal/logger"
	"github.com/soundpool/snapsync/models"
)

type fixture struct {
	projectID  string
	snapshotID string
	blob       []byte
	blocks     map[string][]byte // upper-case hash -> compressed payload
	order      []string
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	blocks := flag.Int("blocks", 8, "number of sample blocks in the snapshot")
	samples := flag.Int("samples", 4096, "sample bytes per block")
	flag.Parse()

	log := logger.NewLogger("stubserver")

	fx := buildFixture(*blocks, *samples)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/projects/{projectID}/snapshots/{snapshotID}", fx.handleManifest)
	r.Get("/blobs/project", fx.handleProjectBlob)
	r.Get("/blobs/blocks/{hash}", fx.handleBlock)

	log.Info().
		Str("addr", *addr).
		Str("project_id", fx.projectID).
		Int("blocks", len(fx.order)).
		Msg("stub snapshot server listening")

	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal().Err(err).Msg("stub server failed")
	}
}

func buildFixture(blockCount, sampleBytes int) *fixture {
	fx := &fixture{
		projectID:  "demo",
		snapshotID: "head",
		blocks:     make(map[string][]byte, blockCount),
	}

	doc := []byte(`<project version="1"/>`)
	dict := []byte("stub-dictionary")
	blob := make([]byte, 8, 8+len(dict)+len(doc))
	binary.LittleEndian.PutUint64(blob, uint64(len(dict)))
	fx.blob = append(append(blob, dict...), doc...)

	for i := 0; i < blockCount; i++ {
		payload := make([]byte, sampleBytes)
		_, _ = rand.Read(payload)

		compressed := codec.EncodeBlock(&models.DecodedBlock{
			BlockID:    int64(i + 1),
			Format:     models.SampleFormatFloat32,
			Block:      models.MinMaxRMS{Min: -1, Max: 1, RMS: 0.5},
			Summary256: []models.MinMaxRMS{{Min: -1, Max: 1, RMS: 0.5}},
			Summary64k: []models.MinMaxRMS{{Min: -1, Max: 1, RMS: 0.5}},
			Samples:    payload,
		})

		sum := sha256.Sum256(compressed)
		hash := strings.ToUpper(hex.EncodeToString(sum[:]))
		fx.blocks[hash] = compressed
		fx.order = append(fx.order, hash)
	}

	return fx
}

func (fx *fixture) handleManifest(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "projectID") != fx.projectID || chi.URLParam(r, "snapshotID") != fx.snapshotID {
		http.NotFound(w, r)
		return
	}

	base := "http://" + r.Host
	info := models.SnapshotInfo{
		ID:      fx.snapshotID,
		FileURL: base + "/blobs/project",
	}
	for _, hash := range fx.order {
		info.Blocks = append(info.Blocks, models.BlockDescriptor{
			Hash: hash,
			URL:  fmt.Sprintf("%s/blobs/blocks/%s", base, hash),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

func (fx *fixture) handleProjectBlob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(fx.blob)
}

func (fx *fixture) handleBlock(w http.ResponseWriter, r *http.Request) {
	hash := strings.ToUpper(chi.URLParam(r, "hash"))

	payload, ok := fx.blocks[hash]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(payload)
}

// requestLogger attaches a request-scoped logger to the context and logs
// every request on completion.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := log.GetChildLogger()
			ctx := l.WithContext(r.Context())

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.FromRequest(r.WithContext(ctx)).Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Msg("request served")
		})
	}
}
