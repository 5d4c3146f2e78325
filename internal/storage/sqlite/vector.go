package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"math"

	"github.com/ternarybob/atsforge/internal/interfaces"
	sqlitedriver "modernc.org/sqlite"
)

func init() {
	if err := sqlitedriver.RegisterDeterministicScalarFunction("vec_distance_cosine", 2, vecDistanceCosine); err != nil {
		panic(fmt.Sprintf("registering vec_distance_cosine: %v", err))
	}
}

// vecDistanceCosine computes 1-cosine_similarity between two little-endian
// float32 BLOBs, matching encodeEmbedding's layout. Registered as a SQL
// scalar function so embedding search can run as a plain SELECT against
// job_embeddings, standing in for the sqlite-vec extension's own
// vec_distance_cosine without requiring cgo.
func vecDistanceCosine(ctx *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_distance_cosine expects 2 arguments")
	}
	a, err := blobToFloat32(args[0])
	if err != nil {
		return nil, err
	}
	b, err := blobToFloat32(args[1])
	if err != nil {
		return nil, err
	}
	if len(a) != len(b) || len(a) == 0 {
		return float64(2), nil
	}

	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return float64(2), nil
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
}

func blobToFloat32(v driver.Value) ([]float32, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("vec_distance_cosine: expected BLOB, got %T", v)
	}
	return decodeEmbedding(b)
}

// SimilarJobs ranks every job with a stored embedding by cosine distance
// to query, ascending, capped at limit. Used for near-duplicate detection
// across postings that differ only in wording (same role re-listed under
// a different source URL) and for "more like this" style lookups.
func (s *JobStorage) SimilarJobs(ctx context.Context, query []float32, limit int) ([]interfaces.SimilarJob, error) {
	encoded, err := encodeEmbedding(query)
	if err != nil {
		return nil, fmt.Errorf("encoding query embedding: %w", err)
	}

	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT job_id, vec_distance_cosine(embedding, ?) AS distance
		FROM job_embeddings
		ORDER BY distance ASC
		LIMIT ?
	`, encoded, limit)
	if err != nil {
		return nil, fmt.Errorf("querying similar jobs: %w", err)
	}
	defer rows.Close()

	var out []interfaces.SimilarJob
	for rows.Next() {
		var sj interfaces.SimilarJob
		if err := rows.Scan(&sj.JobID, &sj.Distance); err != nil {
			return nil, fmt.Errorf("scanning similar job row: %w", err)
		}
		out = append(out, sj)
	}
	return out, rows.Err()
}
