package redis

import (
	"context"

	"github.com/kailas-cloud/analyst/internal/db"
)

// Redis answers "Unknown index name"; Valkey answers "Index with name ... not found".
var unknownIndexErrs = []string{"unknown index name", "not found"}

// IndexExists probes index existence via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, unknownIndexErrs...) {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// IndexInfo reads the document count of an index. FT.INFO works on both
// servers, unlike a bare "*" FT.SEARCH which Valkey rejects.
func (s *Store) IndexInfo(ctx context.Context, name string) (db.IndexInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, unknownIndexErrs...) {
			return db.IndexInfo{}, db.ErrIndexNotFound
		}
		return db.IndexInfo{}, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	info := db.IndexInfo{Name: name}
	// Flat pairs: [name, value, name, value, ...]; nested values are skipped.
	for i := 0; i+1 < len(raw); i += 2 {
		field, err := raw[i].ToString()
		if err != nil || field != "num_docs" {
			continue
		}
		if n, err := raw[i+1].AsInt64(); err == nil {
			info.NumDocs = int(n)
		}
	}
	return info, nil
}
