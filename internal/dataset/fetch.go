package dataset

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/driftwatch-labs/driftwatch-go/internal/domain"
	"github.com/driftwatch-labs/driftwatch-go/internal/storage/objectstore"
)

// FetchRawTrips downloads an epoch's raw dataset into a transient local file,
// parses it, and removes the file before returning, success or not.
func FetchRawTrips(ctx context.Context, store objectstore.Store, bucket string, epoch domain.Epoch) ([]RawTripRecord, error) {
	body, _, err := store.Get(ctx, bucket, domain.RawDataKey(epoch))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "driftwatch-raw-*.parquet")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return nil, fmt.Errorf("download raw dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("flush raw dataset: %w", err)
	}
	return ReadRawTrips(tmp.Name())
}
