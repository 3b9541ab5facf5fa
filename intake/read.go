package intake

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
)

type readResult struct {
	data []byte
	err  error
}

// Read loads at most limit bytes from r. It resolves exactly once: with the payload,
// with a read error, or with the context error if the caller gives up first.
func Read(ctx context.Context, r io.Reader, limit int64) ([]byte, error) {
	done := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(r, limit+1))
		done <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", res.err)
		}
		if int64(len(res.data)) > limit {
			return nil, ErrTooLarge
		}
		return res.data, nil
	}
}

// Encode returns the standard base64 form used for transmission.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
