//go:build !cgo

package dataset

import "context"

func mirrorKuzu(_ context.Context, _ Source) (Source, error) {
	return nil, ErrBackendUnavailable
}
