package notifier

import (
	"context"
	"log"
	"sync"

	"github.com/sk-sanagustin/yep-id/internal/models"
	"golang.org/x/sync/errgroup"
)

type BatchResult struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// Dispatch calls send once per recipient with at most limit sends in
// flight. A failed send is counted and logged; it never stops the batch.
// Recipients not yet started when ctx ends are counted as failed.
func Dispatch(ctx context.Context, recipients []models.Participant, limit int, send func(models.Participant) error) BatchResult {
	var (
		mu     sync.Mutex
		result BatchResult
	)

	record := func(p models.Participant, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			log.Printf("Failed to notify %s: %v", p.Email, err)
			result.Failed++
			result.Errors = append(result.Errors, p.Email+": "+err.Error())
			return
		}
		result.Sent++
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, p := range recipients {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(p, err)
				return nil
			}
			record(p, send(p))
			return nil
		})
	}
	_ = g.Wait()

	return result
}
