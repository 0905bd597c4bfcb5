package monitoring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/taskflow-be/internal/storage"
)

// AttachmentIndex lists every stored filename that is still referenced by a task.
type AttachmentIndex interface {
	AttachmentFilenames(ctx context.Context) ([]string, error)
}

// Janitor removes attachment content that no task references anymore.
type Janitor struct {
	index AttachmentIndex
	blobs storage.BlobStore
	grace time.Duration
	cron  *cron.Cron
	now   func() time.Time
}

// NewJanitor creates a Janitor. Blobs younger than grace are kept so in-flight uploads survive.
func NewJanitor(index AttachmentIndex, blobs storage.BlobStore, grace time.Duration) *Janitor {
	return &Janitor{
		index: index,
		blobs: blobs,
		grace: grace,
		cron:  cron.New(),
		now:   time.Now,
	}
}

// Start schedules the sweep with a cron spec such as "@every 1h". An empty spec disables it.
func (j *Janitor) Start(spec string) error {
	if spec == "" {
		log.Info().Msg("Attachment janitor disabled")
		return nil
	}
	if _, err := j.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := j.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("Janitor: Sweep failed")
		}
	}); err != nil {
		return err
	}
	log.Info().Str("schedule", spec).Msg("Starting attachment janitor...")
	j.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep deletes unreferenced blobs older than the grace period and returns how many it removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	names, err := j.index.AttachmentFilenames(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(names))
	for _, name := range names {
		referenced[name] = struct{}{}
	}

	blobs, err := j.blobs.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := j.now().Add(-j.grace)
	removed := 0
	for _, blob := range blobs {
		if _, ok := referenced[blob.Name]; ok {
			continue
		}
		if blob.Modified.After(cutoff) {
			continue
		}
		if err := j.blobs.Delete(ctx, blob.Name); err != nil {
			log.Warn().Err(err).Str("filename", blob.Name).Msg("Janitor: Failed to remove orphaned attachment")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Janitor: Removed orphaned attachments")
	}
	return removed, nil
}
