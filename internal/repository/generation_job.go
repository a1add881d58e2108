package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const generationJobColumns = `id, subjects, topic, question_count, trigger, status, results, error, created_at, started_at, finished_at`

type GenerationJobRepository struct {
	db dbtx
}

func NewGenerationJobRepository(pool *pgxpool.Pool) *GenerationJobRepository {
	return &GenerationJobRepository{db: pool}
}

func NewGenerationJobRepositoryWithTx(tx pgx.Tx) *GenerationJobRepository {
	return &GenerationJobRepository{db: tx}
}

func (r *GenerationJobRepository) Create(ctx context.Context, job *domain.GenerationJob) error {
	results, err := marshalResults(job.Results)
	if err != nil {
		return err
	}
	var errPtr *string
	if job.Error != "" {
		errPtr = &job.Error
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO generation_jobs (id, subjects, topic, question_count, trigger, status, results, error, created_at, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.Subjects, job.Topic, job.Count, job.Trigger, job.Status, results, errPtr,
		job.CreatedAt, job.StartedAt, job.FinishedAt,
	)
	return err
}

func (r *GenerationJobRepository) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	job, err := scanGenerationJob(r.db.QueryRow(ctx,
		`SELECT `+generationJobColumns+` FROM generation_jobs WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGenerationJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns jobs newest first. A nil cursor starts from the newest job.
func (r *GenerationJobRepository) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]*domain.GenerationJob, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		rows pgx.Rows
		err  error
	)
	if cursor == nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+generationJobColumns+` FROM generation_jobs
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+generationJobColumns+` FROM generation_jobs
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	return collectGenerationJobs(rows)
}

// ClaimQueued moves up to limit queued jobs to running, oldest first. Rows locked
// by another claimer are skipped, so a job is never claimed twice.
func (r *GenerationJobRepository) ClaimQueued(ctx context.Context, limit int) ([]*domain.GenerationJob, error) {
	if limit <= 0 {
		limit = 1
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM generation_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE generation_jobs
		 SET status = $3,
		     started_at = $4,
		     error = NULL
		 FROM cte
		 WHERE generation_jobs.id = cte.id
		 RETURNING generation_jobs.id, generation_jobs.subjects, generation_jobs.topic, generation_jobs.question_count,
		           generation_jobs.trigger, generation_jobs.status, generation_jobs.results, generation_jobs.error,
		           generation_jobs.created_at, generation_jobs.started_at, generation_jobs.finished_at`,
		domain.GenerationJobStatusQueued, limit, domain.GenerationJobStatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return collectGenerationJobs(rows)
}

// Finish records the terminal state of a job.
func (r *GenerationJobRepository) Finish(ctx context.Context, id string, status domain.GenerationJobStatus, results []domain.SubjectResult, errMsg string) error {
	if status != domain.GenerationJobStatusCompleted && status != domain.GenerationJobStatusFailed {
		return domain.ErrInvalidJobStatus
	}
	encoded, err := marshalResults(results)
	if err != nil {
		return err
	}
	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE generation_jobs SET status = $1, results = $2, error = $3, finished_at = $4 WHERE id = $5`,
		status, encoded, errPtr, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrGenerationJobNotFound
	}
	return nil
}

// RequeueRunning puts jobs left running by a previous process back in the queue.
func (r *GenerationJobRepository) RequeueRunning(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE generation_jobs SET status = $1, started_at = NULL WHERE status = $2`,
		domain.GenerationJobStatusQueued, domain.GenerationJobStatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func marshalResults(results []domain.SubjectResult) ([]byte, error) {
	if results == nil {
		results = []domain.SubjectResult{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job results: %w", err)
	}
	return b, nil
}

func scanGenerationJob(row pgx.Row) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	var results []byte
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &job.Subjects, &job.Topic, &job.Count, &job.Trigger, &job.Status,
		&results, &errMsg, &job.CreatedAt, &job.StartedAt, &job.FinishedAt); err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &job.Results); err != nil {
			return nil, fmt.Errorf("failed to decode job results: %w", err)
		}
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}

func collectGenerationJobs(rows pgx.Rows) ([]*domain.GenerationJob, error) {
	defer rows.Close()

	jobs := make([]*domain.GenerationJob, 0)
	for rows.Next() {
		job, err := scanGenerationJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
