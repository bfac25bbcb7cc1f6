package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/metrics"
	"github.com/ranchforce/agriwebb-sync/pkg/validation"
)

// Job names, used for metrics, logs and task names.
const (
	JobSyncAnimals   = "sync_animals"
	JobExportAnimals = "export_animals"
	JobSyncFarms     = "sync_farms"
)

// JobStatus is the outcome of a finished job.
type JobStatus string

const (
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobErrorKind classifies why a job failed.
type JobErrorKind string

const (
	JobErrorConfig   JobErrorKind = "config"
	JobErrorAuth     JobErrorKind = "auth"
	JobErrorProvider JobErrorKind = "provider"
	JobErrorIngest   JobErrorKind = "ingest"
	JobErrorStorage  JobErrorKind = "storage"
	JobErrorInternal JobErrorKind = "internal"
)

// JobError is the structured failure of a job. Path is set for ingestion
// errors and points at the offending payload field.
type JobError struct {
	Kind    JobErrorKind `json:"kind"`
	Message string       `json:"message"`
	Path    string       `json:"path,omitempty"`
}

func (e *JobError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// JobResult is what every job returns in place of an error.
type JobResult struct {
	Job           string    `json:"job"`
	Status        JobStatus `json:"status"`
	Message       string    `json:"message"`
	FarmID        string    `json:"farm_id,omitempty"`
	Fetched       int       `json:"fetched"`
	Ingested      int       `json:"ingested"`
	NonPagedCount int       `json:"non_paged_count,omitempty"`
	ExportPath    string    `json:"export_path,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Error         *JobError `json:"error,omitempty"`
}

// Failed reports whether the job ended with an error.
func (r *JobResult) Failed() bool {
	return r.Status == JobStatusFailed
}

// SyncParams selects one page of animals for the token's account.
type SyncParams struct {
	TokenID uuid.UUID             `json:"token_id"`
	Query   agriwebb.AnimalsQuery `json:"query"`
}

// Validate returns a *validation.Error naming every bad field.
func (p SyncParams) Validate() error {
	if p.TokenID == uuid.Nil {
		return &validation.Error{Fields: []validation.FieldError{
			{Field: "token_id", Tag: "required", Message: "token_id is required"},
		}}
	}
	return validation.Struct(p.Query)
}

// FarmSyncParams selects the farms to sync.
type FarmSyncParams struct {
	TokenID uuid.UUID           `json:"token_id"`
	Query   agriwebb.FarmsQuery `json:"query"`
}

// Validate returns a *validation.Error naming every bad field.
func (p FarmSyncParams) Validate() error {
	if p.TokenID == uuid.Nil {
		return &validation.Error{Fields: []validation.FieldError{
			{Field: "token_id", Tag: "required", Message: "token_id is required"},
		}}
	}
	return nil
}

// ProviderClient is the data side of the AgriWebb client.
type ProviderClient interface {
	Animals(ctx context.Context, creds agriwebb.Credentials, q agriwebb.AnimalsQuery) (*agriwebb.AnimalsPage, error)
	Farms(ctx context.Context, creds agriwebb.Credentials, q agriwebb.FarmsQuery) ([]agriwebb.Farm, error)
}

var _ ProviderClient = (*agriwebb.Client)(nil)

// CredentialSource hands out usable provider credentials for a stored token.
type CredentialSource interface {
	EnsureFresh(ctx context.Context, id uuid.UUID) (agriwebb.Credentials, error)
}

// SyncService runs the page-level jobs. Jobs never return an error or panic:
// every failure is reported in the JobResult.
type SyncService interface {
	// SyncAnimalsPage fetches one page and ingests it in a single transaction.
	SyncAnimalsPage(ctx context.Context, params SyncParams) *JobResult
	// ExportAnimalsPage fetches one page and writes it to the export directory.
	ExportAnimalsPage(ctx context.Context, params SyncParams) *JobResult
	// SyncFarms fetches farms and ingests them in a single transaction.
	SyncFarms(ctx context.Context, params FarmSyncParams) *JobResult
}

type syncService struct {
	db        Database
	creds     CredentialSource
	client    ProviderClient
	animals   AnimalIngester
	farms     FarmIngester
	exportDir string
	now       func() time.Time
	logger    *zap.Logger
}

// NewSyncService creates the job runner. exportDir receives page dumps.
func NewSyncService(
	db Database,
	creds CredentialSource,
	client ProviderClient,
	animals AnimalIngester,
	farms FarmIngester,
	exportDir string,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		db:        db,
		creds:     creds,
		client:    client,
		animals:   animals,
		farms:     farms,
		exportDir: exportDir,
		now:       time.Now,
		logger:    logger.Named("sync"),
	}
}

var _ SyncService = (*syncService)(nil)

// stageError tags an error with the kind it gets when nothing more
// specific is found in its chain.
type stageError struct {
	kind JobErrorKind
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stage(kind JobErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{kind: kind, err: err}
}

// classify builds the structured error for a failed job.
func classify(err error) *JobError {
	je := &JobError{Kind: JobErrorInternal, Message: err.Error()}

	var se *stageError
	if errors.As(err, &se) {
		je.Kind = se.kind
	}

	var missing *MissingFieldError
	var invalid *InvalidEnumError
	var invalidConfig *validation.Error
	switch {
	case errors.As(err, &missing):
		je.Kind, je.Path = JobErrorIngest, missing.Path
	case errors.As(err, &invalid):
		je.Kind, je.Path = JobErrorIngest, invalid.Path
	case errors.As(err, &invalidConfig):
		je.Kind = JobErrorConfig
	case errors.Is(err, agriwebb.ErrAuthentication),
		errors.Is(err, apperrors.ErrNoRefreshToken),
		errors.Is(err, apperrors.ErrTokenExpired),
		errors.Is(err, apperrors.ErrTokenKeyMismatch):
		je.Kind = JobErrorAuth
	}
	return je
}

// run wraps one job: it recovers panics, classifies errors, fills timing
// and records metrics.
func (s *syncService) run(ctx context.Context, job, entity, farmID string, fn func(ctx context.Context, res *JobResult) error) (res *JobResult) {
	res = &JobResult{Job: job, FarmID: farmID, StartedAt: s.now()}
	start := time.Now()
	logger := s.logger.With(zap.String("job", job), zap.String("farm_id", farmID))

	defer func() {
		if p := recover(); p != nil {
			logger.Error("Job panicked", zap.Any("panic", p), zap.Stack("stack"))
			res.Status = JobStatusFailed
			res.Ingested = 0
			res.Error = &JobError{Kind: JobErrorInternal, Message: fmt.Sprintf("panic: %v", p)}
			res.Message = failureMessage(job, res.Error)
		}
		res.FinishedAt = s.now()
		metrics.RecordJob(job, string(res.Status), time.Since(start), entity, res.Ingested)
	}()

	if err := fn(ctx, res); err != nil {
		res.Status = JobStatusFailed
		res.Ingested = 0
		res.Error = classify(err)
		res.Message = failureMessage(job, res.Error)
		logger.Error("Job failed",
			zap.String("kind", string(res.Error.Kind)),
			zap.String("path", res.Error.Path),
			zap.Error(err))
		return res
	}

	res.Status = JobStatusSucceeded
	logger.Info("Job succeeded",
		zap.Int("fetched", res.Fetched),
		zap.Int("ingested", res.Ingested),
		zap.Duration("elapsed", time.Since(start)))
	return res
}

func failureMessage(job string, e *JobError) string {
	switch job {
	case JobExportAnimals:
		return "An error occurred while fetching and exporting animals data: " + e.Message
	case JobSyncFarms:
		return "An error occurred while fetching and storing farms data: " + e.Message
	default:
		return "An error occurred while fetching and storing animals data: " + e.Message
	}
}

func (s *syncService) credentials(ctx context.Context, tokenID uuid.UUID) (agriwebb.Credentials, error) {
	creds, err := s.creds.EnsureFresh(ctx, tokenID)
	if err != nil {
		return agriwebb.Credentials{}, stage(JobErrorAuth, fmt.Errorf("failed to load token %s: %w", tokenID, err))
	}
	return creds, nil
}

func (s *syncService) fetchAnimals(ctx context.Context, params SyncParams, res *JobResult) (*agriwebb.AnimalsPage, error) {
	if err := params.Validate(); err != nil {
		return nil, stage(JobErrorConfig, err)
	}

	creds, err := s.credentials(ctx, params.TokenID)
	if err != nil {
		return nil, err
	}

	page, err := s.client.Animals(ctx, creds, params.Query)
	if err != nil {
		return nil, stage(JobErrorProvider, err)
	}
	res.Fetched = len(page.Animals)
	res.NonPagedCount = page.NonPagedCount
	return page, nil
}

func (s *syncService) SyncAnimalsPage(ctx context.Context, params SyncParams) *JobResult {
	farmID := params.Query.FarmID
	return s.run(ctx, JobSyncAnimals, "animal", farmID, func(ctx context.Context, res *JobResult) error {
		page, err := s.fetchAnimals(ctx, params, res)
		if err != nil {
			return err
		}

		err = s.db.InTx(ctx, func(ctx context.Context) error {
			for i := range page.Animals {
				if _, err := s.animals.Ingest(ctx, farmID, &page.Animals[i]); err != nil {
					return fmt.Errorf("failed to ingest animal %d: %w", i, withPathPrefix(err, indexPath("animals", i)))
				}
			}
			return nil
		})
		if err != nil {
			return stage(JobErrorStorage, err)
		}

		res.Ingested = len(page.Animals)
		res.Message = fmt.Sprintf("Successfully fetched and stored animal data for farm %s", farmID)
		return nil
	})
}

func (s *syncService) ExportAnimalsPage(ctx context.Context, params SyncParams) *JobResult {
	farmID := params.Query.FarmID
	return s.run(ctx, JobExportAnimals, "", farmID, func(ctx context.Context, res *JobResult) error {
		name, err := exportFileName(farmID, s.now())
		if err != nil {
			return stage(JobErrorConfig, err)
		}

		page, err := s.fetchAnimals(ctx, params, res)
		if err != nil {
			return err
		}

		path, err := s.writeExport(name, page.Animals)
		if err != nil {
			return stage(JobErrorStorage, err)
		}

		res.ExportPath = path
		res.Message = fmt.Sprintf("Successfully fetched and stored animal data for farm %s in a JSON file.", farmID)
		return nil
	})
}

// exportIDPattern limits the farm ids that may appear in an export file name.
var exportIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateExportFarmID rejects farm ids that cannot be used in an export
// file name.
func ValidateExportFarmID(farmID string) error {
	if !exportIDPattern.MatchString(farmID) {
		return &validation.Error{Fields: []validation.FieldError{
			{Field: "query.farm_id", Tag: "export_name", Message: "farm_id may only contain letters, digits, '-' and '_' when exporting"},
		}}
	}
	return nil
}

func exportFileName(farmID string, at time.Time) (string, error) {
	if err := ValidateExportFarmID(farmID); err != nil {
		return "", err
	}
	return fmt.Sprintf("animals_observation_%s_%s.json", farmID, at.Format("20060102_150405")), nil
}

// writeExport dumps animals to <exportDir>/animals_observation_<farm>_<YYYYmmdd_HHMMSS>.json.
func (s *syncService) writeExport(name string, animals []agriwebb.Animal) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	if animals == nil {
		animals = []agriwebb.Animal{}
	}
	data, err := json.MarshalIndent(animals, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode animals: %w", err)
	}

	path := filepath.Join(s.exportDir, name)
	if filepath.Dir(path) != filepath.Clean(s.exportDir) {
		return "", fmt.Errorf("export path %q escapes %q", path, s.exportDir)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func (s *syncService) SyncFarms(ctx context.Context, params FarmSyncParams) *JobResult {
	return s.run(ctx, JobSyncFarms, "farm", "", func(ctx context.Context, res *JobResult) error {
		if err := params.Validate(); err != nil {
			return stage(JobErrorConfig, err)
		}

		creds, err := s.credentials(ctx, params.TokenID)
		if err != nil {
			return err
		}

		farms, err := s.client.Farms(ctx, creds, params.Query)
		if err != nil {
			return stage(JobErrorProvider, err)
		}
		res.Fetched = len(farms)

		err = s.db.InTx(ctx, func(ctx context.Context) error {
			for i := range farms {
				if _, err := s.farms.Ingest(ctx, &farms[i]); err != nil {
					return fmt.Errorf("failed to ingest farm %d: %w", i, withPathPrefix(err, indexPath("farms", i)))
				}
			}
			return nil
		})
		if err != nil {
			return stage(JobErrorStorage, err)
		}

		res.Ingested = len(farms)
		res.Message = fmt.Sprintf("Successfully fetched and stored %d farms", len(farms))
		return nil
	})
}
