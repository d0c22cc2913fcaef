package repository

import (
	"context"
	"fmt"
	"time"

	"pollux-backend/internal/gitevent/domain"
	"pollux-backend/internal/gitevent/dto"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// gormGitEventRepository implements GitEventRepository using GORM
type gormGitEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGitEventRepository creates a new GORM-based GitEventRepository
func NewGitEventRepository(db *gorm.DB, logger *zap.Logger) GitEventRepository {
	return &gormGitEventRepository{db: db, logger: logger}
}

func (r *gormGitEventRepository) Reconcile(ctx context.Context, platform string, events []domain.NormalizedEvent, detail ProjectDetailFunc) (*domain.SyncSummary, error) {
	summary := &domain.SyncSummary{Platform: platform, TotalSeen: len(events)}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ensurePlatform(tx, platform); err != nil {
			return err
		}

		for _, ev := range events {
			inserted, err := r.reconcileOne(ctx, tx, platform, ev, detail)
			if err != nil {
				return err
			}
			if inserted {
				summary.NewlyInserted++
			} else {
				summary.Skipped++
			}
		}

		// Advancing the watermark inside the transaction keeps "rows written"
		// and "window consumed" atomic: a rollback leaves both untouched.
		return tx.Model(&domain.GitPlatform{}).
			Where("name = ?", platform).
			Update("first_sync", time.Now().UTC().Truncate(time.Second)).Error
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// reconcileOne handles a single normalized event. Returns true if a new row
// pair was inserted; (false, nil) means the event was skipped for a data
// reason. Only infrastructure errors are returned, and they abort the batch.
func (r *gormGitEventRepository) reconcileOne(ctx context.Context, tx *gorm.DB, platform string, ev domain.NormalizedEvent, detail ProjectDetailFunc) (bool, error) {
	timestamp, err := ev.Time()
	if err != nil {
		r.logger.Warn("skipping event with unparsable timestamp",
			zap.String("platform", platform),
			zap.String("created_at", ev.CreatedAt),
			zap.Error(err))
		return false, nil
	}

	project, err := r.resolveProject(ctx, tx, platform, ev, detail)
	if err != nil {
		return false, err
	}
	if project == nil {
		return false, nil
	}

	if ev.Action == "" {
		r.logger.Warn("skipping event with unmapped action",
			zap.String("platform", platform),
			zap.String("raw_action", ev.RawAction))
		return false, nil
	}

	action, err := r.resolveAction(tx, ev.Action)
	if err != nil {
		return false, err
	}
	if action == nil {
		return false, nil
	}

	duplicate, err := r.isDuplicate(tx, timestamp, project.ID, action.ID)
	if err != nil {
		return false, err
	}
	if duplicate {
		r.logger.Debug("skipping duplicate event",
			zap.String("platform", platform),
			zap.Time("timestamp", timestamp),
			zap.String("action", action.Name),
			zap.String("project", project.Name))
		return false, nil
	}

	event := domain.Event{ID: uuid.New().String(), Timestamp: timestamp}
	if err := tx.Create(&event).Error; err != nil {
		return false, err
	}

	gitEvent := domain.GitEvent{ID: event.ID, ActionID: action.ID, ProjectID: project.ID}
	if err := tx.Create(&gitEvent).Error; err != nil {
		return false, err
	}

	return true, nil
}

// ensurePlatform creates the platform row on first write. More than one row
// per name indicates manual tampering and aborts the cycle.
func (r *gormGitEventRepository) ensurePlatform(tx *gorm.DB, platform string) error {
	var platforms []domain.GitPlatform
	if err := tx.Where("name = ?", platform).Find(&platforms).Error; err != nil {
		return err
	}

	if len(platforms) > 1 {
		return fmt.Errorf("%d platform rows share the name %q", len(platforms), platform)
	}

	if len(platforms) == 0 {
		row := domain.GitPlatform{Name: platform, FirstSync: time.Now().UTC().Truncate(time.Second)}
		return tx.Create(&row).Error
	}

	return nil
}

// resolveProject finds the stored project for an event, fetching its detail
// from the platform API and inserting it when unknown. A nil result (without
// error) means the event must be skipped: the project is non-public,
// undiscoverable, or duplicated in the store.
func (r *gormGitEventRepository) resolveProject(ctx context.Context, tx *gorm.DB, platform string, ev domain.NormalizedEvent, detail ProjectDetailFunc) (*domain.GitProject, error) {
	var projects []domain.GitProject
	err := tx.Where("platform = ? AND platform_project_id = ?", platform, ev.ExternalProjectID).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}

	if len(projects) > 1 {
		r.logger.Error("more than one project row for the same platform project, skipping event",
			zap.String("platform", platform),
			zap.Int64("platform_project_id", ev.ExternalProjectID))
		return nil, nil
	}
	if len(projects) == 1 {
		return &projects[0], nil
	}

	info, err := detail(ctx, ev.ExternalProjectID)
	if err != nil {
		r.logger.Warn("project detail fetch failed, skipping event",
			zap.String("platform", platform),
			zap.Int64("platform_project_id", ev.ExternalProjectID),
			zap.Error(err))
		return nil, nil
	}
	if !info.Public() {
		r.logger.Debug("skipping event on non-public project",
			zap.String("platform", platform),
			zap.Int64("platform_project_id", ev.ExternalProjectID))
		return nil, nil
	}

	project := domain.GitProject{
		ID:                uuid.New().String(),
		Platform:          platform,
		PlatformProjectID: info.ExternalID,
		Name:              info.Name,
		URL:               info.URL,
	}
	if err := tx.Create(&project).Error; err != nil {
		return nil, err
	}
	r.logger.Debug("inserted project",
		zap.String("platform", platform),
		zap.String("name", project.Name))

	return &project, nil
}

// resolveAction finds the canonical action row, inserting it when absent. A
// nil result means the action name is duplicated in the store and the event
// must be skipped.
func (r *gormGitEventRepository) resolveAction(tx *gorm.DB, name string) (*domain.GitAction, error) {
	var actions []domain.GitAction
	if err := tx.Where("name = ?", name).Find(&actions).Error; err != nil {
		return nil, err
	}

	if len(actions) > 1 {
		r.logger.Error("more than one action row with the same name, skipping event",
			zap.String("action", name))
		return nil, nil
	}
	if len(actions) == 1 {
		return &actions[0], nil
	}

	action := domain.GitAction{ID: uuid.New().String(), Name: name}
	if err := tx.Create(&action).Error; err != nil {
		return nil, err
	}

	return &action, nil
}

// isDuplicate checks the dedup triple (timestamp, project, action). Upstream
// platforms carry no idempotency token, so this triple stands in for one: two
// genuinely distinct events in the same second with the same project and
// action collapse into a single row.
func (r *gormGitEventRepository) isDuplicate(tx *gorm.DB, timestamp time.Time, projectID, actionID string) (bool, error) {
	var count int64
	err := tx.Model(&domain.GitEvent{}).
		Joins("JOIN events ON events.id = git_events.id").
		Where("events.timestamp = ? AND git_events.project_id = ? AND git_events.action_id = ?",
			timestamp, projectID, actionID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	if count > 1 {
		r.logger.Error("store already holds duplicate events for the same dedup triple",
			zap.Int64("count", count),
			zap.Time("timestamp", timestamp),
			zap.String("project_id", projectID),
			zap.String("action_id", actionID))
	}

	return count > 0, nil
}

func (r *gormGitEventRepository) Watermark(platform string) (*time.Time, error) {
	var row domain.GitPlatform
	err := r.db.Where("name = ?", platform).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row.FirstSync, nil
}

// gitEventRow is the flat shape FindEventsSince scans the join into
type gitEventRow struct {
	Timestamp   time.Time
	Platform    string
	Action      string
	ProjectName string
	ProjectURL  string
}

func (r *gormGitEventRepository) FindEventsSince(since time.Time) ([]dto.GitEventRecord, error) {
	var rows []gitEventRow
	err := r.db.Model(&domain.Event{}).
		Select("events.timestamp AS timestamp, git_projects.platform AS platform, git_actions.name AS action, git_projects.name AS project_name, git_projects.url AS project_url").
		Joins("JOIN git_events ON git_events.id = events.id").
		Joins("JOIN git_projects ON git_projects.id = git_events.project_id").
		Joins("JOIN git_actions ON git_actions.id = git_events.action_id").
		Where("events.timestamp >= ?", since).
		Order("events.timestamp DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]dto.GitEventRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, dto.GitEventRecord{
			Timestamp: row.Timestamp,
			Platform:  row.Platform,
			Action:    row.Action,
			Project:   dto.ProjectInfo{Name: row.ProjectName, URL: row.ProjectURL},
		})
	}

	return records, nil
}
