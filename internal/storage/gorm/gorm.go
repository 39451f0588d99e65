// Package gormstorage implements the storage.Backend interface on a GORM
// database. The database manager decides whether that is Postgres or the
// local SQLite file; this backend is dialect-agnostic.
package gormstorage

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dohaibbur/CYBER-HERO/internal/logging"
	"github.com/dohaibbur/CYBER-HERO/internal/model"
)

// Dependencies holds everything the backend needs.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend persists profiles, mission progress and delivered mail as
// relational rows.
type Backend struct {
	db     *gorm.DB
	logger *logging.SlogManager
}

// New creates a Backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{db: deps.DB, logger: deps.LogManager}
}

func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm storage: no database connection")
	}
	return nil
}

func (b *Backend) Close() error { return nil }

// SaveProfile upserts the profile row and replaces its progress and mail
// rows in one transaction.
func (b *Backend) SaveProfile(snap model.ProfileSnapshot) error {
	row, err := snap.ToRow()
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	return b.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Profile
		err := tx.Where("nickname = ?", snap.Nickname).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("creating profile: %w", err)
			}
		case err != nil:
			return err
		default:
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			if err := tx.Save(&row).Error; err != nil {
				return fmt.Errorf("updating profile: %w", err)
			}
		}

		// progress and mail rows are replaced wholesale; the snapshot is
		// the source of truth
		if err := tx.Unscoped().Where("profile_id = ?", row.ID).Delete(&model.MissionProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("profile_id = ?", row.ID).Delete(&model.Notification{}).Error; err != nil {
			return err
		}

		for _, m := range snap.Missions {
			progress, err := missionToRow(row.ID, m)
			if err != nil {
				return fmt.Errorf("encoding progress for %s: %w", m.MissionID, err)
			}
			if err := tx.Create(&progress).Error; err != nil {
				return fmt.Errorf("saving progress for %s: %w", m.MissionID, err)
			}
		}
		for _, mail := range snap.Inbox {
			notif := model.Notification{
				ProfileID:     row.ID,
				MailID:        mail.MailID,
				Sender:        mail.Sender,
				Subject:       mail.Subject,
				Body:          mail.Body,
				MissionID:     mail.MissionID,
				DeliveredAtMs: mail.DeliveredAtMs,
				Read:          mail.Read,
			}
			if err := tx.Create(&notif).Error; err != nil {
				return fmt.Errorf("saving mail %s: %w", mail.MailID, err)
			}
		}

		b.logger.Logger().Debug("profile saved",
			"nickname", snap.Nickname,
			"missions", len(snap.Missions),
			"mail", len(snap.Inbox))
		return nil
	})
}

// LoadProfile reads a full snapshot back. Unknown nicknames are an
// explicit error, never a default profile.
func (b *Backend) LoadProfile(nickname string) (model.ProfileSnapshot, error) {
	var row model.Profile
	err := b.db.Where("nickname = ?", nickname).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProfileSnapshot{}, model.ErrProfileNotFound
	}
	if err != nil {
		return model.ProfileSnapshot{}, err
	}

	snap, err := model.FromRow(row)
	if err != nil {
		return model.ProfileSnapshot{}, fmt.Errorf("decoding profile %s: %w", nickname, err)
	}

	var progress []model.MissionProgress
	if err := b.db.Where("profile_id = ?", row.ID).Order("id").Find(&progress).Error; err != nil {
		return model.ProfileSnapshot{}, err
	}
	for _, p := range progress {
		m, err := missionFromRow(p)
		if err != nil {
			return model.ProfileSnapshot{}, fmt.Errorf("decoding progress for %s: %w", p.MissionID, err)
		}
		snap.Missions = append(snap.Missions, m)
	}

	var mail []model.Notification
	if err := b.db.Where("profile_id = ?", row.ID).Order("delivered_at_ms").Find(&mail).Error; err != nil {
		return model.ProfileSnapshot{}, err
	}
	for _, n := range mail {
		snap.Inbox = append(snap.Inbox, model.MailSnapshot{
			MailID:        n.MailID,
			Sender:        n.Sender,
			Subject:       n.Subject,
			Body:          n.Body,
			MissionID:     n.MissionID,
			DeliveredAtMs: n.DeliveredAtMs,
			Read:          n.Read,
		})
	}

	return snap, nil
}

func (b *Backend) ListProfiles() ([]model.ProfileSummary, error) {
	var rows []model.Profile
	if err := b.db.Order("last_played_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	slots := make([]model.ProfileSummary, 0, len(rows))
	for _, row := range rows {
		slot := model.ProfileSummary{
			Nickname: row.Nickname,
			Level:    row.Level,
			XP:       row.XP,
		}
		if row.LastPlayedAt.Valid {
			slot.SavedAt = row.LastPlayedAt.Time
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (b *Backend) DeleteProfile(nickname string) error {
	var row model.Profile
	err := b.db.Where("nickname = ?", nickname).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return b.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("profile_id = ?", row.ID).Delete(&model.MissionProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("profile_id = ?", row.ID).Delete(&model.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.SessionEvent{}).Where("profile_id = ?", row.ID).Update("profile_id", nil).Error; err != nil {
			return err
		}
		// hard delete so the nickname can be reused; audit rows outlive
		// the profile they pointed at
		return tx.Unscoped().Delete(&row).Error
	})
}

// RecordEvent writes one audit row. The profile link is best effort: an
// event can fire before the profile has ever been saved.
func (b *Backend) RecordEvent(rec model.EventRecord) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("encoding event payload: %w", err)
	}
	ev := model.SessionEvent{
		SessionID: rec.SessionID,
		Time:      rec.Time,
		Kind:      rec.Kind,
		Payload:   payload,
	}
	if rec.Nickname != "" {
		var row model.Profile
		err := b.db.Where("nickname = ?", rec.Nickname).First(&row).Error
		switch {
		case err == nil:
			ev.ProfileID = &row.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
	}
	return b.db.Create(&ev).Error
}

func missionToRow(profileID uint, m model.MissionSnapshot) (model.MissionProgress, error) {
	objectives, err := json.Marshal(m.Objectives)
	if err != nil {
		return model.MissionProgress{}, err
	}
	answers, err := json.Marshal(m.Answers)
	if err != nil {
		return model.MissionProgress{}, err
	}
	return model.MissionProgress{
		ProfileID:  profileID,
		MissionID:  m.MissionID,
		Objectives: objectives,
		Answers:    answers,
		Complete:   m.Complete,
	}, nil
}

func missionFromRow(p model.MissionProgress) (model.MissionSnapshot, error) {
	m := model.MissionSnapshot{MissionID: p.MissionID, Complete: p.Complete}
	if len(p.Objectives) > 0 {
		if err := json.Unmarshal(p.Objectives, &m.Objectives); err != nil {
			return model.MissionSnapshot{}, err
		}
	}
	if len(p.Answers) > 0 {
		if err := json.Unmarshal(p.Answers, &m.Answers); err != nil {
			return model.MissionSnapshot{}, err
		}
	}
	return m, nil
}
