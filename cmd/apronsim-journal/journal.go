package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/internal/model"
	"github.com/apronsim/apronsim/internal/model/convert"
	"github.com/apronsim/apronsim/internal/storage/memory"
	"github.com/apronsim/apronsim/pkg/core"
)

func listSessions(db *gorm.DB, w io.Writer) error {
	var sessions []model.Session
	if err := db.Order("id").Find(&sessions).Error; err != nil {
		return fmt.Errorf("error getting sessions: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tTOPOLOGY\tCOMMANDS\tLIFECYCLE")
	for _, s := range sessions {
		var commands, lifecycle int64
		if err := db.Model(&model.CommandLog{}).Where("session_id = ?", s.ID).Count(&commands).Error; err != nil {
			return fmt.Errorf("error counting commands: %w", err)
		}
		if err := db.Model(&model.LifecycleLog{}).Where("session_id = ?", s.ID).Count(&lifecycle).Error; err != nil {
			return fmt.Errorf("error counting lifecycle events: %w", err)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n",
			s.ID, s.StartTime.UTC().Format(time.RFC3339), s.Topology, commands, lifecycle)
	}
	return tw.Flush()
}

// exportSession writes one stored session in the same format the memory
// backend produces.
func exportSession(db *gorm.DB, cfg config.MemoryConfig, id uint) (string, error) {
	var s model.Session
	if err := db.First(&s, id).Error; err != nil {
		return "", fmt.Errorf("error getting session %d: %w", id, err)
	}

	var commandLogs []model.CommandLog
	if err := db.Where("session_id = ?", id).Order("seq").Find(&commandLogs).Error; err != nil {
		return "", fmt.Errorf("error getting commands: %w", err)
	}
	var lifecycleLogs []model.LifecycleLog
	if err := db.Where("session_id = ?", id).Order("tick, id").Find(&lifecycleLogs).Error; err != nil {
		return "", fmt.Errorf("error getting lifecycle events: %w", err)
	}

	session := convert.SessionToCore(s)
	commands := make([]core.CommandRecord, 0, len(commandLogs))
	for _, c := range commandLogs {
		commands = append(commands, convert.CommandLogToCore(c))
	}
	lifecycle := make([]core.LifecycleEvent, 0, len(lifecycleLogs))
	for _, e := range lifecycleLogs {
		lifecycle = append(lifecycle, convert.LifecycleLogToCore(e))
	}

	return memory.WriteExport(cfg, memory.BuildExport(&session, commands, lifecycle))
}

// pruneSessions deletes sessions started more than days ago along with
// their journal rows.
func pruneSessions(db *gorm.DB, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	var ids []uint
	if err := db.Model(&model.Session{}).Where("start_time < ?", cutoff).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("error finding sessions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id IN ?", ids).Delete(&model.CommandLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&model.LifecycleLog{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Session{}, ids).Error
	})
	if err != nil {
		return 0, fmt.Errorf("error deleting sessions: %w", err)
	}
	return int64(len(ids)), nil
}
