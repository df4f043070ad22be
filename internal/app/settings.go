package app

import (
	"errors"

	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigManager reads and writes the DB-backed system settings. Values are
// stored as strings and cast on access, missing keys read as zero values.
type ConfigManager struct {
	app *Application
}

func NewConfigManager(app *Application) *ConfigManager {
	return &ConfigManager{app: app}
}

func (cm *ConfigManager) value(category, name string) string {
	var cfg domain.SysConfig
	err := cm.app.gormDB.
		Where("type = ? and name = ?", category, name).
		First(&cfg).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zap.L().Error("settings query failed",
				zap.String("category", category),
				zap.String("name", name),
				zap.Error(err))
		}
		return ""
	}
	return cfg.Value
}

// GetString returns a setting as string
func (cm *ConfigManager) GetString(category, name string) string {
	return cm.value(category, name)
}

// GetInt returns a setting as int, 0 when missing or not numeric
func (cm *ConfigManager) GetInt(category, name string) int {
	return cast.ToInt(cm.value(category, name))
}

// GetInt64 returns a setting as int64, 0 when missing or not numeric
func (cm *ConfigManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(cm.value(category, name))
}

// GetBool returns a setting as bool. "on" counts as true alongside the
// usual boolean spellings.
func (cm *ConfigManager) GetBool(category, name string) bool {
	v := cm.value(category, name)
	if v == "on" {
		return true
	}
	return cast.ToBool(v)
}

// SetValue creates or updates one setting
func (cm *ConfigManager) SetValue(category, name, value string) error {
	var cfg domain.SysConfig
	err := cm.app.gormDB.
		Where("type = ? and name = ?", category, name).
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cm.app.gormDB.Create(&domain.SysConfig{
			Type:  category,
			Name:  name,
			Value: value,
		}).Error
	}
	if err != nil {
		return err
	}
	return cm.app.gormDB.Model(&domain.SysConfig{}).
		Where("id = ?", cfg.ID).
		Update("value", value).Error
}
